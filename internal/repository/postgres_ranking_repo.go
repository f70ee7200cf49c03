package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mathlovers/internal/model"
)

// PostgresRankingRepo はPostgreSQLでランキングを集計する。
type PostgresRankingRepo struct {
	db *sql.DB
}

// NewPostgresRankingRepo はPostgresRankingRepoを生成する。
func NewPostgresRankingRepo(db *sql.DB) *PostgresRankingRepo {
	return &PostgresRankingRepo{db: db}
}

// Top は質問数、合計いいね数の順に上位limit件を返す。
// usersとのINNER JOINにより存在しないユーザーは除外される。
func (r *PostgresRankingRepo) Top(ctx context.Context, limit int) ([]model.RankingEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.username, COUNT(q.id) AS question_count,
		        COALESCE(SUM(lc.cnt), 0)::bigint AS total_likes
		 FROM questions q
		 JOIN users u ON u.id = q.author_id
		 LEFT JOIN (
		     SELECT target_id, COUNT(*) AS cnt
		     FROM likes
		     WHERE target_type = 'question'
		     GROUP BY target_id
		 ) lc ON lc.target_id = q.id
		 GROUP BY u.id, u.username
		 ORDER BY question_count DESC, total_likes DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rankings: %w", err)
	}
	defer rows.Close()

	entries := []model.RankingEntry{}
	for rows.Next() {
		var e model.RankingEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.QuestionCount, &e.TotalLikes); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rankings: %w", err)
	}
	return entries, nil
}

// PostgresPinger はPostgreSQLの疎通を確認する。
type PostgresPinger struct {
	db *sql.DB
}

// NewPostgresPinger はPostgresPingerを生成する。
func NewPostgresPinger(db *sql.DB) *PostgresPinger {
	return &PostgresPinger{db: db}
}

// Ping はデータベースにPingを送る。
func (p *PostgresPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// compile-time interface check
var (
	_ RankingRepository = (*PostgresRankingRepo)(nil)
	_ Pinger            = (*PostgresPinger)(nil)
)
