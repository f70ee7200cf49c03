package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/mathlovers/internal/model"
)

// PostgresLikeRepo はlikesテーブルを使用したいいねリポジトリ。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// likeTargetTables は対象種別ごとのロック対象テーブル。
var likeTargetTables = map[model.LikeTarget]string{
	model.LikeTargetQuestion: "questions",
	model.LikeTargetAnswer:   "answers",
}

// Toggle は対象行をFOR UPDATEでロックしたトランザクション内で
// いいね行の削除または挿入を行い、更新後の件数を返す。
// 同一対象への同時トグルは行ロックで直列化される。
func (r *PostgresLikeRepo) Toggle(ctx context.Context, target model.LikeTarget, targetID, userID string) (*model.LikeResult, error) {
	table, ok := likeTargetTables[target]
	if !ok {
		return nil, fmt.Errorf("unknown like target: %s", target)
	}
	if !validUUID(targetID) {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE id = $1 FOR UPDATE`, targetID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock like target: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM likes WHERE target_type = $1 AND target_id = $2 AND user_id = $3`,
		string(target), targetID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	liked := removed == 0
	if liked {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO likes (target_type, target_id, user_id) VALUES ($1, $2, $3)`,
			string(target), targetID, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert like: %w", err)
		}
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM likes WHERE target_type = $1 AND target_id = $2`,
		string(target), targetID,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &model.LikeResult{Likes: count, IsLiked: liked}, nil
}

// DeleteOrphaned は削除済みの質問・回答を指すいいねを削除する。
func (r *PostgresLikeRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM likes l
		 WHERE (l.target_type = 'question' AND NOT EXISTS (SELECT 1 FROM questions q WHERE q.id = l.target_id))
		    OR (l.target_type = 'answer' AND NOT EXISTS (SELECT 1 FROM answers a WHERE a.id = l.target_id))`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned likes: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ LikeRepository = (*PostgresLikeRepo)(nil)
