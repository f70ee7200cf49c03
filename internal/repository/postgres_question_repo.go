package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/mathlovers/internal/model"
)

// PostgresQuestionRepo はPostgreSQLを使用した質問リポジトリ。
// likedByはlikesテーブルから集約して返す。
type PostgresQuestionRepo struct {
	db *sql.DB
}

// NewPostgresQuestionRepo はPostgresQuestionRepoを生成する。
func NewPostgresQuestionRepo(db *sql.DB) *PostgresQuestionRepo {
	return &PostgresQuestionRepo{db: db}
}

const questionSelect = `
	SELECT q.id, q.author_id, q.title, q.content, q.tags, COALESCE(q.image, ''),
	       ARRAY(SELECT l.user_id::text FROM likes l
	             WHERE l.target_type = 'question' AND l.target_id = q.id
	             ORDER BY l.created_at),
	       q.created_at, q.updated_at, COALESCE(u.username, '')
	FROM questions q
	LEFT JOIN users u ON u.id = q.author_id`

// List は全質問を作成日時の降順で返す。
func (r *PostgresQuestionRepo) List(ctx context.Context) ([]model.QuestionWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx, questionSelect+` ORDER BY q.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := []model.QuestionWithAuthor{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	return questions, nil
}

// FindByID は指定IDの質問を取得する。見つからない場合はnilを返す。
func (r *PostgresQuestionRepo) FindByID(ctx context.Context, id string) (*model.QuestionWithAuthor, error) {
	if !validUUID(id) {
		return nil, nil
	}
	q, err := scanQuestion(r.db.QueryRowContext(ctx, questionSelect+` WHERE q.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Create は質問を作成する。
func (r *PostgresQuestionRepo) Create(ctx context.Context, q *model.Question) error {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO questions (id, author_id, title, content, tags, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.AuthorID, q.Title, q.Content, pq.Array(tags), nullString(q.Image), q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// Delete は質問と、その質問および回答へのいいねを同一トランザクションで削除する。
// 回答は外部キーのCASCADEで削除される。
func (r *PostgresQuestionRepo) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return fmt.Errorf("question not found: %s", id)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM likes
		 WHERE (target_type = 'question' AND target_id = $1)
		    OR (target_type = 'answer' AND target_id IN (SELECT id FROM answers WHERE question_id = $1))`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete likes: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("question not found: %s", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*model.QuestionWithAuthor, error) {
	var q model.QuestionWithAuthor
	err := row.Scan(
		&q.ID, &q.AuthorID, &q.Title, &q.Content, pq.Array(&q.Tags), &q.Image,
		pq.Array(&q.LikedBy), &q.CreatedAt, &q.UpdatedAt, &q.AuthorUsername,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan question: %w", err)
	}
	return &q, nil
}

// compile-time interface check
var _ QuestionRepository = (*PostgresQuestionRepo)(nil)
