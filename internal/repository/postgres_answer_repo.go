package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/mathlovers/internal/model"
)

// PostgresAnswerRepo はPostgreSQLを使用した回答リポジトリ。
type PostgresAnswerRepo struct {
	db *sql.DB
}

// NewPostgresAnswerRepo はPostgresAnswerRepoを生成する。
func NewPostgresAnswerRepo(db *sql.DB) *PostgresAnswerRepo {
	return &PostgresAnswerRepo{db: db}
}

const answerLikedBy = `ARRAY(SELECT l.user_id::text FROM likes l
	WHERE l.target_type = 'answer' AND l.target_id = a.id
	ORDER BY l.created_at)`

// ListByQuestion は質問の回答を作成日時の降順で返す。
func (r *PostgresAnswerRepo) ListByQuestion(ctx context.Context, questionID string) ([]model.AnswerWithAuthor, error) {
	answers := []model.AnswerWithAuthor{}
	if !validUUID(questionID) {
		return answers, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.question_id, a.author_id, a.content, COALESCE(a.image, ''), `+answerLikedBy+`,
		        a.created_at, a.updated_at, COALESCE(u.username, '')
		 FROM answers a
		 LEFT JOIN users u ON u.id = a.author_id
		 WHERE a.question_id = $1
		 ORDER BY a.created_at DESC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.AnswerWithAuthor
		if err := rows.Scan(
			&a.ID, &a.QuestionID, &a.AuthorID, &a.Content, &a.Image, pq.Array(&a.LikedBy),
			&a.CreatedAt, &a.UpdatedAt, &a.AuthorUsername,
		); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate answers: %w", err)
	}
	return answers, nil
}

// FindByID は指定IDの回答を取得する。見つからない場合はnilを返す。
func (r *PostgresAnswerRepo) FindByID(ctx context.Context, id string) (*model.Answer, error) {
	if !validUUID(id) {
		return nil, nil
	}

	var a model.Answer
	err := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.question_id, a.author_id, a.content, COALESCE(a.image, ''), `+answerLikedBy+`,
		        a.created_at, a.updated_at
		 FROM answers a WHERE a.id = $1`,
		id,
	).Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Content, &a.Image, pq.Array(&a.LikedBy), &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find answer: %w", err)
	}
	return &a, nil
}

// Create は回答を作成する。
func (r *PostgresAnswerRepo) Create(ctx context.Context, a *model.Answer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, author_id, content, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.QuestionID, a.AuthorID, a.Content, nullString(a.Image), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}
	return nil
}

// Delete は指定IDの回答とそのいいねを削除する。
func (r *PostgresAnswerRepo) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return fmt.Errorf("answer not found: %s", id)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE target_type = 'answer' AND target_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete likes: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete answer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("answer not found: %s", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteOrphaned は存在しない質問を参照する回答を削除する。
func (r *PostgresAnswerRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM answers a
		 WHERE NOT EXISTS (SELECT 1 FROM questions q WHERE q.id = a.question_id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned answers: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ AnswerRepository = (*PostgresAnswerRepo)(nil)
