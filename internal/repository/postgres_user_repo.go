package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/mathlovers/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// 外部IDはuser_identitiesテーブルに保持する。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.email_verified, u.created_at, u.updated_at`

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validUUID(id) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// FindByExternalID は (provider, subject) が紐付いたユーザーを取得する。
func (r *PostgresUserRepo) FindByExternalID(ctx context.Context, provider, subject string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 JOIN user_identities i ON i.user_id = u.id
		 WHERE i.provider = $1 AND i.subject = $2`,
		provider, subject,
	)
}

// FindByEmail は正規化済みメールアドレスでユーザーを取得する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
}

// FindByUsername はユーザー名で大文字小文字を区別せずに検索する。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.username) = lower($1)`, username)
}

// UsernameExists はユーザー名が使用済みかどうかを返す。
func (r *PostgresUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1))`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// Create はユーザーと外部IDを同一トランザクションで作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, email_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, nullString(user.Email), nullString(user.PasswordHash),
		user.EmailVerified, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translatePgError(err))
	}

	for _, ext := range user.ExternalIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_identities (user_id, provider, subject, created_at)
			 VALUES ($1, $2, $3, $4)`,
			user.ID, ext.Provider, ext.Subject, user.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert identity: %w", translatePgError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LinkExternalID は既存ユーザーに外部IDを追加する。
func (r *PostgresUserRepo) LinkExternalID(ctx context.Context, userID string, ext model.ExternalID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_identities (user_id, provider, subject) VALUES ($1, $2, $3)`,
		userID, ext.Provider, ext.Subject,
	)
	if err != nil {
		return fmt.Errorf("failed to link identity: %w", translatePgError(err))
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MarkEmailVerified はメールアドレスを確認済みにする。
func (r *PostgresUserRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	if !validUUID(userID) {
		return fmt.Errorf("user not found: %s", userID)
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = true, updated_at = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var (
		user         model.User
		email        sql.NullString
		passwordHash sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Username, &email, &passwordHash,
		&user.EmailVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.Email = email.String
	user.PasswordHash = passwordHash.String

	ids, err := r.externalIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.ExternalIDs = ids

	return &user, nil
}

func (r *PostgresUserRepo) externalIDs(ctx context.Context, userID string) ([]model.ExternalID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT provider, subject FROM user_identities WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var ids []model.ExternalID
	for rows.Next() {
		var ext model.ExternalID
		if err := rows.Scan(&ext.Provider, &ext.Subject); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		ids = append(ids, ext)
	}
	return ids, rows.Err()
}

// nullString は空文字をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
