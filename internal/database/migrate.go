// Package database はデータストアへの接続とスキーマ管理を提供する。
// PostgreSQLは埋め込みSQLマイグレーション、MongoDBはインデックス作成でスキーマを整える。
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNotPostgres はSQLマイグレーションの対象外のURLが渡されたことを表す。
	// MongoDBは EnsureMongoIndexes を使う。
	ErrNotPostgres = errors.New("migrations require a postgres database url")
	// ErrDirtySchema は前回のマイグレーションが途中で失敗したままであることを表す。
	ErrDirtySchema = errors.New("schema is dirty")
)

// MigrationStatus は RunMigrations の適用前後のスキーマバージョン。
// 0 は未適用を表す。
type MigrationStatus struct {
	From uint
	To   uint
}

// Applied は今回の実行で1件以上適用したかを返す。
func (s MigrationStatus) Applied() bool {
	return s.To != s.From
}

// NewMigrator は埋め込みマイグレーションを使うmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	if !isPostgresURL(databaseURL) {
		return nil, ErrNotPostgres
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations は未適用のマイグレーションをすべて適用する。
// dirtyなスキーマには手を付けず ErrDirtySchema を返す。
// ctxがキャンセルされると実行中のマイグレーションの完了後に停止する。
func RunMigrations(ctx context.Context, databaseURL string) (MigrationStatus, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer m.Close()

	from, err := schemaVersion(m)
	if err != nil {
		return MigrationStatus{}, err
	}

	stop := context.AfterFunc(ctx, func() {
		select {
		case m.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationStatus{From: from}, fmt.Errorf("failed to run migrations from version %d: %w", from, err)
	}

	to, err := schemaVersion(m)
	if err != nil {
		return MigrationStatus{From: from}, err
	}
	return MigrationStatus{From: from, To: to}, ctx.Err()
}

func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	return version, nil
}

func isPostgresURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}
