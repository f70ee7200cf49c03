package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/mathlovers/internal/config"
	"github.com/hitoshi/mathlovers/internal/database"
	"github.com/hitoshi/mathlovers/internal/repository"
)

// backend は接続済みのデータストアと、その後始末。
type backend struct {
	store *repository.Store
	close func(ctx context.Context) error
}

// connectBackend はDATABASE_URLのスキームに応じてPostgreSQLまたはMongoDBに接続する。
func connectBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.UsesMongo() {
		client, err := database.ConnectMongo(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, client.Database(cfg.DatabaseName)); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		slog.Info("database connection established", slog.String("backend", "mongodb"))
		return &backend{
			store: repository.NewMongoStore(client, cfg.DatabaseName),
			close: client.Disconnect,
		}, nil
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout)
	if err != nil {
		return nil, err
	}
	slog.Info("database connection established", slog.String("backend", "postgres"))
	return &backend{
		store: repository.NewPostgresStore(db),
		close: func(context.Context) error { return db.Close() },
	}, nil
}

// lazyBackend はプロセス全体で1つのデータストア接続を初回利用時に確立する。
type lazyBackend struct {
	lazy *database.Lazy[*backend]
}

func newLazyBackend(cfg *config.Config) *lazyBackend {
	return &lazyBackend{
		lazy: database.NewLazy(func(ctx context.Context) (*backend, error) {
			b, err := connectBackend(ctx, cfg)
			if err != nil {
				slog.Warn("database connection failed", slog.String("error", err.Error()))
				return nil, err
			}
			return b, nil
		}),
	}
}

// Store は接続を遅延させるStoreを返す。
func (l *lazyBackend) Store() *repository.Store {
	return repository.NewLazyStore(func(ctx context.Context) (*repository.Store, error) {
		b, err := l.lazy.Get(ctx)
		if err != nil {
			return nil, err
		}
		return b.store, nil
	})
}

// Close は接続済みであれば接続を閉じる。
func (l *lazyBackend) Close(ctx context.Context) error {
	b, ok := l.lazy.Loaded()
	if !ok {
		return nil
	}
	return b.close(ctx)
}
