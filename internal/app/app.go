package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/mathlovers/internal/auth"
	"github.com/hitoshi/mathlovers/internal/config"
	"github.com/hitoshi/mathlovers/internal/database"
	"github.com/hitoshi/mathlovers/internal/handler"
	"github.com/hitoshi/mathlovers/internal/like"
	"github.com/hitoshi/mathlovers/internal/logger"
	"github.com/hitoshi/mathlovers/internal/mail"
	"github.com/hitoshi/mathlovers/internal/metrics"
	"github.com/hitoshi/mathlovers/internal/middleware"
	"github.com/hitoshi/mathlovers/internal/question"
	"github.com/hitoshi/mathlovers/internal/ranking"
	"github.com/hitoshi/mathlovers/internal/security"
	"github.com/hitoshi/mathlovers/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定
	logger.SetupDefaultWithLevel(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// server はAPIサーバーと、停止時に後始末が必要なリソース。
type server struct {
	http        *http.Server
	backend     *lazyBackend
	rateLimiter *middleware.RateLimiter
	cleanups    []func()
}

// newServer は全依存関係をワイヤリングしたAPIサーバーを構築する。
// データストアへの接続は最初のリクエストまで遅延する。
func newServer(ctx context.Context, cfg *config.Config) (*server, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 2. データストア（遅延接続）
	backend := newLazyBackend(cfg)
	store := backend.Store()

	// 3. セッションとIdP
	sessions, err := auth.NewSessionManager(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init session manager: %w", err)
	}

	idpClient, err := newIDPClient(cfg)
	if err != nil {
		return nil, err
	}
	authDeps := auth.Deps{
		Users:    store.Users,
		Sessions: sessions,
		Google:   auth.NewGoogleTokenInfoVerifier(cfg.GoogleTokenInfoURL, cfg.FirebaseProjectID, idpClient),
		Mailer:   mail.NewVerificationMailer(newMailSender(cfg)),
		Metrics:  collector,
	}
	if cfg.FirebaseAPIKey != "" {
		authDeps.Firebase = auth.NewFirebaseVerifier(cfg.FirebaseLookupURL, cfg.FirebaseAPIKey, idpClient)
	}
	if cfg.FirebaseProjectID == "" {
		slog.Warn("FIREBASE_PROJECT_ID is not set: id token audience will not be enforced")
	}
	if cfg.GoogleOAuthEnabled() {
		provider, err := auth.NewGoogleOAuthProvider(ctx, auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			HTTPClient:   idpClient,
		})
		if err != nil {
			return nil, err
		}
		authDeps.OAuth = provider
	}

	authService := auth.NewService(authDeps, auth.ServiceConfig{
		SessionTTL:          time.Duration(cfg.SessionMaxAge) * time.Second,
		EmailLinkSessionTTL: time.Duration(cfg.EmailLinkSessionMaxAge) * time.Second,
		VerificationTTL:     cfg.VerificationTTL,
		BaseURL:             cfg.BaseURL,
	})

	// 4. ドメインサービス
	questionService := question.NewService(store.Questions, store.Answers, security.NewContentSanitizer())
	likeService := like.NewService(store.Likes, collector)

	var rankingCache ranking.Cache
	var cleanups []func()
	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(ctx, cfg.RedisURL, cfg.DBConnectTimeout)
		if err != nil {
			// キャッシュなしでも動作する
			slog.Warn("ranking cache disabled", slog.String("error", err.Error()))
		} else {
			rankingCache = ranking.NewRedisCache(client, cfg.RankingCacheTTL)
			cleanups = append(cleanups, func() { _ = client.Close() })
		}
	}
	rankingService := ranking.NewService(store.Rankings, rankingCache)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionVerifier:   sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFEnabled:       cfg.CSRFEnabled,
		HSTS:              cfg.CookieSecure,
		HTTPRecorder:      collector,
		MetricsHandler:    metrics.Handler(registry),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},

		QuestionService: questionService,
		LikeService:     likeService,
		RankingService:  rankingService,
		HealthChecker:   store,
	})

	return &server{
		http: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		backend:     backend,
		rateLimiter: rateLimiter,
		cleanups:    cleanups,
	}, nil
}

// newIDPClient はIdP呼び出し用のHTTPクライアントを返す。
// EGRESS_GUARDが有効な場合は送信先を検証するクライアントを使う。
func newIDPClient(cfg *config.Config) (*http.Client, error) {
	if !cfg.EgressGuard {
		return &http.Client{Timeout: cfg.IDPTimeout}, nil
	}

	guard := security.NewEgressGuard()
	for _, endpoint := range []string{cfg.FirebaseLookupURL, cfg.GoogleTokenInfoURL} {
		if err := guard.ValidateEndpoint(endpoint); err != nil {
			return nil, fmt.Errorf("invalid identity provider endpoint: %w", err)
		}
	}
	return guard.NewClient(cfg.IDPTimeout), nil
}

// newMailSender はPostmarkが設定されていればPostmark送信器を、なければログ送信器を返す。
func newMailSender(cfg *config.Config) mail.Sender {
	if !cfg.PostmarkEnabled() {
		slog.Info("postmark is not configured: verification emails will be logged")
		return mail.NewLogSender(slog.Default())
	}
	sender, err := mail.NewPostmarkSender(mail.PostmarkConfig{
		ServerToken:  cfg.PostmarkServerToken,
		AccountToken: cfg.PostmarkAccountToken,
		SenderEmail:  cfg.SenderEmail,
		SupportEmail: cfg.SupportEmail,
	})
	if err != nil {
		slog.Warn("invalid postmark config: verification emails will be logged", slog.String("error", err.Error()))
		return mail.NewLogSender(slog.Default())
	}
	return sender
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	srv, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", srv.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := srv.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if serveErr != nil {
		return fmt.Errorf("server listen error: %w", serveErr)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

func (s *server) shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.rateLimiter.Stop()
	for _, c := range s.cleanups {
		c()
	}
	if cerr := s.backend.Close(ctx); cerr != nil {
		slog.Warn("failed to close database", slog.String("error", cerr.Error()))
	}
	return err
}

// runWorker はワーカーモードで起動する。
// 孤立した回答といいねを定期的に削除する。ctxがキャンセルされると終了する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	b, err := connectBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer b.close(context.Background())

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	job := cleanup.NewCleanupJob(b.store.Answers, b.store.Likes, slog.Default(), collector)

	// ワーカーのメトリクスは専用ポートで公開する
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.String("metrics_addr", metricsServer.Addr),
	)
	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はスキーマを最新にする。
// PostgreSQLでは未適用マイグレーションを順番に適用し、MongoDBではインデックスを作成する。
func runMigrate(ctx context.Context, cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if cfg.UsesMongo() {
		client, err := database.ConnectMongo(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		defer client.Disconnect(context.Background())

		if err := database.EnsureMongoIndexes(ctx, client.Database(cfg.DatabaseName)); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("mongodb indexes are up to date", slog.String("database", cfg.DatabaseName))
		return nil
	}

	status, err := database.RunMigrations(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("database migrations completed successfully",
		slog.Uint64("from_version", uint64(status.From)),
		slog.Uint64("to_version", uint64(status.To)),
		slog.Bool("applied", status.Applied()),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
