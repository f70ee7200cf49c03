// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Environment
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database
	// スキームが mongodb:// または mongodb+srv:// の場合はMongoDB、それ以外はPostgreSQLを使用する。
	DatabaseURL      string        `env:"DATABASE_URL"`
	DatabaseName     string        `env:"DATABASE_NAME" envDefault:"mathlovers"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`

	// Session
	JWTSecret              string        `env:"JWT_SECRET"`
	SessionMaxAge          int           `env:"SESSION_MAX_AGE" envDefault:"86400"`
	EmailLinkSessionMaxAge int           `env:"EMAIL_LINK_SESSION_MAX_AGE" envDefault:"604800"`
	VerificationTTL        time.Duration `env:"VERIFICATION_TTL" envDefault:"24h"`

	// Google
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	GoogleTokenInfoURL string `env:"GOOGLE_TOKENINFO_URL" envDefault:"https://oauth2.googleapis.com/tokeninfo"`

	// Firebase
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	FirebaseAPIKey    string `env:"FIREBASE_API_KEY"`
	FirebaseLookupURL string `env:"FIREBASE_LOOKUP_URL" envDefault:"https://identitytoolkit.googleapis.com/v1/accounts:lookup"`

	// IdP呼び出しのタイムアウト
	IDPTimeout time.Duration `env:"IDP_TIMEOUT" envDefault:"10s"`
	// IdPエンドポイントを公開ネットワークのHTTPSに制限する。エミュレーター利用時はfalse
	EgressGuard bool `env:"EGRESS_GUARD" envDefault:"true"`

	// Redis（未設定の場合はランキングキャッシュを無効化）
	RedisURL        string        `env:"REDIS_URL"`
	RankingCacheTTL time.Duration `env:"RANKING_CACHE_TTL" envDefault:"60s"`

	// Email
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@mathlovers.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@mathlovers.local"`

	// Rate Limit（req/min）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAuth    int `env:"RATE_LIMIT_AUTH" envDefault:"10"`

	// Worker
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`
	WorkerMetricsPort string        `env:"WORKER_METRICS_PORT" envDefault:"9091"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS / CSRF
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`
	CSRFEnabled       bool   `env:"CSRF_ENABLED" envDefault:"true"`
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Required fields
	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.CookieSecure = cfg.IsProduction() || strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesMongo はDATABASE_URLがMongoDBを指しているかどうかを返す。
func (c *Config) UsesMongo() bool {
	return strings.HasPrefix(c.DatabaseURL, "mongodb://") || strings.HasPrefix(c.DatabaseURL, "mongodb+srv://")
}

// GoogleOAuthEnabled はGoogle OAuthリダイレクトフローの設定が揃っているかを返す。
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// PostmarkEnabled はPostmarkによるメール送信が設定されているかを返す。
func (c *Config) PostmarkEnabled() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}
