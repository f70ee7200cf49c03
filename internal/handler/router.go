package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mathlovers/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionVerifier   middleware.SessionVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFEnabled       bool
	HSTS              bool
	HTTPRecorder      middleware.HTTPRecorder
	MetricsHandler    http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 質問・回答・いいね・ランキング
	QuestionService QuestionServiceInterface
	LikeService     LikeServiceInterface
	RankingService  RankingServiceInterface

	// ヘルスチェック
	HealthChecker HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → OptionalSession → RateLimit(General) → CSRF
//
// 認証必須のルートはさらにSessionMiddlewareで保護する。
// /health と /metrics はレート制限とCSRFの対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	healthHandler := NewHealthHandler(deps.HealthChecker)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	questionHandler := NewQuestionHandler(deps.QuestionService)
	likeHandler := NewLikeHandler(deps.LikeService)
	rankingHandler := NewRankingHandler(deps.RankingService)

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}
	requireSession := middleware.NewSessionMiddleware(deps.SessionVerifier)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		if deps.CSRFEnabled {
			r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		}

		// OAuthリダイレクトフロー
		r.Route("/auth/google", func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Get("/login", authHandler.OAuthLogin)
			r.Get("/callback", authHandler.OAuthCallback)
		})

		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

			r.Route("/auth", func(r chi.Router) {
				// 資格情報を受け付けるエンドポイントは認証専用のレート制限を追加
				r.Group(func(r chi.Router) {
					r.Use(deps.RateLimiter.AuthMiddleware())
					r.Post("/register", authHandler.Register)
					r.Post("/login", authHandler.Login)
					r.Post("/check-username", authHandler.CheckUsername)
					r.Post("/firebase-callback", authHandler.FirebaseCallback)
					r.Post("/google/callback", authHandler.GoogleIDTokenCallback)
					r.Get("/verify-email", authHandler.VerifyEmail)
				})
				r.Post("/logout", authHandler.Logout)

				r.Group(func(r chi.Router) {
					r.Use(requireSession)
					r.Get("/me", authHandler.Me)
					r.With(deps.RateLimiter.AuthMiddleware()).Post("/send-verification", authHandler.SendVerification)
				})
			})

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", questionHandler.List)
				r.Get("/{id}", questionHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(requireSession)
					r.Post("/", questionHandler.Create)
					r.Post("/{id}/answers", questionHandler.CreateAnswer)
					r.Delete("/{id}", questionHandler.DeleteQuestion)
				})
			})

			r.With(requireSession).Delete("/answers/{id}", questionHandler.DeleteAnswer)
			r.With(requireSession).Post("/likes", likeHandler.Toggle)
			r.Get("/rankings", rankingHandler.Top)
		})
	})

	return r
}
