// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/mathlovers/internal/auth"
	"github.com/hitoshi/mathlovers/internal/middleware"
	"github.com/hitoshi/mathlovers/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
// auth.Service が実装する。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password, email string) (*auth.SignInResult, error)
	Login(ctx context.Context, username, password string) (*auth.SignInResult, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	FirebaseSignIn(ctx context.Context, idToken, suggestedUsername string) (*auth.SignInResult, error)
	GoogleSignIn(ctx context.Context, idToken string) (*auth.SignInResult, error)
	GetLoginURL(state string) (string, error)
	HandleOAuthCallback(ctx context.Context, code string) (*auth.SignInResult, error)
	SendVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, token string) (*auth.SignInResult, error)
	DashboardURL() string
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string
	CookieDomain string
	CookieSecure bool
}

func (c AuthHandlerConfig) cookie() auth.CookieConfig {
	return auth.CookieConfig{Domain: c.CookieDomain, Secure: c.CookieSecure}
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID            string    `json:"_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type idTokenRequest struct {
	IDToken  string `json:"idToken"`
	Username string `json:"username"`
}

type signInResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    signInUserBrief `json:"user"`
}

type signInUserBrief struct {
	Username      string `json:"username"`
	EmailVerified bool   `json:"emailVerified"`
}

// completeSignIn はセッションCookieを設定してサインイン結果を返す。
func (h *AuthHandler) completeSignIn(w http.ResponseWriter, statusCode int, message string, result *auth.SignInResult) {
	auth.SetSessionCookie(w, h.config.cookie(), result.Token, result.TTL)
	writeJSON(w, statusCode, signInResponse{
		Success: true,
		Message: message,
		User: signInUserBrief{
			Username:      result.User.Username,
			EmailVerified: result.User.EmailVerified,
		},
	})
}

// Register はユーザー名とパスワードでアカウントを作成する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		middleware.WriteAPIError(w, model.NewValidationError("ユーザー名とパスワードは必須です。"))
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.completeSignIn(w, http.StatusCreated, "Registration successful", result)
}

// Login はユーザー名とパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		middleware.WriteAPIError(w, model.NewValidationError("ユーザー名とパスワードは必須です。"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.completeSignIn(w, http.StatusOK, "Login successful", result)
}

// Logout はセッションCookieを削除する。セッションはステートレスなのでサーバー側の状態はない。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.config.cookie())
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]userResponse{"user": toUserResponse(user)})
}

// CheckUsername はユーザー名が使用可能かどうかを返す。
// POST /api/auth/check-username
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	available, err := h.service.CheckUsername(r.Context(), req.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// FirebaseCallback はFirebaseのIDトークンでサインインする。
// POST /api/auth/firebase-callback
func (h *AuthHandler) FirebaseCallback(w http.ResponseWriter, r *http.Request) {
	var req idTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		middleware.WriteAPIError(w, model.NewValidationError("IDトークンは必須です。"))
		return
	}

	result, err := h.service.FirebaseSignIn(r.Context(), req.IDToken, req.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.completeSignIn(w, http.StatusOK, "", result)
}

// GoogleIDTokenCallback はクライアントで取得したGoogleのIDトークンでサインインする。
// POST /api/auth/google/callback
func (h *AuthHandler) GoogleIDTokenCallback(w http.ResponseWriter, r *http.Request) {
	var req idTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		middleware.WriteAPIError(w, model.NewValidationError("IDトークンは必須です。"))
		return
	}

	result, err := h.service.GoogleSignIn(r.Context(), req.IDToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.completeSignIn(w, http.StatusOK, "", result)
}

// OAuthLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	url, err := h.service.GetLoginURL(state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// OAuthCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		middleware.WriteAPIError(w, model.NewInvalidStateError())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteAPIError(w, model.NewValidationError("認可コードがありません。"))
		return
	}

	// 3. 認証処理
	result, err := h.service.HandleOAuthCallback(r.Context(), code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 4. セッションCookieを設定してフロントエンドにリダイレクト
	auth.SetSessionCookie(w, h.config.cookie(), result.Token, result.TTL)
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// SendVerification はログインユーザーの登録済みメールアドレスに確認メールを送信する。
// 宛先はクライアントから受け取らない。
// POST /api/auth/send-verification
func (h *AuthHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.SendVerification(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Verification email sent"})
}

// VerifyEmail は確認リンクのトークンを検証し、7日間のセッションを発行してダッシュボードへリダイレクトする。
// GET /api/auth/verify-email?token=xxx
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		middleware.WriteAPIError(w, model.NewInvalidVerificationError())
		return
	}

	result, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	auth.SetSessionCookie(w, h.config.cookie(), result.Token, result.TTL)
	http.Redirect(w, r, h.service.DashboardURL(), http.StatusSeeOther)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
