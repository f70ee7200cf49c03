package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "auth_token"

// ErrEmptySecret は署名鍵が未設定の場合のエラー。
var ErrEmptySecret = errors.New("jwt secret is empty")

// Claims はセッショントークンのクレーム。
// sub には userId と同じ値が入る。
type Claims struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	EmailVerified *bool  `json:"emailVerified,omitempty"`
	// Purpose と Email はセッション以外の用途のトークンでのみ設定する。
	Purpose string `json:"purpose,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ExtraClaims はセッショントークンに任意で含めるクレーム。
type ExtraClaims struct {
	EmailVerified *bool
}

// SessionManager はHS256で署名したステートレスなセッショントークンを発行・検証する。
type SessionManager struct {
	secret []byte
	now    func() time.Time
}

// NewSessionManager はSessionManagerを生成する。
func NewSessionManager(secret string) (*SessionManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &SessionManager{secret: []byte(secret), now: time.Now}, nil
}

// Issue はttl後に失効するセッショントークンを発行する。
func (m *SessionManager) Issue(userID, username string, extra ExtraClaims, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:        userID,
		Username:      username,
		EmailVerified: extra.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify はセッショントークンを検証し、クレームを返す。
// 署名不一致、形式不正、HS256以外のアルゴリズム、期限切れ、userId欠落、
// 用途付きトークンのいずれの場合もnilを返す。
func (m *SessionManager) Verify(token string) *Claims {
	claims, err := m.parse(token)
	if err != nil || claims.Purpose != "" {
		return nil
	}
	return claims
}

func (m *SessionManager) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *SessionManager) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, jwt.ErrTokenMalformed
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	Domain string
	Secure bool
}

// SetSessionCookie はHttpOnlyのセッションCookieを設定する。
// Max-Ageはttlの秒数。
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
