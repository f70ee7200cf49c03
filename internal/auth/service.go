// Package auth はユーザー認証、外部IdPとのID連携、セッショントークンの発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/mathlovers/internal/model"
	"github.com/hitoshi/mathlovers/internal/repository"
)

// 認証方式ごとのメトリクスラベル
const (
	MethodPassword = "password"
	MethodFirebase = model.ProviderFirebase
	MethodGoogle   = model.ProviderGoogle
	MethodOAuth    = "google_oauth"
	MethodEmail    = "email_link"
)

// Mailer はメール確認リンクを送信する。
type Mailer interface {
	SendVerification(ctx context.Context, to, username, link string) error
}

// Recorder は認証イベントのメトリクスを記録する。
type Recorder interface {
	RecordLogin(method string)
	RecordAccountCreated(method string)
}

type noopRecorder struct{}

func (noopRecorder) RecordLogin(string)          {}
func (noopRecorder) RecordAccountCreated(string) {}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL          time.Duration // パスワード、Google、OAuthログインのセッション有効期間
	EmailLinkSessionTTL time.Duration // Firebaseメールリンクとメール確認のセッション有効期間
	VerificationTTL     time.Duration // メール確認リンクの有効期間
	BaseURL             string
}

// Deps は認証サービスの依存。
// Firebase, Google, OAuth は未設定の場合nilでよい。
type Deps struct {
	Users    repository.UserRepository
	Sessions *SessionManager
	Firebase AssertionVerifier
	Google   AssertionVerifier
	OAuth    OAuthProvider
	Mailer   Mailer
	Metrics  Recorder
}

// SignInResult はサインイン成功時のユーザーと発行したセッショントークン。
type SignInResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	resolver *Resolver
	sessions *SessionManager
	firebase AssertionVerifier
	google   AssertionVerifier
	oauth    OAuthProvider
	mailer   Mailer
	metrics  Recorder
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(deps Deps, config ServiceConfig) *Service {
	rec := deps.Metrics
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Service{
		users:    deps.Users,
		resolver: NewResolver(deps.Users, NewUsernameAllocator(deps.Users)),
		sessions: deps.Sessions,
		firebase: deps.Firebase,
		google:   deps.Google,
		oauth:    deps.OAuth,
		mailer:   deps.Mailer,
		metrics:  rec,
		config:   config,
		now:      time.Now,
	}
}

// Register はユーザー名とパスワードでユーザーを登録し、セッションを発行する。
// emailは任意。
func (s *Service) Register(ctx context.Context, username, password, email string) (*SignInResult, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	email = model.NormalizeEmail(email)
	if email != "" {
		existing, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if key, ok := repository.DuplicateKeyOf(err); ok {
			if key == repository.KeyEmail {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	s.metrics.RecordAccountCreated(MethodPassword)

	return s.signIn(user, MethodPassword, ExtraClaims{}, s.config.SessionTTL)
}

// Login はユーザー名とパスワードを検証し、セッションを発行する。
// ユーザーが存在しない場合とパスワード不一致は区別しない。
func (s *Service) Login(ctx context.Context, username, password string) (*SignInResult, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(user, MethodPassword, ExtraClaims{}, s.config.SessionTTL)
}

// Me はセッションのユーザーを返す。
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CheckUsername はユーザー名が使用可能かどうかを大文字小文字を区別せずに返す。
// 登録できない形式の場合は ErrInvalidUsername を返す。
func (s *Service) CheckUsername(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return false, err
	}
	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return !exists, nil
}

// FirebaseSignIn はFirebaseのIDトークンでサインインする。
// メールリンク登録の流れで使うため、セッションは長い方の有効期間で発行する。
func (s *Service) FirebaseSignIn(ctx context.Context, idToken, suggestedUsername string) (*SignInResult, error) {
	if s.firebase == nil {
		return nil, ErrInvalidAssertion
	}
	assertion, err := s.firebase.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.resolve(ctx, *assertion, strings.TrimSpace(suggestedUsername), MethodFirebase)
	if err != nil {
		return nil, err
	}

	if assertion.EmailVerified && !user.EmailVerified {
		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	verified := user.EmailVerified
	return s.signIn(user, MethodFirebase, ExtraClaims{EmailVerified: &verified}, s.config.EmailLinkSessionTTL)
}

// GoogleSignIn はクライアントで取得したGoogleのIDトークンでサインインする。
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (*SignInResult, error) {
	if s.google == nil {
		return nil, ErrInvalidAssertion
	}
	assertion, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.resolve(ctx, *assertion, "", MethodGoogle)
	if err != nil {
		return nil, err
	}
	return s.signIn(user, MethodGoogle, ExtraClaims{}, s.config.SessionTTL)
}

// OAuthEnabled はGoogle OAuthリダイレクトフローが使用可能かどうかを返す。
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// GetLoginURL はGoogle OAuthの認可画面URLを生成する。
func (s *Service) GetLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.GetLoginURL(state), nil
}

// HandleOAuthCallback は認可コードを交換してサインインする。
func (s *Service) HandleOAuthCallback(ctx context.Context, code string) (*SignInResult, error) {
	if s.oauth == nil {
		return nil, ErrOAuthDisabled
	}
	assertion, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.resolve(ctx, *assertion, "", MethodOAuth)
	if err != nil {
		return nil, err
	}
	return s.signIn(user, MethodOAuth, ExtraClaims{}, s.config.SessionTTL)
}

// SendVerification はセッションユーザーの登録済みメールアドレスに確認リンクを送信する。
func (s *Service) SendVerification(ctx context.Context, userID string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return ErrEmailRequired
	}

	token, err := s.sessions.IssueVerificationToken(user.ID, user.Email, s.config.VerificationTTL)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	link := strings.TrimRight(s.config.BaseURL, "/") + "/api/auth/verify-email?" + url.Values{"token": {token}}.Encode()
	if err := s.mailer.SendVerification(ctx, user.Email, user.Username, link); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	slog.Info("verification email sent", slog.String("user_id", user.ID))
	return nil
}

// VerifyEmail は確認トークンを検証してメールアドレスを確認済みにし、セッションを発行する。
// トークン発行後にメールアドレスが変わっている場合は無効とする。
func (s *Service) VerifyEmail(ctx context.Context, token string) (*SignInResult, error) {
	userID, email, err := s.sessions.VerifyVerificationToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.Email != email {
		return nil, ErrInvalidVerificationToken
	}

	if !user.EmailVerified {
		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	verified := true
	return s.signIn(user, MethodEmail, ExtraClaims{EmailVerified: &verified}, s.config.EmailLinkSessionTTL)
}

// DashboardURL はメール確認後のリダイレクト先を返す。
func (s *Service) DashboardURL() string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/dashboard"
}

func (s *Service) resolve(ctx context.Context, a Assertion, suggested, method string) (*model.User, error) {
	result, err := s.resolver.Resolve(ctx, a, suggested)
	if err != nil {
		if !isClientError(err) {
			slog.Error("failed to resolve identity",
				slog.String("provider", a.Provider),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	if result.Created {
		s.metrics.RecordAccountCreated(method)
	}
	return result.User, nil
}

func (s *Service) signIn(user *model.User, method string, extra ExtraClaims, ttl time.Duration) (*SignInResult, error) {
	token, expiresAt, err := s.sessions.Issue(user.ID, user.Username, extra, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	s.metrics.RecordLogin(method)
	return &SignInResult{User: user, Token: token, ExpiresAt: expiresAt, TTL: ttl}, nil
}

func isClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidAssertion, ErrIncompleteIdentity, ErrAudienceMismatch,
		ErrUsernameTaken, ErrInvalidUsername,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
