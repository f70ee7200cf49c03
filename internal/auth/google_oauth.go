package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hitoshi/mathlovers/internal/model"
	"golang.org/x/oauth2"
)

const defaultGoogleIssuer = "https://accounts.google.com"

// OAuthProvider はOAuthリダイレクトフローのプロバイダー。
type OAuthProvider interface {
	// GetLoginURL は認可画面のURLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、IDトークンを検証した本人情報を返す。
	ExchangeCode(ctx context.Context, code string) (*Assertion, error)
}

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能
	IssuerURL  string
	HTTPClient *http.Client
}

// GoogleOAuthProvider はGoogleのOpenID Connectによる認可コードフローを提供する。
type GoogleOAuthProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	client      *http.Client
}

// NewGoogleOAuthProvider はディスカバリードキュメントを取得してGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(ctx context.Context, cfg GoogleOAuthConfig) (*GoogleOAuthProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	if cfg.IssuerURL == "" {
		cfg.IssuerURL = defaultGoogleIssuer
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newGoogleOAuthProvider(cfg, provider.Endpoint(), verifier), nil
}

func newGoogleOAuthProvider(cfg GoogleOAuthConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: verifier,
		client:   cfg.HTTPClient,
	}
}

// GetLoginURL はGoogleの認可画面URLを生成する。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode は認可コードを交換し、返却されたIDトークンを検証する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*Assertion, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrInvalidAssertion
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id_token claims parse failed: %w", err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrIncompleteIdentity
	}

	return &Assertion{
		Provider:      model.ProviderGoogle,
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
	}, nil
}

var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
