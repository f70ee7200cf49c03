package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/mathlovers/internal/model"
)

// GoogleTokenInfoVerifier はGoogleの tokeninfo エンドポイントでIDトークンを検証する。
type GoogleTokenInfoVerifier struct {
	tokenInfoURL     string
	expectedAudience string
	client           *http.Client
}

// NewGoogleTokenInfoVerifier はGoogleTokenInfoVerifierを生成する。
// expectedAudienceが空の場合はaudienceを検証せず、不一致を警告ログに残すだけにする。
func NewGoogleTokenInfoVerifier(tokenInfoURL, expectedAudience string, client *http.Client) *GoogleTokenInfoVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleTokenInfoVerifier{
		tokenInfoURL:     tokenInfoURL,
		expectedAudience: expectedAudience,
		client:           client,
	}
}

// tokeninfoはすべての値を文字列で返す。
type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

// Verify はIDトークンを検証し、Googleアカウントの本人情報を返す。
func (v *GoogleTokenInfoVerifier) Verify(ctx context.Context, idToken string) (*Assertion, error) {
	endpoint := v.tokenInfoURL + "?" + url.Values{"id_token": {idToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readIDPResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("google token validation failed",
			slog.Int("status", resp.StatusCode),
		)
		return nil, ErrInvalidAssertion
	}

	var info googleTokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}

	if info.Aud != v.expectedAudience {
		if v.expectedAudience != "" {
			slog.Warn("google token audience mismatch",
				slog.String("expected", v.expectedAudience),
				slog.String("actual", info.Aud),
			)
			return nil, ErrAudienceMismatch
		}
		slog.Warn("google token audience not checked: expected audience is not configured",
			slog.String("actual", info.Aud),
		)
	}

	if info.Sub == "" || info.Email == "" {
		return nil, ErrIncompleteIdentity
	}

	return &Assertion{
		Provider:      model.ProviderGoogle,
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		DisplayName:   info.Name,
	}, nil
}

var _ AssertionVerifier = (*GoogleTokenInfoVerifier)(nil)
