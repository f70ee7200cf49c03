package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/mathlovers/internal/model"
)

// maxIDPResponseBytes はIdPレスポンスとして読み取る最大バイト数。
const maxIDPResponseBytes = 1 << 20

// readIDPResponse はレスポンスボディを上限付きで読み取る。
// 上限を超えた場合はエラーを返す。
func readIDPResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxIDPResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxIDPResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxIDPResponseBytes)
	}
	return data, nil
}

// AssertionVerifier はクライアントから受け取ったIDトークンをIdPで検証する。
type AssertionVerifier interface {
	Verify(ctx context.Context, idToken string) (*Assertion, error)
}

// FirebaseVerifier はFirebase Identity Toolkitの accounts:lookup でIDトークンを検証する。
type FirebaseVerifier struct {
	lookupURL string
	apiKey    string
	client    *http.Client
}

// NewFirebaseVerifier はFirebaseVerifierを生成する。
func NewFirebaseVerifier(lookupURL, apiKey string, client *http.Client) *FirebaseVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &FirebaseVerifier{lookupURL: lookupURL, apiKey: apiKey, client: client}
}

type firebaseLookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
		DisplayName   string `json:"displayName"`
	} `json:"users"`
}

// Verify はIDトークンを検証し、Firebaseユーザーの本人情報を返す。
// Firebaseが200以外を返した場合は ErrInvalidAssertion、
// localIdまたはemailが欠けている場合は ErrIncompleteIdentity を返す。
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Assertion, error) {
	payload, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	endpoint := v.lookupURL + "?" + url.Values{"key": {v.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firebase lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readIDPResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("firebase token verification failed",
			slog.Int("status", resp.StatusCode),
		)
		return nil, ErrInvalidAssertion
	}

	var lookup firebaseLookupResponse
	if err := json.Unmarshal(body, &lookup); err != nil {
		return nil, fmt.Errorf("failed to parse lookup response: %w", err)
	}
	if len(lookup.Users) == 0 {
		return nil, ErrInvalidAssertion
	}

	u := lookup.Users[0]
	if u.LocalID == "" || u.Email == "" {
		return nil, ErrIncompleteIdentity
	}

	// Firebaseのメールリンク登録ではユーザー名をメールのローカル部から決めるため、表示名は使わない。
	return &Assertion{
		Provider:      model.ProviderFirebase,
		Subject:       u.LocalID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}, nil
}

var _ AssertionVerifier = (*FirebaseVerifier)(nil)
