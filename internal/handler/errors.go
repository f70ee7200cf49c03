package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/mathlovers/internal/auth"
	"github.com/hitoshi/mathlovers/internal/middleware"
	"github.com/hitoshi/mathlovers/internal/model"
)

// maxBodyBytes はリクエストボディの上限。data URL画像（2MB）のBase64分を含む。
const maxBodyBytes = 4 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// messageResponse は処理結果メッセージのみのレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// decodeJSON はリクエストボディをdstにデコードする。
// 失敗した場合はINVALID_REQUESTを書き込んでfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError())
		return false
	}
	return true
}

// requireUserID はセッションのユーザーIDを返す。
// 未認証の場合は401を書き込んでfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}
	if apiErr := authAPIError(err); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// authAPIError は認証サービスのエラーをAPIErrorに変換する。
// 対応するものがない場合はnilを返す。
func authAPIError(err error) *model.APIError {
	switch {
	case errors.Is(err, auth.ErrInvalidAssertion):
		return model.NewInvalidAssertionError()
	case errors.Is(err, auth.ErrIncompleteIdentity):
		return model.NewIncompleteIdentityError()
	case errors.Is(err, auth.ErrAudienceMismatch):
		return model.NewAudienceMismatchError()
	case errors.Is(err, auth.ErrUsernameTaken):
		return model.NewUsernameTakenError()
	case errors.Is(err, auth.ErrInvalidUsername):
		return model.NewInvalidUsernameError()
	case errors.Is(err, auth.ErrEmailTaken):
		return model.NewEmailTakenError()
	case errors.Is(err, auth.ErrWeakPassword):
		return model.NewWeakPasswordError()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return model.NewInvalidCredentialsError()
	case errors.Is(err, auth.ErrUserNotFound):
		return model.NewUserNotFoundError()
	case errors.Is(err, auth.ErrEmailRequired):
		return model.NewEmailRequiredError()
	case errors.Is(err, auth.ErrInvalidVerificationToken):
		return model.NewInvalidVerificationError()
	case errors.Is(err, auth.ErrOAuthDisabled):
		return model.NewOAuthDisabledError()
	default:
		return nil
	}
}
