package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/mathlovers/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// StatusFor はAPIErrorのコードに対応するHTTPステータスを返す。
// 未知のコードは500。
func StatusFor(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeValidation,
		model.ErrCodeIncompleteIdentity, model.ErrCodeUsernameTaken,
		model.ErrCodeInvalidUsername, model.ErrCodeWeakPassword,
		model.ErrCodeEmailTaken, model.ErrCodeEmailRequired,
		model.ErrCodeInvalidVerification, model.ErrCodeInvalidLikeTarget,
		model.ErrCodeInvalidState:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidAssertion,
		model.ErrCodeInvalidCredentials, model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	case model.ErrCodeAudienceMismatch, model.ErrCodeNotOwner, model.ErrCodeCSRF:
		return http.StatusForbidden
	case model.ErrCodeQuestionNotFound, model.ErrCodeAnswerNotFound,
		model.ErrCodeLikeTargetNotFound, model.ErrCodeOAuthDisabled:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteAPIError はコードから決まるステータスでAPIErrorを書き込む。
// nilの場合は内部エラーとして扱う。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	if apiErr == nil {
		apiErr = model.NewInternalError()
	}
	WriteErrorResponse(w, StatusFor(apiErr), apiErr)
}

// WriteErrorResponse はステータスを指定してAPIErrorを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
	if err != nil {
		slog.Warn("failed to write error response",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
	}
}

// WriteInternalServerError は INTERNAL_ERROR を500で書き込む。
// 原因はレスポンスに含めず、呼び出し側でログに残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError())
}
