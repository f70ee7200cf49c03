package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/mathlovers/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		apiErr *model.APIError
		want   int
	}{
		{model.NewInvalidRequestError(), http.StatusBadRequest},
		{model.NewValidationError("タイトルは必須です。"), http.StatusBadRequest},
		{model.NewUsernameTakenError(), http.StatusBadRequest},
		{model.NewEmailTakenError(), http.StatusBadRequest},
		{model.NewInvalidLikeTargetError("comment"), http.StatusBadRequest},
		{model.NewInvalidStateError(), http.StatusBadRequest},
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewInvalidAssertionError(), http.StatusUnauthorized},
		{model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{model.NewAudienceMismatchError(), http.StatusForbidden},
		{model.NewNotOwnerError(), http.StatusForbidden},
		{model.NewCSRFError(), http.StatusForbidden},
		{model.NewQuestionNotFoundError("q1"), http.StatusNotFound},
		{model.NewAnswerNotFoundError("a1"), http.StatusNotFound},
		{model.NewLikeTargetNotFoundError("t1"), http.StatusNotFound},
		{model.NewOAuthDisabledError(), http.StatusNotFound},
		{model.NewRateLimitError(), http.StatusTooManyRequests},
		{model.NewInternalError(), http.StatusInternalServerError},
		{&model.APIError{Code: "SOMETHING_NEW"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.apiErr); got != tt.want {
			t.Errorf("StatusFor(%s) = %d, want %d", tt.apiErr.Code, got, tt.want)
		}
	}
}

func TestWriteAPIError_NotOwner(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, model.NewNotOwnerError())

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	body := decodeErrorBody(t, w)
	want := model.NewNotOwnerError()
	if body.Code != want.Code || body.Message != want.Message || body.Category != want.Category || body.Action != want.Action {
		t.Errorf("body = %+v, want fields of %+v", body, want)
	}
}

func TestWriteAPIError_Nil_WritesInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
}

func TestWriteErrorResponse_ExplicitStatusWins(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewInternalError())

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestWriteInternalServerError_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	body := decodeErrorBody(t, w)
	want := model.NewInternalError()
	if body.Code != want.Code || body.Message != want.Message {
		t.Errorf("body = %+v, want code %q message %q", body, want.Code, want.Message)
	}
	if body.Category != "system" || body.Action == "" {
		t.Errorf("category/action = %q/%q", body.Category, body.Action)
	}
}

func TestErrorResponseBody_JSONKeys(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, model.NewQuestionNotFoundError("q-404"))

	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(raw) != 4 {
		t.Errorf("keys = %v, want exactly code/message/category/action", raw)
	}
	for _, key := range []string{"code", "message", "category", "action"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}
