package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/mathlovers/internal/model"
)

type mockLikeService struct {
	toggleFn func(ctx context.Context, userID, targetType, targetID string) (*model.LikeResult, error)
}

func (m *mockLikeService) Toggle(ctx context.Context, userID, targetType, targetID string) (*model.LikeResult, error) {
	return m.toggleFn(ctx, userID, targetType, targetID)
}

func TestLikeHandler_Toggle_ReturnsCountAndState(t *testing.T) {
	var gotUser, gotType, gotID string
	svc := &mockLikeService{
		toggleFn: func(_ context.Context, userID, targetType, targetID string) (*model.LikeResult, error) {
			gotUser, gotType, gotID = userID, targetType, targetID
			return &model.LikeResult{Likes: 3, IsLiked: true}, nil
		},
	}
	h := NewLikeHandler(svc)

	req := jsonRequest(http.MethodPost, "/api/likes", `{"targetId":"q-1","type":"question"}`)
	req = withSession(req, "u-1", "alice")
	w := httptest.NewRecorder()
	h.Toggle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotUser != "u-1" || gotType != "question" || gotID != "q-1" {
		t.Errorf("called with (%q, %q, %q)", gotUser, gotType, gotID)
	}
	var body likeResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Likes != 3 || !body.IsLiked {
		t.Errorf("body = %+v", body)
	}
}

func TestLikeHandler_Toggle_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid type", model.NewInvalidLikeTargetError("comment"), http.StatusBadRequest},
		{"missing target", model.NewLikeTargetNotFoundError("q-x"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLikeService{
				toggleFn: func(context.Context, string, string, string) (*model.LikeResult, error) {
					return nil, tt.err
				},
			}
			h := NewLikeHandler(svc)

			req := withSession(jsonRequest(http.MethodPost, "/api/likes", `{"targetId":"q-x","type":"comment"}`), "u-1", "alice")
			w := httptest.NewRecorder()
			h.Toggle(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestLikeHandler_Toggle_NoSession_Returns401(t *testing.T) {
	h := NewLikeHandler(&mockLikeService{})

	w := httptest.NewRecorder()
	h.Toggle(w, jsonRequest(http.MethodPost, "/api/likes", `{"targetId":"q-1","type":"question"}`))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}
