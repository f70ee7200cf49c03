package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/mathlovers/internal/model"
)

// LikeServiceInterface はいいねハンドラーが必要とするサービスインターフェース。
type LikeServiceInterface interface {
	Toggle(ctx context.Context, userID, targetType, targetID string) (*model.LikeResult, error)
}

// LikeHandler はいいねのHTTPハンドラー。
type LikeHandler struct {
	service LikeServiceInterface
}

// NewLikeHandler はLikeHandlerを生成する。
func NewLikeHandler(service LikeServiceInterface) *LikeHandler {
	return &LikeHandler{service: service}
}

type likeRequest struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
}

type likeResponse struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}

// Toggle はいいねを付け外しする。
// POST /api/likes
func (h *LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req likeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Toggle(r.Context(), userID, req.Type, req.TargetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{Likes: result.Likes, IsLiked: result.IsLiked})
}
