package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/mathlovers/internal/model"
)

// RankingServiceInterface はランキングハンドラーが必要とするサービスインターフェース。
type RankingServiceInterface interface {
	Top(ctx context.Context) ([]model.RankingEntry, error)
}

// RankingHandler はランキングのHTTPハンドラー。
type RankingHandler struct {
	service RankingServiceInterface
}

// NewRankingHandler はRankingHandlerを生成する。
func NewRankingHandler(service RankingServiceInterface) *RankingHandler {
	return &RankingHandler{service: service}
}

// Top は総いいね数の上位ユーザーを配列で返す。
// GET /api/rankings
func (h *RankingHandler) Top(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Top(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.RankingEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
