// Package ranking はユーザーランキングの集計結果を提供する。
// Redisが設定されている場合は集計結果を短時間キャッシュする。
package ranking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/mathlovers/internal/model"
	"github.com/hitoshi/mathlovers/internal/repository"
)

// DefaultLimit はランキングの表示件数。
const DefaultLimit = 20

// Service はランキングのサービス層。
type Service struct {
	rankings repository.RankingRepository
	cache    Cache
}

// NewService はServiceを生成する。cacheがnilの場合は毎回集計する。
func NewService(rankings repository.RankingRepository, cache Cache) *Service {
	return &Service{rankings: rankings, cache: cache}
}

// Top は質問数の降順、同数の場合は合計いいね数の降順で上位DefaultLimit件を返す。
// キャッシュの障害は集計結果の返却を妨げない。
func (s *Service) Top(ctx context.Context) ([]model.RankingEntry, error) {
	if s.cache != nil {
		entries, ok, err := s.cache.Get(ctx, DefaultLimit)
		if err != nil {
			slog.Warn("ranking cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return entries, nil
		}
	}

	entries, err := s.rankings.Top(ctx, DefaultLimit)
	if err != nil {
		return nil, fmt.Errorf("ランキングの集計に失敗しました: %w", err)
	}
	if entries == nil {
		entries = []model.RankingEntry{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, DefaultLimit, entries); err != nil {
			slog.Warn("ranking cache write failed", slog.String("error", err.Error()))
		}
	}
	return entries, nil
}
