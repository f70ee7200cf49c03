// Package like は質問・回答へのいいねのトグルを提供する。
package like

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/mathlovers/internal/model"
	"github.com/hitoshi/mathlovers/internal/repository"
)

// Recorder はいいね操作のメトリクス記録インターフェース。
type Recorder interface {
	RecordLikeToggle(target string, liked bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordLikeToggle(string, bool) {}

// Service はいいねのサービス層。
// トグル自体の原子性はリポジトリ層が保証する。
type Service struct {
	likes   repository.LikeRepository
	metrics Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewService(likes repository.LikeRepository, recorder Recorder) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{likes: likes, metrics: recorder}
}

// Toggle はユーザーのいいね状態を反転し、反転後のいいね数と状態を返す。
// 対象種別が不正な場合は400、対象が存在しない場合は404相当のエラーを返す。
func (s *Service) Toggle(ctx context.Context, userID, targetType, targetID string) (*model.LikeResult, error) {
	target := model.LikeTarget(strings.ToLower(strings.TrimSpace(targetType)))
	if !target.Valid() {
		return nil, model.NewInvalidLikeTargetError(targetType)
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, model.NewValidationError("targetIdは必須です。")
	}

	result, err := s.likes.Toggle(ctx, target, targetID, userID)
	if err != nil {
		return nil, fmt.Errorf("いいねの更新に失敗しました: %w", err)
	}
	if result == nil {
		return nil, model.NewLikeTargetNotFoundError(targetID)
	}

	s.metrics.RecordLikeToggle(string(target), result.IsLiked)
	slog.Debug("like toggled",
		slog.String("target_type", string(target)),
		slog.String("target_id", targetID),
		slog.String("user_id", userID),
		slog.Bool("is_liked", result.IsLiked),
	)
	return result, nil
}
