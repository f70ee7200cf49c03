// Package cleanup は孤立データの定期削除ジョブを提供する。
// 削除済みの質問を参照する回答と、削除済みの対象を指すいいねを削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Pruner は孤立データを削除し、削除件数を返すインターフェース。
// repository.AnswerRepository と repository.LikeRepository が満たす。
type Pruner interface {
	DeleteOrphaned(ctx context.Context) (int64, error)
}

// Recorder は削除件数のメトリクス記録インターフェース。
type Recorder interface {
	RecordCleanupRemoved(kind string, count int64)
}

type noopRecorder struct{}

func (noopRecorder) RecordCleanupRemoved(string, int64) {}

// 削除対象の種別
const (
	KindAnswers = "answers"
	KindLikes   = "likes"
)

type target struct {
	kind   string
	pruner Pruner
}

// CleanupJob は孤立した回答といいねの削除ジョブ。
// 何度実行しても結果が変わらない冪等な削除処理を行う。
type CleanupJob struct {
	targets []target
	logger  *slog.Logger
	metrics Recorder
}

// NewCleanupJob は新しいCleanupJobを生成する。
// 回答を先に削除し、その後いいねを削除する。
func NewCleanupJob(answers, likes Pruner, logger *slog.Logger, recorder Recorder) *CleanupJob {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &CleanupJob{
		targets: []target{
			{kind: KindAnswers, pruner: answers},
			{kind: KindLikes, pruner: likes},
		},
		logger:  logger,
		metrics: recorder,
	}
}

// Run は孤立データを1回削除する。
// 一方の削除に失敗しても残りの対象は処理し、失敗をまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	var errs []error
	total := int64(0)

	for _, t := range j.targets {
		deleted, err := t.pruner.DeleteOrphaned(ctx)
		if err != nil {
			j.logger.Error("孤立データの削除に失敗しました",
				slog.String("kind", t.kind),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%sのクリーンアップに失敗: %w", t.kind, err))
			continue
		}
		total += deleted
		j.metrics.RecordCleanupRemoved(t.kind, deleted)
		j.logger.Info("孤立データを削除しました",
			slog.String("kind", t.kind),
			slog.Int64("deleted_count", deleted),
		)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", total),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return errors.Join(errs...)
}

// Start はinterval間隔でRunを実行する。起動直後に1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました", slog.Duration("interval", interval))

	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
