// Package engagement はユーザー間の交流数（engagements）の定期再集計ジョブを提供する。
// 集計結果はフィード候補のengagementLikeScore / engagementCommentScoreとして使われる。
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/snapshare/internal/metrics"
	"github.com/hitoshi/snapshare/internal/repository"
)

// DefaultInterval は再集計の既定の実行間隔。
const DefaultInterval = 15 * time.Minute

// Job はengagementsテーブルの再集計ジョブ。
// 1回の実行で全ペアを再集計するため、何度実行しても結果は同じになる。
type Job struct {
	repo    repository.EngagementRepository
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
}

// NewJob は新しいJobを生成する。
func NewJob(repo repository.EngagementRepository, collector metrics.MetricsCollector, logger *slog.Logger) *Job {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		repo:    repo,
		metrics: collector,
		logger:  logger,
		now:     time.Now,
	}
}

// Run は交流数を1回再集計する。
func (j *Job) Run(ctx context.Context) error {
	start := j.now()

	upserted, removed, err := j.repo.Recompute(ctx, start.UTC())
	if err != nil {
		j.logger.Error("交流数の再集計に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("交流数の再集計に失敗: %w", err)
	}

	j.metrics.RecordEngagementRecompute(upserted, removed)
	j.logger.Info("交流数の再集計が完了しました",
		slog.Int64("upserted_count", upserted),
		slog.Int64("removed_count", removed),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)
	return nil
}

// Start はinterval間隔で再集計を実行する。起動直後に1回実行し、
// コンテキストがキャンセルされるまで継続する。
// 失敗した場合はintervalを待たずに指数バックオフで再試行する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	j.logger.Info("交流数の再集計ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	failures := 0
	for {
		if err := j.Run(ctx); err != nil {
			failures++
		} else {
			failures = 0
		}

		delay := nextDelay(failures, interval)
		if failures > 0 {
			j.logger.Warn("交流数の再集計を再試行します",
				slog.Int("consecutive_failures", failures),
				slog.Duration("retry_in", delay),
			)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("交流数の再集計ジョブを停止しました")
			return
		case <-timer.C:
		}
	}
}
