// Package cleanup は論理削除済みデータの定期削除ジョブを提供する。
// フォロー関係・いいねは論理削除（deleted = true）で扱うため、
// 保持期間（デフォルト30日）を超えた論理削除行を日次バッチで物理削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// purgeTargets は物理削除の対象テーブル。いずれもdeleted列とcreated_at列を持つ。
var purgeTargets = []string{"network", "post_likes", "comment_likes"}

// PurgeJob は論理削除済みの行を保持期間経過後に物理削除するジョブ。
// 冪等な削除処理で、対象がない場合もエラーにならない。
type PurgeJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 論理削除行の保持日数（デフォルト: 30）
}

// NewPurgeJob は新しいPurgeJobを生成する。
func NewPurgeJob(db Executor, logger *slog.Logger) *PurgeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は各対象テーブルから保持期間を過ぎた論理削除行を削除する。
// テーブル名は固定の一覧から選ぶため、SQLへの埋め込みは外部入力を含まない。
func (j *PurgeJob) Run(ctx context.Context) error {
	start := time.Now()
	interval := fmt.Sprintf("%d days", j.RetentionDays)

	var total int64
	for _, table := range purgeTargets {
		query := fmt.Sprintf(`DELETE FROM %s WHERE deleted = true AND created_at < now() - $1::interval`, table)
		result, err := j.db.ExecContext(ctx, query, interval)
		if err != nil {
			j.logger.Error("論理削除行の削除に失敗しました",
				slog.String("table", table),
				slog.String("error", err.Error()),
				slog.Int("retention_days", j.RetentionDays),
			)
			return fmt.Errorf("%s の削除に失敗: %w", table, err)
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("削除件数の取得に失敗: %w", err)
		}
		total += deleted
		j.logger.Debug("論理削除行を削除しました",
			slog.String("table", table),
			slog.Int64("deleted_count", deleted),
		)
	}

	j.logger.Info("論理削除行のクリーンアップが完了しました",
		slog.Int64("deleted_count", total),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
