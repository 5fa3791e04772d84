package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresEngagementRepo はPostgreSQLを使用した交流数の集計リポジトリ。
type PostgresEngagementRepo struct {
	db *sql.DB
}

// NewPostgresEngagementRepo はPostgresEngagementRepoを生成する。
func NewPostgresEngagementRepo(db *sql.DB) *PostgresEngagementRepo {
	return &PostgresEngagementRepo{db: db}
}

// ユーザーペアは(LEAST, GREATEST)で正規化する。自分の投稿への反応は数えない。
const recomputeEngagementsQuery = `
	WITH likes AS (
	    SELECT LEAST(pl.user_id, p.user_id) AS u1, GREATEST(pl.user_id, p.user_id) AS u2, count(*) AS nr
	    FROM post_likes pl
	    INNER JOIN posts p ON p.id = pl.post_id AND p.archived = false
	    WHERE pl.deleted = false AND pl.user_id <> p.user_id
	    GROUP BY 1, 2
	),
	comment_counts AS (
	    SELECT LEAST(c.user_id, p.user_id) AS u1, GREATEST(c.user_id, p.user_id) AS u2, count(*) AS nr
	    FROM comments c
	    INNER JOIN posts p ON p.id = c.post_id AND p.archived = false
	    WHERE c.user_id <> p.user_id
	    GROUP BY 1, 2
	),
	merged AS (
	    SELECT u1, u2, 'LIKE' AS engagement_type, nr FROM likes
	    UNION ALL
	    SELECT u1, u2, 'COMMENT' AS engagement_type, nr FROM comment_counts
	)
	INSERT INTO engagements (user_id1, user_id2, engagement_type, engagement_nr, updated_at)
	SELECT u1, u2, engagement_type, nr, $1 FROM merged
	ON CONFLICT (user_id1, user_id2, engagement_type) DO UPDATE
	SET engagement_nr = EXCLUDED.engagement_nr, updated_at = EXCLUDED.updated_at`

// Recompute は交流数を再集計する。集計に現れなかった古い行は削除する。
func (r *PostgresEngagementRepo) Recompute(ctx context.Context, at time.Time) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, recomputeEngagementsQuery, at)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to upsert engagements: %w", err)
	}
	upserted, err := result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM engagements WHERE updated_at < $1`, at)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete stale engagements: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return upserted, removed, nil
}

// compile-time interface check
var _ EngagementRepository = (*PostgresEngagementRepo)(nil)
