package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/snapshare/internal/model"
)

// PostgresCheckpointRepo はPostgreSQLを使用したフィードチェックポイントリポジトリ。
// user_feedsテーブルに1ユーザー1行で保存する。
type PostgresCheckpointRepo struct {
	db *sql.DB
}

// NewPostgresCheckpointRepo はPostgresCheckpointRepoを生成する。
func NewPostgresCheckpointRepo(db *sql.DB) *PostgresCheckpointRepo {
	return &PostgresCheckpointRepo{db: db}
}

// Find はユーザーのチェックポイントを取得する。存在しない場合はnilを返す。
func (r *PostgresCheckpointRepo) Find(ctx context.Context, userID string) (*model.FeedCheckpoint, error) {
	cp := &model.FeedCheckpoint{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, last_seen_at FROM user_feeds WHERE user_id = $1`,
		userID,
	).Scan(&cp.UserID, &cp.LastSeenAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find feed checkpoint: %w", err)
	}
	return cp, nil
}

// Upsert はチェックポイントをINSERT ON CONFLICTで更新する。
// 同じユーザーに対して何度呼んでも行は1つで、最後の呼び出しの時刻が残る。
func (r *PostgresCheckpointRepo) Upsert(ctx context.Context, userID string, at time.Time) (*model.FeedCheckpoint, error) {
	cp := &model.FeedCheckpoint{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_feeds (user_id, last_seen_at, updated_at)
		 VALUES ($1, $2, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET last_seen_at = EXCLUDED.last_seen_at, updated_at = EXCLUDED.updated_at
		 RETURNING user_id, last_seen_at`,
		userID, at,
	).Scan(&cp.UserID, &cp.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert feed checkpoint: %w", err)
	}
	return cp, nil
}

// compile-time interface check
var _ CheckpointRepository = (*PostgresCheckpointRepo)(nil)
