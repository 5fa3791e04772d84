package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/snapshare/internal/model"
)

// PostgresNetworkRepo はPostgreSQLを使用したフォローグラフのリポジトリ。
type PostgresNetworkRepo struct {
	db *sql.DB
}

// NewPostgresNetworkRepo はPostgresNetworkRepoを生成する。
func NewPostgresNetworkRepo(db *sql.DB) *PostgresNetworkRepo {
	return &PostgresNetworkRepo{db: db}
}

// FindActive はfollower→followeeの未削除のフォロー関係を取得する。見つからない場合はnilを返す。
func (r *PostgresNetworkRepo) FindActive(ctx context.Context, followerID, followeeID string) (*model.Follow, error) {
	f := &model.Follow{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, follower_id, followee_id, pending, deleted, created_at
		 FROM network
		 WHERE follower_id = $1 AND followee_id = $2 AND deleted = false`,
		followerID, followeeID,
	).Scan(&f.ID, &f.FollowerID, &f.FolloweeID, &f.Pending, &f.Deleted, &f.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find follow: %w", err)
	}
	return f, nil
}

// IsAcceptedFollower はfollowerがfolloweeを承認済みでフォローしているかどうかを返す。
func (r *PostgresNetworkRepo) IsAcceptedFollower(ctx context.Context, followerID, followeeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM network
		     WHERE follower_id = $1 AND followee_id = $2 AND pending = false AND deleted = false
		 )`,
		followerID, followeeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

// Create はフォロー関係を作成する。
func (r *PostgresNetworkRepo) Create(ctx context.Context, f *model.Follow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO network (id, follower_id, followee_id, pending, deleted, created_at)
		 VALUES ($1, $2, $3, $4, false, $5)`,
		f.ID, f.FollowerID, f.FolloweeID, f.Pending, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

// SoftDelete はfollower→followeeの未削除のフォロー関係を論理削除する。
func (r *PostgresNetworkRepo) SoftDelete(ctx context.Context, followerID, followeeID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE network SET deleted = true
		 WHERE follower_id = $1 AND followee_id = $2 AND deleted = false`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("follow not found: %s -> %s", followerID, followeeID)
	}
	return nil
}

// compile-time interface check
var _ NetworkRepository = (*PostgresNetworkRepo)(nil)
