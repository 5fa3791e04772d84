// Package network はフォローグラフの更新を提供する。
package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/snapshare/internal/model"
	"github.com/hitoshi/snapshare/internal/repository"
)

// Service はフォロー・フォロー解除のサービス層。
type Service struct {
	users   repository.UserRepository
	network repository.NetworkRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, network repository.NetworkRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:   users,
		network: network,
		logger:  logger,
		now:     time.Now,
	}
}

// Follow はfollowerIDからfolloweeIDへのフォロー関係を作成する。
// 非公開アカウントへのフォローは承認待ち（Pending）になる。
// 既にフォロー済み・申請中の場合はAlreadyFollowingを返す。
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) (*model.Follow, error) {
	if followerID == followeeID {
		return nil, model.NewForbiddenError("cannot follow yourself")
	}

	target, err := s.users.FindActiveByID(ctx, followeeID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	existing, err := s.network.FindActive(ctx, followerID, followeeID)
	if err != nil {
		return nil, fmt.Errorf("フォロー関係の取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewAlreadyFollowingError()
	}

	f := &model.Follow{
		ID:         uuid.New().String(),
		FollowerID: followerID,
		FolloweeID: followeeID,
		Pending:    target.IsPrivate,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.network.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("フォロー関係の作成に失敗しました: %w", err)
	}

	s.logger.Info("follow created",
		slog.String("follower_id", followerID),
		slog.String("followee_id", followeeID),
		slog.Bool("pending", f.Pending),
	)
	return f, nil
}

// Unfollow はフォロー関係（承認待ちを含む）を論理削除する。
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	existing, err := s.network.FindActive(ctx, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("フォロー関係の取得に失敗しました: %w", err)
	}
	if existing == nil {
		return model.NewNotFollowingError()
	}

	if err := s.network.SoftDelete(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("フォロー解除に失敗しました: %w", err)
	}

	s.logger.Info("follow removed",
		slog.String("follower_id", followerID),
		slog.String("followee_id", followeeID),
	)
	return nil
}
