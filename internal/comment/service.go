// Package comment はコメントの作成・編集・削除のドメインロジックを提供する。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/snapshare/internal/model"
	"github.com/hitoshi/snapshare/internal/repository"
	"github.com/hitoshi/snapshare/internal/security"
)

// CreateInput はコメント作成の入力。
type CreateInput struct {
	Text string
	// ParentCommentID が指定された場合は返信として作成する。
	ParentCommentID *string
}

// Service はコメントの書き込み系操作のサービス層。
type Service struct {
	posts     repository.CommentSource
	comments  repository.CommentRepository
	network   repository.NetworkRepository
	sanitizer security.TextSanitizer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	posts repository.CommentSource,
	comments repository.CommentRepository,
	network repository.NetworkRepository,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		posts:     posts,
		comments:  comments,
		network:   network,
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
	}
}

// Create は投稿にコメントを作成する。
// 非公開アカウントの投稿には承認済みフォロワーと投稿者本人のみコメントできる。
// 返信先は同じ投稿のコメントでなければならない。
func (s *Service) Create(ctx context.Context, viewerID, postID string, in CreateInput) (*model.Comment, error) {
	text := s.sanitizer.Sanitize(in.Text)
	if text == "" {
		return nil, model.NewInvalidCommentError("text is empty")
	}

	post, err := s.posts.FindActivePost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	if post.AuthorIsPrivate && post.UserID != viewerID {
		ok, err := s.network.IsAcceptedFollower(ctx, viewerID, post.UserID)
		if err != nil {
			return nil, fmt.Errorf("フォロー関係の確認に失敗しました: %w", err)
		}
		if !ok {
			return nil, model.NewForbiddenError("private account")
		}
	}

	var parentID *string
	if in.ParentCommentID != nil && *in.ParentCommentID != "" {
		parent, err := s.comments.FindByID(ctx, *in.ParentCommentID)
		if err != nil {
			return nil, fmt.Errorf("返信先コメントの取得に失敗しました: %w", err)
		}
		if parent == nil || parent.PostID != post.ID {
			return nil, model.NewParentCommentNotFoundError(*in.ParentCommentID)
		}
		id := parent.ID
		parentID = &id
	}

	now := s.now().UTC()
	c := &model.Comment{
		ID:              uuid.New().String(),
		PostID:          post.ID,
		UserID:          viewerID,
		ParentCommentID: parentID,
		Text:            text,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	s.logger.Info("comment created",
		slog.String("comment_id", c.ID),
		slog.String("post_id", c.PostID),
		slog.String("user_id", viewerID),
		slog.Bool("reply", parentID != nil),
	)
	return c, nil
}

// Edit はコメント本文を更新する。コメントの作成者のみ編集できる。
func (s *Service) Edit(ctx context.Context, viewerID, commentID, rawText string) (*model.Comment, error) {
	text := s.sanitizer.Sanitize(rawText)
	if text == "" {
		return nil, model.NewInvalidCommentError("text is empty")
	}

	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCommentNotFoundError(commentID)
	}
	if c.UserID != viewerID {
		return nil, model.NewForbiddenError("not the comment author")
	}

	now := s.now().UTC()
	if err := s.comments.UpdateText(ctx, c.ID, text, now); err != nil {
		return nil, fmt.Errorf("コメントの更新に失敗しました: %w", err)
	}
	c.Text = text
	c.UpdatedAt = now
	return c, nil
}

// Delete はコメントとその配下の返信を削除し、削除件数を返す。
// コメントの作成者または投稿者のみ削除できる。
func (s *Service) Delete(ctx context.Context, viewerID, commentID string) (int64, error) {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return 0, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return 0, model.NewCommentNotFoundError(commentID)
	}

	if c.UserID != viewerID {
		post, err := s.posts.FindActivePost(ctx, c.PostID)
		if err != nil {
			return 0, fmt.Errorf("投稿の取得に失敗しました: %w", err)
		}
		if post == nil || post.UserID != viewerID {
			return 0, model.NewForbiddenError("not the comment or post author")
		}
	}

	removed, err := s.comments.DeleteWithReplies(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}

	s.logger.Info("comment deleted",
		slog.String("comment_id", c.ID),
		slog.String("post_id", c.PostID),
		slog.String("user_id", viewerID),
		slog.Int64("removed", removed),
	)
	return removed, nil
}
