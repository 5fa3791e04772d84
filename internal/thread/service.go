package thread

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/snapshare/internal/metrics"
	"github.com/hitoshi/snapshare/internal/model"
	"github.com/hitoshi/snapshare/internal/repository"
)

// DefaultPageSize は1ページあたりのトップレベルコメントの既定件数。
const DefaultPageSize = 10

// defaultMaxReplyLevels はトップレベルの下にたどる返信の最大階層数。
// これより深い返信は取得しない。
const defaultMaxReplyLevels = 5

// URLConverter はメディアパスを配信用URLに変換する。
type URLConverter interface {
	URL(mediaPath string) string
}

// Request はコメントスレッド取得のリクエスト。
type Request struct {
	// Limit は1ページあたりのトップレベルコメント数。
	Limit int
	// Page は1始まりのページ番号。
	Page int
	// FlatLimit が正の場合、返信を含めた全体の件数をこの値で打ち切る。
	FlatLimit int
}

// Service はコメントスレッドの取得サービス。
type Service struct {
	comments       repository.CommentSource
	network        repository.NetworkRepository
	media          URLConverter
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	maxReplyLevels int
	pageSize       int
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithMetrics はメトリクス収集先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMaxReplyLevels はたどる返信の最大階層数を設定する。
func WithMaxReplyLevels(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReplyLevels = n
		}
	}
}

// WithPageSize はlimit省略時のトップレベルコメント数を設定する。
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewService はServiceを生成する。
func NewService(
	comments repository.CommentSource,
	network repository.NetworkRepository,
	media URLConverter,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		comments:       comments,
		network:        network,
		media:          media,
		metrics:        metrics.Nop{},
		logger:         logger,
		maxReplyLevels: defaultMaxReplyLevels,
		pageSize:       DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetComments は投稿のコメントスレッドを優先度順の平坦な列で返す。
// 投稿が存在しない・アーカイブ済みの場合はPostNotFound、
// 非公開アカウントの投稿を承認済みフォロワー以外が閲覧した場合はForbiddenを返す。
func (s *Service) GetComments(ctx context.Context, viewerID, postID string, req Request) ([]model.CommentNode, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Page < 1 {
		return nil, model.NewInvalidPageError("page must be >= 1")
	}
	if req.Limit < 0 {
		return nil, model.NewInvalidPageError("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = s.pageSize
	}
	if !model.PageInRange(req.Page, req.Limit) {
		return nil, model.NewInvalidPageError("page is out of range")
	}

	post, err := s.comments.FindActivePost(ctx, postID)
	if err != nil {
		return nil, s.unavailable(err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	if err := s.checkAccess(ctx, viewerID, post); err != nil {
		return nil, err
	}

	top, err := s.comments.ListTopLevel(ctx, postID, viewerID)
	if err != nil {
		return nil, s.unavailable(err)
	}
	roots := pageRoots(OrderRoots(top), req.Limit, (req.Page-1)*req.Limit)

	replies, err := s.collectReplies(ctx, viewerID, postID, roots)
	if err != nil {
		return nil, err
	}

	nodes := Arrange(roots, replies)
	if req.FlatLimit > 0 && len(nodes) > req.FlatLimit {
		nodes = nodes[:req.FlatLimit]
	}
	for i := range nodes {
		nodes[i].AuthorProfileImg = s.convert(nodes[i].AuthorProfileImg)
	}

	s.metrics.RecordThreadNodes(len(nodes))
	s.logger.Debug("comment thread assembled",
		slog.String("user_id", viewerID),
		slog.String("post_id", postID),
		slog.Int("roots", len(roots)),
		slog.Int("nodes", len(nodes)),
	)
	return nodes, nil
}

// Preview はフィードに添えるコメントをlimit件まで返す。
func (s *Service) Preview(ctx context.Context, viewerID, postID string, limit int) ([]model.CommentNode, error) {
	return s.GetComments(ctx, viewerID, postID, Request{Limit: limit, Page: 1, FlatLimit: limit})
}

// collectReplies はrootsの配下の返信を幅優先で階層ごとに取得する。
// 各返信のRootCommentIDには所属するトップレベルのIDを設定する。
func (s *Service) collectReplies(ctx context.Context, viewerID, postID string, roots []model.CommentNode) ([]model.CommentNode, error) {
	rootOf := make(map[string]string, len(roots))
	frontier := make([]string, 0, len(roots))
	for _, r := range roots {
		rootOf[r.CommentID] = r.CommentID
		frontier = append(frontier, r.CommentID)
	}

	replies := []model.CommentNode{}
	for level := 1; level <= s.maxReplyLevels && len(frontier) > 0; level++ {
		nodes, err := s.comments.ListReplies(ctx, postID, viewerID, frontier)
		if err != nil {
			return nil, s.unavailable(err)
		}
		next := make([]string, 0, len(nodes))
		for _, n := range nodes {
			if n.ParentCommentID == nil {
				continue
			}
			root, ok := rootOf[*n.ParentCommentID]
			if !ok {
				continue
			}
			n.RootCommentID = root
			rootOf[n.CommentID] = root
			replies = append(replies, n)
			next = append(next, n.CommentID)
		}
		frontier = next
	}
	return replies, nil
}

func (s *Service) checkAccess(ctx context.Context, viewerID string, post *model.Post) error {
	if !post.AuthorIsPrivate || post.UserID == viewerID {
		return nil
	}
	ok, err := s.network.IsAcceptedFollower(ctx, viewerID, post.UserID)
	if err != nil {
		return s.unavailable(err)
	}
	if !ok {
		return model.NewForbiddenError("private account")
	}
	return nil
}

func (s *Service) unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return model.NewUnavailableError("comment source", err)
}

func (s *Service) convert(p string) string {
	if s.media == nil {
		return p
	}
	return s.media.URL(p)
}
