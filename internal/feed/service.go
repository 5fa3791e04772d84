package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/snapshare/internal/metrics"
	"github.com/hitoshi/snapshare/internal/model"
	"github.com/hitoshi/snapshare/internal/repository"
	"golang.org/x/sync/errgroup"
)

// DefaultCommentsPreview はフィードの各投稿に添えるコメントの既定件数。
const DefaultCommentsPreview = 3

// defaultThreadFanout はコメントプレビューを並行取得する既定の最大数。
const defaultThreadFanout = 4

// ThreadPreviewer は投稿ごとのコメントプレビューの取得元。
type ThreadPreviewer interface {
	Preview(ctx context.Context, viewerID, postID string, limit int) ([]model.CommentNode, error)
}

// URLConverter はメディアパスを配信用URLに変換する。
type URLConverter interface {
	URL(mediaPath string) string
}

// Request はフィード取得のリクエスト。
type Request struct {
	Page          int
	PageSize      int
	Reload        bool
	CommentsLimit int
}

// Item はフィードの1要素（投稿とコメントプレビュー）。
type Item struct {
	Post     model.ScoredPost
	Comments []model.CommentNode
}

// Result はフィード取得の結果。
type Result struct {
	Items []Item
	Phase model.FeedPhase
}

// Service はフィード取得と既読チェックポイント更新のサービス層。
type Service struct {
	assembler   *Assembler
	checkpoints repository.CheckpointRepository
	threads     ThreadPreviewer
	media       URLConverter
	metrics     metrics.MetricsCollector
	fanout      int
	pageSize    int
	previewSize int
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceOption はServiceの任意設定。
type ServiceOption func(*Service)

// WithMetrics はメトリクス収集先を設定する。
func WithMetrics(m metrics.MetricsCollector) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithThreadFanout はコメントプレビューの並行取得数を設定する。
func WithThreadFanout(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.fanout = n
		}
	}
}

// WithDefaults はリクエストで省略された場合の投稿数とプレビュー件数を設定する。
// 0以下の値は無視する。
func WithDefaults(pageSize, commentsPreview int) ServiceOption {
	return func(s *Service) {
		if pageSize > 0 {
			s.pageSize = pageSize
		}
		if commentsPreview > 0 {
			s.previewSize = commentsPreview
		}
	}
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	assembler *Assembler,
	checkpoints repository.CheckpointRepository,
	threads ThreadPreviewer,
	media URLConverter,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		assembler:   assembler,
		checkpoints: checkpoints,
		threads:     threads,
		media:       media,
		metrics:     metrics.Nop{},
		fanout:      defaultThreadFanout,
		pageSize:    DefaultPageSize,
		previewSize: DefaultCommentsPreview,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetFeed はフィード1ページを組み立て、各投稿にコメントプレビューを添えて返す。
// カーソルの書き込みが完了してからプレビューを取得する。
// プレビューの取得に失敗した投稿は空のプレビューにする（ページ自体は確定済みのため）。
func (s *Service) GetFeed(ctx context.Context, viewerID string, req Request) (*Result, error) {
	if req.PageSize == 0 {
		req.PageSize = s.pageSize
	}
	if req.CommentsLimit <= 0 {
		req.CommentsLimit = s.previewSize
	}

	start := s.now()
	page, err := s.assembler.Assemble(ctx, viewerID, PageRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Reload:   req.Reload,
	})
	if err != nil {
		s.metrics.RecordFeedFailure(failureReason(err))
		return nil, err
	}
	s.metrics.RecordAssembleLatency(s.now().Sub(start))
	s.metrics.RecordFeedPage(string(page.Phase()), len(page.Posts))

	items := make([]Item, len(page.Posts))
	for i, p := range page.Posts {
		p.Media = s.convert(p.Media)
		p.AuthorProfileImg = s.convert(p.AuthorProfileImg)
		items[i] = Item{Post: p, Comments: []model.CommentNode{}}
	}

	if s.threads != nil && len(items) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.fanout)
		for i := range items {
			postID := items[i].Post.PostID
			g.Go(func() error {
				comments, err := s.threads.Preview(gctx, viewerID, postID, req.CommentsLimit)
				if err != nil {
					if !model.IsCode(err, model.ErrCodePostNotFound) && !model.IsCode(err, model.ErrCodeForbidden) {
						s.logger.Warn("comment preview failed",
							slog.String("user_id", viewerID),
							slog.String("post_id", postID),
							slog.String("error", err.Error()),
						)
					}
					return nil
				}
				items[i].Comments = comments
				return nil
			})
		}
		_ = g.Wait()
	}

	return &Result{Items: items, Phase: page.Phase()}, nil
}

// MarkSeen は既読チェックポイントを現在時刻でUPSERTする。カーソルは変更しない。
func (s *Service) MarkSeen(ctx context.Context, viewerID string) (*model.FeedCheckpoint, error) {
	cp, err := s.checkpoints.Upsert(ctx, viewerID, s.now().UTC())
	if err != nil {
		return nil, model.NewUnavailableError("checkpoint store", err)
	}
	s.logger.Info("feed marked as seen",
		slog.String("user_id", viewerID),
		slog.Time("last_seen_at", cp.LastSeenAt),
	)
	return cp, nil
}

func (s *Service) convert(p string) string {
	if s.media == nil {
		return p
	}
	return s.media.URL(p)
}

func failureReason(err error) string {
	switch {
	case model.IsCode(err, model.ErrCodeUnavailable):
		return "unavailable"
	case model.IsCode(err, model.ErrCodeInvalidPage):
		return "invalid_page"
	default:
		return "internal"
	}
}
