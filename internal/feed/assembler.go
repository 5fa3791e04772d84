// Package feed はフィードのページ組み立てと既読チェックポイントの更新を提供する。
package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/snapshare/internal/cursor"
	"github.com/hitoshi/snapshare/internal/model"
	"github.com/hitoshi/snapshare/internal/ranking"
	"github.com/hitoshi/snapshare/internal/repository"
)

// DefaultPageSize は1ページあたりの既定の投稿数。
const DefaultPageSize = 10

// PageRequest はフィード1ページ分のリクエスト。
type PageRequest struct {
	Page     int // 1始まり
	PageSize int
	Reload   bool
}

// Page は組み立て済みのフィード1ページ。
type Page struct {
	Posts []model.ScoredPost
	// Phases は今回のリクエストで通過したフェーズ。未読→補完の場合は2つになる。
	Phases []model.FeedPhase
	// UnseenCount はPostsのうち未読フェーズ（初回表示を含む）から配信した件数。
	UnseenCount int
	// Cursor は書き込み済みのカーソル。
	Cursor model.FeedCursor
}

// Phase は最後に通過したフェーズを返す。
func (p *Page) Phase() model.FeedPhase {
	if len(p.Phases) == 0 {
		return ""
	}
	return p.Phases[len(p.Phases)-1]
}

// Assembler はフィードの状態機械。
// チェックポイントとカーソルからフェーズを選び、候補を取得・スコアリングしてページを切り出す。
// 閲覧者IDは引数で受け取り、インスタンスには保持しない。
type Assembler struct {
	candidates     repository.CandidateSource
	checkpoints    repository.CheckpointRepository
	cursors        *cursor.Manager
	standardWindow int
	logger         *slog.Logger
}

// NewAssembler はAssemblerを生成する。standardWindowが0以下の場合は既定値を使う。
func NewAssembler(
	candidates repository.CandidateSource,
	checkpoints repository.CheckpointRepository,
	cursors *cursor.Manager,
	standardWindow int,
	logger *slog.Logger,
) *Assembler {
	if standardWindow <= 0 {
		standardWindow = cursor.DefaultStandardWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		candidates:     candidates,
		checkpoints:    checkpoints,
		cursors:        cursors,
		standardWindow: standardWindow,
		logger:         logger,
	}
}

// Assemble はviewerIDのフィード1ページを組み立て、カーソルを書き込んでから返す。
// カーソルの読み込みから書き込みまではユーザー単位のロック内で行う。
// 協調コンポーネントに到達できない場合はカーソルを書き込まずにエラーを返す。
func (a *Assembler) Assemble(ctx context.Context, viewerID string, req PageRequest) (*Page, error) {
	if req.Page < 1 {
		return nil, model.NewInvalidPageError("page must be >= 1")
	}
	if req.PageSize < 1 {
		return nil, model.NewInvalidPageError("page size must be >= 1")
	}
	if !model.PageInRange(req.Page, req.PageSize) {
		return nil, model.NewInvalidPageError("page is out of range")
	}

	var page *Page
	err := a.cursors.WithLock(ctx, viewerID, func(ctx context.Context) error {
		p, err := a.assembleLocked(ctx, viewerID, req)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (a *Assembler) assembleLocked(ctx context.Context, viewerID string, req PageRequest) (*Page, error) {
	checkpoint, err := a.checkpoints.Find(ctx, viewerID)
	if err != nil {
		return nil, model.NewUnavailableError("checkpoint store", err)
	}

	prev, err := a.cursors.Read(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	window := cursor.Renormalize(cursor.RawOffset(req.Page, req.PageSize), a.standardWindow)

	next := model.FeedCursor{UserID: viewerID}
	if prev != nil {
		next = *prev
		next.UserID = viewerID
		next.LastBatchPostIDs = append([]string(nil), prev.LastBatchPostIDs...)
	}

	var page *Page
	switch {
	case checkpoint == nil:
		page, err = a.firstVisit(ctx, viewerID, req, window, &next)
	case req.Reload || prev == nil || !prev.UnseenSupplyExhausted:
		page, err = a.unseen(ctx, viewerID, req, window, sessionBoundary(checkpoint, prev, req.Reload), &next)
	default:
		page, err = a.steady(ctx, viewerID, req, window, sessionBoundary(checkpoint, prev, req.Reload), prev, &next)
	}
	if err != nil {
		return nil, err
	}

	// 放棄されたリクエストではカーソルを書き込まない
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.cursors.Write(ctx, &next); err != nil {
		return nil, err
	}
	page.Cursor = next

	a.logger.Debug("feed page assembled",
		slog.String("user_id", viewerID),
		slog.Int("page", req.Page),
		slog.Int("page_size", req.PageSize),
		slog.Any("phases", page.Phases),
		slog.Int("posts", len(page.Posts)),
		slog.Int("unseen", page.UnseenCount),
		slog.Int("previous_offset", next.PreviousOffset),
		slog.Bool("unseen_supply_exhausted", next.UnseenSupplyExhausted),
	)

	return page, nil
}

// firstVisit はチェックポイントのないユーザーへの初回表示。時刻条件なしで取得する。
func (a *Assembler) firstVisit(
	ctx context.Context,
	viewerID string,
	req PageRequest,
	window cursor.Window,
	next *model.FeedCursor,
) (*Page, error) {
	posts, err := a.collect(ctx, viewerID, model.CandidateWindow{}, window, req.PageSize)
	if err != nil {
		return nil, err
	}

	next.LastSeenAt = nil
	next.UnseenSupplyExhausted = true
	next.PreviousOffset = window.SliceOffset
	next.LastBatchPostIDs = postIDs(posts)

	return &Page{
		Posts:       posts,
		Phases:      []model.FeedPhase{model.FeedPhaseFirstVisit},
		UnseenCount: len(posts),
	}, nil
}

// unseen はチェックポイント以降の投稿を配信する。不足分は同じリクエスト内で既読側から補完する。
func (a *Assembler) unseen(
	ctx context.Context,
	viewerID string,
	req PageRequest,
	window cursor.Window,
	lastSeenAt time.Time,
	next *model.FeedCursor,
) (*Page, error) {
	after := lastSeenAt
	unseenPosts, err := a.collect(ctx, viewerID, model.CandidateWindow{After: &after}, window, req.PageSize)
	if err != nil {
		return nil, err
	}

	seen := lastSeenAt
	next.LastSeenAt = &seen
	next.UnseenSupplyExhausted = false
	next.PreviousOffset = window.SliceOffset
	next.LastBatchPostIDs = postIDs(unseenPosts)

	page := &Page{
		Posts:       unseenPosts,
		Phases:      []model.FeedPhase{model.FeedPhaseUnseen},
		UnseenCount: len(unseenPosts),
	}

	if len(unseenPosts) >= req.PageSize {
		return page, nil
	}

	// 補完フェーズ: 残りの枠をチェックポイントより古い投稿で先頭から埋める
	before := lastSeenAt
	head := cursor.Renormalize(0, a.standardWindow)
	backfill, err := a.collect(ctx, viewerID, model.CandidateWindow{Before: &before}, head, req.PageSize-len(unseenPosts))
	if err != nil {
		return nil, err
	}

	posts := make([]model.ScoredPost, 0, len(unseenPosts)+len(backfill))
	posts = append(posts, unseenPosts...)
	posts = append(posts, backfill...)

	next.UnseenSupplyExhausted = true
	next.PreviousOffset = 0

	page.Posts = posts
	page.Phases = append(page.Phases, model.FeedPhaseBackfill)
	return page, nil
}

// steady は未読を出し切った後の通常ページネーション。
// 前回のオフセットより進んでいる場合のみ直近の未読バッチを除外し、オフセットを1ページ分戻す。
func (a *Assembler) steady(
	ctx context.Context,
	viewerID string,
	req PageRequest,
	window cursor.Window,
	lastSeenAt time.Time,
	prev *model.FeedCursor,
	next *model.FeedCursor,
) (*Page, error) {
	before := lastSeenAt
	filter := model.CandidateWindow{Before: &before}
	offset := window.SliceOffset

	if prev.PreviousOffset < offset {
		filter.ExcludeIDs = prev.LastBatchPostIDs
		offset -= req.PageSize
	}
	if offset < 0 {
		offset = 0
	}

	start := window
	start.SliceOffset = offset
	posts, err := a.collect(ctx, viewerID, filter, start, req.PageSize)
	if err != nil {
		return nil, err
	}

	seen := lastSeenAt
	next.LastSeenAt = &seen
	next.UnseenSupplyExhausted = true
	next.PreviousOffset = offset

	return &Page{
		Posts:  posts,
		Phases: []model.FeedPhase{model.FeedPhaseSteady},
	}, nil
}

// sessionBoundary は未読と既読を分ける時刻を返す。
// 進行中のセッションではカーソルに記録した時刻を使い続け、途中でチェックポイントが
// 更新されても境界は動かさない。カーソルがない・時刻を持たない・再読み込みの場合のみ
// チェックポイントの時刻を採用する。
func sessionBoundary(checkpoint *model.FeedCheckpoint, prev *model.FeedCursor, reload bool) time.Time {
	if prev != nil && prev.LastSeenAt != nil && !reload {
		return *prev.LastSeenAt
	}
	return checkpoint.LastSeenAt
}

// collect はwindowの切り出し位置からn件をランキング順に集める。
// 取得範囲の末尾に達した場合は、候補が残っている限り次の取得範囲へ進んで埋める。
func (a *Assembler) collect(
	ctx context.Context,
	viewerID string,
	filter model.CandidateWindow,
	window cursor.Window,
	n int,
) ([]model.ScoredPost, error) {
	posts := make([]model.ScoredPost, 0, n)
	for len(posts) < n {
		candidates, err := a.fetch(ctx, viewerID, filter, window.Limit, window.FetchOffset)
		if err != nil {
			return nil, err
		}
		posts = append(posts, ranking.Top(candidates, window.SliceOffset, n-len(posts))...)
		if len(candidates) < window.Limit {
			break
		}
		window = cursor.Renormalize(window.Next(), a.standardWindow)
	}
	return posts, nil
}

func (a *Assembler) fetch(
	ctx context.Context,
	viewerID string,
	window model.CandidateWindow,
	limit, offset int,
) ([]model.CandidatePost, error) {
	candidates, err := a.candidates.FetchCandidates(ctx, viewerID, window, limit, offset)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, model.NewUnavailableError("candidate source", err)
	}
	return candidates, nil
}

func postIDs(posts []model.ScoredPost) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.PostID
	}
	return ids
}
