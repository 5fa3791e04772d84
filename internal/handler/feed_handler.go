package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/snapshare/internal/feed"
	"github.com/hitoshi/snapshare/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// GetFeed はフィード1ページを組み立てる。
	GetFeed(ctx context.Context, viewerID string, req feed.Request) (*feed.Result, error)
	// MarkSeen は既読チェックポイントを現在時刻で更新する。
	MarkSeen(ctx context.Context, viewerID string) (*model.FeedCheckpoint, error)
}

// FeedHandlerConfig はフィードハンドラーの設定。
type FeedHandlerConfig struct {
	// MaxPageSize はpostsByPageの上限。これを超える値は上限に丸める。
	MaxPageSize int
	// MaxCommentsLimit はcommentsLimitの上限。
	MaxCommentsLimit int
}

// DefaultFeedHandlerConfig はデフォルトのフィードハンドラー設定を返す。
func DefaultFeedHandlerConfig() FeedHandlerConfig {
	return FeedHandlerConfig{MaxPageSize: 50, MaxCommentsLimit: 20}
}

// FeedHandler はフィードのHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
	config  FeedHandlerConfig
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface, config FeedHandlerConfig) *FeedHandler {
	def := DefaultFeedHandlerConfig()
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = def.MaxPageSize
	}
	if config.MaxCommentsLimit <= 0 {
		config.MaxCommentsLimit = def.MaxCommentsLimit
	}
	return &FeedHandler{service: service, config: config}
}

// GetFeed はフィード1ページを返す。
// GET /api/feed?page=&postsByPage=&reload=&commentsLimit=
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	req, apiErr := h.parseFeedRequest(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	res, err := h.service.GetFeed(r.Context(), viewerID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeedResponse(res))
}

// MarkSeen はフィードを既読にする。
// POST /api/feed/seen
func (h *FeedHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	if _, err := h.service.MarkSeen(r.Context(), viewerID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedHandler) parseFeedRequest(r *http.Request) (feed.Request, *model.APIError) {
	page, err := queryInt(r, "page")
	if err != nil {
		return feed.Request{}, model.NewInvalidPageError("page must be an integer")
	}
	if page == 0 {
		page = 1
	}
	if page > 0 && !model.PageInRange(page, h.config.MaxPageSize) {
		return feed.Request{}, model.NewInvalidPageError("page is out of range")
	}

	size, err := queryInt(r, "postsByPage")
	if err != nil || size < 0 {
		return feed.Request{}, model.NewInvalidPageError("postsByPage must be a positive integer")
	}
	if size > h.config.MaxPageSize {
		size = h.config.MaxPageSize
	}

	comments, err := queryInt(r, "commentsLimit")
	if err != nil || comments < 0 {
		return feed.Request{}, model.NewInvalidPageError("commentsLimit must be a positive integer")
	}
	if comments > h.config.MaxCommentsLimit {
		comments = h.config.MaxCommentsLimit
	}

	reload, _ := strconv.ParseBool(r.URL.Query().Get("reload"))

	return feed.Request{
		Page:          page,
		PageSize:      size,
		Reload:        reload,
		CommentsLimit: comments,
	}, nil
}
