package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/snapshare/internal/comment"
	"github.com/hitoshi/snapshare/internal/model"
	"github.com/hitoshi/snapshare/internal/thread"
)

// ThreadServiceInterface はコメントスレッド取得のサービスインターフェース。
type ThreadServiceInterface interface {
	GetComments(ctx context.Context, viewerID, postID string, req thread.Request) ([]model.CommentNode, error)
}

// CommentServiceInterface はコメントの書き込み系サービスインターフェース。
type CommentServiceInterface interface {
	Create(ctx context.Context, viewerID, postID string, in comment.CreateInput) (*model.Comment, error)
	Edit(ctx context.Context, viewerID, commentID, text string) (*model.Comment, error)
	Delete(ctx context.Context, viewerID, commentID string) (int64, error)
}

// CommentHandler はコメントのHTTPハンドラー。
type CommentHandler struct {
	threads  ThreadServiceInterface
	comments CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(threads ThreadServiceInterface, comments CommentServiceInterface) *CommentHandler {
	return &CommentHandler{threads: threads, comments: comments}
}

type createCommentRequest struct {
	Text            string  `json:"text"`
	ParentCommentID *string `json:"parent_comment_id"`
}

type editCommentRequest struct {
	Text string `json:"text"`
}

type deleteCommentResponse struct {
	Removed int64 `json:"removed"`
}

// ListComments は投稿のコメントスレッドを返す。
// GET /api/posts/{id}/comments?limit=&page=
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPageError("limit must be an integer"))
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPageError("page must be an integer"))
		return
	}
	if page > 0 && !model.PageInRange(page, max(limit, 1)) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPageError("page is out of range"))
		return
	}

	nodes, err := h.threads.GetComments(r.Context(), viewerID, chi.URLParam(r, "id"), thread.Request{
		Limit: limit,
		Page:  page,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentsResponse{Comments: toCommentNodes(nodes)})
}

// CreateComment は投稿にコメントまたは返信を作成する。
// POST /api/posts/{id}/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	var req createCommentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	c, err := h.comments.Create(r.Context(), viewerID, chi.URLParam(r, "id"), comment.CreateInput{
		Text:            req.Text,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

// EditComment はコメント本文を更新する。
// PUT /api/comments/{id}
func (h *CommentHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	var req editCommentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	c, err := h.comments.Edit(r.Context(), viewerID, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// DeleteComment はコメントと配下の返信を削除する。
// DELETE /api/comments/{id}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	removed, err := h.comments.Delete(r.Context(), viewerID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteCommentResponse{Removed: removed})
}
