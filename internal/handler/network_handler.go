package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/snapshare/internal/model"
)

// NetworkServiceInterface はフォロー操作のサービスインターフェース。
type NetworkServiceInterface interface {
	Follow(ctx context.Context, followerID, followeeID string) (*model.Follow, error)
	Unfollow(ctx context.Context, followerID, followeeID string) error
}

// NetworkHandler はフォロー関係のHTTPハンドラー。
type NetworkHandler struct {
	service NetworkServiceInterface
}

// NewNetworkHandler はNetworkHandlerを生成する。
func NewNetworkHandler(service NetworkServiceInterface) *NetworkHandler {
	return &NetworkHandler{service: service}
}

// Follow は指定ユーザーをフォローする。非公開アカウントの場合は承認待ちになる。
// POST /api/users/{id}/follow
func (h *NetworkHandler) Follow(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	f, err := h.service.Follow(r.Context(), viewerID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, followResponse{
		FollowerID: f.FollowerID,
		FolloweeID: f.FolloweeID,
		Pending:    f.Pending,
		CreatedAt:  f.CreatedAt,
	})
}

// Unfollow はフォローを解除する。
// DELETE /api/users/{id}/follow
func (h *NetworkHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	if err := h.service.Unfollow(r.Context(), viewerID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
