package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/snapshare/internal/model"
)

type mockNetworkService struct {
	followFn   func(ctx context.Context, followerID, followeeID string) (*model.Follow, error)
	unfollowFn func(ctx context.Context, followerID, followeeID string) error
}

func (m *mockNetworkService) Follow(ctx context.Context, followerID, followeeID string) (*model.Follow, error) {
	if m.followFn != nil {
		return m.followFn(ctx, followerID, followeeID)
	}
	return &model.Follow{FollowerID: followerID, FolloweeID: followeeID}, nil
}

func (m *mockNetworkService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if m.unfollowFn != nil {
		return m.unfollowFn(ctx, followerID, followeeID)
	}
	return nil
}

func TestNetworkHandler_Follow(t *testing.T) {
	svc := &mockNetworkService{
		followFn: func(_ context.Context, followerID, followeeID string) (*model.Follow, error) {
			return &model.Follow{FollowerID: followerID, FolloweeID: followeeID, Pending: true}, nil
		},
	}

	req := withChiURLParam(withUserID(httptest.NewRequest(http.MethodPost, "/api/users/u2/follow", nil), "viewer-1"), "id", "u2")
	w := httptest.NewRecorder()
	NewNetworkHandler(svc).Follow(w, req)

	assertStatus(t, w, http.StatusCreated)
	var res followResponse
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if res.FollowerID != "viewer-1" || res.FolloweeID != "u2" || !res.Pending {
		t.Errorf("response = %+v, want pending follow viewer-1 -> u2", res)
	}
}

func TestNetworkHandler_Follow_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"self", model.NewForbiddenError("cannot follow yourself"), http.StatusForbidden, model.ErrCodeForbidden},
		{"unknown user", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
		{"duplicate", model.NewAlreadyFollowingError(), http.StatusConflict, model.ErrCodeAlreadyFollowing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockNetworkService{
				followFn: func(context.Context, string, string) (*model.Follow, error) { return nil, tt.err },
			}
			req := withChiURLParam(withUserID(httptest.NewRequest(http.MethodPost, "/api/users/u2/follow", nil), "viewer-1"), "id", "u2")
			w := httptest.NewRecorder()
			NewNetworkHandler(svc).Follow(w, req)

			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestNetworkHandler_Unfollow(t *testing.T) {
	var called bool
	svc := &mockNetworkService{
		unfollowFn: func(_ context.Context, followerID, followeeID string) error {
			called = followerID == "viewer-1" && followeeID == "u2"
			return nil
		},
	}

	req := withChiURLParam(withUserID(httptest.NewRequest(http.MethodDelete, "/api/users/u2/follow", nil), "viewer-1"), "id", "u2")
	w := httptest.NewRecorder()
	NewNetworkHandler(svc).Unfollow(w, req)

	assertStatus(t, w, http.StatusNoContent)
	if !called {
		t.Error("Unfollow should be called with viewer-1 -> u2")
	}
}

func TestNetworkHandler_Unfollow_NotFollowing(t *testing.T) {
	svc := &mockNetworkService{
		unfollowFn: func(context.Context, string, string) error { return model.NewNotFollowingError() },
	}

	req := withChiURLParam(withUserID(httptest.NewRequest(http.MethodDelete, "/api/users/u2/follow", nil), "viewer-1"), "id", "u2")
	w := httptest.NewRecorder()
	NewNetworkHandler(svc).Unfollow(w, req)

	assertErrorCode(t, w, http.StatusNotFound, model.ErrCodeNotFollowing)
}
