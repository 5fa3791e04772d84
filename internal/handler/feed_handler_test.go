package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/snapshare/internal/feed"
	"github.com/hitoshi/snapshare/internal/model"
)

// --- モック定義 ---

// mockFeedService はFeedServiceInterfaceのモック実装。
type mockFeedService struct {
	getFeedFn  func(ctx context.Context, viewerID string, req feed.Request) (*feed.Result, error)
	markSeenFn func(ctx context.Context, viewerID string) (*model.FeedCheckpoint, error)
}

func (m *mockFeedService) GetFeed(ctx context.Context, viewerID string, req feed.Request) (*feed.Result, error) {
	if m.getFeedFn != nil {
		return m.getFeedFn(ctx, viewerID, req)
	}
	return &feed.Result{Items: []feed.Item{}}, nil
}

func (m *mockFeedService) MarkSeen(ctx context.Context, viewerID string) (*model.FeedCheckpoint, error) {
	if m.markSeenFn != nil {
		return m.markSeenFn(ctx, viewerID)
	}
	return &model.FeedCheckpoint{UserID: viewerID, LastSeenAt: time.Now()}, nil
}

var feedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleFeedResult() *feed.Result {
	parent := "c1"
	return &feed.Result{
		Phase: model.FeedPhaseUnseen,
		Items: []feed.Item{
			{
				Post: model.ScoredPost{
					CandidatePost: model.CandidatePost{
						PostID:         "p1",
						AuthorID:       "u2",
						Description:    "夕焼け",
						CreatedAt:      feedTime,
						LikeCount:      4,
						CommentCount:   2,
						Media:          "https://cdn.example.com/p1.jpg",
						AuthorUsername: "hanako",
						LikedByViewer:  true,
					},
					Score: 12.5,
				},
				Comments: []model.CommentNode{
					{CommentID: "c1", PostID: "p1", RootCommentID: "c1", Text: "いいね", PriorityTier: 5, CreatedAt: feedTime},
					{CommentID: "c2", PostID: "p1", ParentCommentID: &parent, RootCommentID: "c1", Depth: 1, Text: "同意", PriorityTier: 8, CreatedAt: feedTime},
				},
			},
			{
				Post:     model.ScoredPost{CandidatePost: model.CandidatePost{PostID: "p2", AuthorID: "u3", CreatedAt: feedTime}},
				Comments: []model.CommentNode{},
			},
		},
	}
}

// --- GetFeed ---

func TestFeedHandler_GetFeed_Success(t *testing.T) {
	var gotViewer string
	var gotReq feed.Request
	svc := &mockFeedService{
		getFeedFn: func(_ context.Context, viewerID string, req feed.Request) (*feed.Result, error) {
			gotViewer, gotReq = viewerID, req
			return sampleFeedResult(), nil
		},
	}
	h := NewFeedHandler(svc, FeedHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/feed?page=2&postsByPage=5&reload=true&commentsLimit=2", nil)
	w := httptest.NewRecorder()
	h.GetFeed(w, withUserID(req, "viewer-1"))

	assertStatus(t, w, http.StatusOK)
	if gotViewer != "viewer-1" {
		t.Errorf("viewer = %q, want viewer-1", gotViewer)
	}
	want := feed.Request{Page: 2, PageSize: 5, Reload: true, CommentsLimit: 2}
	if gotReq != want {
		t.Errorf("request = %+v, want %+v", gotReq, want)
	}

	var body feedResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Feed) != 2 {
		t.Fatalf("feed length = %d, want 2", len(body.Feed))
	}
	first := body.Feed[0]
	if first.Post.ID != "p1" || first.Post.Author.Username != "hanako" || !first.Post.LikedByViewer || first.Post.Score != 12.5 {
		t.Errorf("unexpected post: %+v", first.Post)
	}
	if len(first.Comments) != 2 || first.Comments[1].Depth != 1 || *first.Comments[1].ParentCommentID != "c1" {
		t.Errorf("unexpected comments: %+v", first.Comments)
	}
	if body.Feed[1].Comments == nil {
		t.Error("comments should encode as an empty array, not null")
	}
}

func TestFeedHandler_GetFeed_Defaults(t *testing.T) {
	var gotReq feed.Request
	svc := &mockFeedService{
		getFeedFn: func(_ context.Context, _ string, req feed.Request) (*feed.Result, error) {
			gotReq = req
			return &feed.Result{}, nil
		},
	}
	h := NewFeedHandler(svc, FeedHandlerConfig{})

	w := httptest.NewRecorder()
	h.GetFeed(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/feed", nil), "viewer-1"))

	assertStatus(t, w, http.StatusOK)
	if gotReq.Page != 1 || gotReq.PageSize != 0 || gotReq.Reload || gotReq.CommentsLimit != 0 {
		t.Errorf("request = %+v, want page 1 and service defaults", gotReq)
	}
	if w.Body.String() != "{\"feed\":[]}\n" {
		t.Errorf("body = %q, want empty feed array", w.Body.String())
	}
}

func TestFeedHandler_GetFeed_ClampsSizes(t *testing.T) {
	var gotReq feed.Request
	svc := &mockFeedService{
		getFeedFn: func(_ context.Context, _ string, req feed.Request) (*feed.Result, error) {
			gotReq = req
			return &feed.Result{}, nil
		},
	}
	h := NewFeedHandler(svc, FeedHandlerConfig{MaxPageSize: 20, MaxCommentsLimit: 5})

	w := httptest.NewRecorder()
	h.GetFeed(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/feed?postsByPage=500&commentsLimit=99", nil), "viewer-1"))

	assertStatus(t, w, http.StatusOK)
	if gotReq.PageSize != 20 || gotReq.CommentsLimit != 5 {
		t.Errorf("request = %+v, want clamped to 20/5", gotReq)
	}
}

func TestFeedHandler_GetFeed_InvalidQuery(t *testing.T) {
	tests := []string{
		"/api/feed?page=abc",
		"/api/feed?postsByPage=-1",
		"/api/feed?postsByPage=ten",
		"/api/feed?commentsLimit=-3",
		"/api/feed?page=9223372036854775807",
		"/api/feed?page=100000000&postsByPage=1",
	}

	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			svc := &mockFeedService{
				getFeedFn: func(context.Context, string, feed.Request) (*feed.Result, error) {
					t.Fatal("service should not be called")
					return nil, nil
				},
			}
			w := httptest.NewRecorder()
			NewFeedHandler(svc, FeedHandlerConfig{}).GetFeed(w, withUserID(httptest.NewRequest(http.MethodGet, target, nil), "viewer-1"))

			assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeInvalidPage)
		})
	}
}

func TestFeedHandler_GetFeed_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"negative page", model.NewInvalidPageError("page must be >= 1"), http.StatusBadRequest, model.ErrCodeInvalidPage},
		{"cursor store down", model.NewUnavailableError("cursor store", errors.New("dial tcp")), http.StatusServiceUnavailable, model.ErrCodeUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFeedService{
				getFeedFn: func(context.Context, string, feed.Request) (*feed.Result, error) {
					return nil, tt.err
				},
			}
			w := httptest.NewRecorder()
			NewFeedHandler(svc, FeedHandlerConfig{}).GetFeed(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/feed?page=-1", nil), "viewer-1"))

			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestFeedHandler_GetFeed_Unauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	NewFeedHandler(&mockFeedService{}, FeedHandlerConfig{}).GetFeed(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	assertErrorCode(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

// --- MarkSeen ---

func TestFeedHandler_MarkSeen(t *testing.T) {
	var gotViewer string
	svc := &mockFeedService{
		markSeenFn: func(_ context.Context, viewerID string) (*model.FeedCheckpoint, error) {
			gotViewer = viewerID
			return &model.FeedCheckpoint{UserID: viewerID, LastSeenAt: feedTime}, nil
		},
	}

	w := httptest.NewRecorder()
	NewFeedHandler(svc, FeedHandlerConfig{}).MarkSeen(w, withUserID(httptest.NewRequest(http.MethodPost, "/api/feed/seen", nil), "viewer-1"))

	assertStatus(t, w, http.StatusNoContent)
	if gotViewer != "viewer-1" {
		t.Errorf("viewer = %q, want viewer-1", gotViewer)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestFeedHandler_MarkSeen_Unavailable(t *testing.T) {
	svc := &mockFeedService{
		markSeenFn: func(context.Context, string) (*model.FeedCheckpoint, error) {
			return nil, model.NewUnavailableError("checkpoint store", errors.New("timeout"))
		},
	}

	w := httptest.NewRecorder()
	NewFeedHandler(svc, FeedHandlerConfig{}).MarkSeen(w, withUserID(httptest.NewRequest(http.MethodPost, "/api/feed/seen", nil), "viewer-1"))

	assertErrorCode(t, w, http.StatusServiceUnavailable, model.ErrCodeUnavailable)
}
