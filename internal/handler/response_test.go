package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/snapshare/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewPostNotFoundError("p"), http.StatusNotFound},
		{model.NewCommentNotFoundError("c"), http.StatusNotFound},
		{model.NewParentCommentNotFoundError("c"), http.StatusNotFound},
		{model.NewUserNotFoundError(), http.StatusNotFound},
		{model.NewNotFollowingError(), http.StatusNotFound},
		{model.NewForbiddenError("private"), http.StatusForbidden},
		{model.NewAlreadyFollowingError(), http.StatusConflict},
		{model.NewUnavailableError("cursor store", errors.New("dial tcp")), http.StatusServiceUnavailable},
		{model.NewInvalidPageError("page"), http.StatusBadRequest},
		{model.NewInvalidCommentError("empty"), http.StatusBadRequest},
		{newInvalidRequestError(), http.StatusBadRequest},
		{&model.APIError{Code: "SOMETHING_ELSE"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", model.NewForbiddenError("private"), http.StatusForbidden, model.ErrCodeForbidden},
		{"wrapped api error", fmt.Errorf("load: %w", model.NewPostNotFoundError("p")), http.StatusNotFound, model.ErrCodePostNotFound},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleServiceError(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil), tt.err)
			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantBody   string
	}{
		{"no checks", nil, http.StatusOK, `"status":"ok"`},
		{"all healthy", []HealthCheck{{"postgres", healthy}, {"redis", healthy}}, http.StatusOK, `"redis":"ok"`},
		{"redis down", []HealthCheck{{"postgres", healthy}, {"redis", down}}, http.StatusServiceUnavailable, `"redis":"unavailable"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.checks).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assertStatus(t, w, tt.wantStatus)
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want to contain %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}
