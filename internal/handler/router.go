package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/snapshare/internal/metrics"
	"github.com/hitoshi/snapshare/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger       *slog.Logger
	HealthChecks []HealthCheck
	// MetricsGatherer がnilの場合は/metricsを公開しない。
	MetricsGatherer prometheus.Gatherer
	StatusRecorder  middleware.StatusRecorder

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	FeedService    FeedServiceInterface
	FeedConfig     FeedHandlerConfig
	ThreadService  ThreadServiceInterface
	CommentService CommentServiceInterface
	NetworkService NetworkServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS
//	  → (/api/*) Session → CSRF → RateLimit(General) → RateLimit(Write)
//
// /health、/metrics、/api/csrf-token は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	feedHandler := NewFeedHandler(deps.FeedService, deps.FeedConfig)
	commentHandler := NewCommentHandler(deps.ThreadService, deps.CommentService)
	networkHandler := NewNetworkHandler(deps.NetworkService)

	// --- 認証不要のルート ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecks))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.WriteMiddleware())

		r.Route("/api/feed", func(r chi.Router) {
			r.Get("/", feedHandler.GetFeed)
			r.Post("/seen", feedHandler.MarkSeen)
		})

		r.Route("/api/posts/{id}/comments", func(r chi.Router) {
			r.Get("/", commentHandler.ListComments)
			r.Post("/", commentHandler.CreateComment)
		})

		r.Route("/api/comments/{id}", func(r chi.Router) {
			r.Put("/", commentHandler.EditComment)
			r.Delete("/", commentHandler.DeleteComment)
		})

		r.Route("/api/users/{id}/follow", func(r chi.Router) {
			r.Post("/", networkHandler.Follow)
			r.Delete("/", networkHandler.Unfollow)
		})
	})

	return r
}
