package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout は依存先1件あたりの疎通確認の制限時間。
const healthCheckTimeout = 2 * time.Second

// HealthCheck は依存先（Postgres、Redisなど）の疎通確認。
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler は依存先の疎通を確認するハンドラーを返す。
// すべて成功すれば200、1つでも失敗すれば503を返す。
// GET /health
func NewHealthHandler(checks []HealthCheck) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := healthResponse{Status: "ok"}
		if len(checks) > 0 {
			res.Checks = make(map[string]string, len(checks))
		}

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := c.Ping(ctx)
			cancel()
			if err != nil {
				slog.Warn("health check failed",
					slog.String("dependency", c.Name),
					slog.String("error", err.Error()),
				)
				res.Checks[c.Name] = "unavailable"
				res.Status = "unavailable"
				continue
			}
			res.Checks[c.Name] = "ok"
		}

		status := http.StatusOK
		if res.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, res)
	})
}
