package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Redis（フィードカーソルと利用者単位ロック）
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Feed
	FeedStandardWindow  int
	FeedPageSize        int
	FeedMaxPageSize     int
	FeedCommentsPreview int
	CommentsPageSize    int
	ThreadFanout        int
	CursorTTL           time.Duration
	CursorLockTTL       time.Duration

	// Worker
	EngagementInterval time.Duration
	WorkerMetricsPort  string

	// Rate Limit（1ユーザーあたりの毎分リクエスト数）
	RateLimitGeneral int
	RateLimitWrite   int

	// Media
	MediaBaseURL string

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}

	cfg.MediaBaseURL = os.Getenv("MEDIA_BASE_URL")
	if cfg.MediaBaseURL == "" {
		missing = append(missing, "MEDIA_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.FeedStandardWindow = getEnvInt("FEED_STANDARD_WINDOW", 200)
	cfg.FeedPageSize = getEnvInt("FEED_PAGE_SIZE", 10)
	cfg.FeedMaxPageSize = getEnvInt("FEED_MAX_PAGE_SIZE", 50)
	cfg.FeedCommentsPreview = getEnvInt("FEED_COMMENTS_PREVIEW", 3)
	cfg.CommentsPageSize = getEnvInt("COMMENTS_PAGE_SIZE", 10)
	cfg.ThreadFanout = getEnvInt("THREAD_FANOUT", 4)
	cfg.CursorTTL = getEnvDuration("CURSOR_TTL", 24*time.Hour)
	cfg.CursorLockTTL = getEnvDuration("CURSOR_LOCK_TTL", 5*time.Second)
	cfg.EngagementInterval = getEnvDuration("ENGAGEMENT_INTERVAL", 15*time.Minute)
	cfg.WorkerMetricsPort = getEnvString("WORKER_METRICS_PORT", "9091")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", true)
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	if cfg.FeedStandardWindow <= 0 {
		return nil, fmt.Errorf("FEED_STANDARD_WINDOW must be positive: %d", cfg.FeedStandardWindow)
	}
	if cfg.FeedPageSize <= 0 || cfg.FeedPageSize > cfg.FeedMaxPageSize {
		return nil, fmt.Errorf("FEED_PAGE_SIZE must be between 1 and FEED_MAX_PAGE_SIZE(%d): %d", cfg.FeedMaxPageSize, cfg.FeedPageSize)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
