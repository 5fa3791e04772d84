package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/snapshare/internal/comment"
	"github.com/hitoshi/snapshare/internal/config"
	"github.com/hitoshi/snapshare/internal/cursor"
	"github.com/hitoshi/snapshare/internal/database"
	"github.com/hitoshi/snapshare/internal/feed"
	"github.com/hitoshi/snapshare/internal/handler"
	"github.com/hitoshi/snapshare/internal/logger"
	"github.com/hitoshi/snapshare/internal/media"
	"github.com/hitoshi/snapshare/internal/metrics"
	"github.com/hitoshi/snapshare/internal/middleware"
	"github.com/hitoshi/snapshare/internal/network"
	"github.com/hitoshi/snapshare/internal/repository"
	"github.com/hitoshi/snapshare/internal/security"
	"github.com/hitoshi/snapshare/internal/thread"
	"github.com/hitoshi/snapshare/internal/worker/cleanup"
	"github.com/hitoshi/snapshare/internal/worker/engagement"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	inv := ParseArgs(args)
	cmd := inv.Command

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRollback:
		return runRollback(cfg, inv.Steps)
	default:
		return runServe(cfg)
	}
}

func poolConfig(cfg *config.Config) database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}
}

// openStores はPostgreSQLとRedisへの接続を開き、疎通を確認する。
// いずれかに失敗した場合は開いた接続を閉じてエラーを返す。
func openStores(ctx context.Context, cfg *config.Config) (*sql.DB, *redis.Client, error) {
	db, err := database.Open(cfg.DatabaseURL, poolConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return db, rdb, nil
}

// runServe はAPIサーバーモードで起動する。
// DB・Redis接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	db, rdb, err := openStores(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		return err
	}
	defer db.Close()
	defer rdb.Close()

	slog.Info("storage connections established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.String("redis_addr", cfg.RedisAddr),
	)

	log := slog.Default()

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 2. リポジトリ
	sessionRepo := repository.NewPostgresSessionRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	candidateRepo := repository.NewPostgresCandidateRepo(db)
	checkpointRepo := repository.NewPostgresCheckpointRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	networkRepo := repository.NewPostgresNetworkRepo(db)
	cursorStore := repository.NewRedisCursorStore(rdb, cfg.CursorTTL)

	// 3. ドメインサービス
	mediaConverter, err := media.NewConverter(cfg.MediaBaseURL)
	if err != nil {
		return fmt.Errorf("failed to build media converter: %w", err)
	}

	cursors := cursor.NewManager(cursorStore, cursor.NewRedisLocker(rdb, cfg.CursorLockTTL))
	assembler := feed.NewAssembler(candidateRepo, checkpointRepo, cursors, cfg.FeedStandardWindow, log)

	threadService := thread.NewService(commentRepo, networkRepo, mediaConverter, log,
		thread.WithMetrics(collector),
		thread.WithPageSize(cfg.CommentsPageSize),
	)
	feedService := feed.NewService(assembler, checkpointRepo, threadService, mediaConverter, log,
		feed.WithMetrics(collector),
		feed.WithThreadFanout(cfg.ThreadFanout),
		feed.WithDefaults(cfg.FeedPageSize, cfg.FeedCommentsPreview),
	)
	commentService := comment.NewService(commentRepo, commentRepo, networkRepo, security.NewTextSanitizer(), log)
	networkService := network.NewService(userRepo, networkRepo, log)

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger: log,
		HealthChecks: []handler.HealthCheck{
			{Name: "postgres", Ping: db.PingContext},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		MetricsGatherer: reg,
		StatusRecorder:  collector,

		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,

		FeedService: feedService,
		FeedConfig: handler.FeedHandlerConfig{
			MaxPageSize:      cfg.FeedMaxPageSize,
			MaxCommentsLimit: handler.DefaultFeedHandlerConfig().MaxCommentsLimit,
		},
		ThreadService:  threadService,
		CommentService: commentService,
		NetworkService: networkService,
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 交流数の再集計を定期実行し、論理削除済みデータの物理削除を日次で行う。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL, poolConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	log := slog.Default()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	engagementJob := engagement.NewJob(repository.NewPostgresEngagementRepo(db), collector, log)
	purgeJob := cleanup.NewPurgeJob(db, log)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("engagement_interval", cfg.EngagementInterval),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics listen error", slog.String("error", err.Error()))
		}
	}()

	// 物理削除ジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := purgeJob.Run(ctx); err != nil {
			slog.Error("purge job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := purgeJob.Run(ctx); err != nil {
					slog.Error("purge job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 交流数の再集計をメインgoroutineで実行（ブロッキング）
	engagementJob.Start(ctx, cfg.EngagementInterval)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker metrics shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runRollback はマイグレーションをstepsの数だけ戻す。
func runRollback(cfg *config.Config, steps int) error {
	slog.Warn("rolling back database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	version, err := database.RollbackMigrations(cfg.DatabaseURL, steps)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	slog.Info("database rollback completed",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
