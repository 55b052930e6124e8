// Package main is the entrypoint for the termscope console API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/termscope/internal/api"
	"github.com/kiranshivaraju/termscope/internal/api/handler"
	mw "github.com/kiranshivaraju/termscope/internal/api/middleware"
	"github.com/kiranshivaraju/termscope/internal/backend"
	"github.com/kiranshivaraju/termscope/internal/cache"
	"github.com/kiranshivaraju/termscope/internal/config"
	"github.com/kiranshivaraju/termscope/internal/documents"
	"github.com/kiranshivaraju/termscope/internal/ingest"
	"github.com/kiranshivaraju/termscope/internal/store"
	"github.com/kiranshivaraju/termscope/internal/topics"
	"github.com/kiranshivaraju/termscope/internal/trends"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "backend", cfg.API.BaseURL, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Backend client
	client := backend.NewHTTPClient(cfg.API.BaseURL, cfg.API.Timeout,
		backend.NewLimiter(cfg.API.RateLimit, cfg.API.Burst))

	// 3. Optional run history
	var history store.Store
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		slog.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		history = store.NewPostgresStore(pool)
	} else {
		slog.Info("DATABASE_URL not set, run history disabled")
	}

	// 4. Optional Redis cache
	var redisCache cache.Cache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		redisCache = rc
	} else {
		slog.Info("REDIS_URL not set, preview cache and rate limiting disabled")
	}

	// 5. Workflow components and router
	con := newConsole(cfg, client, history, redisCache)
	defer con.Close()

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      con.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr, "auth", con.authEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// console owns the workflow components behind the router.
type console struct {
	ingestor    *ingest.Ingestor
	topics      *topics.Controller
	trends      *trends.Aggregator
	documents   *documents.Service
	router      http.Handler
	authEnabled bool
}

// newConsole wires the components. history and c may be nil.
func newConsole(cfg *config.Config, client backend.Client, history store.Store, c cache.Cache) *console {
	logger := slog.Default()
	con := &console{}

	docOpts := []documents.Option{documents.WithLogger(logger.With("component", "documents"))}
	if c != nil {
		docOpts = append(docOpts, documents.WithCache(c, cfg.Workflow.PreviewTTL))
	}
	con.documents = documents.NewService(client, docOpts...)

	con.trends = trends.NewAggregator(client,
		trends.WithConcurrency(cfg.Workflow.TrendConcurrency),
		trends.WithCallTimeout(cfg.API.Timeout),
		trends.WithLogger(logger.With("component", "trends")),
	)

	ingestOpts := []ingest.Option{
		ingest.WithCallTimeout(cfg.API.Timeout),
		ingest.WithClearDelay(cfg.Workflow.StatusClearDelay),
		ingest.WithObserver(con.uploadChanged),
		ingest.WithLogger(logger.With("component", "ingest")),
	}
	topicOpts := []topics.Option{
		topics.WithPollInterval(cfg.Workflow.PollInterval),
		topics.WithCallTimeout(cfg.API.Timeout),
		topics.WithLogger(logger.With("component", "topics")),
	}
	if history != nil {
		ingestOpts = append(ingestOpts, ingest.WithRecorder(history))
		topicOpts = append(topicOpts, topics.WithRecorder(history))
	}
	con.ingestor = ingest.New(client, ingestOpts...)
	con.topics = topics.NewController(client, topicOpts...)

	auth := mw.NewAuth(cfg.Server.APIKeyHash)
	con.authEnabled = auth.Enabled()

	checks := []handler.Check{{Name: "backend", Ping: client.Ready}}
	deps := api.Dependencies{
		Auth: auth,

		StartUploadHandler:    handler.NewStartUploadHandler(con.ingestor),
		UploadProgressHandler: handler.NewUploadProgressHandler(con.ingestor),

		StartTopicsHandler:  handler.NewStartTopicsHandler(con.topics),
		TopicsStatusHandler: handler.NewTopicsStatusHandler(con.topics),
		CancelTopicsHandler: handler.NewCancelTopicsHandler(con.topics),

		SetTrendsHandler:     handler.NewSetTrendsHandler(con.trends),
		GetTrendsHandler:     handler.NewGetTrendsHandler(con.trends),
		RefreshTrendsHandler: handler.NewRefreshTrendsHandler(con.trends),

		ListDocuments:   handler.NewListDocumentsHandler(con.documents),
		GetDocument:     handler.NewGetDocumentHandler(con.documents),
		PreviewDocument: handler.NewPreviewDocumentHandler(con.documents),
		UpdateDocument:  handler.NewUpdateDocumentHandler(con.documents, con.documentsChanged),
		DeleteDocument:  handler.NewDeleteDocumentHandler(con.documents, con.documentsChanged),
	}
	if c != nil {
		deps.RateLimit = mw.NewRateLimit(c, cfg.Server.RequestsPerMinute)
		checks = append(checks, handler.Check{Name: "cache", Ping: c.Ping})
	}
	if history != nil {
		deps.UploadHistory = handler.NewListUploadHistoryHandler(history)
		deps.TopicHistory = handler.NewListTopicHistoryHandler(history)
		deps.LatestTopics = handler.NewLatestTopicsHandler(history)
		checks = append(checks, handler.Check{Name: "database", Ping: history.Ping})
	}
	deps.HealthHandler = handler.NewHealthHandler(checks...)

	con.router = api.NewRouter(deps)
	return con
}

// uploadChanged refreshes derived views once a batch has finished. A failed
// batch may still have created documents but never recomputed the index.
func (con *console) uploadChanged(p models.UploadProgress) {
	if p.Active || p.Status == models.UploadStatusNone {
		return
	}
	if p.Completed > 0 {
		con.documents.InvalidateList(context.Background())
	}
	if p.Status == models.UploadStatusSucceeded {
		con.documentsChanged()
	}
}

func (con *console) documentsChanged() {
	if _, err := con.trends.Refresh(); err != nil && !errors.Is(err, trends.ErrClosed) {
		slog.Warn("refreshing trends", "error", err)
	}
}

// Close stops background work. The topic job keeps running on the backend.
func (con *console) Close() {
	con.ingestor.Close()
	con.topics.Close()
	con.trends.Close()
}
