package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/cache"
	"github.com/openstay/stayindex/internal/config"
	"github.com/openstay/stayindex/internal/guard"
	logpkg "github.com/openstay/stayindex/internal/logger"
	"github.com/openstay/stayindex/internal/maintenance"
	"github.com/openstay/stayindex/internal/metrics"
	sourceSqlite "github.com/openstay/stayindex/internal/source/sqlite"
	"github.com/openstay/stayindex/internal/store"
	chiTransport "github.com/openstay/stayindex/internal/transport/chi"
	indexeruc "github.com/openstay/stayindex/internal/usecase/indexer"
	searchuc "github.com/openstay/stayindex/internal/usecase/search"
	"github.com/openstay/stayindex/internal/version"
	"github.com/openstay/stayindex/internal/writer"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting stayindex server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_path", cfg.Index.Path),
		zap.String("source_path", cfg.Source.Path),
	)

	ctx := context.Background()

	// Initialize the index schema up front. A failure here is fatal: an
	// uninitialized store would silently serve wrong results.
	if dir := filepath.Dir(cfg.Index.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			logger.Fatal("Failed to create index directory", zap.Error(err))
		}
	}
	st, err := store.Open(cfg.Index.Path)
	if err != nil {
		logger.Fatal("Failed to open index store", zap.Error(err))
	}
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to initialize index schema", zap.Error(err))
	}
	_ = st.Close()
	logger.Info("Index schema ready")

	source, err := sourceSqlite.NewRepo(cfg.Source.Path)
	if err != nil {
		logger.Fatal("Failed to open primary database", zap.Error(err))
	}
	defer func() { _ = source.Close() }()
	if err := source.Ping(ctx); err != nil {
		logger.Fatal("Primary database not ready", zap.Error(err))
	}
	logger.Info("Connected to primary database")

	// Register index metrics explicitly (no init())
	metrics.RegisterIndexMetrics()

	// Composition root: guard + write queue + cache, then the use cases.
	g := guard.New()

	queue := writer.New(cfg.Index.Path, cfg.Index.QueueCapacity, logger)
	queue.Start(ctx)

	resultCache := cache.New(time.Duration(cfg.Index.CacheTTLSec) * time.Second)
	resultCache.StartSweeper(0)

	indexer := indexeruc.New(g, queue, source, source, resultCache, cfg.Index.Path, logger).
		WithRetention(time.Duration(cfg.Maintenance.RetentionDays) * 24 * time.Hour)

	engine := searchuc.NewEngine(g, resultCache, cfg.Index.Path, logger).
		WithPageSizes(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize)

	scheduler := maintenance.New(indexer,
		time.Duration(cfg.Maintenance.StartupDelaySec)*time.Second,
		time.Duration(cfg.Maintenance.IntervalSec)*time.Second,
		logger,
	)
	scheduler.Start(ctx)

	// Create chi server
	server := chiTransport.NewServer(indexer, engine, queue, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Stop accepting events first, then drain the write queue.
	scheduler.Stop()
	queue.Stop()
	resultCache.Stop()

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
