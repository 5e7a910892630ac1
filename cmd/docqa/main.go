package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	dbRedis "github.com/kailas-cloud/docqa/internal/db/redis"
	"github.com/kailas-cloud/docqa/internal/domain"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/docqa/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	answeruc "github.com/kailas-cloud/docqa/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/docqa/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	queryuc "github.com/kailas-cloud/docqa/internal/usecase/query"
	searchuc "github.com/kailas-cloud/docqa/internal/usecase/search"
	"github.com/kailas-cloud/docqa/internal/usecase/startup"
	"github.com/kailas-cloud/docqa/internal/version"
)

const providerName = "openai"

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

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

	logger.Info("Starting docqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Corpus.DataDir),
		zap.String("vector_store_dir", cfg.VectorStore.Dir),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("chat_model", cfg.OpenAI.ChatModel),
	)

	// Register metrics explicitly (no init())
	metrics.Register(prometheus.DefaultRegisterer)

	ctx := context.Background()

	// Optional embedding cache
	var cacheStore *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		if err := cacheStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	providerCfg := openaiTransport.Config{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Timeout:  time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
		Provider: providerName,
		Logger:   logger,
	}
	embedder := buildEmbedder(cfg, providerCfg, cacheStore, logger)

	chatCfg := providerCfg
	chatCfg.Model = cfg.OpenAI.ChatModel
	chat := openaiTransport.NewChat(&chatCfg, cfg.OpenAI.MaxTokens)

	// Initialize phase: corpus -> chunks -> index. Any failure is fatal.
	index, err := startup.Initialize(ctx, cfg, embedder, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document index", zap.Error(err))
	}
	logger.Info("Document index ready",
		zap.Int("documents", index.Documents()),
		zap.Int("chunks", index.Chunks()),
		zap.Int("entries", index.Len()),
		zap.String("mode", index.Mode()),
	)
	if index.Len() == 0 {
		logger.Warn("Document index is empty; queries will fail until it is rebuilt")
	}

	searchSvc := searchuc.New(index, embedder, searchuc.Params{
		K:          cfg.Retrieval.K,
		FetchK:     cfg.Retrieval.FetchK,
		LambdaMult: cfg.LambdaMult(),
	})
	answerSvc := answeruc.New(chat, cfg.Prompt.Subject, logger)
	querySvc := queryuc.New(index, searchSvc, answerSvc)

	// Pass nil interface (not typed nil pointer!) if the cache is not configured.
	var cachePinger healthuc.Pinger
	if cacheStore != nil {
		cachePinger = cacheStore
	}
	healthSvc := healthuc.New(index, cachePinger, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(querySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The same chain embeds chunks at startup and questions at query time.
func buildEmbedder(
	cfg config.Config,
	providerCfg openaiTransport.Config,
	cacheStore *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	providerCfg.Model = cfg.OpenAI.EmbeddingModel
	base := openaiTransport.NewEmbedder(&providerCfg)

	var embedder domain.Embedder = base
	if cacheStore != nil {
		embedder = embcache.New(
			base, cacheStore, cfg.OpenAI.EmbeddingModel,
			time.Duration(cfg.Cache.TTLHours)*time.Hour,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, providerName, cfg.OpenAI.EmbeddingModel, logger)
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "Internal server error during RAG query.",
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
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
