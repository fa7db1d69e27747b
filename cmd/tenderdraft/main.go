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
	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/chunker"
	"github.com/kailas-cloud/tenderdraft/internal/config"
	dbRedis "github.com/kailas-cloud/tenderdraft/internal/db/redis"
	"github.com/kailas-cloud/tenderdraft/internal/domain"
	logpkg "github.com/kailas-cloud/tenderdraft/internal/logger"
	"github.com/kailas-cloud/tenderdraft/internal/metrics"
	chunkrepo "github.com/kailas-cloud/tenderdraft/internal/repository/chunk"
	documentrepo "github.com/kailas-cloud/tenderdraft/internal/repository/document"
	"github.com/kailas-cloud/tenderdraft/internal/repository/embcache"
	"github.com/kailas-cloud/tenderdraft/internal/repository/filestore"
	"github.com/kailas-cloud/tenderdraft/internal/repository/memory"
	summaryrepo "github.com/kailas-cloud/tenderdraft/internal/repository/summary"
	"github.com/kailas-cloud/tenderdraft/internal/retry"
	chiTransport "github.com/kailas-cloud/tenderdraft/internal/transport/chi"
	openaiProvider "github.com/kailas-cloud/tenderdraft/internal/transport/openai"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/analyzer"
	completionuc "github.com/kailas-cloud/tenderdraft/internal/usecase/completion"
	documentuc "github.com/kailas-cloud/tenderdraft/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/tenderdraft/internal/usecase/embedding"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tenderdraft/internal/usecase/health"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/index"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/retrieval"
	"github.com/kailas-cloud/tenderdraft/internal/version"
)

// backends are the storage adapters selected by storage.driver.
type backends struct {
	documents documentuc.Store
	vectors   index.VectorStore
	summaries analyzer.Cache
	pinger    healthuc.Pinger
	// redis is set only for the redis driver; it also backs the embedding cache.
	redis *dbRedis.Store
}

// pingFunc adapts a function to healthuc.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	// A missing .env is fine; real deployments inject the environment.
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

	logger.Info("Starting tenderdraft API server", append(version.Fields(),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("completion_model", cfg.Completion.Model),
		zap.String("embedding_model", cfg.Embedding.Model),
	)...)

	ctx := context.Background()
	be, closeStorage := buildBackends(ctx, &cfg, logger)
	defer closeStorage()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCompletionMetrics()
	metrics.RegisterGenerationMetrics()

	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, be.redis, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, be.redis, logger)

	completer := buildCompleter(cfg.Completion, logger)

	idx := index.New(be.vectors, docEmbedder, queryEmbedder, cfg.Embedding.Dimensions, logger).
		WithBatchSize(cfg.Ingest.BatchSize)
	if err := idx.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to prepare vector index", zap.Error(err))
	}

	an := analyzer.New(be.summaries, completer, logger).
		WithMaxInput(cfg.Generation.AnalysisMaxInput).
		WithMaxTokens(cfg.Generation.AnalysisMaxTokens)

	ch := chunker.New(
		chunker.WithChunkSize(cfg.Ingest.ChunkSize),
		chunker.WithOverlap(cfg.Ingest.ChunkOverlap),
	)
	docSvc := documentuc.New(be.documents, idx, ch, logger).
		WithSummaries(an).
		WithMaxUploadBytes(cfg.Ingest.MaxUploadBytes)
	if err := docSvc.Init(ctx); err != nil {
		logger.Fatal("Failed to initialize document store", zap.Error(err))
	}

	static := generation.StaticPlanner{Sections: cfg.Generation.Sections}
	var planner generation.Planner = static
	if cfg.Generation.Planner == config.PlannerModel {
		planner = generation.NewModelPlanner(completer, static)
	}
	genSvc := generation.New(docSvc, an, idx, completer, logger).
		WithPlanner(planner).
		WithTopK(cfg.Generation.TopK).
		WithAnalysisConcurrency(cfg.Generation.AnalysisConcurrency)

	retrievalSvc := retrieval.New(docSvc, idx, completer, logger)

	healthSvc := healthuc.New(be.pinger, newEmbeddingHealthChecker(docEmbedder)).
		WithCompletion(completer)

	server := chiTransport.NewServer(docSvc, genSvc, retrievalSvc, completer, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(logpkg.Middleware(logger))
	r.Use(chiTransport.APIKeyAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.RouterOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.CodeBadRequest,
				Message: "invalid request",
			})
		},
	})

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

func buildBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (backends, func()) {
	switch cfg.Storage.Driver {
	case config.StorageFilesystem:
		fs := filestore.New(cfg.Storage.Root)
		logger.Info("Using filesystem storage", zap.String("root", cfg.Storage.Root))
		return backends{
			documents: fs,
			vectors:   memory.NewVectors(),
			summaries: memory.NewSummaries(),
			pinger:    pingFunc(fs.Init),
		}, func() {}

	case config.StorageMemory:
		logger.Warn("Using in-memory storage; uploads are lost on restart")
		return backends{
			documents: memory.NewDocuments(),
			vectors:   memory.NewVectors(),
			summaries: memory.NewSummaries(),
			pinger:    pingFunc(func(context.Context) error { return nil }),
		}, func() {}
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	return backends{
		documents: documentrepo.New(store),
		vectors:   chunkrepo.New(store),
		summaries: summaryrepo.New(store),
		pinger:    store,
		redis:     store,
	}, store.Close
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction string,
	cache *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiProvider.NewEmbedder(&openaiProvider.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(
			base, cache, cfg.Model, cfg.Dimensions, cfg.CacheTTL(), metrics.EmbeddingCacheTotal, logger,
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// buildCompleter wraps the provider with the shared rate limiter and retry policy.
func buildCompleter(cfg config.CompletionConfig, logger *zap.Logger) *completionuc.Service {
	provider := openaiProvider.NewCompleter(&openaiProvider.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: cfg.Provider,
		Logger:   logger,
	})

	policy := retry.DefaultPolicy(domain.ErrRateLimited)
	policy.MaxRetries = cfg.Retry.MaxRetries
	policy.BaseDelay = cfg.Retry.BaseDelay()
	policy.MaxDelay = cfg.Retry.MaxDelay()
	policy.Logger = logger

	return completionuc.New(provider, policy, logger).
		WithLimiter(completionuc.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)).
		WithModel(cfg.Model).
		WithDefaults(cfg.MaxTokens, cfg.Temperature)
}

// embeddingHealthChecker wraps domain.Embedder to implement healthuc.Checker.
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
