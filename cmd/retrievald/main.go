package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/swali-ai/retrieval/internal/config"
	"github.com/swali-ai/retrieval/internal/corpus"
	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/embedder"
	"github.com/swali-ai/retrieval/internal/index"
	redisindex "github.com/swali-ai/retrieval/internal/index/redis"
	logpkg "github.com/swali-ai/retrieval/internal/logger"
	"github.com/swali-ai/retrieval/internal/metrics"
	"github.com/swali-ai/retrieval/internal/rank"
	"github.com/swali-ai/retrieval/internal/retrieval"
	chiTransport "github.com/swali-ai/retrieval/internal/transport/chi"
	"github.com/swali-ai/retrieval/internal/version"
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

	logger.Info("Starting retrieval API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("default_model", cfg.Embedding.DefaultModel),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Build the embedding model registry. Each model is an OpenAI-compatible
	// provider wrapped with per-call logging.
	factory := func(name string, mc embedder.ModelConfig) (domain.Embedder, error) {
		base := embedder.NewOpenAI(embedder.OpenAIConfig(mc))
		return embedder.NewInstrumented(base, name, logger), nil
	}
	registry, err := embedder.NewRegistry(modelConfigs(cfg), cfg.Embedding.DefaultModel, factory)
	if err != nil {
		logger.Fatal("Failed to create embedding registry", zap.Error(err))
	}
	logger.Info("Embedding models configured",
		zap.Strings("models", registry.Models()),
		zap.String("default", registry.DefaultModel()),
	)

	ctx := context.Background()

	// Create vector index based on driver
	var idx index.Index
	var pinger chiTransport.Pinger
	switch cfg.Database.Driver {
	case "memory":
		mem := index.NewMemory()
		if cfg.Database.CorpusFile != "" {
			if err := seedCorpus(ctx, mem, registry, cfg.Database.CorpusFile, logger); err != nil {
				logger.Fatal("Failed to seed corpus", zap.Error(err))
			}
		}
		idx = mem
	case "redis":
		store, err := redisindex.NewStore(redisindex.Config{
			Addrs:           cfg.Database.Addrs,
			Password:        cfg.Database.Password,
			KeyPrefix:       cfg.Storage.KeyPrefix,
			HNSWM:           cfg.Database.HNSWM,
			HNSWEFConstruct: cfg.Database.HNSWEFConstruct,
		})
		if err != nil {
			logger.Fatal("Failed to create redis index", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")
		idx = store
		pinger = store
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	// Retrieval service
	svc, err := retrieval.New(idx, registry, retrieval.Options{
		Weights: rank.Weights{
			Semantic: cfg.Retrieval.SemanticWeight,
			Lexical:  cfg.Retrieval.LexicalWeight,
		},
		OverfetchFactor: cfg.Retrieval.OverfetchFactor,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create retrieval service", zap.Error(err))
	}

	// Create chi server
	server := chiTransport.NewServer(svc, pinger, cfg.Retrieval.DefaultK, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

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

	logger.Info("Server stopped gracefully")
}

// modelConfigs maps the config file model entries to registry entries.
func modelConfigs(cfg config.Config) map[string]embedder.ModelConfig {
	out := make(map[string]embedder.ModelConfig, len(cfg.Embedding.Models))
	for name, mc := range cfg.Embedding.Models {
		out[name] = embedder.ModelConfig{
			APIKey:     mc.APIKey,
			BaseURL:    mc.BaseURL,
			Model:      mc.Model,
			Dimensions: mc.Dimensions,
		}
	}
	return out
}

// seedCorpus embeds and indexes a corpus file under the default model.
// Only used with the memory driver, which starts empty on every boot.
func seedCorpus(ctx context.Context, idx index.Index, registry *embedder.Registry, path string, logger *zap.Logger) error {
	docs, err := corpus.Load(path)
	if err != nil {
		return err
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].EmbeddingText()
	}

	model := registry.DefaultModel()
	res, err := registry.BatchEmbedWithModel(ctx, model, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}

	if err := idx.UpsertBatch(ctx, docs, res.Embeddings, model); err != nil {
		return fmt.Errorf("index corpus: %w", err)
	}

	logger.Info("Corpus seeded",
		zap.String("file", path),
		zap.Int("documents", len(docs)),
		zap.String("model", model),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return nil
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
