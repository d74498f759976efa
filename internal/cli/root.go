// Package cli implements the experiments command line tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swali-ai/retrieval/internal/config"
	"github.com/swali-ai/retrieval/internal/corpus"
	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/embedder"
	"github.com/swali-ai/retrieval/internal/index"
	redisindex "github.com/swali-ai/retrieval/internal/index/redis"
	logpkg "github.com/swali-ai/retrieval/internal/logger"
)

var (
	envName string
	cfg     config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "experiments",
	Short: "Index corpora and evaluate retrieval quality",
	Long: `experiments drives offline retrieval work: embedding and indexing
document corpora, running evaluation cases against the retrieval pipeline,
and comparing logged runs.

Example usage:
  experiments index corpus.json              # Embed and index a corpus
  experiments run cases.yaml --name tuning   # Evaluate baseline and reranked
  experiments compare                        # Show logged run aggregates`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if envName == "" {
			envName = config.GetEnv()
		}

		cfg, err = config.Load(envName)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = logpkg.NewLogger(envName, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "config environment (default is $ENV or local)")
}

// buildRegistry creates the embedding model registry from the loaded config.
func buildRegistry() (*embedder.Registry, error) {
	models := make(map[string]embedder.ModelConfig, len(cfg.Embedding.Models))
	for name, mc := range cfg.Embedding.Models {
		models[name] = embedder.ModelConfig{
			APIKey:     mc.APIKey,
			BaseURL:    mc.BaseURL,
			Model:      mc.Model,
			Dimensions: mc.Dimensions,
		}
	}
	factory := func(name string, mc embedder.ModelConfig) (domain.Embedder, error) {
		base := embedder.NewOpenAI(embedder.OpenAIConfig(mc))
		return embedder.NewInstrumented(base, name, logger), nil
	}
	return embedder.NewRegistry(models, cfg.Embedding.DefaultModel, factory)
}

// buildIndex opens the configured vector index. The caller must invoke the
// returned cleanup function. The memory driver starts empty every process, so
// commands that need pre-indexed data should seed it or require redis.
func buildIndex(ctx context.Context) (index.Index, func(), error) {
	switch cfg.Database.Driver {
	case "memory":
		return index.NewMemory(), func() {}, nil
	case "redis":
		store, err := redisindex.NewStore(redisindex.Config{
			Addrs:           cfg.Database.Addrs,
			Password:        cfg.Database.Password,
			KeyPrefix:       cfg.Storage.KeyPrefix,
			HNSWM:           cfg.Database.HNSWM,
			HNSWEFConstruct: cfg.Database.HNSWEFConstruct,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis index: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// seedIndex embeds a corpus file and loads it into the index in one batch
// per model. Used when the memory driver needs data for a run.
func seedIndex(ctx context.Context, idx index.Index, registry *embedder.Registry, path, model string, batchSize int) (int, error) {
	docs, err := corpus.Load(path)
	if err != nil {
		return 0, err
	}
	if err := embedAndIndex(ctx, idx, registry, docs, model, batchSize, false); err != nil {
		return 0, err
	}
	return len(docs), nil
}
