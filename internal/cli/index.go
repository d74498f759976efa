package cli

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/swali-ai/retrieval/internal/corpus"
	"github.com/swali-ai/retrieval/internal/domain/document"
	"github.com/swali-ai/retrieval/internal/embedder"
	"github.com/swali-ai/retrieval/internal/index"
)

var (
	indexModel     string
	indexBatchSize int
)

var indexCmd = &cobra.Command{
	Use:   "index <corpus-file>",
	Short: "Embed a corpus file and load it into the vector index",
	Long: `Index reads a JSON corpus file, embeds every document with the
selected model, and upserts the results into the configured index.
Re-indexing the same corpus is safe: documents are keyed by id.

Examples:
  experiments index corpus.json
  experiments index corpus.json --model text-embedding-3-large`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexCmd,
}

func init() {
	indexCmd.Flags().StringVar(&indexModel, "model", "", "embedding model (default is the configured default)")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 64, "documents per embedding request")
	rootCmd.AddCommand(indexCmd)
}

func runIndexCmd(cmd *cobra.Command, args []string) error {
	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("the memory driver holds no data across processes; configure the redis driver to index")
	}

	docs, err := corpus.Load(args[0])
	if err != nil {
		return err
	}

	registry, err := buildRegistry()
	if err != nil {
		return fmt.Errorf("failed to create embedding registry: %w", err)
	}

	model := indexModel
	if model == "" {
		model = registry.DefaultModel()
	}

	ctx := context.Background()
	idx, cleanup, err := buildIndex(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Indexing %d documents with model %s\n", len(docs), model)
	if err := embedAndIndex(ctx, idx, registry, docs, model, indexBatchSize, true); err != nil {
		return err
	}

	count, err := idx.Count(ctx, model)
	if err != nil {
		return fmt.Errorf("failed to count indexed documents: %w", err)
	}
	fmt.Printf("Done. Index now holds %d documents for model %s\n", count, model)
	return nil
}

// embedAndIndex embeds docs in batches and upserts each batch.
func embedAndIndex(ctx context.Context, idx index.Index, registry *embedder.Registry, docs []document.Document, model string, batchSize int, showProgress bool) error {
	if batchSize < 1 {
		batchSize = 1
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(docs),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[i:end]

		texts := make([]string, len(batch))
		for j := range batch {
			texts[j] = batch[j].EmbeddingText()
		}

		res, err := registry.BatchEmbedWithModel(ctx, model, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", i, err)
		}

		if err := idx.UpsertBatch(ctx, batch, res.Embeddings, model); err != nil {
			return fmt.Errorf("index batch at %d: %w", i, err)
		}

		if bar != nil {
			_ = bar.Set(end)
		}
	}
	return nil
}
