package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swali-ai/retrieval/internal/corpus"
)

var (
	exportModel string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the indexed documents of a model namespace as a corpus file",
	Long: `Export reads every document indexed under a model namespace and
writes them as a JSON corpus file, usable as the input to "index" or as a
seed for the memory driver. Embeddings are not exported; re-indexing the
file recomputes them.`,
	Args: cobra.NoArgs,
	RunE: runExportCmd,
}

func init() {
	exportCmd.Flags().StringVar(&exportModel, "model", "", "model namespace to export (default is the configured default)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "corpus.json", "output file")
	rootCmd.AddCommand(exportCmd)
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	registry, err := buildRegistry()
	if err != nil {
		return fmt.Errorf("failed to create embedding registry: %w", err)
	}

	model := exportModel
	if model == "" {
		model = registry.DefaultModel()
	}

	ctx := context.Background()
	idx, cleanup, err := buildIndex(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := idx.GetAll(ctx, model)
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no documents indexed for model %s", model)
	}

	entries := make([]corpus.Entry, len(records))
	for i, rec := range records {
		entries[i] = corpus.Entry{
			ID:    rec.Document.ID(),
			Title: rec.Document.Title(),
			Text:  rec.Document.Text(),
			Meta:  rec.Document.Meta(),
			Tags:  rec.Document.Tags(),
		}
	}

	data, err := json.MarshalIndent(struct {
		Documents []corpus.Entry `json:"documents"`
	}{entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	if err := os.WriteFile(exportOut, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOut, err)
	}

	fmt.Printf("Exported %d documents from model %s to %s\n", len(entries), model, exportOut)
	return nil
}
