package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swali-ai/retrieval/internal/eval"
	"github.com/swali-ai/retrieval/internal/rank"
	"github.com/swali-ai/retrieval/internal/retrieval"
)

var (
	runName    string
	runModels  []string
	runK       int
	runVariant string
	runCorpus  string
)

var runCmd = &cobra.Command{
	Use:   "run <cases-file>",
	Short: "Evaluate retrieval quality against a case file",
	Long: `Run loads evaluation cases from a YAML file, retrieves against the
configured index, and logs recall, precision and MRR per variant. Each
variant produces an immutable run file under the experiments directory.

Examples:
  experiments run cases.yaml --name weekly
  experiments run cases.yaml --variant reranked --k 5
  experiments run cases.yaml --corpus corpus.json   # memory driver
  experiments run cases.yaml --model text-embedding-3-small --model text-embedding-3-large`,
	Args: cobra.ExactArgs(1),
	RunE: runRunCmd,
}

func init() {
	runCmd.Flags().StringVar(&runName, "name", "eval", "run name recorded in the log")
	runCmd.Flags().StringSliceVar(&runModels, "model", nil, "embedding model, repeatable for A/B (default is the configured default)")
	runCmd.Flags().IntVar(&runK, "k", 0, "result cutoff (default is retrieval.default_k)")
	runCmd.Flags().StringVar(&runVariant, "variant", "both", "baseline, reranked or both")
	runCmd.Flags().StringVar(&runCorpus, "corpus", "", "corpus file to seed the memory driver before evaluating")
	rootCmd.AddCommand(runCmd)
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	variants, err := selectVariants(runVariant)
	if err != nil {
		return err
	}

	cases, err := eval.LoadCases(args[0])
	if err != nil {
		return err
	}

	registry, err := buildRegistry()
	if err != nil {
		return fmt.Errorf("failed to create embedding registry: %w", err)
	}

	models := runModels
	if len(models) == 0 {
		models = []string{registry.DefaultModel()}
	}
	k := runK
	if k <= 0 {
		k = cfg.Retrieval.DefaultK
	}

	ctx := context.Background()
	idx, cleanup, err := buildIndex(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// The memory driver starts empty, so each model namespace is seeded from
	// the corpus before its runs.
	if cfg.Database.Driver == "memory" {
		if runCorpus == "" {
			return fmt.Errorf("the memory driver starts empty; pass --corpus to seed it")
		}
		for _, model := range models {
			n, err := seedIndex(ctx, idx, registry, runCorpus, model, 64)
			if err != nil {
				return fmt.Errorf("failed to seed corpus for %s: %w", model, err)
			}
			fmt.Printf("Seeded %d documents from %s for model %s\n", n, runCorpus, model)
		}
	}

	weights := rank.Weights{
		Semantic: cfg.Retrieval.SemanticWeight,
		Lexical:  cfg.Retrieval.LexicalWeight,
	}
	svc, err := retrieval.New(idx, registry, retrieval.Options{
		Weights:         weights,
		OverfetchFactor: cfg.Retrieval.OverfetchFactor,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create retrieval service: %w", err)
	}

	tracker, err := eval.NewTracker(cfg.Experiments.Dir)
	if err != nil {
		return fmt.Errorf("failed to open experiments directory: %w", err)
	}

	fmt.Printf("Evaluating %d cases at k=%d\n\n", len(cases), k)

	for _, model := range models {
		for _, useReranker := range variants {
			variant := "baseline"
			if useReranker {
				variant = "reranked"
			}

			retrieve := func(ctx context.Context, query string, k int) ([]string, error) {
				docs, err := svc.Retrieve(ctx, retrieval.Request{
					Query:       query,
					K:           k,
					UseReranker: useReranker,
					Model:       model,
				})
				if err != nil {
					return nil, err
				}
				ids := make([]string, len(docs))
				for i := range docs {
					ids[i] = docs[i].ID()
				}
				return ids, nil
			}

			run, err := eval.Evaluate(ctx, runName, cases, retrieve, eval.RunConfig{
				Variant:        variant,
				Model:          model,
				K:              k,
				UseReranker:    useReranker,
				SemanticWeight: weights.Semantic,
				LexicalWeight:  weights.Lexical,
			})
			if err != nil {
				return fmt.Errorf("%s/%s evaluation failed: %w", model, variant, err)
			}

			path, err := tracker.LogRun(run)
			if err != nil {
				return fmt.Errorf("failed to log %s/%s run: %w", model, variant, err)
			}

			agg := run.Aggregate
			fmt.Printf("%-28s %-9s recall=%.4f precision=%.4f mrr=%.4f (%d/%d judged)\n",
				model, variant, agg.Recall, agg.Precision, agg.MRR, agg.JudgedCases, agg.TotalCases)
			fmt.Printf("%38s logged to %s\n", "", path)
		}
	}

	return nil
}

func selectVariants(name string) ([]bool, error) {
	switch name {
	case "baseline":
		return []bool{false}, nil
	case "reranked":
		return []bool{true}, nil
	case "both":
		return []bool{false, true}, nil
	default:
		return nil, fmt.Errorf("unknown variant %q: want baseline, reranked or both", name)
	}
}
