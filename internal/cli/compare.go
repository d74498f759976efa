package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swali-ai/retrieval/internal/eval"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "List logged evaluation runs side by side",
	Long: `Compare loads every run file from the experiments directory and
prints their aggregate metrics in creation order, oldest first.`,
	Args: cobra.NoArgs,
	RunE: runCompareCmd,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	tracker, err := eval.NewTracker(cfg.Experiments.Dir)
	if err != nil {
		return fmt.Errorf("failed to open experiments directory: %w", err)
	}

	runs, err := tracker.LoadRuns()
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No runs logged under %s yet\n", cfg.Experiments.Dir)
		return nil
	}

	fmt.Printf("%-20s %-16s %-9s %-28s %2s  %8s %10s %8s %7s\n",
		"CREATED", "NAME", "VARIANT", "MODEL", "K", "RECALL", "PRECISION", "MRR", "JUDGED")
	for _, run := range runs {
		agg := run.Aggregate
		fmt.Printf("%-20s %-16s %-9s %-28s %2d  %8.4f %10.4f %8.4f %4d/%d\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Name,
			run.Config.Variant,
			run.Config.Model,
			run.Config.K,
			agg.Recall, agg.Precision, agg.MRR,
			agg.JudgedCases, agg.TotalCases,
		)
	}
	return nil
}
