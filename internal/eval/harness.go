package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RetrieveFunc retrieves the top k document ids for a query. The harness
// drives any retrieval variant through this single seam.
type RetrieveFunc func(ctx context.Context, query string, k int) ([]string, error)

// RunConfig captures the retrieval configuration a run was produced with,
// so past runs stay interpretable after defaults change.
type RunConfig struct {
	Variant        string  `json:"variant"`
	Model          string  `json:"model"`
	K              int     `json:"k"`
	UseReranker    bool    `json:"use_reranker"`
	SemanticWeight float64 `json:"semantic_weight"`
	LexicalWeight  float64 `json:"lexical_weight"`
}

// CaseResult is the per-query outcome within a run.
type CaseResult struct {
	Query          string   `json:"query"`
	Category       string   `json:"category,omitempty"`
	Difficulty     string   `json:"difficulty,omitempty"`
	ExpectedIDs    []string `json:"expected_ids"`
	RetrievedIDs   []string `json:"retrieved_ids"`
	Recall         float64  `json:"recall"`
	Precision      float64  `json:"precision"`
	ReciprocalRank float64  `json:"reciprocal_rank"`
	Judged         bool     `json:"judged"`
}

// Aggregate holds mean metrics over the judged cases of a run.
type Aggregate struct {
	Recall      float64 `json:"recall"`
	Precision   float64 `json:"precision"`
	MRR         float64 `json:"mrr"`
	JudgedCases int     `json:"judged_cases"`
	TotalCases  int     `json:"total_cases"`
}

// Run is a complete, immutable evaluation record.
type Run struct {
	ID        string       `json:"run_id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	Config    RunConfig    `json:"config"`
	Aggregate Aggregate    `json:"aggregate"`
	Results   []CaseResult `json:"results"`
}

// Evaluate executes every case against retrieve and computes per-case and
// aggregate metrics at cutoff cfg.K. Cases without expected ids are recorded
// but excluded from the aggregate means.
func Evaluate(ctx context.Context, name string, cases []Case, retrieve RetrieveFunc, cfg RunConfig) (*Run, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("no evaluation cases given")
	}
	if cfg.K <= 0 {
		return nil, fmt.Errorf("evaluation cutoff k must be positive, got %d", cfg.K)
	}

	run := &Run{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
		Results:   make([]CaseResult, 0, len(cases)),
	}

	var sumRecall, sumPrecision, sumRR float64
	for _, c := range cases {
		retrieved, err := retrieve(ctx, c.Query, cfg.K)
		if err != nil {
			return nil, fmt.Errorf("retrieve for query %q: %w", c.Query, err)
		}

		res := CaseResult{
			Query:        c.Query,
			Category:     c.Category,
			Difficulty:   c.Difficulty,
			ExpectedIDs:  c.ExpectedIDs,
			RetrievedIDs: retrieved,
			Judged:       len(c.ExpectedIDs) > 0,
		}
		if res.Judged {
			res.Recall = RecallAtK(retrieved, c.ExpectedIDs, cfg.K)
			res.Precision = PrecisionAtK(retrieved, c.ExpectedIDs, cfg.K)
			res.ReciprocalRank = ReciprocalRank(retrieved, c.ExpectedIDs)
			sumRecall += res.Recall
			sumPrecision += res.Precision
			sumRR += res.ReciprocalRank
			run.Aggregate.JudgedCases++
		}
		run.Results = append(run.Results, res)
	}

	run.Aggregate.TotalCases = len(cases)
	if n := float64(run.Aggregate.JudgedCases); n > 0 {
		run.Aggregate.Recall = sumRecall / n
		run.Aggregate.Precision = sumPrecision / n
		run.Aggregate.MRR = sumRR / n
	}
	return run, nil
}
