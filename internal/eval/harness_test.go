package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/domain/document"
	"github.com/swali-ai/retrieval/internal/index"
	"github.com/swali-ai/retrieval/internal/retrieval"
)

func fixedRetrieve(byQuery map[string][]string) RetrieveFunc {
	return func(_ context.Context, query string, k int) ([]string, error) {
		ids := byQuery[query]
		if k < len(ids) {
			ids = ids[:k]
		}
		return ids, nil
	}
}

func TestEvaluate_Aggregates(t *testing.T) {
	cases := []Case{
		{Query: "q1", ExpectedIDs: []string{"a"}},
		{Query: "q2", ExpectedIDs: []string{"d"}},
	}
	retrieve := fixedRetrieve(map[string][]string{
		"q1": {"a", "b", "c"},
		"q2": {"x", "y", "d"},
	})

	run, err := Evaluate(context.Background(), "baseline", cases, retrieve, RunConfig{Variant: "baseline", K: 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if run.Aggregate.JudgedCases != 2 || run.Aggregate.TotalCases != 2 {
		t.Fatalf("judged/total = %d/%d, want 2/2", run.Aggregate.JudgedCases, run.Aggregate.TotalCases)
	}
	// q1: recall 1, precision 1/3, rr 1. q2: recall 1, precision 1/3, rr 1/3.
	if !almostEqual(run.Aggregate.Recall, 1.0) {
		t.Errorf("mean recall = %v, want 1.0", run.Aggregate.Recall)
	}
	if !almostEqual(run.Aggregate.Precision, 1.0/3) {
		t.Errorf("mean precision = %v, want 1/3", run.Aggregate.Precision)
	}
	if !almostEqual(run.Aggregate.MRR, (1.0+1.0/3)/2) {
		t.Errorf("MRR = %v, want %v", run.Aggregate.MRR, (1.0+1.0/3)/2)
	}
}

func TestEvaluate_UnjudgedCasesExcluded(t *testing.T) {
	cases := []Case{
		{Query: "judged", ExpectedIDs: []string{"a"}},
		{Query: "unjudged"},
	}
	retrieve := fixedRetrieve(map[string][]string{
		"judged":   {"a"},
		"unjudged": {"x"},
	})

	run, err := Evaluate(context.Background(), "r", cases, retrieve, RunConfig{K: 1})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if run.Aggregate.JudgedCases != 1 {
		t.Errorf("judged cases = %d, want 1", run.Aggregate.JudgedCases)
	}
	if run.Aggregate.TotalCases != 2 {
		t.Errorf("total cases = %d, want 2", run.Aggregate.TotalCases)
	}
	if !almostEqual(run.Aggregate.Recall, 1.0) {
		t.Errorf("unjudged case dragged the mean recall to %v", run.Aggregate.Recall)
	}
	if len(run.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(run.Results))
	}
	if run.Results[1].Judged {
		t.Error("case without expected ids marked as judged")
	}
}

func TestEvaluate_RetrieveErrorAborts(t *testing.T) {
	failing := func(context.Context, string, int) ([]string, error) {
		return nil, errors.New("index down")
	}

	_, err := Evaluate(context.Background(), "r", []Case{{Query: "q", ExpectedIDs: []string{"a"}}}, failing, RunConfig{K: 3})
	if err == nil || !strings.Contains(err.Error(), "index down") {
		t.Fatalf("expected retrieval error to propagate, got %v", err)
	}
}

func TestEvaluate_InvalidInput(t *testing.T) {
	retrieve := fixedRetrieve(nil)

	if _, err := Evaluate(context.Background(), "r", nil, retrieve, RunConfig{K: 3}); err == nil {
		t.Error("expected error for empty case list")
	}
	if _, err := Evaluate(context.Background(), "r", []Case{{Query: "q"}}, retrieve, RunConfig{K: 0}); err == nil {
		t.Error("expected error for non-positive k")
	}
}

// queryEmbedders maps known queries to fixed vectors.
type queryEmbedders struct {
	vectors map[string][]float32
}

func (q *queryEmbedders) EmbedWithModel(_ context.Context, _, text string) (domain.EmbeddingResult, error) {
	vec, ok := q.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, errors.New("unknown query")
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

func (q *queryEmbedders) DefaultModel() string { return "eval-model" }

func TestEvaluate_Deterministic(t *testing.T) {
	idx := index.NewMemory()
	seed := []struct {
		id, title, text string
		vec             []float32
	}{
		{"doc-a", "two sum", "hash map lookup in linear time", []float32{1, 0, 0}},
		{"doc-b", "linked list cycle", "fast and slow pointers", []float32{0, 1, 0}},
		{"doc-c", "url shortener", "key generation and redirects", []float32{0, 0, 1}},
	}
	for _, s := range seed {
		doc, err := document.New(s.id, s.title, s.text, nil, nil)
		if err != nil {
			t.Fatalf("New document: %v", err)
		}
		if err := idx.Upsert(context.Background(), doc, s.vec, "eval-model"); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	embedders := &queryEmbedders{vectors: map[string][]float32{
		"two sum in linear time":   {0.9, 0.1, 0},
		"detect linked list cycle": {0.1, 0.9, 0},
	}}
	svc, err := retrieval.New(idx, embedders, retrieval.Options{}, nil)
	if err != nil {
		t.Fatalf("retrieval.New: %v", err)
	}

	retrieve := func(ctx context.Context, query string, k int) ([]string, error) {
		docs, err := svc.Retrieve(ctx, retrieval.Request{Query: query, K: k, UseReranker: true})
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(docs))
		for i := range docs {
			ids[i] = docs[i].ID()
		}
		return ids, nil
	}

	cases := []Case{
		{Query: "two sum in linear time", ExpectedIDs: []string{"doc-a"}},
		{Query: "detect linked list cycle", ExpectedIDs: []string{"doc-b"}},
	}
	cfg := RunConfig{Variant: "reranked", Model: "eval-model", K: 2, UseReranker: true}

	first, err := Evaluate(context.Background(), "determinism", cases, retrieve, cfg)
	if err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	second, err := Evaluate(context.Background(), "determinism", cases, retrieve, cfg)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}

	if first.Aggregate != second.Aggregate {
		t.Errorf("reruns diverged: %+v vs %+v", first.Aggregate, second.Aggregate)
	}
	for i := range first.Results {
		a, b := first.Results[i].RetrievedIDs, second.Results[i].RetrievedIDs
		if len(a) != len(b) {
			t.Fatalf("case %d: retrieved %v vs %v", i, a, b)
		}
		for j := range a {
			if a[j] != b[j] {
				t.Errorf("case %d: retrieved order diverged at %d: %v vs %v", i, j, a, b)
			}
		}
	}
}

func TestEvaluate_DistinctRunIDs(t *testing.T) {
	cases := []Case{{Query: "q", ExpectedIDs: []string{"a"}}}
	retrieve := fixedRetrieve(map[string][]string{"q": {"a"}})

	r1, err := Evaluate(context.Background(), "r", cases, retrieve, RunConfig{K: 1})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	r2, err := Evaluate(context.Background(), "r", cases, retrieve, RunConfig{K: 1})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if r1.ID == r2.ID {
		t.Errorf("two runs share id %s", r1.ID)
	}
}
