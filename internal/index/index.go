// Package index defines the vector index contract. An index stores one
// embedding per (document, model) pair; each model name is an isolated
// namespace so several embedding models can be indexed side by side.
package index

import (
	"context"

	"github.com/swali-ai/retrieval/internal/domain/document"
	"github.com/swali-ai/retrieval/internal/domain/search/filter"
)

// Hit is a single nearest-neighbor match. Distance is cosine distance
// (lower is closer).
type Hit struct {
	Document document.Document
	Distance float64
}

// Record is a full export entry returned by GetAll.
type Record struct {
	Document  document.Document
	Embedding []float32
}

// Index is the durable id -> (vector, document) store queried at retrieval
// time. Upsert of an existing id overwrites (last-write-wins); searching an
// empty namespace returns an empty slice, never an error.
type Index interface {
	// Upsert inserts or overwrites a single document under the model namespace.
	Upsert(ctx context.Context, doc document.Document, embedding []float32, model string) error

	// UpsertBatch bulk-indexes documents with precomputed embeddings,
	// bypassing the embedding provider (used for model A/B experiments).
	// len(docs) must equal len(embeddings).
	UpsertBatch(ctx context.Context, docs []document.Document, embeddings [][]float32, model string) error

	// Search returns up to n nearest neighbors ordered by non-decreasing
	// distance; ties break by insertion order, then id. An empty filter
	// matches everything.
	Search(ctx context.Context, embedding []float32, n int, f filter.Expression, model string) ([]Hit, error)

	// GetAll exports every record in the model namespace without mutating
	// state. Used by the evaluation harness and multi-model indexing tools.
	GetAll(ctx context.Context, model string) ([]Record, error)

	// Count returns the number of documents in the model namespace.
	Count(ctx context.Context, model string) (int, error)
}
