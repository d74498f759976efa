package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/swali-ai/retrieval/internal/domain/document"
	"github.com/swali-ai/retrieval/internal/domain/search/filter"
)

// Memory is an exact-scan in-memory Index. Writes take the write lock, reads
// the read lock, so a concurrent upsert never produces a torn record in
// search results. Suitable for tests, evaluation runs, and small corpora.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

type namespace struct {
	records map[string]*memRecord
	order   []string // insertion order, for deterministic tie-breaks
	dim     int      // fixed by the first write
}

type memRecord struct {
	doc       document.Document
	embedding []float32
	seq       int
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]*namespace)}
}

var _ Index = (*Memory)(nil)

// Upsert inserts or overwrites a document. Overwriting keeps the original
// insertion position so tie-breaking stays stable across reindexing.
func (m *Memory) Upsert(_ context.Context, doc document.Document, embedding []float32, model string) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required for document %q", doc.ID())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.namespace(model)
	if ns.dim == 0 {
		ns.dim = len(embedding)
	} else if len(embedding) != ns.dim {
		return fmt.Errorf("embedding for document %q has %d dimensions, namespace %q holds %d",
			doc.ID(), len(embedding), model, ns.dim)
	}
	if existing, ok := ns.records[doc.ID()]; ok {
		existing.doc = doc
		existing.embedding = cloneVector(embedding)
		return nil
	}

	ns.records[doc.ID()] = &memRecord{
		doc:       doc,
		embedding: cloneVector(embedding),
		seq:       len(ns.order),
	}
	ns.order = append(ns.order, doc.ID())
	return nil
}

// UpsertBatch bulk-indexes precomputed embeddings.
func (m *Memory) UpsertBatch(ctx context.Context, docs []document.Document, embeddings [][]float32, model string) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("documents and embeddings length mismatch: %d vs %d", len(docs), len(embeddings))
	}
	for i := range docs {
		if err := m.Upsert(ctx, docs[i], embeddings[i], model); err != nil {
			return fmt.Errorf("upsert %q: %w", docs[i].ID(), err)
		}
	}
	return nil
}

// Search scans the namespace and returns the n nearest neighbors by cosine
// distance. Empty namespaces yield an empty slice.
func (m *Memory) Search(_ context.Context, embedding []float32, n int, f filter.Expression, model string) ([]Hit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[model]
	if !ok {
		return []Hit{}, nil
	}
	if len(embedding) != ns.dim {
		return nil, fmt.Errorf("query embedding has %d dimensions, namespace %q holds %d",
			len(embedding), model, ns.dim)
	}

	type scored struct {
		rec      *memRecord
		distance float64
	}

	matches := make([]scored, 0, len(ns.order))
	for _, id := range ns.order {
		rec := ns.records[id]
		if !f.IsEmpty() && !f.Matches(&rec.doc) {
			continue
		}
		matches = append(matches, scored{rec: rec, distance: cosineDistance(embedding, rec.embedding)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.rec.seq != b.rec.seq {
			return a.rec.seq < b.rec.seq
		}
		return a.rec.doc.ID() < b.rec.doc.ID()
	})

	if len(matches) > n {
		matches = matches[:n]
	}

	hits := make([]Hit, len(matches))
	for i, s := range matches {
		hits[i] = Hit{Document: s.rec.doc, Distance: s.distance}
	}
	return hits, nil
}

// GetAll exports the namespace in insertion order.
func (m *Memory) GetAll(_ context.Context, model string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[model]
	if !ok {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(ns.order))
	for _, id := range ns.order {
		rec := ns.records[id]
		records = append(records, Record{Document: rec.doc, Embedding: cloneVector(rec.embedding)})
	}
	return records, nil
}

// Count returns the namespace size.
func (m *Memory) Count(_ context.Context, model string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[model]
	if !ok {
		return 0, nil
	}
	return len(ns.records), nil
}

// namespace returns or creates the per-model namespace. Caller holds the write lock.
func (m *Memory) namespace(model string) *namespace {
	ns, ok := m.namespaces[model]
	if !ok {
		ns = &namespace{records: make(map[string]*memRecord)}
		m.namespaces[model] = ns
	}
	return ns
}

// cosineDistance is 1 - cosine similarity. Callers guarantee equal lengths;
// zero vectors are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func cloneVector(v []float32) []float32 {
	c := make([]float32, len(v))
	copy(c, v)
	return c
}
