// Package retrieval implements the two-stage retrieval policy: over-fetch
// candidates from the vector index, optionally rerank with the hybrid
// scorer, then truncate to the requested size.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/domain/document"
	"github.com/swali-ai/retrieval/internal/domain/search/filter"
	"github.com/swali-ai/retrieval/internal/index"
	"github.com/swali-ai/retrieval/internal/metrics"
	"github.com/swali-ai/retrieval/internal/rank"
)

// DefaultOverfetchFactor controls how many candidates the first stage
// requests per final result. Reranking needs a wider net than the final
// answer count; reranking an already-truncated top-k cannot recover items
// the first stage dropped.
const DefaultOverfetchFactor = 4

// Embedders is the query vectorization contract (satisfied by embedder.Registry).
type Embedders interface {
	EmbedWithModel(ctx context.Context, name, text string) (domain.EmbeddingResult, error)
	DefaultModel() string
}

// Options configure the service defaults; per-call options may override them.
type Options struct {
	Weights         rank.Weights
	OverfetchFactor int
}

// Service is the retrieval orchestrator. It is a read-only client of the
// index and safe for concurrent use.
type Service struct {
	idx       index.Index
	embedders Embedders
	opts      Options
	logger    *zap.Logger
}

// New creates a retrieval service. Zero option fields fall back to defaults.
func New(idx index.Index, embedders Embedders, opts Options, logger *zap.Logger) (*Service, error) {
	if opts.OverfetchFactor == 0 {
		opts.OverfetchFactor = DefaultOverfetchFactor
	}
	if opts.OverfetchFactor < 1 {
		return nil, fmt.Errorf("%w: overfetch factor must be >= 1, got %d",
			domain.ErrInvalidConfiguration, opts.OverfetchFactor)
	}
	if opts.Weights == (rank.Weights{}) {
		opts.Weights = rank.DefaultWeights()
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{idx: idx, embedders: embedders, opts: opts, logger: logger}, nil
}

// Request holds the per-call retrieval parameters.
type Request struct {
	Query       string
	K           int
	UseReranker bool
	Filter      filter.Expression
	Model       string        // empty = default model
	Weights     *rank.Weights // nil = service defaults
}

// Retrieve runs the two-stage policy and returns the final ranked documents.
func (s *Service) Retrieve(ctx context.Context, req Request) ([]document.Document, error) {
	candidates, err := s.RetrieveCandidates(ctx, req)
	if err != nil {
		return nil, err
	}
	docs := make([]document.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Document
	}
	return docs, nil
}

// RetrieveCandidates runs the two-stage policy and returns the final
// candidates with their scores, for callers that expose score provenance.
func (s *Service) RetrieveCandidates(ctx context.Context, req Request) ([]rank.Candidate, error) {
	variant := "baseline"
	if req.UseReranker {
		variant = "reranked"
	}

	start := time.Now()
	candidates, err := s.retrieve(ctx, req)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RetrievalRequestsTotal.WithLabelValues(variant, status).Inc()
	metrics.RetrievalRequestDuration.WithLabelValues(variant).Observe(duration.Seconds())

	return candidates, err
}

func (s *Service) retrieve(ctx context.Context, req Request) ([]rank.Candidate, error) {
	weights, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = s.embedders.DefaultModel()
	}

	embRes, err := s.embedders.EmbedWithModel(ctx, model, req.Query)
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return nil, err
		}
		// No fallback and no retry: stale or substituted results are worse
		// than an explicit error for a grounding system.
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrEmbeddingFailure, err)
	}

	nCandidates := req.K * s.opts.OverfetchFactor

	hits, err := s.idx.Search(ctx, embRes.Embedding, nCandidates, req.Filter, model)
	if err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: search: %v", domain.ErrIndexUnavailable, err)
	}
	metrics.RetrievalCandidates.Observe(float64(len(hits)))

	candidates := make([]rank.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = rank.Candidate{Document: h.Document, Distance: h.Distance, Rank: i}
	}

	if req.UseReranker {
		candidates = rank.Rerank(req.Query, candidates, weights)
	}

	if len(candidates) > req.K {
		candidates = candidates[:req.K]
	}

	s.logger.Debug("Retrieval completed",
		zap.String("model", model),
		zap.Int("k", req.K),
		zap.Int("candidates", len(hits)),
		zap.Bool("reranked", req.UseReranker),
	)

	return candidates, nil
}

// validate rejects bad parameters before any search executes.
func (s *Service) validate(req *Request) (rank.Weights, error) {
	if req.Query == "" {
		return rank.Weights{}, fmt.Errorf("%w: query is required", domain.ErrInvalidConfiguration)
	}
	if req.K <= 0 {
		return rank.Weights{}, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfiguration, req.K)
	}
	if err := req.Filter.Validate(); err != nil {
		return rank.Weights{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	weights := s.opts.Weights
	if req.Weights != nil {
		if err := req.Weights.Validate(); err != nil {
			return rank.Weights{}, err
		}
		weights = *req.Weights
	}
	return weights, nil
}
