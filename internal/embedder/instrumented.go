package embedder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swali-ai/retrieval/internal/domain"
)

// Instrumented wraps an Embedder with structured logging. Transport metrics
// (requests, duration, tokens) are recorded inside the provider itself;
// this layer adds per-call logs only.
type Instrumented struct {
	inner domain.Embedder
	model string
	log   *zap.Logger
}

// NewInstrumented wraps an embedder with logging.
func NewInstrumented(inner domain.Embedder, model string, log *zap.Logger) *Instrumented {
	return &Instrumented{inner: inner, model: model, log: log}
}

// Embed delegates to the inner embedder and logs the outcome.
func (e *Instrumented) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := e.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		e.log.Error("Embedding request failed",
			zap.String("model", e.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	e.log.Debug("Embedding request completed",
		zap.String("model", e.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed delegates to the inner embedder's batch path, falling back to
// per-text calls when it has none.
func (e *Instrumented) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	start := time.Now()

	var result domain.BatchEmbeddingResult
	var err error
	if be, ok := e.inner.(domain.BatchEmbedder); ok {
		result, err = be.BatchEmbed(ctx, texts)
	} else {
		result, err = domain.BatchFallback(ctx, e.inner, texts)
	}

	duration := time.Since(start)

	if err != nil {
		e.log.Error("Batch embedding request failed",
			zap.String("model", e.model),
			zap.Int("batch_size", len(texts)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}

	e.log.Debug("Batch embedding completed",
		zap.String("model", e.model),
		zap.Int("batch_size", len(texts)),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
