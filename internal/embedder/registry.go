package embedder

import (
	"context"
	"fmt"
	"sync"

	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/metrics"
)

// ModelConfig describes one embedding model known to the registry.
type ModelConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// Factory builds an embedder for a model configuration. The default factory
// creates an OpenAI-compatible provider; tests substitute their own.
type Factory func(name string, cfg ModelConfig) (domain.Embedder, error)

// Registry owns the model-name -> embedder instances. Models load lazily on
// first use; concurrent first-use of the same name is serialized (one loader
// wins, the rest wait), and loaded entries are reused without reloading.
// The registry is lifecycle-scoped: construct it in main, no package state.
type Registry struct {
	configs      map[string]ModelConfig
	defaultModel string
	factory      Factory

	mu      sync.RWMutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	once sync.Once
	emb  domain.Embedder
	err  error
}

// NewRegistry creates a registry over the configured models.
func NewRegistry(configs map[string]ModelConfig, defaultModel string, factory Factory) (*Registry, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one embedding model must be configured")
	}
	if _, ok := configs[defaultModel]; !ok {
		return nil, fmt.Errorf("default model %q is not configured", defaultModel)
	}
	if factory == nil {
		factory = func(_ string, cfg ModelConfig) (domain.Embedder, error) {
			return NewOpenAI(OpenAIConfig(cfg)), nil
		}
	}
	return &Registry{
		configs:      configs,
		defaultModel: defaultModel,
		factory:      factory,
		entries:      make(map[string]*registryEntry),
	}, nil
}

// DefaultModel returns the configured default model name.
func (r *Registry) DefaultModel() string { return r.defaultModel }

// Models returns the configured model names.
func (r *Registry) Models() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}

// Get returns the embedder for a model name, loading it on first use.
// Unknown names fail with domain.ErrModelUnavailable.
func (r *Registry) Get(name string) (domain.Embedder, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", domain.ErrModelUnavailable, name)
	}

	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		entry, ok = r.entries[name]
		if !ok {
			entry = &registryEntry{}
			r.entries[name] = entry
		}
		r.mu.Unlock()
	}

	entry.once.Do(func() {
		entry.emb, entry.err = r.factory(name, cfg)
		if entry.err == nil {
			metrics.EmbeddingModelsLoaded.Inc()
		}
	})

	if entry.err != nil {
		return nil, fmt.Errorf("%w: load %q: %v", domain.ErrModelUnavailable, name, entry.err)
	}
	return entry.emb, nil
}

// Embed vectorizes text with the default model.
func (r *Registry) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return r.EmbedWithModel(ctx, r.defaultModel, text)
}

// BatchEmbed vectorizes texts with the default model.
func (r *Registry) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return r.BatchEmbedWithModel(ctx, r.defaultModel, texts)
}

// EmbedWithModel vectorizes text with a named model, loading it if needed.
// Previously loaded models are not evicted, so several models can be
// resident at once for comparison.
func (r *Registry) EmbedWithModel(ctx context.Context, name, text string) (domain.EmbeddingResult, error) {
	emb, err := r.Get(name)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	res, err := emb.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed with %q: %w", name, err)
	}
	return res, nil
}

// BatchEmbedWithModel vectorizes texts with a named model.
func (r *Registry) BatchEmbedWithModel(ctx context.Context, name string, texts []string) (domain.BatchEmbeddingResult, error) {
	emb, err := r.Get(name)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	if be, ok := emb.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed with %q: %w", name, err)
		}
		return res, nil
	}

	res, err := domain.BatchFallback(ctx, emb, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed with %q: %w", name, err)
	}
	return res, nil
}
