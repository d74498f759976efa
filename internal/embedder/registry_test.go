package embedder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/swali-ai/retrieval/internal/domain"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int64
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vec}, nil
}

func testConfigs() map[string]ModelConfig {
	return map[string]ModelConfig{
		"mini":  {Model: "all-MiniLM-L6-v2", Dimensions: 384},
		"large": {Model: "all-MiniLM-L12-v2", Dimensions: 384},
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	if _, err := NewRegistry(nil, "mini", nil); err == nil {
		t.Error("empty configs should fail")
	}
	if _, err := NewRegistry(testConfigs(), "missing", nil); err == nil {
		t.Error("unconfigured default model should fail")
	}
}

func TestRegistry_UnknownModel(t *testing.T) {
	r, err := NewRegistry(testConfigs(), "mini", func(string, ModelConfig) (domain.Embedder, error) {
		return &stubEmbedder{vec: []float32{1}}, nil
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	_, err = r.EmbedWithModel(context.Background(), "nope", "text")
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Errorf("want ErrModelUnavailable, got %v", err)
	}
}

func TestRegistry_LoadsLazilyOnce(t *testing.T) {
	var loads atomic.Int64
	r, err := NewRegistry(testConfigs(), "mini", func(string, ModelConfig) (domain.Embedder, error) {
		loads.Add(1)
		return &stubEmbedder{vec: []float32{1, 2}}, nil
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if loads.Load() != 0 {
		t.Fatal("factory ran before first use")
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := r.Embed(ctx, "text"); err != nil {
			t.Fatalf("embed: %v", err)
		}
	}
	if loads.Load() != 1 {
		t.Errorf("factory ran %d times, want 1", loads.Load())
	}
}

func TestRegistry_ConcurrentFirstUseSerialized(t *testing.T) {
	var loads atomic.Int64
	r, err := NewRegistry(testConfigs(), "mini", func(string, ModelConfig) (domain.Embedder, error) {
		loads.Add(1)
		return &stubEmbedder{vec: []float32{1}}, nil
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.EmbedWithModel(context.Background(), "mini", "text"); err != nil {
				t.Errorf("embed: %v", err)
			}
		}()
	}
	wg.Wait()

	if loads.Load() != 1 {
		t.Errorf("concurrent first-use loaded %d times, want 1", loads.Load())
	}
}

func TestRegistry_ModelsStayResident(t *testing.T) {
	embedders := map[string]*stubEmbedder{
		"mini":  {vec: []float32{1}},
		"large": {vec: []float32{2}},
	}
	r, err := NewRegistry(testConfigs(), "mini", func(name string, _ ModelConfig) (domain.Embedder, error) {
		return embedders[name], nil
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	ctx := context.Background()
	if _, err := r.EmbedWithModel(ctx, "mini", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.EmbedWithModel(ctx, "large", "b"); err != nil {
		t.Fatal(err)
	}
	// Using large must not evict mini.
	if _, err := r.EmbedWithModel(ctx, "mini", "c"); err != nil {
		t.Fatal(err)
	}

	if embedders["mini"].calls.Load() != 2 || embedders["large"].calls.Load() != 1 {
		t.Errorf("calls mini=%d large=%d, want 2/1",
			embedders["mini"].calls.Load(), embedders["large"].calls.Load())
	}
}

func TestRegistry_BatchFallback(t *testing.T) {
	stub := &stubEmbedder{vec: []float32{1, 2}}
	r, err := NewRegistry(testConfigs(), "mini", func(string, ModelConfig) (domain.Embedder, error) {
		return stub, nil
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	res, err := r.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batch embed: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("got %d embeddings, want 3", len(res.Embeddings))
	}
	if stub.calls.Load() != 3 {
		t.Errorf("fallback made %d calls, want 3", stub.calls.Load())
	}
}
