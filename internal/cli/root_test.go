package cli

import (
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/swali-ai/retrieval/internal/config"
)

func TestBuildRegistry(t *testing.T) {
	loaded, err := config.Load("local")
	if err != nil {
		t.Fatalf("Load(local) error = %v", err)
	}
	cfg = loaded
	cfg.Embedding = config.EmbeddingConfig{
		DefaultModel: "small",
		Models: map[string]config.ModelConfig{
			"small": {APIKey: "k", Model: "text-embedding-3-small", Dimensions: 1536},
			"large": {APIKey: "k", Model: "text-embedding-3-large", Dimensions: 3072},
		},
	}
	logger = zap.NewNop()

	registry, err := buildRegistry()
	if err != nil {
		t.Fatalf("buildRegistry() error = %v", err)
	}

	if registry.DefaultModel() != "small" {
		t.Errorf("DefaultModel() = %q, want small", registry.DefaultModel())
	}
	models := registry.Models()
	sort.Strings(models)
	if len(models) != 2 || models[0] != "large" || models[1] != "small" {
		t.Errorf("Models() = %v, want [large small]", models)
	}

	if _, err := registry.Get("small"); err != nil {
		t.Errorf("Get(small) error = %v", err)
	}
}

func TestSelectVariants(t *testing.T) {
	tests := []struct {
		name    string
		want    []bool
		wantErr bool
	}{
		{"baseline", []bool{false}, false},
		{"reranked", []bool{true}, false},
		{"both", []bool{false, true}, false},
		{"hybrid", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectVariants(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("selectVariants(%q) error = %v", tt.name, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("selectVariants(%q) = %v, want %v", tt.name, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("selectVariants(%q)[%d] = %v, want %v", tt.name, i, got[i], tt.want[i])
				}
			}
		})
	}
}
