package main

import (
	"testing"

	"github.com/swali-ai/retrieval/internal/config"
)

func TestModelConfigs(t *testing.T) {
	cfg, err := config.Load("local")
	if err != nil {
		t.Fatalf("Load(local) error = %v", err)
	}
	cfg.Embedding = config.EmbeddingConfig{
		DefaultModel: "small",
		Models: map[string]config.ModelConfig{
			"small": {APIKey: "k1", BaseURL: "http://localhost:9000", Model: "text-embedding-3-small", Dimensions: 1536},
			"large": {APIKey: "k2", Model: "text-embedding-3-large", Dimensions: 3072},
		},
	}

	models := modelConfigs(cfg)

	if len(models) != 2 {
		t.Fatalf("modelConfigs() returned %d entries, want 2", len(models))
	}
	small := models["small"]
	if small.APIKey != "k1" || small.BaseURL != "http://localhost:9000" ||
		small.Model != "text-embedding-3-small" || small.Dimensions != 1536 {
		t.Errorf("small mapped incorrectly: %+v", small)
	}
	large := models["large"]
	if large.Model != "text-embedding-3-large" || large.Dimensions != 3072 {
		t.Errorf("large mapped incorrectly: %+v", large)
	}
}
