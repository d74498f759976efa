package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{
			DefaultModel: "text-embedding-3-small",
			Models: map[string]ModelConfig{
				"text-embedding-3-small": {APIKey: "test-key"},
			},
		},
		Retrieval: RetrievalConfig{SemanticWeight: 0.7, LexicalWeight: 0.3},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for valid config: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "postgres"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}

	expected := `database.driver must be "memory" or "redis", got "postgres"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RedisRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "redis"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}

	cfg.Database.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with addrs set: %v", err)
	}
}

func TestValidate_NoModels(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Models = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty model map")
	}
}

func TestValidate_UnknownDefaultModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.DefaultModel = "missing-model"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default model outside the model map")
	}
}

func TestValidate_NegativeWeights(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.SemanticWeight = -0.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected Driver='memory', got %q", cfg.Database.Driver)
	}
	if cfg.Database.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Database.HNSWM)
	}
	if cfg.Database.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSWEFConstruct=400, got %d", cfg.Database.HNSWEFConstruct)
	}
	if cfg.Storage.KeyPrefix != "retrieval:" {
		t.Errorf("expected KeyPrefix='retrieval:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Experiments.Dir != "experiments/runs" {
		t.Errorf("expected Dir='experiments/runs', got %q", cfg.Experiments.Dir)
	}
	if cfg.Retrieval.SemanticWeight != 0.7 || cfg.Retrieval.LexicalWeight != 0.3 {
		t.Errorf("expected default weights 0.7/0.3, got %v/%v",
			cfg.Retrieval.SemanticWeight, cfg.Retrieval.LexicalWeight)
	}
	if cfg.Retrieval.OverfetchFactor != 4 {
		t.Errorf("expected OverfetchFactor=4, got %d", cfg.Retrieval.OverfetchFactor)
	}
	if cfg.Retrieval.DefaultK != 3 {
		t.Errorf("expected DefaultK=3, got %d", cfg.Retrieval.DefaultK)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{Driver: "redis", ReadinessTimeout: 15, HNSWM: 16},
		Retrieval: RetrievalConfig{SemanticWeight: 0.5, LexicalWeight: 0.5, OverfetchFactor: 2, DefaultK: 10},
		Storage:   StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver='redis', got %q", cfg.Database.Driver)
	}
	if cfg.Database.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Database.HNSWM)
	}
	if cfg.Retrieval.SemanticWeight != 0.5 || cfg.Retrieval.LexicalWeight != 0.5 {
		t.Errorf("expected weights 0.5/0.5 kept, got %v/%v",
			cfg.Retrieval.SemanticWeight, cfg.Retrieval.LexicalWeight)
	}
	if cfg.Retrieval.OverfetchFactor != 2 {
		t.Errorf("expected OverfetchFactor=2, got %d", cfg.Retrieval.OverfetchFactor)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_ModelNameAndDefault(t *testing.T) {
	cfg := Config{
		Embedding: EmbeddingConfig{
			Models: map[string]ModelConfig{
				"text-embedding-3-small": {APIKey: "k"},
			},
		},
	}
	cfg.ApplyDefaults()

	if cfg.Embedding.DefaultModel != "text-embedding-3-small" {
		t.Errorf("expected single model to become the default, got %q", cfg.Embedding.DefaultModel)
	}
	if got := cfg.Embedding.Models["text-embedding-3-small"].Model; got != "text-embedding-3-small" {
		t.Errorf("expected provider model name to default to the map key, got %q", got)
	}
}
