package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "test.db"
embedding:
  provider: hash
  dimensions: 64
match:
  top_n: 3
  scoring_timeout: 2s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimensions != 64 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Match.TopN != 3 {
		t.Errorf("top_n: got %d", cfg.Match.TopN)
	}
	if cfg.Match.Timeout() != 2*time.Second {
		t.Errorf("scoring_timeout: got %v", cfg.Match.Timeout())
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
embedding:
  provider: hash
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/artifacts.db"
embedding:
  provider: onnx
  model_path: "./models/model.onnx"
match:
  weights_path: "./weights.json"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "artifacts.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if cfg.Embedding.ModelPath != filepath.Join(dir, "models", "model.onnx") {
		t.Errorf("model_path = %s", cfg.Embedding.ModelPath)
	}
	if cfg.Match.WeightsPath != filepath.Join(dir, "weights.json") {
		t.Errorf("weights_path = %s", cfg.Match.WeightsPath)
	}
	if cfg.Embedding.TokenizerPath != "" {
		t.Errorf("unset tokenizer_path should stay empty, got %s", cfg.Embedding.TokenizerPath)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "embedding:\n  provider: word2vec\n"},
		{"negative weight", "embedding:\n  provider: hash\nmatch:\n  lexical_weight: -1\n"},
		{"bad yaml", "match: [\n"},
		{"negative timeout", "embedding:\n  provider: hash\nmatch:\n  scoring_timeout: -1s\n"},
		{"unknown pooling", "embedding:\n  provider: onnx\n  pooling: max\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Match.TopN != 5 {
		t.Errorf("default top_n: got %d", cfg.Match.TopN)
	}
	if cfg.Match.LexicalWeight != 0.4 || cfg.Match.SemanticWeight != 0.6 {
		t.Errorf("default weights: got %v/%v", cfg.Match.LexicalWeight, cfg.Match.SemanticWeight)
	}
	if cfg.Match.Threshold() != 0.5 {
		t.Errorf("default min_hybrid_score: got %v", cfg.Match.Threshold())
	}
	if cfg.Match.Timeout() != 5*time.Second {
		t.Errorf("default scoring_timeout: got %v", cfg.Match.Timeout())
	}
	if cfg.Embedding.Provider != "onnx" || cfg.Embedding.Dimensions != 768 {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if cfg.Embedding.Pooling != "mean" {
		t.Errorf("default pooling: got %s", cfg.Embedding.Pooling)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("default workers: got %d", cfg.Batch.Workers)
	}
}

func TestApplyDefaults_keepsSingleZeroWeight(t *testing.T) {
	cfg := &Config{Match: MatchConfig{LexicalWeight: 1}}
	ApplyDefaults(cfg)
	if cfg.Match.LexicalWeight != 1 || cfg.Match.SemanticWeight != 0 {
		t.Errorf("weights: got %v/%v", cfg.Match.LexicalWeight, cfg.Match.SemanticWeight)
	}
}

func TestLoad_explicitZeroThresholdAndTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
embedding:
  provider: hash
match:
  min_hybrid_score: 0
  scoring_timeout: 0s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Match.MinHybridScore == nil || cfg.Match.Threshold() != 0 {
		t.Errorf("min_hybrid_score: got %v, want explicit 0", cfg.Match.Threshold())
	}
	if cfg.Match.ScoringTimeout == nil || cfg.Match.Timeout() != 0 {
		t.Errorf("scoring_timeout: got %v, want explicit 0", cfg.Match.Timeout())
	}
}

func TestMatchConfig_unsetAccessors(t *testing.T) {
	var m MatchConfig
	if m.Threshold() != DefaultMinHybridScore || m.Timeout() != DefaultScoringTimeout {
		t.Errorf("unset accessors: got %v/%v", m.Threshold(), m.Timeout())
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Storage:   StorageConfig{DatabasePath: "/tmp/db"},
		Embedding: EmbeddingConfig{Provider: "hash"},
		Match:     MatchConfig{TopN: 9},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Match.TopN != 9 {
		t.Errorf("loaded top_n: got %d", loaded.Match.TopN)
	}
}
