package config

import "time"

// Defaults for the match section's optional settings.
const (
	DefaultMinHybridScore = 0.5
	DefaultScoringTimeout = 5 * time.Second
)

// ApplyDefaults sets default values for any zero values in cfg. The minimum
// hybrid score and scoring timeout are only filled in when absent.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/internmatch/data/artifacts.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.Provider == "onnx" && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/internmatch/data/models/all-mpnet-base-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 384
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "mean"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Match.TopN == 0 {
		cfg.Match.TopN = 5
	}
	// Both zero means unset; a single zero weight is a deliberate choice.
	if cfg.Match.LexicalWeight == 0 && cfg.Match.SemanticWeight == 0 {
		cfg.Match.LexicalWeight = 0.4
		cfg.Match.SemanticWeight = 0.6
	}
	if cfg.Match.MinHybridScore == nil {
		score := DefaultMinHybridScore
		cfg.Match.MinHybridScore = &score
	}
	if cfg.Match.ScoringTimeout == nil {
		timeout := DefaultScoringTimeout
		cfg.Match.ScoringTimeout = &timeout
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = 4
	}
	if cfg.Batch.EmbedSize == 0 {
		cfg.Batch.EmbedSize = 32
	}
}
