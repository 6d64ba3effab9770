// Package config provides configuration loading and structs for internmatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Match     MatchConfig     `yaml:"match"`
	Batch     BatchConfig     `yaml:"batch"`
}

// StorageConfig holds the artifact store location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig selects and configures the embedding model.
// Provider is one of "onnx", "openai" or "hash".
type EmbeddingConfig struct {
	Provider      string `yaml:"provider"`
	ModelPath     string `yaml:"model_path"`
	LibraryPath   string `yaml:"library_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	OutputName    string `yaml:"output_name"`
	Pooling       string `yaml:"pooling"`
	TokenTypeIDs  bool   `yaml:"token_type_ids"`
	CacheSize     int    `yaml:"cache_size"`

	Host              string  `yaml:"host"`
	Model             string  `yaml:"model"`
	Token             string  `yaml:"token"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// MatchConfig holds ranking defaults and the application threshold.
type MatchConfig struct {
	TopN           int           `yaml:"top_n"`
	LexicalWeight  float64       `yaml:"lexical_weight"`
	SemanticWeight float64       `yaml:"semantic_weight"`
	// MinHybridScore and ScoringTimeout are pointers so an explicit 0 survives
	// ApplyDefaults. A zero timeout disables the bound.
	MinHybridScore *float64       `yaml:"min_hybrid_score,omitempty"`
	ScoringTimeout *time.Duration `yaml:"scoring_timeout,omitempty"`
	// WeightsPath points at a tuned {"weights": [lexical, semantic]} file.
	WeightsPath string `yaml:"weights_path"`
	// LexicalFallback retries with lexical-only weights when semantic scoring times out.
	LexicalFallback bool `yaml:"lexical_fallback"`
}

// Threshold returns the configured minimum hybrid score, or 0.5 when unset.
func (m *MatchConfig) Threshold() float64 {
	if m.MinHybridScore == nil {
		return DefaultMinHybridScore
	}
	return *m.MinHybridScore
}

// Timeout returns the configured scoring timeout, or 5s when unset.
func (m *MatchConfig) Timeout() time.Duration {
	if m.ScoringTimeout == nil {
		return DefaultScoringTimeout
	}
	return *m.ScoringTimeout
}

// BatchConfig holds worker pool settings.
type BatchConfig struct {
	Workers   int `yaml:"workers"`
	EmbedSize int `yaml:"embed_size"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	cfg.Embedding.LibraryPath = expandPath(cfg.Embedding.LibraryPath, configDir)
	cfg.Match.WeightsPath = expandPath(cfg.Match.WeightsPath, configDir)

	return &cfg, nil
}

// Validate rejects settings that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Match.LexicalWeight < 0 || c.Match.SemanticWeight < 0 {
		return fmt.Errorf("match weights must not be negative")
	}
	if c.Match.ScoringTimeout != nil && *c.Match.ScoringTimeout < 0 {
		return fmt.Errorf("match.scoring_timeout must not be negative")
	}
	if c.Match.TopN < 0 {
		return fmt.Errorf("match.top_n must not be negative")
	}
	switch c.Embedding.Provider {
	case "onnx", "openai", "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Embedding.Pooling {
	case "", "mean", "cls", "none":
	default:
		return fmt.Errorf("unknown embedding pooling %q", c.Embedding.Pooling)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
