// Package config loads and validates Kestrel configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

// Config represents the complete Kestrel configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// SearchConfig configures the hybrid retrieval engine.
// Weights and the shared deadline are configurable via:
//  1. Config file (kestrel.yaml)
//  2. Env vars (KESTREL_VECTOR_WEIGHT, KESTREL_KEYWORD_WEIGHT,
//     KESTREL_SEARCH_DEADLINE) - highest priority
type SearchConfig struct {
	// VectorWeight is the fusion weight for vector similarity (0.0-1.0].
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	// KeywordWeight is the fusion weight for keyword relevance (0.0-1.0].
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight"`

	// Deadline is the shared per-call deadline for both backend searches.
	Deadline time.Duration `yaml:"deadline" json:"deadline"`

	// DefaultK is the result count used when a query does not specify one.
	DefaultK int `yaml:"default_k" json:"default_k"`

	// MaxK is the maximum allowed result count per query.
	MaxK int `yaml:"max_k" json:"max_k"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "static" (deterministic, offline).
	Provider string `yaml:"provider" json:"provider"`

	// Dimensions is the embedding dimension.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// CacheSize is the number of query embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// StorageConfig configures index and metadata persistence.
type StorageConfig struct {
	// DataDir is the root directory for tenant indices and metadata.
	// Empty means fully in-memory operation.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			VectorWeight:  0.6,
			KeywordWeight: 0.4,
			Deadline:      500 * time.Millisecond,
			DefaultK:      10,
			MaxK:          100,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Dimensions: 256,
			CacheSize:  1000,
		},
		Storage: StorageConfig{
			DataDir: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given path, falling back to defaults when
// the file does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, kerrors.New(kerrors.ErrCodeConfigNotFound,
					fmt.Sprintf("cannot read config file %s", path), err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, kerrors.New(kerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("cannot parse config file %s", path), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies KESTREL_* environment variables on top of file values.
func (c *Config) applyEnvOverrides() {
	if v, ok := envFloat("KESTREL_VECTOR_WEIGHT"); ok {
		c.Search.VectorWeight = v
	}
	if v, ok := envFloat("KESTREL_KEYWORD_WEIGHT"); ok {
		c.Search.KeywordWeight = v
	}
	if v := os.Getenv("KESTREL_SEARCH_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Search.Deadline = d
		}
	}
	if v := os.Getenv("KESTREL_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Validate checks the configuration for invalid values.
// Weights need not sum exactly to 1; each must lie in (0, 1].
func (c *Config) Validate() error {
	s := &c.Search

	if s.VectorWeight <= 0 || s.VectorWeight > 1 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("vector_weight must be in (0, 1], got %v", s.VectorWeight), nil)
	}
	if s.KeywordWeight <= 0 || s.KeywordWeight > 1 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("keyword_weight must be in (0, 1], got %v", s.KeywordWeight), nil)
	}
	if s.Deadline <= 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("deadline must be positive, got %v", s.Deadline), nil)
	}
	if s.DefaultK < 1 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("default_k must be at least 1, got %d", s.DefaultK), nil)
	}
	if s.MaxK < s.DefaultK {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("max_k (%d) must be >= default_k (%d)", s.MaxK, s.DefaultK), nil)
	}

	if c.Embeddings.Dimensions < 1 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("embedding dimensions must be at least 1, got %d", c.Embeddings.Dimensions), nil)
	}

	return nil
}

// Save writes the configuration to the given path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return kerrors.InternalError("cannot marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot write config file %s", path), err)
	}
	return nil
}
