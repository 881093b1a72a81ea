// Package config defines the explicit configuration value threaded through
// component constructors. Nothing in the pipeline reads ambient global
// state; tests inject a Config with in-memory backends.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the analysis pipeline.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Rules     RulesConfig     `yaml:"rules"`
	Context   ContextConfig   `yaml:"context"`
	LLM       LLMConfig       `yaml:"llm"`
}

// CorpusConfig configures the sample store and sparse index locations.
type CorpusConfig struct {
	// DBPath is the SQLite database file; ":memory:" for tests.
	DBPath string `yaml:"db_path"`
	// SparseIndexPath is the bleve index directory; empty means in-memory.
	SparseIndexPath string `yaml:"sparse_index_path"`
}

// EmbeddingConfig configures the external embedding service adapter.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "local"
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	CacheSize int    `yaml:"cache_size"`
}

// RetrievalConfig holds router defaults: weight mixes, top-K, and the
// cluster threshold handed to the extractor.
type RetrievalConfig struct {
	TopK             int     `yaml:"top_k"`
	ClusterThreshold float64 `yaml:"cluster_threshold"`
	// MinSparseHits is the sparse-result floor below which a source-code
	// query falls back to a dense-weighted mix.
	MinSparseHits int `yaml:"min_sparse_hits"`
}

// RulesConfig bounds pattern extraction in the rule synthesizer.
type RulesConfig struct {
	// MinPatternLength filters out trivial low-specificity substrings.
	MinPatternLength int `yaml:"min_pattern_length"`
	MaxPatterns      int `yaml:"max_patterns"`
}

// ContextConfig bounds the composed analysis context.
type ContextConfig struct {
	// Budget is the maximum serialized context size in characters.
	Budget int `yaml:"budget"`
	// SnippetLength caps how much of each sample text a summary carries.
	SnippetLength int `yaml:"snippet_length"`
}

// LLMConfig configures the generative-service collaborator.
type LLMConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			DBPath: "~/.malrag/corpus.db",
		},
		Embedding: EmbeddingConfig{
			Provider:  "local",
			Model:     "local-embeddings",
			Dimension: 384,
			CacheSize: 10000,
		},
		Retrieval: RetrievalConfig{
			TopK:             20,
			ClusterThreshold: 0.72,
			MinSparseHits:    3,
		},
		Rules: RulesConfig{
			MinPatternLength: 8,
			MaxPatterns:      10,
		},
		Context: ContextConfig{
			Budget:        16384,
			SnippetLength: 500,
		},
		LLM: LLMConfig{
			Endpoint:    "http://localhost:11434/api/chat",
			Model:       "dolphin3:8b",
			Temperature: 0.3,
			TimeoutSec:  300,
		},
	}
}

// Load reads a YAML configuration file, applies defaults for unset fields,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides secrets and endpoints from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("MALRAG_DB_PATH"); v != "" {
		c.Corpus.DBPath = v
	}
	if v := os.Getenv("MALRAG_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("MALRAG_EMBEDDING_ENDPOINT"); v != "" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv("MALRAG_LLM_ENDPOINT"); v != "" {
		c.LLM.Endpoint = v
	}
	if v := os.Getenv("MALRAG_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("MALRAG_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Retrieval.TopK = k
		}
	}
}

// Validate checks configuration bounds before any component is built.
func (c *Config) Validate() error {
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.ClusterThreshold < 0 || c.Retrieval.ClusterThreshold > 1 {
		return fmt.Errorf("retrieval.cluster_threshold must be in [0,1], got %f", c.Retrieval.ClusterThreshold)
	}
	if c.Rules.MinPatternLength <= 0 {
		return fmt.Errorf("rules.min_pattern_length must be positive, got %d", c.Rules.MinPatternLength)
	}
	if c.Context.Budget <= 0 {
		return fmt.Errorf("context.budget must be positive, got %d", c.Context.Budget)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	return nil
}
