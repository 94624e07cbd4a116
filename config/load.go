package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file, expands ${ENV_VAR} references
// and overlays it on Default(). The result is validated before return.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(raw []byte) (*Config, error) {
	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults restores zero-valued tunables that a partial YAML
// document may have cleared.
func (c *Config) applyDefaults() {
	d := Default()
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = d.RAG.TopK
	}
	if c.RAG.TimeoutSeconds <= 0 {
		c.RAG.TimeoutSeconds = d.RAG.TimeoutSeconds
	}
	if c.RAG.Namespace == "" {
		c.RAG.Namespace = d.RAG.Namespace
	}
	if c.RAG.Splitter.ChunkSize <= 0 {
		c.RAG.Splitter.ChunkSize = d.RAG.Splitter.ChunkSize
	}
	if c.RAG.Splitter.ChunkOverlap < 0 {
		c.RAG.Splitter.ChunkOverlap = d.RAG.Splitter.ChunkOverlap
	}
	if c.Router.DefaultTechnique == "" {
		c.Router.DefaultTechnique = d.Router.DefaultTechnique
	}
	if c.Router.DefaultCategory == "" {
		c.Router.DefaultCategory = d.Router.DefaultCategory
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = d.Agent.MaxIterations
	}
	if c.Fusion.K <= 0 {
		c.Fusion.K = d.Fusion.K
	}
	if c.Fusion.Variants <= 0 {
		c.Fusion.Variants = d.Fusion.Variants
	}
	if c.WebSearch.Provider == "" {
		c.WebSearch.Provider = d.WebSearch.Provider
	}
	if c.WebSearch.TopK <= 0 {
		c.WebSearch.TopK = d.WebSearch.TopK
	}
	if c.VectorDB.Provider == "" {
		c.VectorDB.Provider = d.VectorDB.Provider
	}
	if c.VectorDB.Collection == "" {
		c.VectorDB.Collection = d.VectorDB.Collection
	}
	if c.VectorDB.MetricType == "" {
		c.VectorDB.MetricType = d.VectorDB.MetricType
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}
