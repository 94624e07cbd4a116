package config

// Config is the top-level configuration for the RAG orchestration
// service. All sections carry json and yaml tags so the file can be
// provided either way.
type Config struct {
	RAG       RAGConfig       `json:"rag" yaml:"rag"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	WebSearch WebSearchConfig `json:"web_search" yaml:"web_search"`
	Router    RouterConfig    `json:"router" yaml:"router"`
	Agent     AgentConfig     `json:"agent" yaml:"agent"`
	Fusion    FusionConfig    `json:"fusion" yaml:"fusion"`
	// Store controls execution persistence. Nil means in-memory.
	Store *StoreConfig `json:"store,omitempty" yaml:"store,omitempty"`
	// Cache controls L1 caching of adaptive-path answers.
	Cache *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// HTTP holds global defaults for outbound calls (web search, rerank endpoints).
	HTTP *HTTPClientConfig `json:"http,omitempty" yaml:"http,omitempty"`
	// LogLevel: debug, info, warn, error. Default info.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// RAGConfig contains retrieval-wide settings shared by all techniques.
type RAGConfig struct {
	Splitter  SplitterConfig `json:"splitter" yaml:"splitter"`
	Threshold float64        `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	TopK      int            `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	// Namespace is the default namespace when a request names none.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	// TimeoutSeconds caps a single Run call end to end. Default 60.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// SplitterConfig defines document splitter configuration
type SplitterConfig struct {
	ChunkSize    int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunkOverlap int `json:"chunk_overlap,omitempty" yaml:"chunk_overlap,omitempty"`
}

// LLMConfig defines configuration for the completion model
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai, mock
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines configuration for the embedding model
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai, mock
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines configuration for the vector store
type VectorDBConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: milvus, memory
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	// MetricType: IP (default) or L2.
	MetricType string `json:"metric_type,omitempty" yaml:"metric_type,omitempty"`
}

// WebSearchConfig defines the outbound web search provider.
type WebSearchConfig struct {
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"` // Available options: duckduckgo, bing
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TopK     int    `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// RouterConfig controls query classification and technique selection
// on the adaptive path.
type RouterConfig struct {
	// Table maps query categories to technique names. Empty entries
	// fall back to the built-in defaults.
	Table map[string]string `json:"table,omitempty" yaml:"table,omitempty"`
	// DefaultTechnique handles unknown categories. Default "baseline".
	DefaultTechnique string `json:"default_technique,omitempty" yaml:"default_technique,omitempty"`
	// DefaultCategory is used when classification degrades. Default "simple".
	DefaultCategory string `json:"default_category,omitempty" yaml:"default_category,omitempty"`
}

// AgentConfig controls the agentic mode loop.
type AgentConfig struct {
	// MaxIterations caps reasoning rounds. Default 10.
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	// SystemPrompt overrides the built-in agent instruction.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// FusionConfig tunes rank fusion.
type FusionConfig struct {
	// K is the RRF constant. Values <= 0 fall back to 60.
	K int `json:"k,omitempty" yaml:"k,omitempty"`
	// Variants is the number of query paraphrases the fusion technique
	// generates, the original query included. Default 3.
	Variants int `json:"variants,omitempty" yaml:"variants,omitempty"`
}

// StoreConfig controls execution persistence.
// Provider: "memory" (default) or "redis".
type StoreConfig struct {
	Provider   string                 `json:"provider,omitempty" yaml:"provider,omitempty"`
	TTLSeconds int                    `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	Redis      map[string]interface{} `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// CacheConfig controls the L1 answer cache.
type CacheConfig struct {
	Enable     bool `json:"enable,omitempty" yaml:"enable,omitempty"`
	MaxEntries int  `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	TTLSeconds int  `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// HTTPClientConfig defines common options for outbound HTTP calls.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns a configuration with every tunable at its safe
// default. Callers overlay the loaded file on top of it.
func Default() *Config {
	return &Config{
		RAG: RAGConfig{
			Splitter:       SplitterConfig{ChunkSize: 1000, ChunkOverlap: 200},
			Threshold:      0.0,
			TopK:           5,
			Namespace:      "default",
			TimeoutSeconds: 60,
		},
		LLM:       LLMConfig{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.2, MaxTokens: 1024},
		Embedding: EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536},
		VectorDB:  VectorDBConfig{Provider: "memory", Collection: "rag_chunks", MetricType: "IP"},
		WebSearch: WebSearchConfig{Provider: "duckduckgo", TopK: 5},
		Router: RouterConfig{
			DefaultTechnique: "baseline",
			DefaultCategory:  "simple",
		},
		Agent:    AgentConfig{MaxIterations: 10},
		Fusion:   FusionConfig{K: 60, Variants: 3},
		LogLevel: "info",
	}
}
