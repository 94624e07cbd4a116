package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateVectorDB()...)
	errs = append(errs, c.validateRAG()...)
	errs = append(errs, c.validateRouter()...)
	errs = append(errs, c.validateStore()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateLLM() ValidationErrors {
	var errs ValidationErrors

	if c.LLM.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: "llm provider is required",
		})
	}
	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.model",
			Message: "llm model is required",
		})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: fmt.Sprintf("llm.temperature must be in [0, 2], got %.2f", c.LLM.Temperature),
		})
	}

	return errs
}

// validateEmbedding validates embedding configuration
func (c *Config) validateEmbedding() ValidationErrors {
	var errs ValidationErrors

	if c.Embedding.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: "embedding provider is required",
		})
	}
	if c.Embedding.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions),
		})
	}

	return errs
}

// validateVectorDB validates vector database configuration
func (c *Config) validateVectorDB() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.VectorDB.Provider) {
	case "milvus":
		if c.VectorDB.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.host",
				Message: "vectordb host is required for milvus provider",
			})
		}
		if c.VectorDB.Collection == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.collection",
				Message: "collection name is required for milvus provider",
			})
		}
	case "memory", "":
	default:
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: fmt.Sprintf("unsupported vectordb provider %q (expected milvus or memory)", c.VectorDB.Provider),
		})
	}

	switch strings.ToUpper(c.VectorDB.MetricType) {
	case "", "IP", "L2":
	default:
		errs = append(errs, ValidationError{
			Field:   "vectordb.metric_type",
			Message: fmt.Sprintf("unsupported metric type %q (expected IP or L2)", c.VectorDB.MetricType),
		})
	}

	return errs
}

// validateRAG validates retrieval configuration
func (c *Config) validateRAG() ValidationErrors {
	var errs ValidationErrors

	if c.RAG.TopK <= 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.top_k",
			Message: fmt.Sprintf("rag.top_k must be positive, got %d", c.RAG.TopK),
		})
	}
	if c.RAG.TopK > 100 {
		errs = append(errs, ValidationError{
			Field:   "rag.top_k",
			Message: fmt.Sprintf("rag.top_k %d is too large (max recommended: 100)", c.RAG.TopK),
		})
	}
	if c.RAG.Threshold < 0 || c.RAG.Threshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "rag.threshold",
			Message: fmt.Sprintf("rag.threshold must be in [0, 1], got %.2f", c.RAG.Threshold),
		})
	}
	if c.RAG.Splitter.ChunkOverlap >= c.RAG.Splitter.ChunkSize && c.RAG.Splitter.ChunkSize > 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.splitter.chunk_overlap",
			Message: fmt.Sprintf("chunk_overlap (%d) must be less than chunk_size (%d)", c.RAG.Splitter.ChunkOverlap, c.RAG.Splitter.ChunkSize),
		})
	}

	return errs
}

// validateRouter validates the routing table
func (c *Config) validateRouter() ValidationErrors {
	var errs ValidationErrors

	valid := map[string]bool{"simple": true, "complex": true, "abstract": true, "precision": true}
	for cat := range c.Router.Table {
		if !valid[strings.ToLower(cat)] {
			errs = append(errs, ValidationError{
				Field:   "router.table",
				Message: fmt.Sprintf("unknown query category %q (expected simple, complex, abstract or precision)", cat),
			})
		}
	}
	if c.Router.DefaultCategory != "" && !valid[strings.ToLower(c.Router.DefaultCategory)] {
		errs = append(errs, ValidationError{
			Field:   "router.default_category",
			Message: fmt.Sprintf("unknown default category %q", c.Router.DefaultCategory),
		})
	}

	return errs
}

// validateStore validates the execution store configuration
func (c *Config) validateStore() ValidationErrors {
	var errs ValidationErrors

	if c.Store == nil {
		return nil
	}
	switch strings.ToLower(c.Store.Provider) {
	case "", "memory", "inmemory":
	case "redis":
		if c.Store.Redis == nil || c.Store.Redis["address"] == nil {
			errs = append(errs, ValidationError{
				Field:   "store.redis.address",
				Message: "redis address is required when store provider is redis",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "store.provider",
			Message: fmt.Sprintf("unsupported store provider %q (expected memory or redis)", c.Store.Provider),
		})
	}

	return errs
}
