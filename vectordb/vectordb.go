package vectordb

import (
	"context"
	"fmt"
	"strings"

	"github.com/raglab/raglab/config"
	"github.com/raglab/raglab/schema"
)

// VectorStoreProvider is the storage contract for document chunks.
type VectorStoreProvider interface {
	AddDoc(ctx context.Context, docs []schema.Document) error
	SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error)
	ListDocs(ctx context.Context, count int) ([]schema.Document, error)
	DeleteDocs(ctx context.Context, ids []string) error
	Close() error
}

// NewProvider creates a vector store from configuration.
func NewProvider(ctx context.Context, cfg config.VectorDBConfig, dimensions int) (VectorStoreProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "milvus":
		return newMilvusProvider(ctx, cfg, dimensions)
	case "memory", "":
		return NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported vectordb provider: %s", cfg.Provider)
	}
}
