package retriever

import (
	"context"

	"github.com/raglab/raglab/schema"
)

// Retriever defines a unified search interface across different backends.
type Retriever interface {
	Type() string
	Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error)
}

// NamespaceRetriever is implemented by retrievers that can scope a
// search to a namespace.
type NamespaceRetriever interface {
	Retriever
	SearchNamespace(ctx context.Context, query, namespace string, topK int) ([]schema.SearchResult, error)
}
