package retriever

import (
	"context"

	"github.com/raglab/raglab/embedding"
	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/vectordb"
)

// VectorRetriever implements Retriever using embedding+vector store backend.
type VectorRetriever struct {
	Embed embedding.Provider
	Store vectordb.VectorStoreProvider
	TopK  int
	// Threshold is forwarded into the vector search options.
	Threshold float64
}

func (r *VectorRetriever) Type() string { return "vector" }

func (r *VectorRetriever) Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	return r.SearchNamespace(ctx, query, "", topK)
}

// SearchNamespace embeds the query and searches the store, optionally
// scoped to a namespace.
func (r *VectorRetriever) SearchNamespace(ctx context.Context, query, namespace string, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		if r.TopK > 0 {
			topK = r.TopK
		} else {
			topK = 10
		}
	}
	v, err := r.Embed.GetEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	opts := &schema.SearchOptions{TopK: topK, Threshold: r.Threshold, Namespace: namespace}
	return r.Store.SearchDocs(ctx, v, opts)
}

// SearchVector searches with a caller-provided embedding. HyDE uses
// this to search with the hypothetical document's vector.
func (r *VectorRetriever) SearchVector(ctx context.Context, vector []float32, namespace string, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		topK = r.TopK
	}
	opts := &schema.SearchOptions{TopK: topK, Threshold: r.Threshold, Namespace: namespace}
	return r.Store.SearchDocs(ctx, vector, opts)
}
