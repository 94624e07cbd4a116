package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/vectordb"
)

// stubEmbedder maps known texts to fixed vectors.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) GetDimensions() int { return 3 }

func TestVectorRetrieverSearch(t *testing.T) {
	ctx := context.Background()
	store := vectordb.NewMemoryProvider()
	require.NoError(t, store.AddDoc(ctx, []schema.Document{
		{ID: "a", Content: "go channels", Namespace: "default", Vector: []float32{1, 0, 0}},
		{ID: "b", Content: "python asyncio", Namespace: "default", Vector: []float32{0, 1, 0}},
	}))

	r := &VectorRetriever{
		Embed: &stubEmbedder{vectors: map[string][]float32{"channels": {1, 0, 0}}},
		Store: store,
		TopK:  5,
	}

	results, err := r.SearchNamespace(ctx, "channels", "default", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].Document.ID)
	assert.Equal(t, "vector", r.Type())
}
