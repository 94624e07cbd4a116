package vectordb

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/raglab/raglab/schema"
)

// MemoryProvider is an in-process vector store. Useful for tests and
// single-node deployments without Milvus.
type MemoryProvider struct {
	mu   sync.RWMutex
	docs []schema.Document
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (m *MemoryProvider) AddDoc(_ context.Context, docs []schema.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		if i := m.indexOf(doc.ID); i >= 0 {
			m.docs[i] = doc
			continue
		}
		m.docs = append(m.docs, doc)
	}
	return nil
}

// indexOf requires the lock held.
func (m *MemoryProvider) indexOf(id string) int {
	for i, d := range m.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryProvider) SearchDocs(_ context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK := 10
	threshold := 0.0
	namespace := ""
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		threshold = opts.Threshold
		namespace = opts.Namespace
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]schema.SearchResult, 0, len(m.docs))
	for _, doc := range m.docs {
		if namespace != "" && doc.Namespace != namespace {
			continue
		}
		score := cosine(vector, doc.Vector)
		if score < threshold {
			continue
		}
		results = append(results, schema.SearchResult{Document: doc, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MemoryProvider) ListDocs(_ context.Context, count int) ([]schema.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.docs)
	if count > 0 && count < n {
		n = count
	}
	out := make([]schema.Document, n)
	copy(out, m.docs[:n])
	return out, nil
}

func (m *MemoryProvider) DeleteDocs(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.docs[:0]
	for _, d := range m.docs {
		if !drop[d.ID] {
			kept = append(kept, d)
		}
	}
	m.docs = kept
	return nil
}

func (m *MemoryProvider) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
