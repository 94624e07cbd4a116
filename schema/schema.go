package schema

import "time"

// Document represents one stored chunk of text with its embedding.
type Document struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Vector    []float32              `json:"vector,omitempty"`
	Namespace string                 `json:"namespace,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
}

// SearchResult pairs a document with its retrieval score.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// SearchOptions controls a vector store search.
type SearchOptions struct {
	TopK      int
	Threshold float64
	Namespace string
}

// Query is the input a technique executes against.
type Query struct {
	Text      string `json:"text"`
	Namespace string `json:"namespace,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
}

// Origins a SourceRef can come from.
const (
	OriginVector    = "vector"
	OriginWebSearch = "web_search"
)

// SourceRef is one supporting chunk attached to an answer. Score is
// always clamped to [0, 1].
type SourceRef struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Origin   string                 `json:"origin,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Metrics carries per-execution measurements.
type Metrics struct {
	Technique        string `json:"technique,omitempty"`
	LatencyMs        int64  `json:"latency_ms"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	RetrievedChunks  int    `json:"retrieved_chunks"`
}

// Result is what a technique (or the agent loop) produces.
type Result struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources,omitempty"`
	Metrics Metrics     `json:"metrics"`
}

// ClampScore forces a retrieval score into [0, 1].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// SourcesFromResults converts search results into source references
// with clamped scores, all tagged with the given origin.
func SourcesFromResults(results []SearchResult, origin string) []SourceRef {
	if len(results) == 0 {
		return nil
	}
	out := make([]SourceRef, 0, len(results))
	for _, r := range results {
		out = append(out, SourceRef{
			ID:       r.Document.ID,
			Content:  r.Document.Content,
			Score:    ClampScore(r.Score),
			Origin:   origin,
			Metadata: r.Document.Metadata,
		})
	}
	return out
}
