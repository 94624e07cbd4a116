package fusion

import (
	"sort"

	"github.com/raglab/raglab/schema"
)

// Strategy defines the interface for fusion strategies
type Strategy interface {
	// Fuse merges multiple ranked lists into a single ranked list
	Fuse(lists [][]schema.SearchResult) []schema.SearchResult
	// Name returns the strategy name
	Name() string
}

// RRFStrategy implements Reciprocal Rank Fusion
type RRFStrategy struct {
	K int // RRF parameter (default: 60)
	// Limit truncates the fused list; 0 means no truncation.
	Limit int
}

// NewRRFStrategy creates a new RRF fusion strategy
func NewRRFStrategy(k int) *RRFStrategy {
	if k <= 0 {
		k = 60
	}
	return &RRFStrategy{K: k}
}

// Fuse implements RRF fusion
func (s *RRFStrategy) Fuse(lists [][]schema.SearchResult) []schema.SearchResult {
	return RRF(lists, s.K, s.Limit)
}

// Name returns the strategy name
func (s *RRFStrategy) Name() string {
	return "rrf"
}

// WeightedStrategy implements weighted score fusion. Each list carries
// a weight (by position); scores for the same content are averaged
// after weighting.
type WeightedStrategy struct {
	Weights []float64
}

// NewWeightedStrategy creates a new weighted fusion strategy
func NewWeightedStrategy(weights []float64) *WeightedStrategy {
	return &WeightedStrategy{Weights: weights}
}

// Fuse implements weighted score fusion
func (s *WeightedStrategy) Fuse(lists [][]schema.SearchResult) []schema.SearchResult {
	if len(lists) == 0 {
		return []schema.SearchResult{}
	}

	type agg struct {
		doc   schema.Document
		score float64
		count int
		order int
	}
	scores := map[string]*agg{}
	order := 0

	for listIdx, list := range lists {
		weight := 1.0
		if listIdx < len(s.Weights) {
			weight = s.Weights[listIdx]
		}
		for _, item := range list {
			key := ContentKey(item.Document)
			if key == "" {
				continue
			}
			a, ok := scores[key]
			if !ok {
				a = &agg{doc: item.Document, order: order}
				scores[key] = a
				order++
			}
			a.score += item.Score * weight
			a.count++
		}
	}

	out := make([]*agg, 0, len(scores))
	for _, v := range scores {
		v.score /= float64(v.count)
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	results := make([]schema.SearchResult, 0, len(out))
	for _, v := range out {
		results = append(results, schema.SearchResult{Document: v.doc, Score: v.score})
	}
	return results
}

// Name returns the strategy name
func (s *WeightedStrategy) Name() string {
	return "weighted"
}

// NewStrategy creates a fusion strategy by name
func NewStrategy(name string, params map[string]interface{}) Strategy {
	switch name {
	case "weighted":
		var weights []float64
		if w, ok := params["weights"].([]float64); ok {
			weights = w
		}
		return NewWeightedStrategy(weights)
	case "rrf":
		fallthrough
	default:
		k := 60
		if kVal, ok := params["k"].(int); ok {
			k = kVal
		}
		return NewRRFStrategy(k)
	}
}
