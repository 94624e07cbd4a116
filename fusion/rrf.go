package fusion

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/raglab/raglab/schema"
)

// RRF merges multiple ranked lists with Reciprocal Rank Fusion.
// Ranks are zero-based: the fused score for a document is the sum of
// 1/(k+rank) over every list it appears in. Duplicates are detected by
// normalized content hash, not document ID, so the same text retrieved
// under different IDs is still fused. Ties are broken by the best
// (lowest) rank the document achieved in any list, then by first
// insertion order. The output is truncated to limit when limit > 0.
func RRF(lists [][]schema.SearchResult, k, limit int) []schema.SearchResult {
	if k <= 0 {
		k = 60
	}

	type agg struct {
		doc      schema.Document
		score    float64
		bestRank int
		order    int
	}
	scores := map[string]*agg{}
	order := 0

	for _, list := range lists {
		for rank, item := range list {
			key := ContentKey(item.Document)
			if key == "" {
				continue
			}
			a, ok := scores[key]
			if !ok {
				a = &agg{doc: item.Document, bestRank: rank, order: order}
				scores[key] = a
				order++
			}
			a.score += 1.0 / float64(k+rank)
			if rank < a.bestRank {
				a.bestRank = rank
			}
		}
	}

	out := make([]*agg, 0, len(scores))
	for _, v := range scores {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].bestRank != out[j].bestRank {
			return out[i].bestRank < out[j].bestRank
		}
		return out[i].order < out[j].order
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	results := make([]schema.SearchResult, 0, len(out))
	for _, v := range out {
		results = append(results, schema.SearchResult{Document: v.doc, Score: v.score})
	}
	return results
}

// ContentKey returns the dedup key for a document: the SHA-1 of its
// content lowercased with whitespace runs collapsed. Documents with
// empty content fall back to their ID.
func ContentKey(doc schema.Document) string {
	norm := strings.Join(strings.Fields(strings.ToLower(doc.Content)), " ")
	if norm == "" {
		return doc.ID
	}
	sum := sha1.Sum([]byte(norm))
	return hex.EncodeToString(sum[:])
}
