package technique

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
	"github.com/raglab/raglab/schema"
)

// overRetrieveFactor controls how many candidates the reranker sees
// relative to the requested top-k.
const overRetrieveFactor = 3

const rerankPromptFmt = `Rank the following passages by relevance to the question. Reply with the passage numbers in descending relevance, comma-separated (for example: 3,1,2). Reply with numbers only.

Question: %s

%s`

var rerankIndexPattern = regexp.MustCompile(`\d+`)

// RerankingTechnique over-retrieves candidates and asks the LLM for a
// listwise ordering before generating.
type RerankingTechnique struct {
	Deps Deps
}

func (t *RerankingTechnique) Name() string { return Reranking }

func (t *RerankingTechnique) Execute(ctx context.Context, q schema.Query) (*schema.Result, error) {
	start := time.Now()
	topK := t.Deps.topK(q)

	candidates, err := t.Deps.Retriever.SearchNamespace(ctx, q.Text, q.Namespace, topK*overRetrieveFactor)
	if err != nil {
		metrics.IncTechniqueError(Reranking)
		return nil, err
	}

	ranked := t.rerank(ctx, q.Text, candidates)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	prompt := llm.BuildPrompt(q.Text, contextsOf(ranked), "\n\n")
	answer, err := t.Deps.LLM.GenerateCompletion(ctx, prompt)
	if err != nil {
		metrics.IncTechniqueError(Reranking)
		return nil, err
	}

	metrics.ObserveTechnique(Reranking, start)
	return buildResult(Reranking, answer, ranked, prompt, start), nil
}

// rerank asks the model for a listwise ordering. Any parse failure
// keeps the retrieval order.
func (t *RerankingTechnique) rerank(ctx context.Context, query string, candidates []schema.SearchResult) []schema.SearchResult {
	if len(candidates) <= 1 {
		return candidates
	}

	var passages strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&passages, "[%d] %s\n", i+1, strings.ReplaceAll(c.Document.Content, "\n", " "))
	}

	reply, err := t.Deps.LLM.GenerateCompletion(ctx, fmt.Sprintf(rerankPromptFmt, query, passages.String()))
	if err != nil {
		logger.Warnf("reranking: listwise rerank failed, keeping retrieval order: %v", err)
		return candidates
	}

	order := rerankIndexPattern.FindAllString(reply, -1)
	if len(order) == 0 {
		logger.Warnf("reranking: could not parse ordering from reply %q", reply)
		return candidates
	}

	seen := make(map[int]bool, len(candidates))
	ranked := make([]schema.SearchResult, 0, len(candidates))
	for _, tok := range order {
		idx, err := strconv.Atoi(tok)
		if err != nil || idx < 1 || idx > len(candidates) || seen[idx] {
			continue
		}
		seen[idx] = true
		ranked = append(ranked, candidates[idx-1])
	}
	// Keep anything the model omitted, in original order.
	for i, c := range candidates {
		if !seen[i+1] {
			ranked = append(ranked, c)
		}
	}
	return ranked
}
