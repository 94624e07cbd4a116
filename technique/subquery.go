package technique

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/fusion"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
	"github.com/raglab/raglab/schema"
)

// maxSubQueries caps LLM decomposition output.
const maxSubQueries = 3

const decomposePromptFmt = `Break the following question into at most %d simpler sub-questions that can be answered independently. Reply with one sub-question per line, nothing else.

Question: %s`

// SubqueryTechnique decomposes a complex question into sub-questions,
// retrieves for each, and answers over the merged context.
type SubqueryTechnique struct {
	Deps Deps
}

func (t *SubqueryTechnique) Name() string { return Subquery }

func (t *SubqueryTechnique) Execute(ctx context.Context, q schema.Query) (*schema.Result, error) {
	start := time.Now()
	topK := t.Deps.topK(q)

	subs := t.decompose(ctx, q.Text)

	// Retrieve per sub-question, dedup merged results by content.
	seen := make(map[string]bool)
	var merged []schema.SearchResult
	for _, sub := range subs {
		results, err := t.Deps.Retriever.SearchNamespace(ctx, sub, q.Namespace, topK)
		if err != nil {
			logger.Warnf("subquery: retrieval for %q failed: %v", sub, err)
			continue
		}
		for _, r := range results {
			key := fusion.ContentKey(r.Document)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	if len(merged) > topK*maxSubQueries {
		merged = merged[:topK*maxSubQueries]
	}

	prompt := llm.BuildPrompt(q.Text, contextsOf(merged), "\n\n")
	answer, err := t.Deps.LLM.GenerateCompletion(ctx, prompt)
	if err != nil {
		metrics.IncTechniqueError(Subquery)
		return nil, err
	}

	metrics.ObserveTechnique(Subquery, start)
	return buildResult(Subquery, answer, merged, prompt, start), nil
}

// decompose returns the sub-questions for query, or the query itself
// when decomposition degrades.
func (t *SubqueryTechnique) decompose(ctx context.Context, query string) []string {
	reply, err := t.Deps.LLM.GenerateCompletion(ctx, fmt.Sprintf(decomposePromptFmt, maxSubQueries, query))
	if err != nil {
		logger.Warnf("subquery: decomposition failed, using original query: %v", err)
		return []string{query}
	}

	var subs []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		// Strip list markers like "1." or "-".
		line = strings.TrimLeft(line, "0123456789.-) ")
		if line == "" {
			continue
		}
		subs = append(subs, line)
		if len(subs) == maxSubQueries {
			break
		}
	}
	if len(subs) == 0 {
		return []string{query}
	}
	return subs
}
