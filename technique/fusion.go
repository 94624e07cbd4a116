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

const paraphrasePromptFmt = `Rewrite the following question in %d different ways that preserve its meaning. Reply with one rewrite per line, nothing else.

Question: %s`

// FusionTechnique searches with several paraphrases of the query and
// merges the ranked lists with Reciprocal Rank Fusion.
type FusionTechnique struct {
	Deps Deps
}

func (t *FusionTechnique) Name() string { return Fusion }

func (t *FusionTechnique) Execute(ctx context.Context, q schema.Query) (*schema.Result, error) {
	start := time.Now()
	topK := t.Deps.topK(q)

	variants := t.paraphrase(ctx, q.Text)

	lists := make([][]schema.SearchResult, 0, len(variants))
	for _, v := range variants {
		results, err := t.Deps.Retriever.SearchNamespace(ctx, v, q.Namespace, topK)
		if err != nil {
			logger.Warnf("fusion: retrieval for variant %q failed: %v", v, err)
			continue
		}
		lists = append(lists, results)
	}
	metrics.ObserveFusion(len(lists))

	fused := fusion.RRF(lists, t.Deps.FusionK, topK)

	prompt := llm.BuildPrompt(q.Text, contextsOf(fused), "\n\n")
	answer, err := t.Deps.LLM.GenerateCompletion(ctx, prompt)
	if err != nil {
		metrics.IncTechniqueError(Fusion)
		return nil, err
	}

	metrics.ObserveTechnique(Fusion, start)
	return buildResult(Fusion, answer, fused, prompt, start), nil
}

// paraphrase returns the query plus up to Variants-1 rewrites.
func (t *FusionTechnique) paraphrase(ctx context.Context, query string) []string {
	want := t.Deps.Variants
	if want <= 1 {
		return []string{query}
	}

	variants := []string{query}
	reply, err := t.Deps.LLM.GenerateCompletion(ctx, fmt.Sprintf(paraphrasePromptFmt, want-1, query))
	if err != nil {
		logger.Warnf("fusion: paraphrase generation failed, using original query only: %v", err)
		return variants
	}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-) ")
		if line == "" {
			continue
		}
		variants = append(variants, line)
		if len(variants) == want {
			break
		}
	}
	return variants
}
