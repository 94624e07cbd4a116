package technique

import (
	"context"
	"fmt"
	"time"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
	"github.com/raglab/raglab/schema"
)

const hydePromptFmt = `Write a short passage that plausibly answers the following question. Write the passage as if it came from a reference document; do not mention the question or that the passage is hypothetical.

Question: %s

Passage:`

// HyDETechnique implements Hypothetical Document Embeddings: generate
// a hypothetical answer passage, embed the passage, and search with
// that vector instead of the query's.
type HyDETechnique struct {
	Deps Deps
}

func (t *HyDETechnique) Name() string { return HyDE }

func (t *HyDETechnique) Execute(ctx context.Context, q schema.Query) (*schema.Result, error) {
	start := time.Now()

	hypothetical, err := t.Deps.LLM.GenerateCompletion(ctx, fmt.Sprintf(hydePromptFmt, q.Text))
	if err != nil || hypothetical == "" {
		// Degrade to searching with the raw query.
		logger.Warnf("hyde: hypothetical generation failed, using raw query: %v", err)
		hypothetical = q.Text
	}

	vector, err := t.Deps.Embed.GetEmbedding(ctx, hypothetical)
	if err != nil {
		metrics.IncTechniqueError(HyDE)
		return nil, fmt.Errorf("embed hypothetical document: %w", err)
	}
	results, err := t.Deps.Retriever.SearchVector(ctx, vector, q.Namespace, t.Deps.topK(q))
	if err != nil {
		metrics.IncTechniqueError(HyDE)
		return nil, err
	}

	prompt := llm.BuildPrompt(q.Text, contextsOf(results), "\n\n")
	answer, err := t.Deps.LLM.GenerateCompletion(ctx, prompt)
	if err != nil {
		metrics.IncTechniqueError(HyDE)
		return nil, err
	}

	metrics.ObserveTechnique(HyDE, start)
	return buildResult(HyDE, answer, results, prompt, start), nil
}
