package technique

import (
	"context"
	"strings"
	"time"

	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
	"github.com/raglab/raglab/schema"
)

// BaselineTechnique is the plain RAG path: embed the query, search the
// vector store, generate an answer grounded in the hits.
type BaselineTechnique struct {
	Deps Deps
}

func (t *BaselineTechnique) Name() string { return Baseline }

func (t *BaselineTechnique) Execute(ctx context.Context, q schema.Query) (*schema.Result, error) {
	start := time.Now()

	results, err := t.Deps.Retriever.SearchNamespace(ctx, q.Text, q.Namespace, t.Deps.topK(q))
	if err != nil {
		metrics.IncTechniqueError(Baseline)
		return nil, err
	}

	prompt := llm.BuildPrompt(q.Text, contextsOf(results), "\n\n")
	answer, err := t.Deps.LLM.GenerateCompletion(ctx, prompt)
	if err != nil {
		metrics.IncTechniqueError(Baseline)
		return nil, err
	}

	metrics.ObserveTechnique(Baseline, start)
	return buildResult(Baseline, answer, results, prompt, start), nil
}

// contextsOf flattens search results into prompt context lines.
func contextsOf(results []schema.SearchResult) []string {
	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, strings.ReplaceAll(r.Document.Content, "\n", " "))
	}
	return contexts
}

// buildResult assembles the Result envelope shared by all techniques.
func buildResult(name, answer string, results []schema.SearchResult, prompt string, start time.Time) *schema.Result {
	return &schema.Result{
		Answer:  answer,
		Sources: schema.SourcesFromResults(results, schema.OriginVector),
		Metrics: schema.Metrics{
			Technique:        name,
			LatencyMs:        time.Since(start).Milliseconds(),
			PromptTokens:     countTokens(prompt),
			CompletionTokens: countTokens(answer),
			RetrievedChunks:  len(results),
		},
	}
}
