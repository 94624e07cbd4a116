package technique

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglab/raglab/retriever"
	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/vectordb"
)

// scriptedLLM replays canned completions in order and records prompts.
type scriptedLLM struct {
	replies []string
	calls   int
	prompts []string
}

func (m *scriptedLLM) GenerateCompletion(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.calls >= len(m.replies) {
		return "", fmt.Errorf("no scripted reply for call %d", m.calls+1)
	}
	reply := m.replies[m.calls]
	m.calls++
	return reply, nil
}

func (m *scriptedLLM) GetProviderType() string { return "mock" }

// axisEmbedder maps texts to fixed vectors; unknown texts share a
// default axis so every stored doc is reachable.
type axisEmbedder struct {
	vectors map[string][]float32
	// lastText records what was embedded most recently.
	lastText string
}

func (e *axisEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	e.lastText = text
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (e *axisEmbedder) GetDimensions() int { return 3 }

func testDeps(t *testing.T, llmMock *scriptedLLM, docs []schema.Document) (Deps, *axisEmbedder) {
	t.Helper()
	store := vectordb.NewMemoryProvider()
	require.NoError(t, store.AddDoc(context.Background(), docs))
	embed := &axisEmbedder{vectors: map[string][]float32{}}
	return Deps{
		LLM:       llmMock,
		Retriever: &retriever.VectorRetriever{Embed: embed, Store: store, TopK: 5},
		Embed:     embed,
		TopK:      5,
		FusionK:   60,
		Variants:  3,
	}, embed
}

func corpus() []schema.Document {
	return []schema.Document{
		{ID: "d1", Content: "Go uses goroutines for concurrency", Vector: []float32{1, 0, 0}},
		{ID: "d2", Content: "Channels synchronize goroutines", Vector: []float32{0.9, 0.1, 0}},
		{ID: "d3", Content: "Python uses asyncio", Vector: []float32{0, 1, 0}},
	}
}

func TestRegistry(t *testing.T) {
	llmMock := &scriptedLLM{}
	deps, _ := testDeps(t, llmMock, nil)
	reg := NewRegistry(Baseline, NewCoreTechniques(deps)...)

	assert.Equal(t, []string{"baseline", "fusion", "hyde", "reranking", "subquery"}, reg.Names())

	got, ok := reg.Get(" HyDE ")
	require.True(t, ok)
	assert.Equal(t, "hyde", got.Name())

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
	assert.Equal(t, "baseline", reg.Resolve("unknown").Name())
	assert.Equal(t, "baseline", reg.Resolve("").Name())
	assert.Equal(t, "subquery", reg.Resolve("subquery").Name())
}

func TestBaselineTechnique(t *testing.T) {
	llmMock := &scriptedLLM{replies: []string{"goroutines are lightweight threads"}}
	deps, _ := testDeps(t, llmMock, corpus())

	res, err := (&BaselineTechnique{Deps: deps}).Execute(context.Background(), schema.Query{Text: "how does go handle concurrency?"})
	require.NoError(t, err)

	assert.Equal(t, "goroutines are lightweight threads", res.Answer)
	assert.Equal(t, "baseline", res.Metrics.Technique)
	require.NotEmpty(t, res.Sources)
	for _, s := range res.Sources {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
		assert.Equal(t, schema.OriginVector, s.Origin)
	}
	assert.Equal(t, len(res.Sources), res.Metrics.RetrievedChunks)
	assert.Greater(t, res.Metrics.PromptTokens, 0)
	// Retrieved context reached the generation prompt.
	assert.Contains(t, llmMock.prompts[0], "goroutines")
}

func TestHyDEEmbedsHypotheticalPassage(t *testing.T) {
	llmMock := &scriptedLLM{replies: []string{
		"Goroutines are multiplexed onto OS threads by the runtime scheduler.",
		"final answer",
	}}
	deps, embed := testDeps(t, llmMock, corpus())

	res, err := (&HyDETechnique{Deps: deps}).Execute(context.Background(), schema.Query{Text: "explain concurrency in go"})
	require.NoError(t, err)

	assert.Equal(t, "final answer", res.Answer)
	assert.Equal(t, "hyde", res.Metrics.Technique)
	// The search vector came from the hypothetical passage, not the query.
	assert.Contains(t, embed.lastText, "runtime scheduler")
}

func TestRerankingReordersCandidates(t *testing.T) {
	llmMock := &scriptedLLM{replies: []string{"2,1", "ranked answer"}}
	deps, _ := testDeps(t, llmMock, corpus()[:2])
	deps.TopK = 2

	res, err := (&RerankingTechnique{Deps: deps}).Execute(context.Background(), schema.Query{Text: "channels"})
	require.NoError(t, err)

	assert.Equal(t, "ranked answer", res.Answer)
	require.Len(t, res.Sources, 2)
	// Retrieval order was d1,d2; the model ranked passage 2 first.
	assert.Equal(t, "d2", res.Sources[0].ID)
	assert.Equal(t, "d1", res.Sources[1].ID)
}

func TestRerankingKeepsOrderOnUnparseableReply(t *testing.T) {
	llmMock := &scriptedLLM{replies: []string{"no idea", "answer"}}
	deps, _ := testDeps(t, llmMock, corpus()[:2])
	deps.TopK = 2

	res, err := (&RerankingTechnique{Deps: deps}).Execute(context.Background(), schema.Query{Text: "channels"})
	require.NoError(t, err)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "d1", res.Sources[0].ID)
}

func TestSubqueryMergesAndDedups(t *testing.T) {
	llmMock := &scriptedLLM{replies: []string{
		"1. What are goroutines?\n2. What are channels?",
		"combined answer",
	}}
	deps, _ := testDeps(t, llmMock, corpus())

	res, err := (&SubqueryTechnique{Deps: deps}).Execute(context.Background(), schema.Query{Text: "compare goroutines and channels"})
	require.NoError(t, err)

	assert.Equal(t, "combined answer", res.Answer)
	// Both sub-queries hit the same corpus; duplicates are merged away.
	ids := make(map[string]int)
	for _, s := range res.Sources {
		ids[s.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "duplicate source %s", id)
	}
}

func TestSubqueryDegradesToOriginalQuery(t *testing.T) {
	// No scripted replies: decomposition fails and degrades.
	llmMock := &scriptedLLM{}
	deps, _ := testDeps(t, llmMock, corpus())

	st := &SubqueryTechnique{Deps: deps}
	subs := st.decompose(context.Background(), "some question")
	assert.Equal(t, []string{"some question"}, subs)
}

func TestFusionTechnique(t *testing.T) {
	llmMock := &scriptedLLM{replies: []string{
		"how do goroutines work?\nwhat is go concurrency?",
		"fused answer",
	}}
	deps, _ := testDeps(t, llmMock, corpus())

	res, err := (&FusionTechnique{Deps: deps}).Execute(context.Background(), schema.Query{Text: "go concurrency", TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, "fused answer", res.Answer)
	assert.Equal(t, "fusion", res.Metrics.Technique)
	require.NotEmpty(t, res.Sources)
	assert.LessOrEqual(t, len(res.Sources), 2)
	// Fused RRF scores stay in [0,1] after clamping.
	for _, s := range res.Sources {
		assert.LessOrEqual(t, s.Score, 1.0)
	}
}
