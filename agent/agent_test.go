package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/technique"
)

type scriptedCompleter struct {
	replies []llm.AssistantTurn
	calls   int
	// seen records the turn log length at each call.
	seen []int
	err  error
}

func (s *scriptedCompleter) Complete(ctx context.Context, systemPrompt string, turns []llm.Turn, tools []llm.ToolSpec) (*llm.AssistantTurn, error) {
	s.seen = append(s.seen, len(turns))
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.replies) {
		return &llm.AssistantTurn{Content: "done"}, nil
	}
	reply := s.replies[s.calls]
	s.calls++
	return &reply, nil
}

type recordingTechnique struct {
	name    string
	queries []string
	result  *schema.Result
	err     error
}

func (r *recordingTechnique) Name() string { return r.name }

func (r *recordingTechnique) Execute(ctx context.Context, q schema.Query) (*schema.Result, error) {
	r.queries = append(r.queries, q.Text)
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type stubSearcher struct {
	results []schema.SearchResult
	err     error
	calls   int32
}

func (s *stubSearcher) Search(ctx context.Context, query string, numResults int) ([]schema.SearchResult, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.results, s.err
}

func sourcedResult(answer, id string) *schema.Result {
	return &schema.Result{
		Answer:  answer,
		Sources: []schema.SourceRef{{ID: id, Content: "chunk " + id, Score: 0.8}},
	}
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: args}
}

func TestToolSetSpecsSorted(t *testing.T) {
	baseline := &recordingTechnique{name: technique.Baseline, result: &schema.Result{Answer: "a"}}
	ts := NewToolSet(technique.NewRegistry(technique.Baseline, baseline), &stubSearcher{})

	specs := ts.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "internal_rag", specs[0].Name)
	assert.Equal(t, "web_search", specs[1].Name)
	for _, spec := range specs {
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(spec.Schema, &decoded), "schema for %s must be valid JSON", spec.Name)
	}
}

func TestToolSetOmitsWebSearchWithoutSearcher(t *testing.T) {
	baseline := &recordingTechnique{name: technique.Baseline, result: &schema.Result{Answer: "a"}}
	ts := NewToolSet(technique.NewRegistry(technique.Baseline, baseline), nil)

	specs := ts.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, "internal_rag", specs[0].Name)
}

func TestInternalRAGResolvesTechnique(t *testing.T) {
	baseline := &recordingTechnique{name: technique.Baseline, result: sourcedResult("base", "d1")}
	hyde := &recordingTechnique{name: technique.HyDE, result: sourcedResult("hyde", "d2")}
	ts := NewToolSet(technique.NewRegistry(technique.Baseline, baseline, hyde), nil)

	res := ts.Execute(context.Background(), toolCall("c1", "internal_rag", `{"query":"q","technique":"hyde"}`))
	assert.Equal(t, "hyde", res.Answer)
	assert.Equal(t, []string{"q"}, hyde.queries)
	assert.Empty(t, baseline.queries)

	res = ts.Execute(context.Background(), toolCall("c2", "internal_rag", `{"query":"q2"}`))
	assert.Equal(t, "base", res.Answer)
	assert.Equal(t, []string{"q2"}, baseline.queries)
}

func TestToolFailureBecomesResult(t *testing.T) {
	baseline := &recordingTechnique{name: technique.Baseline, err: errors.New("store down")}
	ts := NewToolSet(technique.NewRegistry(technique.Baseline, baseline), nil)

	res := ts.Execute(context.Background(), toolCall("c1", "internal_rag", `{"query":"q"}`))
	require.NotNil(t, res)
	assert.Contains(t, res.Answer, "store down")
	assert.Empty(t, res.Sources)

	res = ts.Execute(context.Background(), toolCall("c2", "internal_rag", `not json`))
	assert.Contains(t, res.Answer, "invalid internal_rag arguments")

	res = ts.Execute(context.Background(), toolCall("c3", "no_such_tool", `{}`))
	assert.Contains(t, res.Answer, "unknown tool")
}

func TestWebSearchTool(t *testing.T) {
	baseline := &recordingTechnique{name: technique.Baseline, result: &schema.Result{Answer: "a"}}
	searcher := &stubSearcher{results: []schema.SearchResult{
		{Document: schema.Document{ID: "w1", Content: "web page one"}, Score: 1.0},
		{Document: schema.Document{ID: "w2", Content: "web page two"}, Score: 0.5},
	}}
	ts := NewToolSet(technique.NewRegistry(technique.Baseline, baseline), searcher)

	res := ts.Execute(context.Background(), toolCall("c1", "web_search", `{"query":"latest release"}`))
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "w1", res.Sources[0].ID)
	assert.Equal(t, schema.OriginWebSearch, res.Sources[0].Origin)
	assert.Contains(t, res.Answer, "web page one")
	assert.Contains(t, res.Answer, "web page two")
	assert.Equal(t, int32(1), searcher.calls)
}

func TestLoopAnswersWithoutTools(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.AssistantTurn{{Content: "Go was released in 2009."}}}
	baseline := &recordingTechnique{name: technique.Baseline, result: &schema.Result{Answer: "a"}}
	loop := NewLoop(completer, NewToolSet(technique.NewRegistry(technique.Baseline, baseline), nil), "", 0)

	result, trace, err := loop.Run(context.Background(), "when was Go released")
	require.NoError(t, err)
	assert.Equal(t, "Go was released in 2009.", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 1, trace.Iterations)
	assert.Empty(t, trace.ToolsInvoked)
}

func TestLoopToolRoundTrip(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.AssistantTurn{
		{ToolCalls: []llm.ToolCall{toolCall("c1", "internal_rag", `{"query":"raft leader election"}`)}},
		{Content: "Leaders are elected by majority vote."},
	}}
	baseline := &recordingTechnique{name: technique.Baseline, result: sourcedResult("raft elects leaders", "d1")}
	loop := NewLoop(completer, NewToolSet(technique.NewRegistry(technique.Baseline, baseline), nil), "", 0)

	result, trace, err := loop.Run(context.Background(), "how does raft elect a leader")
	require.NoError(t, err)
	// The sourced tool result supplies the answer, not the closing
	// assistant prose.
	assert.Equal(t, "raft elects leaders", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "d1", result.Sources[0].ID)
	assert.Equal(t, 2, trace.Iterations)
	assert.Equal(t, []string{"internal_rag"}, trace.ToolsInvoked)
	// Second completion sees user turn, assistant turn and tool turn.
	assert.Equal(t, []int{1, 3}, completer.seen)
}

func TestLoopParallelCallsKeepOrder(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.AssistantTurn{
		{ToolCalls: []llm.ToolCall{
			toolCall("c1", "internal_rag", `{"query":"first"}`),
			toolCall("c2", "web_search", `{"query":"second"}`),
		}},
		{Content: "combined answer"},
	}}
	baseline := &recordingTechnique{name: technique.Baseline, result: sourcedResult("internal", "d1")}
	searcher := &stubSearcher{results: []schema.SearchResult{{Document: schema.Document{ID: "w1", Content: "web"}, Score: 0.9}}}
	loop := NewLoop(completer, NewToolSet(technique.NewRegistry(technique.Baseline, baseline), searcher), "", 0)

	result, trace, err := loop.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "web", result.Answer)
	assert.Equal(t, []string{"internal_rag", "web_search"}, trace.ToolsInvoked)
	// Backward scan lands on the web_search turn, the later sourced one.
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "w1", result.Sources[0].ID)
}

func TestLoopIterationCapExtractsPartialState(t *testing.T) {
	// The model keeps requesting tools and never answers.
	looping := llm.AssistantTurn{ToolCalls: []llm.ToolCall{toolCall("c", "internal_rag", `{"query":"again"}`)}}
	completer := &scriptedCompleter{replies: []llm.AssistantTurn{looping, looping, looping, looping}}
	baseline := &recordingTechnique{name: technique.Baseline, result: sourcedResult("partial evidence", "d9")}
	loop := NewLoop(completer, NewToolSet(technique.NewRegistry(technique.Baseline, baseline), nil), "", 3)

	result, trace, err := loop.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 3, trace.Iterations)
	assert.Equal(t, "partial evidence", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "d9", result.Sources[0].ID)
}

func TestLoopCompleterErrorSurfaces(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("model unavailable")}
	baseline := &recordingTechnique{name: technique.Baseline, result: &schema.Result{Answer: "a"}}
	loop := NewLoop(completer, NewToolSet(technique.NewRegistry(technique.Baseline, baseline), nil), "", 0)

	result, trace, err := loop.Run(context.Background(), "q")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, trace.Iterations)
}

func TestExtractFallsBackToAssistantText(t *testing.T) {
	turns := []llm.Turn{
		llm.UserTurn{Content: "q"},
		llm.AssistantTurn{ToolCalls: []llm.ToolCall{toolCall("c1", "internal_rag", "{}")}},
		llm.ToolTurn{CallID: "c1", Name: "internal_rag", Result: &schema.Result{Answer: "no sources here"}},
		llm.AssistantTurn{Content: "final text"},
	}
	res := extract(turns)
	assert.Equal(t, "final text", res.Answer)
	assert.Empty(t, res.Sources)
}
