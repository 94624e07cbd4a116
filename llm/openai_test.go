package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglab/raglab/config"
)

// fakeOpenAI serves canned chat completion responses and records the
// last request body.
func fakeOpenAI(t *testing.T, respond func(body map[string]interface{}) string) (*httptest.Server, *map[string]interface{}) {
	t.Helper()
	var last map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		last = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(body)))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newTestProvider(t *testing.T, baseURL string) *openaiProvider {
	t.Helper()
	p, err := newOpenAIProvider(config.LLMConfig{
		Provider: "openai",
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "gpt-4o-mini",
	})
	require.NoError(t, err)
	return p
}

func TestGenerateCompletion(t *testing.T) {
	srv, last := fakeOpenAI(t, func(map[string]interface{}) string {
		return `{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`
	})

	p := newTestProvider(t, srv.URL)
	out, err := p.GenerateCompletion(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	msgs := (*last)["messages"].([]interface{})
	require.Len(t, msgs, 1)
	assert.Equal(t, "say hello", msgs[0].(map[string]interface{})["content"])
}

func TestCompleteParsesToolCalls(t *testing.T) {
	srv, last := fakeOpenAI(t, func(map[string]interface{}) string {
		return `{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"internal_rag","arguments":"{\"query\":\"go scheduler\"}"}}
		]}}]}`
	})

	p := newTestProvider(t, srv.URL)
	spec := ToolSpec{
		Name:        "internal_rag",
		Description: "search the internal knowledge base",
		Schema:      json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}}}`),
	}
	turns := []Turn{UserTurn{Content: "how does the go scheduler work?"}}

	out, err := p.Complete(context.Background(), "you are a research agent", turns, []ToolSpec{spec})
	require.NoError(t, err)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
	assert.Equal(t, "internal_rag", out.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"go scheduler"}`, out.ToolCalls[0].Arguments)

	// system prompt + user turn, tool definition forwarded
	msgs := (*last)["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	tools := (*last)["tools"].([]interface{})
	require.Len(t, tools, 1)
}

func TestCompleteRoundTripsTurnLog(t *testing.T) {
	srv, last := fakeOpenAI(t, func(map[string]interface{}) string {
		return `{"choices":[{"message":{"role":"assistant","content":"final answer"}}]}`
	})

	p := newTestProvider(t, srv.URL)
	turns := []Turn{
		UserTurn{Content: "question"},
		AssistantTurn{ToolCalls: []ToolCall{{ID: "call_1", Name: "web_search", Arguments: `{"query":"q"}`}}},
		ToolTurn{CallID: "call_1", Name: "web_search", Result: nil},
	}

	out, err := p.Complete(context.Background(), "", turns, nil)
	require.NoError(t, err)
	assert.Equal(t, "final answer", out.Content)
	assert.Empty(t, out.ToolCalls)

	msgs := (*last)["messages"].([]interface{})
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]interface{})
	assert.Equal(t, "assistant", assistant["role"])
	require.Len(t, assistant["tool_calls"].([]interface{}), 1)
	tool := msgs[2].(map[string]interface{})
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_1", tool["tool_call_id"])
}

func TestNewProviderRejectsUnknown(t *testing.T) {
	_, err := NewProvider(config.LLMConfig{Provider: "anthropic", Model: "x"})
	require.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("what is RRF?", []string{"ctx one", "ctx two"}, "\n\n")
	assert.Contains(t, p, "ctx one")
	assert.Contains(t, p, "Question: what is RRF?")
}
