package llm

import (
	"context"
	"encoding/json"

	"github.com/raglab/raglab/schema"
)

// Turn is one entry in an agent conversation log. Exactly one of
// UserTurn, AssistantTurn or ToolTurn.
type Turn interface {
	turn()
}

// UserTurn is the user's question.
type UserTurn struct {
	Content string
}

// AssistantTurn is a model reply: free text, tool call requests, or
// both.
type AssistantTurn struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolTurn is the outcome of one requested tool call. CallID matches
// the ToolCall that requested it.
type ToolTurn struct {
	CallID string
	Name   string
	Result *schema.Result
}

func (UserTurn) turn()      {}
func (AssistantTurn) turn() {}
func (ToolTurn) turn()      {}

// ToolCall is a model request to invoke a named tool with raw JSON
// arguments.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec describes a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// ChatCompleter is the tool-calling completion boundary the agent loop
// depends on. Implementations translate the turn log into their SDK's
// message format.
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt string, turns []Turn, tools []ToolSpec) (*AssistantTurn, error)
}

// toolContent renders a tool result as the text handed back to the
// model.
func toolContent(res *schema.Result) string {
	if res == nil {
		return ""
	}
	payload := struct {
		Answer  string             `json:"answer"`
		Sources []schema.SourceRef `json:"sources,omitempty"`
	}{Answer: res.Answer, Sources: res.Sources}
	raw, err := json.Marshal(payload)
	if err != nil {
		return res.Answer
	}
	return string(raw)
}
