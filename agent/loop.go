package agent

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
	"github.com/raglab/raglab/schema"
)

// DefaultMaxIterations caps the reasoning loop when the caller names
// no limit.
const DefaultMaxIterations = 10

const defaultSystemPrompt = `You are a research assistant. Answer the user's question using the available tools.
Call internal_rag for questions about the indexed knowledge base and web_search for current or external information.
When you have enough evidence, reply with the final answer as plain text without calling further tools.`

// AgentTrace records what the loop did, for inclusion in the response.
type AgentTrace struct {
	ToolsInvoked []string `json:"toolsInvoked,omitempty"`
	Iterations   int      `json:"iterations"`
}

// Loop drives tool-calling conversations until the model produces a
// final answer or the iteration cap is reached.
type Loop struct {
	completer     llm.ChatCompleter
	tools         *ToolSet
	systemPrompt  string
	maxIterations int
}

// NewLoop builds the agent loop. maxIterations <= 0 selects the
// default cap; an empty systemPrompt selects the built-in one.
func NewLoop(completer llm.ChatCompleter, tools *ToolSet, systemPrompt string, maxIterations int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &Loop{completer: completer, tools: tools, systemPrompt: systemPrompt, maxIterations: maxIterations}
}

// Run executes the loop for one question. Hitting the iteration cap is
// not an error: the loop extracts the best answer from the turns
// accumulated so far.
func (l *Loop) Run(ctx context.Context, query string) (*schema.Result, *AgentTrace, error) {
	start := time.Now()
	turns := []llm.Turn{llm.UserTurn{Content: query}}
	trace := &AgentTrace{}
	specs := l.tools.Specs()

	for i := 0; i < l.maxIterations; i++ {
		trace.Iterations = i + 1

		reply, err := l.completer.Complete(ctx, l.systemPrompt, turns, specs)
		if err != nil {
			metrics.ObserveAgentIterations(trace.Iterations)
			return nil, trace, fmt.Errorf("agent completion failed at iteration %d: %w", trace.Iterations, err)
		}
		turns = append(turns, *reply)

		if len(reply.ToolCalls) == 0 {
			metrics.ObserveAgentIterations(trace.Iterations)
			result := extract(turns)
			result.Metrics.LatencyMs = time.Since(start).Milliseconds()
			return result, trace, nil
		}

		turns = append(turns, l.dispatch(ctx, reply.ToolCalls, trace)...)
	}

	logger.Warnf("agent: iteration cap %d reached, extracting accumulated state", l.maxIterations)
	metrics.ObserveAgentIterations(trace.Iterations)
	result := extract(turns)
	result.Metrics.LatencyMs = time.Since(start).Milliseconds()
	return result, trace, nil
}

// dispatch runs the requested tool calls concurrently and returns their
// ToolTurns in the original call order.
func (l *Loop) dispatch(ctx context.Context, calls []llm.ToolCall, trace *AgentTrace) []llm.Turn {
	results := make([]*schema.Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = l.tools.Execute(gctx, call)
			return nil
		})
	}
	// Execute never returns an error; Wait is only the barrier.
	_ = g.Wait()

	out := make([]llm.Turn, 0, len(calls))
	for i, call := range calls {
		trace.ToolsInvoked = append(trace.ToolsInvoked, call.Name)
		out = append(out, llm.ToolTurn{CallID: call.ID, Name: call.Name, Result: results[i]})
	}
	return out
}

// extract picks the answer from the turn log: the latest tool result
// that carries sources supplies answer, sources and metrics, otherwise
// the final assistant text with empty sources.
func extract(turns []llm.Turn) *schema.Result {
	var finalText string
	for i := len(turns) - 1; i >= 0; i-- {
		switch t := turns[i].(type) {
		case llm.AssistantTurn:
			if finalText == "" && t.Content != "" {
				finalText = t.Content
			}
		case llm.ToolTurn:
			if t.Result != nil && len(t.Result.Sources) > 0 {
				return &schema.Result{Answer: t.Result.Answer, Sources: t.Result.Sources, Metrics: t.Result.Metrics}
			}
		}
	}
	return &schema.Result{Answer: finalText}
}
