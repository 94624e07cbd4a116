package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/technique"
	"github.com/raglab/raglab/websearch"
)

// Tool is one callable capability exposed to the agent loop. Invoke
// receives raw JSON arguments as produced by the model.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Invoke      func(ctx context.Context, args string) (*schema.Result, error)
}

// ToolSet is the immutable tool table built once at startup.
type ToolSet struct {
	tools map[string]Tool
}

const webSearchResults = 5

// NewToolSet exposes internal retrieval and web search to the agent.
// searcher may be nil; web_search is then omitted.
func NewToolSet(registry *technique.Registry, searcher websearch.Searcher) *ToolSet {
	ts := &ToolSet{tools: make(map[string]Tool)}

	ts.add(Tool{
		Name:        "internal_rag",
		Description: "Search the internal knowledge base and answer from retrieved passages. Use for questions about indexed documents.",
		Schema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The question to answer from the knowledge base"},
    "technique": {"type": "string", "description": "Optional retrieval technique name"}
  },
  "required": ["query"]
}`),
		Invoke: func(ctx context.Context, args string) (*schema.Result, error) {
			var in struct {
				Query     string `json:"query"`
				Technique string `json:"technique"`
			}
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return nil, fmt.Errorf("invalid internal_rag arguments: %w", err)
			}
			if in.Query == "" {
				return nil, fmt.Errorf("internal_rag requires a query")
			}
			return registry.Resolve(in.Technique).Execute(ctx, schema.Query{Text: in.Query})
		},
	})

	if searcher != nil {
		ts.add(Tool{
			Name:        "web_search",
			Description: "Search the public web for current or external information not in the knowledge base.",
			Schema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The web search query"}
  },
  "required": ["query"]
}`),
			Invoke: func(ctx context.Context, args string) (*schema.Result, error) {
				var in struct {
					Query string `json:"query"`
				}
				if err := json.Unmarshal([]byte(args), &in); err != nil {
					return nil, fmt.Errorf("invalid web_search arguments: %w", err)
				}
				if in.Query == "" {
					return nil, fmt.Errorf("web_search requires a query")
				}
				results, err := searcher.Search(ctx, in.Query, webSearchResults)
				if err != nil {
					return nil, err
				}
				return webResult(results), nil
			},
		})
	}

	return ts
}

func (ts *ToolSet) add(t Tool) { ts.tools[t.Name] = t }

// Get looks up a tool by name.
func (ts *ToolSet) Get(name string) (Tool, bool) {
	t, ok := ts.tools[name]
	return t, ok
}

// Specs returns the tool descriptions handed to the model, sorted by
// name for a stable request shape.
func (ts *ToolSet) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(ts.tools))
	for _, t := range ts.tools {
		specs = append(specs, llm.ToolSpec{Name: t.Name, Description: t.Description, Schema: t.Schema})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Execute runs one tool call. Failures never propagate: an unknown
// tool or a failed invocation becomes a result describing the error so
// the model can recover.
func (ts *ToolSet) Execute(ctx context.Context, call llm.ToolCall) *schema.Result {
	tool, ok := ts.Get(call.Name)
	if !ok {
		metrics.IncToolCall(call.Name, "unknown")
		return errorResult(fmt.Sprintf("unknown tool %q", call.Name))
	}
	res, err := tool.Invoke(ctx, call.Arguments)
	if err != nil {
		logger.Warnf("agent: tool %s failed: %v", call.Name, err)
		metrics.IncToolCall(call.Name, "error")
		return errorResult(fmt.Sprintf("tool %s failed: %v", call.Name, err))
	}
	metrics.IncToolCall(call.Name, "ok")
	if res == nil {
		res = &schema.Result{}
	}
	return res
}

func errorResult(msg string) *schema.Result {
	return &schema.Result{Answer: msg}
}

func webResult(results []schema.SearchResult) *schema.Result {
	res := &schema.Result{Sources: schema.SourcesFromResults(results, schema.OriginWebSearch)}
	res.Metrics.RetrievedChunks = len(results)
	if len(results) == 0 {
		res.Answer = "no web results found"
		return res
	}
	var b []byte
	for i, r := range results {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, r.Document.Content...)
	}
	res.Answer = string(b)
	return res
}
