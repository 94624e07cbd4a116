package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/raglab/raglab/config"
)

// openaiProvider implements Provider and ChatCompleter on top of any
// OpenAI-compatible endpoint.
type openaiProvider struct {
	client openai.Client
	cfg    config.LLMConfig
}

func newOpenAIProvider(cfg config.LLMConfig) (*openaiProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (p *openaiProvider) GetProviderType() string {
	return "openai"
}

// GenerateCompletion performs a single-prompt completion round trip.
func (p *openaiProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = openai.Float(p.cfg.Temperature)
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.MaxTokens))
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete runs one tool-calling completion round over the turn log.
func (p *openaiProvider) Complete(ctx context.Context, systemPrompt string, turns []Turn, tools []ToolSpec) (*AssistantTurn, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		switch turn := t.(type) {
		case UserTurn:
			msgs = append(msgs, openai.UserMessage(turn.Content))
		case AssistantTurn:
			msgs = append(msgs, assistantMessage(turn))
		case ToolTurn:
			msgs = append(msgs, openai.ToolMessage(toolContent(turn.Result), turn.CallID))
		default:
			return nil, fmt.Errorf("unknown turn type %T", t)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.cfg.Model),
		Messages: msgs,
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = openai.Float(p.cfg.Temperature)
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.MaxTokens))
	}
	for _, spec := range tools {
		var schemaMap map[string]interface{}
		if len(spec.Schema) > 0 {
			if err := json.Unmarshal(spec.Schema, &schemaMap); err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", spec.Name, err)
			}
		}
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
			Parameters:  shared.FunctionParameters(schemaMap),
		}))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	msg := resp.Choices[0].Message
	out := &AssistantTurn{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// assistantMessage converts an AssistantTurn back into the SDK's
// message shape, tool call requests included.
func assistantMessage(turn AssistantTurn) openai.ChatCompletionMessageParamUnion {
	asst := openai.ChatCompletionAssistantMessageParam{}
	if turn.Content != "" {
		asst.Content.OfString = openai.String(turn.Content)
	}
	for _, tc := range turn.ToolCalls {
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}
