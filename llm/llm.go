package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/raglab/raglab/config"
)

// Provider generates plain text completions. It is the narrow contract
// the techniques and the classifier depend on.
type Provider interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
	GetProviderType() string
}

// NewProvider creates an LLM provider from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai", "mock":
		// "mock" points the OpenAI client at a local stand-in server.
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// BuildPrompt assembles a grounded question-answering prompt from
// retrieved contexts.
func BuildPrompt(query string, contexts []string, sep string) string {
	var b strings.Builder
	b.WriteString("Answer the question based on the provided context.\n\n")
	if len(contexts) > 0 {
		b.WriteString("Context:\n")
		b.WriteString(strings.Join(contexts, sep))
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}
