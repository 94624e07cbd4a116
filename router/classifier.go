package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
)

// Query categories. The set is closed: classification output is always
// one of these.
const (
	CategorySimple    = "simple"
	CategoryComplex   = "complex"
	CategoryAbstract  = "abstract"
	CategoryPrecision = "precision"
)

// ValidCategories lists every recognized query category.
var ValidCategories = []string{CategorySimple, CategoryComplex, CategoryAbstract, CategoryPrecision}

// Classification is the classifier verdict. Confidence is 0.9 for a
// parsed category and 0.5 for the degraded fallback.
type Classification struct {
	Category   string
	Confidence float64
	// Degraded is true when classification failed and the default
	// category was substituted.
	Degraded bool
}

// Classifier assigns a query to one category. Implementations never
// return an error; failures degrade to the default category.
type Classifier interface {
	Classify(ctx context.Context, query string) Classification
}

const classifyPromptFmt = `Classify the following question into exactly one of these categories:
- simple: a direct factual question answerable from a single passage
- complex: a multi-part or comparative question that needs decomposition
- abstract: a broad or conceptual question without a single factual answer
- precision: a question that demands an exact, carefully verified answer

Reply with the category name only.

Question: %s`

// LLMClassifier classifies with one completion round trip.
type LLMClassifier struct {
	provider        llm.Provider
	defaultCategory string
}

// NewLLMClassifier builds the classifier. defaultCategory is used when
// the model call fails or its reply matches no category.
func NewLLMClassifier(provider llm.Provider, defaultCategory string) *LLMClassifier {
	if !isValidCategory(defaultCategory) {
		defaultCategory = CategorySimple
	}
	return &LLMClassifier{provider: provider, defaultCategory: defaultCategory}
}

func (c *LLMClassifier) Classify(ctx context.Context, query string) Classification {
	reply, err := c.provider.GenerateCompletion(ctx, fmt.Sprintf(classifyPromptFmt, query))
	if err != nil {
		logger.Warnf("classifier: completion failed, using default category %s: %v", c.defaultCategory, err)
		metrics.IncClassifier(c.defaultCategory, true)
		return Classification{Category: c.defaultCategory, Confidence: 0.5, Degraded: true}
	}

	if cat, ok := parseCategory(reply); ok {
		metrics.IncClassifier(cat, false)
		return Classification{Category: cat, Confidence: 0.9}
	}

	logger.Warnf("classifier: unparseable reply %q, using default category %s", reply, c.defaultCategory)
	metrics.IncClassifier(c.defaultCategory, true)
	return Classification{Category: c.defaultCategory, Confidence: 0.5, Degraded: true}
}

// parseCategory extracts a category from a model reply: take the first
// token, strip everything but letters, then exact match and finally
// substring match against the valid categories.
func parseCategory(reply string) (string, bool) {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return "", false
	}
	token := strings.ToLower(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, fields[0]))
	if token == "" {
		return "", false
	}

	for _, cat := range ValidCategories {
		if token == cat {
			return cat, true
		}
	}
	for _, cat := range ValidCategories {
		if strings.Contains(token, cat) {
			return cat, true
		}
	}
	return "", false
}

func isValidCategory(cat string) bool {
	for _, c := range ValidCategories {
		if c == cat {
			return true
		}
	}
	return false
}
