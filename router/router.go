package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/config"
	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/technique"
)

// RoutingTrace records how a query was routed, for inclusion in the
// response so callers can inspect the decision.
type RoutingTrace struct {
	Category          string  `json:"category"`
	Confidence        float64 `json:"confidence"`
	SelectedTechnique string  `json:"selectedTechnique"`
	Reason            string  `json:"reason"`
}

// TechniqueExecutionError wraps a failure inside a selected technique.
// It is the only error Route returns: classification and selection
// always degrade instead of failing.
type TechniqueExecutionError struct {
	TechniqueID string
	Err         error
}

func (e *TechniqueExecutionError) Error() string {
	return fmt.Sprintf("technique %s failed: %v", e.TechniqueID, e.Err)
}

func (e *TechniqueExecutionError) Unwrap() error { return e.Err }

var routingReasons = map[string]string{
	CategorySimple:    "direct factual question, single-pass retrieval suffices",
	CategoryComplex:   "multi-part question, decomposed into focused sub-queries",
	CategoryAbstract:  "conceptual question, retrieval anchored on a hypothetical answer",
	CategoryPrecision: "precision-sensitive question, candidates reranked before answering",
}

// RoutingTable maps query categories to technique names. Unknown
// categories fall through to the default technique.
type RoutingTable struct {
	entries          map[string]string
	defaultTechnique string
}

// NewRoutingTable builds the table from built-in defaults overlaid
// with any overrides from configuration.
func NewRoutingTable(cfg config.RouterConfig) *RoutingTable {
	entries := map[string]string{
		CategorySimple:    technique.Baseline,
		CategoryComplex:   technique.Subquery,
		CategoryAbstract:  technique.HyDE,
		CategoryPrecision: technique.Reranking,
	}
	for cat, tech := range cfg.Table {
		cat = strings.ToLower(strings.TrimSpace(cat))
		if isValidCategory(cat) && tech != "" {
			entries[cat] = tech
		}
	}
	def := cfg.DefaultTechnique
	if def == "" {
		def = technique.Baseline
	}
	return &RoutingTable{entries: entries, defaultTechnique: def}
}

// Select returns the technique name for a category.
func (t *RoutingTable) Select(category string) string {
	if tech, ok := t.entries[category]; ok {
		return tech
	}
	return t.defaultTechnique
}

// DefaultTechnique returns the fallback technique name.
func (t *RoutingTable) DefaultTechnique() string { return t.defaultTechnique }

// AdaptiveRouter classifies a query, selects a technique from the
// table, executes it, and reports the decision in a trace.
type AdaptiveRouter struct {
	classifier Classifier
	table      *RoutingTable
	registry   *technique.Registry
}

// NewAdaptiveRouter wires the router from its parts.
func NewAdaptiveRouter(classifier Classifier, table *RoutingTable, registry *technique.Registry) *AdaptiveRouter {
	return &AdaptiveRouter{classifier: classifier, table: table, registry: registry}
}

// Route runs the adaptive pipeline. The trace is non-nil whenever the
// pipeline reached execution, including on execution failure.
func (r *AdaptiveRouter) Route(ctx context.Context, q schema.Query) (*schema.Result, *RoutingTrace, error) {
	cls := r.classifier.Classify(ctx, q.Text)

	name := r.table.Select(cls.Category)
	tech := r.registry.Resolve(name)

	trace := &RoutingTrace{
		Category:          cls.Category,
		Confidence:        cls.Confidence,
		SelectedTechnique: tech.Name(),
		Reason:            routingReason(cls),
	}

	logger.Infof("router: category=%s confidence=%.2f technique=%s", cls.Category, cls.Confidence, tech.Name())

	result, err := tech.Execute(ctx, q)
	if err != nil {
		return nil, trace, &TechniqueExecutionError{TechniqueID: tech.Name(), Err: err}
	}

	return result, trace, nil
}

func routingReason(cls Classification) string {
	reason, ok := routingReasons[cls.Category]
	if !ok {
		reason = "no category-specific rule, default technique applied"
	}
	if cls.Degraded {
		return "classification unavailable, assumed " + cls.Category + ": " + reason
	}
	return reason
}
