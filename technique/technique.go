package technique

import (
	"context"
	"sort"
	"strings"

	"github.com/raglab/raglab/embedding"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/retriever"
	"github.com/raglab/raglab/schema"
)

// Core technique names.
const (
	Baseline  = "baseline"
	Reranking = "reranking"
	Subquery  = "subquery"
	HyDE      = "hyde"
	Fusion    = "fusion"
)

// Technique executes one retrieval strategy end to end: retrieve,
// build context, generate.
type Technique interface {
	Name() string
	Execute(ctx context.Context, q schema.Query) (*schema.Result, error)
}

// Deps are the collaborators every technique shares.
type Deps struct {
	LLM       llm.Provider
	Retriever *retriever.VectorRetriever
	Embed     embedding.Provider
	// TopK is the default result count when the query names none.
	TopK int
	// FusionK is the RRF constant for the fusion technique.
	FusionK int
	// Variants is the paraphrase count for the fusion technique,
	// original query included.
	Variants int
}

func (d Deps) topK(q schema.Query) int {
	if q.TopK > 0 {
		return q.TopK
	}
	if d.TopK > 0 {
		return d.TopK
	}
	return 5
}

// Registry is the immutable technique lookup built once at startup.
type Registry struct {
	techniques  map[string]Technique
	defaultName string
}

// NewRegistry indexes techniques by name. defaultName is returned by
// Resolve for unknown ids; it must name one of the given techniques.
func NewRegistry(defaultName string, techniques ...Technique) *Registry {
	m := make(map[string]Technique, len(techniques))
	for _, t := range techniques {
		m[normalize(t.Name())] = t
	}
	defaultName = normalize(defaultName)
	if _, ok := m[defaultName]; !ok && len(techniques) > 0 {
		defaultName = normalize(techniques[0].Name())
	}
	return &Registry{techniques: m, defaultName: defaultName}
}

// Get looks up a technique by id.
func (r *Registry) Get(id string) (Technique, bool) {
	t, ok := r.techniques[normalize(id)]
	return t, ok
}

// Resolve returns the technique for id, falling back to the default
// when id is empty or unknown.
func (r *Registry) Resolve(id string) Technique {
	if t, ok := r.Get(id); ok {
		return t
	}
	return r.techniques[r.defaultName]
}

// DefaultName returns the configured fallback technique name.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Names lists registered technique names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.techniques))
	for name := range r.techniques {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewCoreTechniques builds the standard technique set over shared deps.
func NewCoreTechniques(deps Deps) []Technique {
	return []Technique{
		&BaselineTechnique{Deps: deps},
		&RerankingTechnique{Deps: deps},
		&SubqueryTechnique{Deps: deps},
		&HyDETechnique{Deps: deps},
		&FusionTechnique{Deps: deps},
	}
}
