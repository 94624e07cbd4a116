package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglab/raglab/config"
	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/technique"
)

type scriptedLLM struct {
	replies []string
	calls   int
	err     error
}

func (s *scriptedLLM) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.replies) {
		return "", errors.New("no scripted reply left")
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

func (s *scriptedLLM) GetProviderType() string { return "scripted" }

type fakeTechnique struct {
	name     string
	executed int
	err      error
}

func (f *fakeTechnique) Name() string { return f.name }

func (f *fakeTechnique) Execute(ctx context.Context, q schema.Query) (*schema.Result, error) {
	f.executed++
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Result{Answer: "answer from " + f.name}, nil
}

func testRegistry(techs ...*fakeTechnique) *technique.Registry {
	all := make([]technique.Technique, len(techs))
	for i, t := range techs {
		all[i] = t
	}
	return technique.NewRegistry(technique.Baseline, all...)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
		ok    bool
	}{
		{"exact", "complex", CategoryComplex, true},
		{"capitalized with period", "Complex.", CategoryComplex, true},
		{"first token wins", "precision, because the question is exact", CategoryPrecision, true},
		{"quoted", `"abstract"`, CategoryAbstract, true},
		{"substring", "simpler", CategorySimple, true},
		{"short token is not a category fragment", "I cannot decide", "", false},
		{"unknown", "philosophical", "", false},
		{"empty", "", "", false},
		{"punctuation only", "---", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCategory(tt.reply)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifierParsedReply(t *testing.T) {
	c := NewLLMClassifier(&scriptedLLM{replies: []string{"Abstract"}}, CategorySimple)
	cls := c.Classify(context.Background(), "what is the meaning of observability")
	assert.Equal(t, CategoryAbstract, cls.Category)
	assert.Equal(t, 0.9, cls.Confidence)
	assert.False(t, cls.Degraded)
}

func TestClassifierDegradesOnError(t *testing.T) {
	c := NewLLMClassifier(&scriptedLLM{err: errors.New("upstream down")}, CategoryComplex)
	cls := c.Classify(context.Background(), "anything")
	assert.Equal(t, CategoryComplex, cls.Category)
	assert.Equal(t, 0.5, cls.Confidence)
	assert.True(t, cls.Degraded)
}

func TestClassifierDegradesOnUnparseableReply(t *testing.T) {
	c := NewLLMClassifier(&scriptedLLM{replies: []string{"I cannot decide"}}, CategorySimple)
	cls := c.Classify(context.Background(), "anything")
	assert.Equal(t, CategorySimple, cls.Category)
	assert.Equal(t, 0.5, cls.Confidence)
	assert.True(t, cls.Degraded)
}

func TestClassifierRejectsBogusDefault(t *testing.T) {
	c := NewLLMClassifier(&scriptedLLM{err: errors.New("down")}, "nonsense")
	cls := c.Classify(context.Background(), "anything")
	assert.Equal(t, CategorySimple, cls.Category)
}

func TestRoutingTableDefaults(t *testing.T) {
	table := NewRoutingTable(config.RouterConfig{})
	assert.Equal(t, technique.Baseline, table.Select(CategorySimple))
	assert.Equal(t, technique.Subquery, table.Select(CategoryComplex))
	assert.Equal(t, technique.HyDE, table.Select(CategoryAbstract))
	assert.Equal(t, technique.Reranking, table.Select(CategoryPrecision))
	assert.Equal(t, technique.Baseline, table.Select("unknown"))
}

func TestRoutingTableOverride(t *testing.T) {
	table := NewRoutingTable(config.RouterConfig{
		Table:            map[string]string{"complex": technique.Fusion, "bogus": technique.HyDE},
		DefaultTechnique: technique.Reranking,
	})
	assert.Equal(t, technique.Fusion, table.Select(CategoryComplex))
	assert.Equal(t, technique.Baseline, table.Select(CategorySimple))
	assert.Equal(t, technique.Reranking, table.Select("bogus"))
}

func TestRouteComparativeQuery(t *testing.T) {
	baseline := &fakeTechnique{name: technique.Baseline}
	subquery := &fakeTechnique{name: technique.Subquery}
	r := NewAdaptiveRouter(
		NewLLMClassifier(&scriptedLLM{replies: []string{"complex"}}, CategorySimple),
		NewRoutingTable(config.RouterConfig{}),
		testRegistry(baseline, subquery),
	)

	result, trace, err := r.Route(context.Background(), schema.Query{Text: "Compare Python and JavaScript"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "answer from subquery", result.Answer)
	assert.Equal(t, 1, subquery.executed)
	assert.Equal(t, 0, baseline.executed)

	require.NotNil(t, trace)
	assert.Equal(t, CategoryComplex, trace.Category)
	assert.Equal(t, 0.9, trace.Confidence)
	assert.Equal(t, technique.Subquery, trace.SelectedTechnique)
	assert.Equal(t, routingReasons[CategoryComplex], trace.Reason)
}

func TestRouteDegradedClassificationUsesDefault(t *testing.T) {
	baseline := &fakeTechnique{name: technique.Baseline}
	r := NewAdaptiveRouter(
		NewLLMClassifier(&scriptedLLM{err: errors.New("down")}, CategorySimple),
		NewRoutingTable(config.RouterConfig{}),
		testRegistry(baseline),
	)

	result, trace, err := r.Route(context.Background(), schema.Query{Text: "who wrote the raft paper"})
	require.NoError(t, err)
	assert.Equal(t, 1, baseline.executed)
	assert.Equal(t, "answer from baseline", result.Answer)
	assert.Equal(t, 0.5, trace.Confidence)
	assert.Contains(t, trace.Reason, "classification unavailable")
}

func TestRouteWrapsExecutionError(t *testing.T) {
	boom := errors.New("vector store unreachable")
	baseline := &fakeTechnique{name: technique.Baseline, err: boom}
	r := NewAdaptiveRouter(
		NewLLMClassifier(&scriptedLLM{replies: []string{"simple"}}, CategorySimple),
		NewRoutingTable(config.RouterConfig{}),
		testRegistry(baseline),
	)

	result, trace, err := r.Route(context.Background(), schema.Query{Text: "when was Go released"})
	require.Error(t, err)
	assert.Nil(t, result)
	require.NotNil(t, trace)

	var execErr *TechniqueExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, technique.Baseline, execErr.TechniqueID)
	assert.ErrorIs(t, err, boom)
}

func TestRouteUnknownTechniqueFallsBackToRegistryDefault(t *testing.T) {
	baseline := &fakeTechnique{name: technique.Baseline}
	r := NewAdaptiveRouter(
		NewLLMClassifier(&scriptedLLM{replies: []string{"complex"}}, CategorySimple),
		NewRoutingTable(config.RouterConfig{}),
		testRegistry(baseline),
	)

	result, trace, err := r.Route(context.Background(), schema.Query{Text: "Compare A and B"})
	require.NoError(t, err)
	assert.Equal(t, "answer from baseline", result.Answer)
	assert.Equal(t, technique.Baseline, trace.SelectedTechnique)
}
