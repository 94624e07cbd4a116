package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	techniqueLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rag_technique_latency_ms",
		Help:    "Latency of technique executions in milliseconds",
		Buckets: []float64{25, 50, 100, 200, 400, 800, 1500, 3000, 6000, 12000},
	}, []string{"technique"})

	techniqueErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_technique_errors_total",
		Help: "Technique execution failures",
	}, []string{"technique"})

	retrieverLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rag_retriever_latency_ms",
		Help:    "Latency of retriever calls in milliseconds",
		Buckets: []float64{10, 25, 50, 75, 100, 150, 200, 300, 500, 800, 1200},
	}, []string{"type"})

	retrieverResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rag_retriever_results",
		Help:    "Number of results returned by a retriever",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, []string{"type"})

	fusionLists = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rag_fusion_input_lists",
		Help:    "Number of lists fused per query",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 12},
	})

	classifierOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_classifier_outcome_total",
		Help: "Classifier outcomes per category (degraded label for fallbacks)",
	}, []string{"category", "degraded"})

	agentIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rag_agent_iterations",
		Help:    "Reasoning iterations per agent run",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
	})

	agentToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_agent_tool_calls_total",
		Help: "Tool invocations by tool name and outcome",
	}, []string{"tool", "outcome"})

	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_answer_cache_total",
		Help: "Answer cache lookups by outcome (hit/miss)",
	}, []string{"outcome"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(
			techniqueLatency, techniqueErrors,
			retrieverLatency, retrieverResults, fusionLists,
			classifierOutcome, agentIterations, agentToolCalls, cacheHits,
		)
	})
}

// ObserveTechnique records latency for one technique execution.
func ObserveTechnique(technique string, start time.Time) {
	ensureRegistered()
	techniqueLatency.WithLabelValues(technique).Observe(float64(time.Since(start).Milliseconds()))
}

// IncTechniqueError counts a failed technique execution.
func IncTechniqueError(technique string) {
	ensureRegistered()
	techniqueErrors.WithLabelValues(technique).Inc()
}

// ObserveRetriever records latency and result size for a retriever type.
func ObserveRetriever(typ string, start time.Time, results int) {
	ensureRegistered()
	dur := time.Since(start).Milliseconds()
	retrieverLatency.WithLabelValues(typ).Observe(float64(dur))
	retrieverResults.WithLabelValues(typ).Observe(float64(results))
}

// ObserveFusion records how many lists were fused.
func ObserveFusion(n int) {
	ensureRegistered()
	fusionLists.Observe(float64(n))
}

// IncClassifier records a classification outcome.
func IncClassifier(category string, degraded bool) {
	ensureRegistered()
	d := "false"
	if degraded {
		d = "true"
	}
	classifierOutcome.WithLabelValues(category, d).Inc()
}

// ObserveAgentIterations records how many reasoning rounds a run took.
func ObserveAgentIterations(n int) {
	ensureRegistered()
	agentIterations.Observe(float64(n))
}

// IncToolCall records a tool invocation outcome ("ok" or "error").
func IncToolCall(tool, outcome string) {
	ensureRegistered()
	agentToolCalls.WithLabelValues(tool, outcome).Inc()
}

// IncCache records an answer cache lookup outcome ("hit" or "miss").
func IncCache(outcome string) {
	ensureRegistered()
	cacheHits.WithLabelValues(outcome).Inc()
}

// Collectors exposes all collectors for external registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		techniqueLatency, techniqueErrors,
		retrieverLatency, retrieverResults, fusionLists,
		classifierOutcome, agentIterations, agentToolCalls, cacheHits,
	}
}
