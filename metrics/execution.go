package metrics

import (
	"encoding/json"
	"time"

	"github.com/raglab/raglab/common/logger"
)

// ExecutionMetrics records the complete trace of a single Run call for
// structured logging.
type ExecutionMetrics struct {
	QueryID   string    `json:"query_id"`
	Query     string    `json:"query"`
	Mode      string    `json:"mode"`
	Namespace string    `json:"namespace,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Adaptive path
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Technique  string  `json:"technique,omitempty"`
	CacheHit   bool    `json:"cache_hit,omitempty"`

	// Agentic path
	Iterations   int      `json:"iterations,omitempty"`
	ToolsInvoked []string `json:"tools_invoked,omitempty"`

	RetrievedChunks  int   `json:"retrieved_chunks"`
	PromptTokens     int   `json:"prompt_tokens,omitempty"`
	CompletionTokens int   `json:"completion_tokens,omitempty"`
	TotalLatencyMs   int64 `json:"total_latency_ms"`

	Success  bool   `json:"success"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// NewExecutionMetrics creates a metrics record stamped with now.
func NewExecutionMetrics(queryID, query, mode string) *ExecutionMetrics {
	return &ExecutionMetrics{
		QueryID:   queryID,
		Query:     query,
		Mode:      mode,
		Timestamp: time.Now(),
	}
}

// Log emits the record as one structured JSON log line.
func (m *ExecutionMetrics) Log() {
	if data, err := json.Marshal(m); err == nil {
		logger.Infof("[RAG_METRICS] %s", string(data))
	}
}
