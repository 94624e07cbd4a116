package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raglab/raglab/config"
	"github.com/raglab/raglab/schema"
)

// ExecutionRecord is one persisted question-answering run.
type ExecutionRecord struct {
	ID         string             `json:"id"`
	Query      string             `json:"query"`
	Mode       string             `json:"mode"`
	Technique  string             `json:"technique,omitempty"`
	Category   string             `json:"category,omitempty"`
	Namespace  string             `json:"namespace,omitempty"`
	Answer     string             `json:"answer"`
	Sources    []schema.SourceRef `json:"sources,omitempty"`
	Metrics    schema.Metrics     `json:"metrics"`
	PartialDue string             `json:"partial_due,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ExecutionStore persists execution records. Callers treat persistence
// as best-effort: failures are logged, never surfaced to the user.
type ExecutionStore interface {
	// Record stores the record and returns its id, assigning one when
	// the record carries none.
	Record(ctx context.Context, rec *ExecutionRecord) (string, error)
	// Get retrieves a record by id.
	Get(ctx context.Context, id string) (*ExecutionRecord, error)
	// ListRecent returns up to limit records ordered by recency.
	ListRecent(ctx context.Context, limit int) ([]*ExecutionRecord, error)
}

// NewStore builds an ExecutionStore from configuration. A nil config
// selects the memory store.
func NewStore(cfg *config.StoreConfig) (ExecutionStore, error) {
	if cfg == nil {
		return NewMemoryStore(0), nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "memory", "inmemory":
		return NewMemoryStore(0), nil
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported store provider: %s", cfg.Provider)
	}
}

func ensureID(rec *ExecutionRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
}
