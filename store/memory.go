package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

const defaultMaxRecords = 1000

// MemoryStore keeps execution records in process memory, bounded to
// the most recent maxRecords.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]*ExecutionRecord
	maxRecords int
}

// NewMemoryStore creates a bounded in-memory store. maxRecords <= 0
// selects the default bound.
func NewMemoryStore(maxRecords int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}
	return &MemoryStore{records: make(map[string]*ExecutionRecord), maxRecords: maxRecords}
}

func (m *MemoryStore) Record(ctx context.Context, rec *ExecutionRecord) (string, error) {
	ensureID(rec)
	cp := *rec

	m.mu.Lock()
	m.records[cp.ID] = &cp
	if len(m.records) > m.maxRecords {
		m.evictOldestLocked()
	}
	m.mu.Unlock()
	return cp.ID, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*ExecutionRecord, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("execution %s not found", id)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*ExecutionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	out := make([]*ExecutionRecord, 0, len(m.records))
	for _, rec := range m.records {
		cp := *rec
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) evictOldestLocked() {
	var oldestID string
	for id, rec := range m.records {
		if oldestID == "" || rec.CreatedAt.Before(m.records[oldestID].CreatedAt) {
			oldestID = id
		}
	}
	if oldestID != "" {
		delete(m.records, oldestID)
	}
}
