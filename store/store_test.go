package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglab/raglab/config"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	id, err := s.Record(ctx, &ExecutionRecord{Query: "q", Mode: "adaptive", Answer: "a"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "q", rec.Query)
	assert.Equal(t, "adaptive", rec.Mode)
	assert.False(t, rec.CreatedAt.IsZero())

	_, err = s.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestMemoryStoreKeepsCallerRecordIsolated(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	rec := &ExecutionRecord{Query: "q", Answer: "a"}
	id, err := s.Record(ctx, rec)
	require.NoError(t, err)

	rec.Answer = "mutated"
	stored, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a", stored.Answer)
}

func TestMemoryStoreListRecent(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		_, err := s.Record(ctx, &ExecutionRecord{
			Query:     "q",
			Answer:    string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Answer)
	assert.Equal(t, "b", recent[1].Answer)

	none, err := s.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	base := time.Now()

	ids := make([]string, 3)
	for i := 0; i < 3; i++ {
		id, err := s.Record(ctx, &ExecutionRecord{
			Query:     "q",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		ids[i] = id
	}

	_, err := s.Get(ctx, ids[0])
	assert.Error(t, err)
	_, err = s.Get(ctx, ids[2])
	assert.NoError(t, err)
}

func TestNewStoreProviderSelection(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(&config.StoreConfig{Provider: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(&config.StoreConfig{Provider: "postgres"})
	assert.Error(t, err)

	_, err = NewStore(&config.StoreConfig{Provider: "redis"})
	assert.Error(t, err, "redis without an address must fail")
}

func TestRedisOptionsParsing(t *testing.T) {
	opts, err := redisOptions(map[string]interface{}{
		"address":  "localhost:6379",
		"username": "app",
		"password": "secret",
		"db":       float64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "app", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = redisOptions(map[string]interface{}{})
	assert.Error(t, err)
}
