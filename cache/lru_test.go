package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglab/raglab/schema"
)

func TestAnswerCacheHitAndCopy(t *testing.T) {
	c := NewAnswerCache(4, time.Minute)
	key := Key("What is RRF?", "baseline", "default")

	c.Set(key, &schema.Result{Answer: "fused ranking", Sources: []schema.SourceRef{{ID: "a"}}}, 0)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "fused ranking", got.Answer)

	// Mutating the returned copy must not touch the cached value.
	got.Sources[0].ID = "mutated"
	again, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "a", again.Sources[0].ID)
}

func TestKeyNormalizesQuery(t *testing.T) {
	assert.Equal(t, Key("What is  RRF?", "baseline", "ns"), Key("what is rrf?", "baseline", "ns"))
	assert.NotEqual(t, Key("what is rrf?", "baseline", "ns"), Key("what is rrf?", "hyde", "ns"))
}

func TestAnswerCacheExpiry(t *testing.T) {
	c := NewAnswerCache(4, time.Minute)
	key := Key("q", "baseline", "")
	c.Set(key, &schema.Result{Answer: "x"}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestAnswerCacheEviction(t *testing.T) {
	c := NewAnswerCache(2, time.Minute)
	c.Set("k1", &schema.Result{Answer: "1"}, 0)
	c.Set("k2", &schema.Result{Answer: "2"}, 0)
	// Touch k1 so k2 is the LRU entry.
	_, _ = c.Get("k1")
	c.Set("k3", &schema.Result{Answer: "3"}, 0)

	_, ok := c.Get("k2")
	assert.False(t, ok)
	_, ok = c.Get("k1")
	assert.True(t, ok)
	_, ok = c.Get("k3")
	assert.True(t, ok)
}
