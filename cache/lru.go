package cache

import (
	"container/list"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/raglab/raglab/schema"
)

// AnswerCache is the L1 cache for adaptive-path answers: an LRU with
// per-entry TTL keyed by normalized query + technique + namespace.
type AnswerCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry
	order    *list.List
}

type entry struct {
	key     string
	value   *schema.Result
	expires time.Time
	element *list.Element
}

// NewAnswerCache creates an answer cache with capacity and default TTL.
func NewAnswerCache(capacity int, ttl time.Duration) *AnswerCache {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AnswerCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		order:    list.New(),
	}
}

// Key builds the cache key from the request coordinates. The query is
// lowercased and whitespace-collapsed so trivial rephrasings hit.
func Key(query, technique, namespace string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha1.Sum([]byte(norm + "|" + technique + "|" + namespace))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached result, if present and fresh.
func (c *AnswerCache) Get(key string) (*schema.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		if ent.expires.IsZero() || time.Now().Before(ent.expires) {
			c.order.MoveToFront(ent.element)
			return cloneResult(ent.value), true
		}
		c.removeEntry(ent)
	}
	return nil, false
}

// Set stores a result copy under key. ttl <= 0 uses the default TTL.
func (c *AnswerCache) Set(key string, value *schema.Result, ttl time.Duration) {
	if value == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := cloneResult(value)
	if ent, ok := c.items[key]; ok {
		ent.value = stored
		ent.expires = c.computeExpiry(ttl)
		c.order.MoveToFront(ent.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(key)
	c.items[key] = &entry{
		key:     key,
		value:   stored,
		expires: c.computeExpiry(ttl),
		element: elem,
	}
}

// Purge drops every entry.
func (c *AnswerCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.order.Init()
}

func (c *AnswerCache) computeExpiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *AnswerCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(string)
	if ent, ok := c.items[key]; ok {
		c.removeEntry(ent)
	}
}

func (c *AnswerCache) removeEntry(ent *entry) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}

// cloneResult copies a result so callers cannot mutate cached state.
func cloneResult(r *schema.Result) *schema.Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Sources = append([]schema.SourceRef(nil), r.Sources...)
	return &out
}
