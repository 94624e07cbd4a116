package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raglab/raglab/config"
)

const recordKeyPrefix = "raglab:exec:"

// RedisStore persists execution records in Redis.
// Data model:
//   - recordKeyPrefix+id        => JSON(ExecutionRecord) with TTL
//   - recordKeyPrefix+"idx"     => zset of ids scored by creation time
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis using the store configuration.
func NewRedisStore(cfg *config.StoreConfig) (*RedisStore, error) {
	opts, err := redisOptions(cfg.Redis)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

func redisOptions(raw map[string]interface{}) (*redis.Options, error) {
	addr, _ := raw["address"].(string)
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	opts := &redis.Options{Addr: addr}
	if username, ok := raw["username"].(string); ok {
		opts.Username = username
	}
	if password, ok := raw["password"].(string); ok {
		opts.Password = password
	}
	switch db := raw["db"].(type) {
	case int:
		opts.DB = db
	case float64:
		opts.DB = int(db)
	}
	return opts, nil
}

func (s *RedisStore) idxKey() string          { return recordKeyPrefix + "idx" }
func (s *RedisStore) recKey(id string) string { return recordKeyPrefix + id }

func (s *RedisStore) Record(ctx context.Context, rec *ExecutionRecord) (string, error) {
	ensureID(rec)
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal execution record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recKey(rec.ID), raw, s.ttl)
	pipe.ZAdd(ctx, s.idxKey(), redis.Z{Score: float64(rec.CreatedAt.Unix()), Member: rec.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("persist execution record: %w", err)
	}
	return rec.ID, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*ExecutionRecord, error) {
	raw, err := s.client.Get(ctx, s.recKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("execution %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch execution record: %w", err)
	}
	var rec ExecutionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode execution record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) ListRecent(ctx context.Context, limit int) ([]*ExecutionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := s.client.ZRevRange(ctx, s.idxKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list execution index: %w", err)
	}
	out := make([]*ExecutionRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			// expired record still indexed, skip it
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }
