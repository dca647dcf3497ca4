package dedupe

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/fires/pkg/logger"
)

const (
	defaultKeyPrefix = "fires:idem:"
	defaultTTL       = 24 * time.Hour
)

// KeyValue is the subset of a redis client the deduper needs.
// *redis.Client satisfies it.
type KeyValue interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDeduper shares seen ids between service replicas. When redis is
// unavailable it degrades to the fallback deduper instead of failing writes.
type RedisDeduper struct {
	client   KeyValue
	prefix   string
	ttl      time.Duration
	fallback Deduper
	logger   logger.Logger
	recorded atomic.Int64
}

// NewRedisDeduper creates a deduper backed by client.
func NewRedisDeduper(client KeyValue, opts ...RedisOption) *RedisDeduper {
	d := &RedisDeduper{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    defaultTTL,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fallback == nil {
		d.fallback = NewInMemoryDeduper()
	}
	return d
}

func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	ok, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn(ctx, "redis dedupe unavailable, using local fallback",
			logger.String("id", id), logger.Error(err))
		return d.fallback.SeenAndRecord(ctx, id)
	}
	if ok {
		d.recorded.Add(1)
	}
	return !ok
}

func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.client.Del(ctx, d.prefix+id).Result()
	if err != nil {
		d.logger.Warn(ctx, "redis dedupe unrecord failed",
			logger.String("id", id), logger.Error(err))
		d.fallback.Unrecord(ctx, id)
		return
	}
	if n > 0 {
		d.recorded.Add(-1)
	}
}

// Size reports ids recorded through this instance plus fallback entries.
func (d *RedisDeduper) Size() int64 {
	return d.recorded.Load() + d.fallback.Size()
}
