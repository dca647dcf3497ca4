package dedupe

import (
	"time"

	"github.com/okian/fires/pkg/logger"
)

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of IDs to keep in memory.
// If maxSize > 0 the oldest id is evicted first once full.
// If maxSize <= 0 the deduper is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// RedisOption configures a RedisDeduper.
type RedisOption func(*RedisDeduper)

// WithKeyPrefix namespaces the keys written to redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(d *RedisDeduper) {
		d.prefix = prefix
	}
}

// WithTTL bounds how long a recorded id is remembered.
func WithTTL(ttl time.Duration) RedisOption {
	return func(d *RedisDeduper) {
		d.ttl = ttl
	}
}

// WithFallback sets the deduper consulted when redis is unreachable.
func WithFallback(f Deduper) RedisOption {
	return func(d *RedisDeduper) {
		d.fallback = f
	}
}

// WithRedisLogger sets the logger used to report redis failures.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(d *RedisDeduper) {
		if l != nil {
			d.logger = l
		}
	}
}
