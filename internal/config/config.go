// Package config defines service configuration structures and loading hooks.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistence backend: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite file path or postgres connection string.
	StoreDSN string `koanf:"store_dsn"`

	// QueueSize bounds the alignment submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of snapshot workers.
	WorkerCount int `koanf:"worker_count"`

	// IdempotencySize bounds the in-memory request id cache.
	IdempotencySize int `koanf:"idempotency_size"`

	// IdempotencyBackend selects memory or redis for request ids.
	IdempotencyBackend string `koanf:"idempotency_backend"`

	// RedisAddr is used when IdempotencyBackend is redis.
	RedisAddr string `koanf:"redis_addr"`

	// FeedLimit caps the number of feed items.
	FeedLimit int `koanf:"feed_limit"`

	// ConnectionBonus and ConnectionBonusCap tune the predictability bonus.
	ConnectionBonus    int `koanf:"connection_bonus"`
	ConnectionBonusCap int `koanf:"connection_bonus_cap"`

	// RateLimitRPS and RateLimitBurst bound API requests per client; zero disables.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// Store drivers and idempotency backends.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		StoreDriver:        DriverSQLite,
		StoreDSN:           "fires.db",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		IdempotencySize:    100_000,
		IdempotencyBackend: BackendMemory,
		RedisAddr:          "localhost:6379",
		FeedLimit:          50,
		ConnectionBonus:    2,
		ConnectionBonusCap: 16,
		RateLimitRPS:       50,
		RateLimitBurst:     100,
	}
}
