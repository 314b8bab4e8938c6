package cache

import "time"

const (
	// DefaultTTL applies to sentiment, TVL and NFT snapshots.
	DefaultTTL = 5 * time.Minute
	// DocumentsTTL applies to scraped documents such as news pages.
	DocumentsTTL      = 15 * time.Minute
	DefaultMaxEntries = 1000
)

// Option configures an in-process Cache.
type Option func(*Config)

// Config holds in-process cache configuration.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	Clock      func() time.Time
}

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.TTL = ttl
		}
	}
}

// WithMaxEntries bounds the number of stored entries.
func WithMaxEntries(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxEntries = n
		}
	}
}

// WithClock replaces the time source. Tests use it to step time.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Clock = now
		}
	}
}

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	Prefix       string
}

// WithRedisAddr sets Redis host and port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
		c.Port = port
	}
}

// WithRedisAuth sets password and database number.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		if prefix != "" {
			c.Prefix = prefix
		}
	}
}
