package kafka

import (
	"time"

	"ChainPulse/pkg/logger"
)

type ProducerOption func(*ProducerConfig)

// ProducerConfig tunes the shared writer. Acks default to all replicas and
// the batch timeout is kept short since notifications are read by people.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression picks gzip, snappy, lz4 or zstd. Unknown names fall back
// to gzip.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		if codec != "" {
			c.Compression = codec
		}
	}
}

func WithWriteTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if d > 0 {
			c.WriteTimeout = d
		}
	}
}

type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig tunes the group readers and the worker pool behind them.
// A failed handler is retried RetryMax times with jittered backoff between
// BackoffMin and BackoffMax, then parked on DLQTopic when one is set.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	Logger      *logger.Logger
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(id string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if id != "" {
			c.GroupID = id
		}
	}
}

func WithConsumerWorkers(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.WorkerCount = n
			c.BufferSize = n * 10
		}
	}
}

func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax, c.BackoffMin, c.BackoffMax = max, backoffMin, backoffMax
	}
}

func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerLogger(l *logger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) { c.Logger = l }
}
