package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer publishes trade events, notifications and the error digest. One
// writer serves every topic; the topic travels on each message.
type Producer struct {
	writer      *kafka.Writer
	compression string
}

var codecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka producer: no brokers configured")
	}
	codec, ok := codecs[cfg.Compression]
	if !ok {
		cfg.Compression, codec = "gzip", kafka.Gzip
	}

	producerMetricsOnce.Do(registerProducerMetrics)
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  codec,
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			BatchTimeout: cfg.BatchTimeout,
		},
		compression: cfg.Compression,
	}, nil
}

// Publish writes value to topic under key. Bytes and strings go out as-is,
// anything else as JSON.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	var payload []byte
	switch v := value.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", topic, err)
		}
		payload = b
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: payload, Time: start})
	producerMetrics.observe(topic, p.compression, len(payload), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishMessage publishes without a key. It satisfies logger.Publisher.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

type publishMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	producerMetrics     *publishMetrics
	producerMetricsOnce sync.Once
)

func registerProducerMetrics() {
	producerMetrics = &publishMetrics{
		messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chainpulse_kafka_producer_messages_total",
			Help: "Messages published to Kafka by result",
		}, []string{"topic", "result"}),
		bytes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chainpulse_kafka_producer_bytes_total",
			Help: "Payload bytes published to Kafka",
		}, []string{"topic", "compression"}),
		latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainpulse_kafka_producer_publish_seconds",
			Help:    "Time spent in a single publish",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
}

func (m *publishMetrics) observe(topic, compression string, size int, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, result).Inc()
	m.bytes.WithLabelValues(topic, compression).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(took.Seconds())
}
