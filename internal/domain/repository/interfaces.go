package repository

import (
	"context"
	"time"
)

// Metrics records engine outcomes. Implemented by pkg/metrics.Recorder.
type Metrics interface {
	RecordProviderCall(provider, op string, err error)
	RecordCacheLookup(domain string, hit bool)
	RecordValidation(stage string, passed bool)
	RecordTrade(status string)
	RecordRecommendation(token, recommendation string)
	RecordError(kind string)
	RecordLastPrice(token string, price float64)
	RecordLatency(op string, seconds float64)
}

// JobLock is a cross-instance lease for periodic jobs.
type JobLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordProviderCall(string, string, error) {}
func (NopMetrics) RecordCacheLookup(string, bool)          {}
func (NopMetrics) RecordValidation(string, bool)           {}
func (NopMetrics) RecordTrade(string)                      {}
func (NopMetrics) RecordRecommendation(string, string)     {}
func (NopMetrics) RecordError(string)                      {}
func (NopMetrics) RecordLastPrice(string, float64)         {}
func (NopMetrics) RecordLatency(string, float64)           {}
