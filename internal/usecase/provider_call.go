package usecase

import (
	"context"
	"sync"
	"time"

	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
)

// DefaultProviderTimeout bounds a single provider call when none is set.
const DefaultProviderTimeout = 5 * time.Second

// timed runs fn under its own timeout and records the outcome.
func timed[T any](ctx context.Context, timeout time.Duration, m repository.Metrics, provider, op string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(ctx)
	m.RecordProviderCall(provider, op, err)
	return v, err
}

// fanOut calls fn for every item concurrently and returns one tagged result
// per item, in input order. A failing item never affects the others.
func fanOut[P any, T any](ctx context.Context, items []P, name func(P) string, fn func(context.Context, P) (T, error)) []service.Result[T] {
	results := make([]service.Result[T], len(items))
	var wg sync.WaitGroup
	for i, it := range items {
		wg.Add(1)
		go func(i int, it P) {
			defer wg.Done()
			v, err := fn(ctx, it)
			results[i] = service.Result[T]{Source: name(it), Value: v, Err: err}
		}(i, it)
	}
	wg.Wait()
	return results
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func mergeErrors(dst map[string]string, prefix string, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[prefix+k] = v
	}
	return dst
}
