package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	xhttp "ChainPulse/pkg/http"
)

// ErrNotFound is returned when a provider has no data for the requested
// token, chain, venue or collection.
var ErrNotFound = errors.New("not found")

// ErrMalformed marks a provider reply whose figures could not be read.
var ErrMalformed = errors.New("malformed provider data")

// HTTPServiceBase is the shared foundation of the JSON HTTP providers. It
// owns a throttled, retrying client, a base URL and static headers.
type HTTPServiceBase struct {
	baseURL string
	headers map[string]string
	client  *xhttp.Client
}

// ClientSettings carries the per-provider HTTP client limits.
type ClientSettings struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Retries           int
}

// NewHTTPServiceBase builds a client for baseURL. Trailing slashes on the
// base URL are dropped so paths can start with one.
func NewHTTPServiceBase(baseURL string, s ClientSettings, headers map[string]string) *HTTPServiceBase {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := s.Retries
	if retries <= 0 {
		retries = 2
	}
	burst := int(s.RequestsPerSecond)
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		client: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithRateLimit(s.RequestsPerSecond, burst),
			xhttp.WithRetry(retries, 100*time.Millisecond),
		),
	}
}

// GetJSON fetches path under the base URL and decodes JSON into dest. A 404
// is reported as ErrNotFound.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("http provider not initialized")
	}
	err := b.client.GetJSON(ctx, b.baseURL+path, query, b.headers, dest)
	return b.wrap("get", path, err)
}

// PostJSON posts payload to path under the base URL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("http provider not initialized")
	}
	err := b.client.PostJSON(ctx, b.baseURL+path, payload, b.headers, dest)
	return b.wrap("post", path, err)
}

func (b *HTTPServiceBase) wrap(method, path string, err error) error {
	if err == nil {
		return nil
	}
	if xhttp.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", method, path, err)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
