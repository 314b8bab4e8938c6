package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordProviderCall("binance", "price", nil)
	r.RecordProviderCall("binance", "price", errors.New("timeout"))
	r.RecordProviderCall("binance", "price", nil)
	r.RecordCacheLookup("sentiment", true)
	r.RecordValidation("amount", false)
	r.RecordLastPrice("ETH", 3100)

	if got := testutil.ToFloat64(r.providerCalls.WithLabelValues("binance", "price", "ok")); got != 2 {
		t.Fatalf("expected 2 ok calls, got %v", got)
	}
	if got := testutil.ToFloat64(r.providerCalls.WithLabelValues("binance", "price", "error")); got != 1 {
		t.Fatalf("expected 1 failed call, got %v", got)
	}
	if got := testutil.ToFloat64(r.validations.WithLabelValues("amount", "reject")); got != 1 {
		t.Fatalf("expected 1 rejected validation, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastPrice.WithLabelValues("ETH")); got != 3100 {
		t.Fatalf("expected last price 3100, got %v", got)
	}
}
