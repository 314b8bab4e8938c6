package features

import (
	"math"
	"testing"
)

func TestComputeLogReturns(t *testing.T) {
	got := ComputeLogReturns([]float64{100, 110, 0, 121})
	if len(got) != 3 {
		t.Fatalf("expected 3 returns, got %d", len(got))
	}
	if math.Abs(got[0]-math.Log(1.1)) > 1e-12 || got[1] != 0 || got[2] != 0 {
		t.Fatalf("unexpected returns %v", got)
	}
	if ComputeLogReturns([]float64{1}) != nil {
		t.Fatalf("expected nil for a single close")
	}
}

func TestEMA(t *testing.T) {
	if got := EMA([]float64{1, 2, 3}, 3); got != 2 {
		t.Fatalf("expected seed average 2, got %v", got)
	}
	// k = 0.5: 2*0.5 + 6*0.5
	if got := EMA([]float64{1, 2, 3, 6}, 3); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
	if EMA([]float64{1}, 3) != 0 {
		t.Fatalf("expected 0 without enough data")
	}
}

func TestRSI(t *testing.T) {
	if got := RSI([]float64{1, 2, 3, 4}, 3); got != 100 {
		t.Fatalf("expected 100 for only gains, got %v", got)
	}
	if got := RSI([]float64{4, 3, 2, 1}, 3); got != 0 {
		t.Fatalf("expected 0 for only losses, got %v", got)
	}
	if got := RSI([]float64{1, 2, 1, 2, 1}, 4); got != 50 {
		t.Fatalf("expected 50 for balanced moves, got %v", got)
	}
	if got := RSI([]float64{1}, 14); got != 50 {
		t.Fatalf("expected neutral without data, got %v", got)
	}
}

func TestRealizedVolatility(t *testing.T) {
	if RealizedVolatility([]float64{0.01, 0.01, 0.01}, 3, 365) > 1e-6 {
		t.Fatalf("constant returns have zero volatility")
	}
	if RealizedVolatility([]float64{0.01}, 3, 365) != 0 {
		t.Fatalf("expected 0 for a short series")
	}
}
