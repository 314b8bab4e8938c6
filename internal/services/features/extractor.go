package features

import (
	"math"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}) over a
// close series. It returns len(closes)-1 values, or nil if insufficient data.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the
// latest window of log returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the approximate number of bars per year for a kline
// interval.
func BarsPerYear(interval string) float64 {
	switch interval {
	case "1m":
		return 365 * 24 * 60
	case "5m":
		return 365 * 24 * 12
	case "15m":
		return 365 * 24 * 4
	case "4h":
		return 365 * 6
	case "1d":
		return 365
	default: // 1h
		return 365 * 24
	}
}

// EMA returns the exponential moving average of the series seeded with the
// simple average of the first period values. Returns 0 if there are fewer
// than period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	ema := 0.0
	for _, v := range values[:period] {
		ema += v
	}
	ema /= float64(period)
	k := 2 / float64(period+1)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// RSI is the relative strength index over the last period changes of the
// series. It returns 50 without enough data and 100 when there were no
// losses.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 50
	}
	var gains, losses float64
	start := len(values) - period - 1
	for i := start + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs)
}
