package models

import "time"

type Recommendation string

const (
	StrongBuy  Recommendation = "Strong Buy"
	Buy        Recommendation = "Buy"
	Hold       Recommendation = "Hold"
	Sell       Recommendation = "Sell"
	StrongSell Recommendation = "Strong Sell"
)

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Signals are free-text observations grouped by origin.
type Signals struct {
	Technical   []string `json:"technical"`
	Fundamental []string `json:"fundamental"`
	Social      []string `json:"social"`
}

// All returns every signal in technical, fundamental, social order.
func (s Signals) All() []string {
	out := make([]string, 0, len(s.Technical)+len(s.Fundamental)+len(s.Social))
	out = append(out, s.Technical...)
	out = append(out, s.Fundamental...)
	return append(out, s.Social...)
}

// TokenMetrics are on-chain activity deltas for a token, in percent.
type TokenMetrics struct {
	Token              string  `json:"token"`
	VolumeChange24h    float64 `json:"volume_change_24h"`
	LiquidityChange24h float64 `json:"liquidity_change_24h"`
	PriceChange24h     float64 `json:"price_change_24h"`
	Trend              Trend   `json:"trend"`
	Confidence         float64 `json:"confidence"`
}

// MarketAnalysis is the output of one analysis run. Sentiment is in [0, 1].
// SourceErrors lists sources that failed without aborting the run.
type MarketAnalysis struct {
	Token          string            `json:"token"`
	Timestamp      time.Time         `json:"timestamp"`
	Price          float64           `json:"price"`
	Volume24h      float64           `json:"volume_24h"`
	Liquidity      float64           `json:"liquidity"`
	PriceChange    float64           `json:"price_change"`
	Sentiment      float64           `json:"sentiment"`
	Recommendation Recommendation    `json:"recommendation"`
	Signals        Signals           `json:"signals"`
	SourceErrors   map[string]string `json:"source_errors,omitempty"`
}

// Ticker is a lightweight price snapshot used by the market monitor.
type Ticker struct {
	Token       string    `json:"token"`
	Price       float64   `json:"price"`
	PriceChange float64   `json:"price_change"`
	Timestamp   time.Time `json:"timestamp"`
}
