package providers

import (
	"context"
	"net/url"
	"strings"

	"ChainPulse/internal/domain/models"
)

// OnChain reads token activity metrics and fundamental observations from
// the on-chain analytics service.
type OnChain struct {
	*HTTPServiceBase
}

func NewOnChain(baseURL string, s ClientSettings) *OnChain {
	return &OnChain{HTTPServiceBase: NewHTTPServiceBase(baseURL, s, nil)}
}

func (o *OnChain) Name() string { return "onchain" }

type tokenMetricsResponse struct {
	VolumeChange24h    float64 `json:"volume_change_24h"`
	LiquidityChange24h float64 `json:"liquidity_change_24h"`
	PriceChange24h     float64 `json:"price_change_24h"`
	Trend              string  `json:"trend"`
	Confidence         float64 `json:"confidence"`
}

func (o *OnChain) TokenMetrics(ctx context.Context, token string) (models.TokenMetrics, error) {
	var r tokenMetricsResponse
	if err := o.GetJSON(ctx, "/v1/tokens/"+url.PathEscape(token)+"/metrics", nil, &r); err != nil {
		return models.TokenMetrics{}, err
	}
	return models.TokenMetrics{
		Token:              token,
		VolumeChange24h:    r.VolumeChange24h,
		LiquidityChange24h: r.LiquidityChange24h,
		PriceChange24h:     r.PriceChange24h,
		Trend:              normalizeTrend(r.Trend),
		Confidence:         clamp01(r.Confidence),
	}, nil
}

// Signals returns the service's fundamental observations for token.
func (o *OnChain) Signals(ctx context.Context, token string) ([]string, error) {
	var r struct {
		Signals []string `json:"signals"`
	}
	if err := o.GetJSON(ctx, "/v1/tokens/"+url.PathEscape(token)+"/signals", nil, &r); err != nil {
		return nil, err
	}
	return r.Signals, nil
}

func normalizeTrend(s string) models.Trend {
	switch strings.ToLower(s) {
	case "up", "bullish":
		return models.TrendUp
	case "down", "bearish":
		return models.TrendDown
	default:
		return models.TrendStable
	}
}
