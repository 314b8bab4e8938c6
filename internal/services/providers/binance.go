package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2"

	"ChainPulse/internal/services/features"
	"ChainPulse/pkg/util"
)

// depthLevels is how many order-book levels per side count towards
// liquidity.
const depthLevels = 100

// Binance reads spot market data for TOKEN/quote pairs. Liquidity is the
// quote-denominated depth of both sides of the order book.
type Binance struct {
	client *binance.Client
	quote  string
}

// NewBinance creates a spot client. Public endpoints work without keys.
// An empty baseURL keeps the library default.
func NewBinance(apiKey, secretKey, baseURL, quote string) *Binance {
	c := binance.NewClient(apiKey, secretKey)
	if baseURL != "" {
		c.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Binance{client: c, quote: quote}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) symbol(token string) string { return util.Symbol(token, b.quote) }

func (b *Binance) Price(ctx context.Context, token string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(b.symbol(token)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price %s: %w", b.symbol(token), err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance price %s: %w", b.symbol(token), ErrNotFound)
	}
	return b.number("price", prices[0].Price)
}

// Volume24h is the rolling 24h volume in the quote asset.
func (b *Binance) Volume24h(ctx context.Context, token string) (float64, error) {
	stats, err := b.stats(ctx, token)
	if err != nil {
		return 0, err
	}
	return b.number("quote volume", stats.QuoteVolume)
}

func (b *Binance) PriceChange(ctx context.Context, token string) (float64, error) {
	stats, err := b.stats(ctx, token)
	if err != nil {
		return 0, err
	}
	return b.number("price change", stats.PriceChangePercent)
}

func (b *Binance) number(field, raw string) (float64, error) {
	v, err := util.ParseFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("binance %s %q: %w: %w", field, raw, ErrMalformed, err)
	}
	return v, nil
}

func (b *Binance) stats(ctx context.Context, token string) (*binance.PriceChangeStats, error) {
	res, err := b.client.NewListPriceChangeStatsService().Symbol(b.symbol(token)).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance 24h stats %s: %w", b.symbol(token), err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("binance 24h stats %s: %w", b.symbol(token), ErrNotFound)
	}
	return res[0], nil
}

func (b *Binance) Liquidity(ctx context.Context, token string) (float64, error) {
	depth, err := b.client.NewDepthService().Symbol(b.symbol(token)).Limit(depthLevels).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance depth %s: %w", b.symbol(token), err)
	}
	var total float64
	for _, side := range [][]binance.Bid{depth.Bids, depth.Asks} {
		for _, l := range side {
			price, err := b.number("depth price", l.Price)
			if err != nil {
				return 0, err
			}
			qty, err := b.number("depth quantity", l.Quantity)
			if err != nil {
				return 0, err
			}
			total += price * qty
		}
	}
	return total, nil
}

// closes returns close prices of the latest n klines, oldest first.
func (b *Binance) closes(ctx context.Context, token, interval string, n int) ([]float64, error) {
	klines, err := b.client.NewKlinesService().Symbol(b.symbol(token)).Interval(interval).Limit(n).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", b.symbol(token), err)
	}
	out := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := b.number("kline close", k.Close)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// TechnicalSignals derives trend and momentum observations from Binance
// klines.
type TechnicalSignals struct {
	market   *Binance
	interval string
}

func NewTechnicalSignals(market *Binance, interval string) *TechnicalSignals {
	if interval == "" {
		interval = "1h"
	}
	return &TechnicalSignals{market: market, interval: interval}
}

func (t *TechnicalSignals) Name() string { return "binance-ta" }

// Signals needs at least 22 klines; with fewer it reports nothing.
func (t *TechnicalSignals) Signals(ctx context.Context, token string) ([]string, error) {
	closes, err := t.market.closes(ctx, token, t.interval, 100)
	if err != nil {
		return nil, err
	}
	return TechnicalObservations(closes, t.interval), nil
}

// TechnicalObservations turns a close series into signal strings: an
// EMA9/EMA21 trend, RSI14 extremes and elevated realized volatility.
func TechnicalObservations(closes []float64, interval string) []string {
	if len(closes) < 22 {
		return nil
	}
	var out []string

	ema9, ema21 := features.EMA(closes, 9), features.EMA(closes, 21)
	if ema9 > ema21 {
		out = append(out, fmt.Sprintf("bullish EMA9/EMA21 trend on %s", interval))
	} else if ema9 < ema21 {
		out = append(out, fmt.Sprintf("bearish EMA9/EMA21 trend on %s", interval))
	}

	switch rsi := features.RSI(closes, 14); {
	case rsi < 30:
		out = append(out, fmt.Sprintf("RSI %.0f oversold on %s, buy zone", rsi, interval))
	case rsi > 70:
		out = append(out, fmt.Sprintf("RSI %.0f overbought on %s, sell zone", rsi, interval))
	}

	rets := features.ComputeLogReturns(closes)
	if vol := features.RealizedVolatility(rets, 20, features.BarsPerYear(interval)); vol > 1 {
		out = append(out, fmt.Sprintf("realized volatility %.0f%% annualized", vol*100))
	}
	return out
}
