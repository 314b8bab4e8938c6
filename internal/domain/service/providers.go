package service

import (
	"context"

	"ChainPulse/internal/domain/models"
)

// Capability interfaces for the external sources the engine reads from.
// Every call may fail independently; callers decide whether a failure is
// isolated or propagated.

type MarketDataProvider interface {
	Price(ctx context.Context, token string) (float64, error)
	Volume24h(ctx context.Context, token string) (float64, error)
	// PriceChange is the 24h change in percent.
	PriceChange(ctx context.Context, token string) (float64, error)
}

type LiquidityProvider interface {
	Liquidity(ctx context.Context, token string) (float64, error)
}

type OnChainMetricsProvider interface {
	TokenMetrics(ctx context.Context, token string) (models.TokenMetrics, error)
}

type ChainTVLProvider interface {
	ChainTVL(ctx context.Context, chain string) (models.ChainTVL, error)
}

// ProtocolRegistry resolves venue metadata and trade-specific quotes.
type ProtocolRegistry interface {
	ProtocolInfo(ctx context.Context, name string) (models.Protocol, error)
	// CalculatePriceImpact returns the expected impact of trade on the
	// venue, in percent.
	CalculatePriceImpact(ctx context.Context, name string, trade *models.Trade) (float64, error)
}

// Named is implemented by providers that appear in logs, metrics and
// SourceErrors.
type Named interface {
	Name() string
}

// SocialProvider reads sentiment and signals from one social network.
// Sentiment is in [0, 1].
type SocialProvider interface {
	Named
	Sentiment(ctx context.Context, token string) (float64, error)
	SocialSignals(ctx context.Context, token string) ([]string, error)
}

// NewsProvider scores news coverage of a token in [0, 1].
type NewsProvider interface {
	Named
	NewsSentiment(ctx context.Context, token string) (float64, error)
}

// SignalSource produces free-text technical or fundamental observations.
type SignalSource interface {
	Named
	Signals(ctx context.Context, token string) ([]string, error)
}

type TradeExecutor interface {
	// ExecuteTrade submits trade to venue and returns the transaction hash.
	ExecuteTrade(ctx context.Context, venue models.Protocol, trade *models.Trade) (string, error)
}

type NFTProvider interface {
	CollectionStats(ctx context.Context, collection string) (models.NFTMarketStats, error)
	RecentSales(ctx context.Context, collection string) ([]models.NFTSale, error)
}

// Notifier publishes messages to a channel (chat bot, websocket, bus).
type Notifier interface {
	Post(ctx context.Context, content string) error
	PostTradeUpdate(ctx context.Context, trade *models.Trade) error
}
