package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/logger"
)

type Analyzer interface {
	AnalyzeMarket(ctx context.Context, token string) (*models.MarketAnalysis, error)
}

type Executor interface {
	ExecuteTrade(ctx context.Context, trade *models.Trade) bool
}

// OpportunityScanner analyzes a token watchlist and acts on strong
// recommendations: a trade is executed when auto-execution is on,
// otherwise the opportunity is only announced.
type OpportunityScanner struct {
	analyzer    Analyzer
	executor    Executor
	notifier    service.Notifier
	tokens      []string
	amount      float64
	quote       string
	autoExecute bool
	log         *logger.Logger
}

func NewOpportunityScanner(analyzer Analyzer, executor Executor, notifier service.Notifier, tokens []string, amount float64, quote string, autoExecute bool, l *logger.Logger) *OpportunityScanner {
	if l == nil {
		l = logger.Nop()
	}
	return &OpportunityScanner{
		analyzer:    analyzer,
		executor:    executor,
		notifier:    notifier,
		tokens:      tokens,
		amount:      amount,
		quote:       quote,
		autoExecute: autoExecute,
		log:         l,
	}
}

// Scan runs one pass over the watchlist and returns the trades it created.
// A token whose analysis fails is skipped.
func (s *OpportunityScanner) Scan(ctx context.Context) ([]*models.Trade, error) {
	var trades []*models.Trade
	failed := 0
	for _, token := range s.tokens {
		if ctx.Err() != nil {
			return trades, ctx.Err()
		}
		analysis, err := s.analyzer.AnalyzeMarket(ctx, token)
		if err != nil {
			failed++
			s.log.Warn("scan: analysis failed", logger.String("token", token), logger.Error(err))
			continue
		}

		var side models.TradeType
		switch analysis.Recommendation {
		case models.StrongBuy:
			side = models.TradeBuy
		case models.StrongSell:
			side = models.TradeSell
		default:
			continue
		}

		if !s.autoExecute {
			s.post(ctx, fmt.Sprintf("%s opportunity on %s at %.4f (sentiment %.2f)",
				analysis.Recommendation, token, analysis.Price, analysis.Sentiment))
			continue
		}

		trade := models.NewTrade(side, token, s.amount, token+"/"+s.quote)
		if analysis.Price > 0 {
			p := analysis.Price
			trade.Price = &p
		}
		s.executor.ExecuteTrade(ctx, trade)
		trades = append(trades, trade)
	}
	if failed > 0 && failed == len(s.tokens) {
		return trades, fmt.Errorf("scan: all %d tokens failed", failed)
	}
	return trades, nil
}

func (s *OpportunityScanner) post(ctx context.Context, msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Post(ctx, msg); err != nil {
		s.log.Warn("scan: notify failed", logger.Error(err))
	}
}

// MarketMonitor posts a periodic price summary of the watchlist.
type MarketMonitor struct {
	market   service.MarketDataProvider
	notifier service.Notifier
	tokens   []string
	timeout  time.Duration
	metrics  repository.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewMarketMonitor(market service.MarketDataProvider, notifier service.Notifier, tokens []string, timeout time.Duration, m repository.Metrics, l *logger.Logger) *MarketMonitor {
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &MarketMonitor{market: market, notifier: notifier, tokens: tokens, timeout: timeout, metrics: m, log: l, now: time.Now}
}

// Tickers fetches a price snapshot for every token. Tokens whose price
// cannot be read are left out; a missing price change is reported as 0.
func (m *MarketMonitor) Tickers(ctx context.Context) []models.Ticker {
	results := fanOut(ctx, m.tokens, func(t string) string { return t }, func(ctx context.Context, token string) (models.Ticker, error) {
		price, err := timed(ctx, m.timeout, m.metrics, "market", "price", func(ctx context.Context) (float64, error) {
			return m.market.Price(ctx, token)
		})
		if err != nil {
			return models.Ticker{}, err
		}
		change, err := timed(ctx, m.timeout, m.metrics, "market", "price_change", func(ctx context.Context) (float64, error) {
			return m.market.PriceChange(ctx, token)
		})
		if err != nil {
			m.log.Debug("price change unavailable", logger.String("token", token), logger.Error(err))
		}
		return models.Ticker{Token: token, Price: price, PriceChange: change, Timestamp: m.now().UTC()}, nil
	})

	for src, msg := range service.Failures(results) {
		m.log.Warn("monitor: price failed", logger.String("token", src), logger.String("error", msg))
	}
	return service.Successful(results)
}

// Broadcast posts the current tickers as one message.
func (m *MarketMonitor) Broadcast(ctx context.Context) error {
	tickers := m.Tickers(ctx)
	if len(tickers) == 0 {
		return fmt.Errorf("monitor: no prices for %s", strings.Join(m.tokens, ","))
	}
	for _, t := range tickers {
		m.metrics.RecordLastPrice(t.Token, t.Price)
	}
	if m.notifier == nil {
		return nil
	}
	return m.notifier.Post(ctx, FormatTickers(tickers))
}

// FormatTickers renders tickers as one line each, e.g. "BTC 64000.00 (+2.50%)".
func FormatTickers(tickers []models.Ticker) string {
	var b strings.Builder
	b.WriteString("Market update")
	for _, t := range tickers {
		fmt.Fprintf(&b, "\n%s %.2f (%+.2f%%)", t.Token, t.Price, t.PriceChange)
	}
	return b.String()
}
