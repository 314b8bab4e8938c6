package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/logger"
)

// Validation stages, in the order they run.
const (
	StageAmount      = "amount"
	StageLiquidity   = "liquidity"
	StageVolume      = "volume"
	StageRouting     = "routing"
	StagePriceImpact = "price_impact"
)

// TradePolicy holds the limits a trade must satisfy. Impact and slippage
// are percentages.
type TradePolicy struct {
	MinAmount         float64
	MaxAmount         float64
	MinLiquidity      float64
	MinVolume         float64
	MaxPriceImpact    float64
	SlippageTolerance float64
}

// Router is the routing dependency of TradeExecutor.
type Router interface {
	FindBestProtocol(ctx context.Context, trade *models.Trade) (*models.VenueQuote, error)
}

// Rejection explains why validation stopped.
type Rejection struct {
	Stage  string
	Reason string
}

func (r *Rejection) Error() string { return r.Stage + ": " + r.Reason }

// TradeExecutor validates trades against TradePolicy and executes the
// ones that pass on the venue chosen during validation.
type TradeExecutor struct {
	policy    TradePolicy
	market    service.MarketDataProvider
	liquidity service.LiquidityProvider
	router    Router
	executor  service.TradeExecutor
	notifier  service.Notifier
	timeout   time.Duration
	metrics   repository.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewTradeExecutor(
	policy TradePolicy,
	market service.MarketDataProvider,
	liquidity service.LiquidityProvider,
	router Router,
	executor service.TradeExecutor,
	notifier service.Notifier,
	timeout time.Duration,
	m repository.Metrics,
	l *logger.Logger,
) *TradeExecutor {
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &TradeExecutor{
		policy:    policy,
		market:    market,
		liquidity: liquidity,
		router:    router,
		executor:  executor,
		notifier:  notifier,
		timeout:   timeout,
		metrics:   m,
		log:       l,
		now:       time.Now,
	}
}

// ValidateTrade reports whether trade passes every check. Policy
// rejections return (false, nil); an error means a provider could not be
// consulted and the trade was not judged.
func (e *TradeExecutor) ValidateTrade(ctx context.Context, trade *models.Trade) (bool, error) {
	_, rej, err := e.validate(ctx, trade)
	if err != nil {
		return false, err
	}
	return rej == nil, nil
}

// Check is ValidateTrade with the rejection reason and the selected venue.
func (e *TradeExecutor) Check(ctx context.Context, trade *models.Trade) (*models.VenueQuote, *Rejection, error) {
	return e.validate(ctx, trade)
}

// validate runs the checks in order and stops at the first rejection.
// Cheap local checks come first so they never cost a network call.
func (e *TradeExecutor) validate(ctx context.Context, trade *models.Trade) (*models.VenueQuote, *Rejection, error) {
	reject := func(stage, format string, a ...interface{}) (*models.VenueQuote, *Rejection, error) {
		e.metrics.RecordValidation(stage, false)
		rej := &Rejection{Stage: stage, Reason: fmt.Sprintf(format, a...)}
		e.log.Debug("trade rejected",
			logger.String("trade_id", trade.ID),
			logger.String("stage", stage),
			logger.String("reason", rej.Reason),
		)
		return nil, rej, nil
	}

	if trade.Amount < e.policy.MinAmount || trade.Amount > e.policy.MaxAmount {
		return reject(StageAmount, "amount %.2f outside [%.2f, %.2f]", trade.Amount, e.policy.MinAmount, e.policy.MaxAmount)
	}
	e.metrics.RecordValidation(StageAmount, true)

	liq, err := timed(ctx, e.timeout, e.metrics, "liquidity", "liquidity", func(ctx context.Context) (float64, error) {
		return e.liquidity.Liquidity(ctx, trade.Token)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("liquidity for %s: %w", trade.Token, err)
	}
	if liq < e.policy.MinLiquidity {
		return reject(StageLiquidity, "liquidity %.0f below %.0f", liq, e.policy.MinLiquidity)
	}
	e.metrics.RecordValidation(StageLiquidity, true)

	vol, err := timed(ctx, e.timeout, e.metrics, "market", "volume_24h", func(ctx context.Context) (float64, error) {
		return e.market.Volume24h(ctx, trade.Token)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("volume for %s: %w", trade.Token, err)
	}
	if vol < e.policy.MinVolume {
		return reject(StageVolume, "24h volume %.0f below %.0f", vol, e.policy.MinVolume)
	}
	e.metrics.RecordValidation(StageVolume, true)

	quote, err := e.router.FindBestProtocol(ctx, trade)
	if errors.Is(err, ErrNoVenue) {
		return reject(StageRouting, "no eligible venue")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("routing: %w", err)
	}
	e.metrics.RecordValidation(StageRouting, true)

	if quote.PriceImpact > e.policy.MaxPriceImpact {
		return reject(StagePriceImpact, "impact %.3f%% on %s above %.3f%%", quote.PriceImpact, quote.Protocol.Name, e.policy.MaxPriceImpact)
	}
	e.metrics.RecordValidation(StagePriceImpact, true)

	return quote, nil, nil
}

// ExecuteTrade validates and executes a PENDING trade and reports whether
// it completed. It never returns an error: every failure marks the trade
// FAILED and is logged. The venue selected during validation is the one
// executed on, so a venue cannot be swapped between check and use.
func (e *TradeExecutor) ExecuteTrade(ctx context.Context, trade *models.Trade) (ok bool) {
	if !trade.IsPending() {
		e.log.Warn("trade is not pending", logger.String("trade_id", trade.ID), logger.String("status", string(trade.Status)))
		return false
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		// A trade that already settled stays settled.
		if trade.Status == models.TradeCompleted {
			e.log.Error("panic after trade completed",
				logger.String("trade_id", trade.ID),
				logger.Any("panic", r),
			)
			ok = true
			return
		}
		e.fail(trade, fmt.Sprintf("panic: %v", r))
		ok = false
	}()

	quote, rej, err := e.validate(ctx, trade)
	switch {
	case err != nil:
		e.fail(trade, "validation error: "+err.Error())
		return false
	case rej != nil:
		e.fail(trade, "rejected: "+rej.Error())
		return false
	}

	if trade.Deadline != nil && e.now().After(*trade.Deadline) {
		e.fail(trade, "deadline passed before execution")
		return false
	}
	if trade.Slippage == nil {
		s := e.policy.SlippageTolerance
		trade.Slippage = &s
	}

	txHash, err := timed(ctx, e.timeout, e.metrics, quote.Protocol.Name, "execute", func(ctx context.Context) (string, error) {
		return e.executor.ExecuteTrade(ctx, quote.Protocol, trade)
	})
	if err != nil {
		e.fail(trade, "execution failed: "+err.Error())
		return false
	}

	if err := trade.Complete(quote.Protocol.Name, txHash); err != nil {
		e.log.Error("complete trade", logger.String("trade_id", trade.ID), logger.Error(err))
		return false
	}
	e.metrics.RecordTrade(string(models.TradeCompleted))
	e.log.Info("trade executed",
		logger.String("trade_id", trade.ID),
		logger.String("token", trade.Token),
		logger.String("venue", trade.Venue),
		logger.Float64("price_impact", quote.PriceImpact),
		logger.String("tx_hash", txHash),
	)

	if e.notifier != nil {
		if err := e.notifier.PostTradeUpdate(ctx, trade); err != nil {
			e.log.Warn("trade notification failed", logger.String("trade_id", trade.ID), logger.Error(err))
		}
	}
	return true
}

func (e *TradeExecutor) fail(trade *models.Trade, reason string) {
	if err := trade.Fail(reason); err != nil {
		e.log.Error("fail trade", logger.String("trade_id", trade.ID), logger.Error(err))
		return
	}
	e.metrics.RecordTrade(string(models.TradeFailed))
	e.log.Warn("trade failed",
		logger.String("trade_id", trade.ID),
		logger.String("token", trade.Token),
		logger.String("reason", reason),
	)
}
