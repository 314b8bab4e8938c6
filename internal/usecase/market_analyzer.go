package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/logger"
)

// Heuristic thresholds, in percent except confidence.
const (
	tvlGrowthThreshold       = 5.0
	tvlDeclineThreshold      = -5.0
	dominanceThreshold       = 50.0
	volumeSpikeThreshold     = 20.0
	liquidityGrowthThreshold = 10.0
	momentumConfidence       = 0.7
)

// MarketSources are the providers one analysis reads from.
type MarketSources struct {
	Market      service.MarketDataProvider
	Liquidity   service.LiquidityProvider
	TVL         service.ChainTVLProvider
	OnChain     service.OnChainMetricsProvider
	Sentiment   *SentimentAggregator
	Technical   []service.SignalSource
	Fundamental []service.SignalSource
	Social      []service.SocialProvider
}

// MarketAnalyzer builds a MarketAnalysis for a token. The core market data
// must all be available; sentiment and signal sources may fail
// individually and are reported in SourceErrors.
type MarketAnalyzer struct {
	src     MarketSources
	chain   string
	timeout time.Duration
	metrics repository.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewMarketAnalyzer(src MarketSources, chain string, timeout time.Duration, m repository.Metrics, l *logger.Logger) *MarketAnalyzer {
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	if src.Sentiment == nil {
		src.Sentiment = NewSentimentAggregator(src.Social, nil, nil, timeout, m, l)
	}
	return &MarketAnalyzer{src: src, chain: chain, timeout: timeout, metrics: m, log: l, now: time.Now}
}

type marketCore struct {
	price     float64
	volume    float64
	liquidity float64
	chain     models.ChainTVL
	onchain   models.TokenMetrics
}

// AnalyzeMarket runs the full analysis for token.
func (a *MarketAnalyzer) AnalyzeMarket(ctx context.Context, token string) (*models.MarketAnalysis, error) {
	if token == "" {
		return nil, fmt.Errorf("token required")
	}
	start := a.now()
	defer func() { a.metrics.RecordLatency("analyze_market", time.Since(start).Seconds()) }()

	core, err := a.fetchCore(ctx, token)
	if err != nil {
		a.metrics.RecordError("analyze_market")
		return nil, fmt.Errorf("analyze %s: %w", token, err)
	}

	var (
		wg        sync.WaitGroup
		sentiment Sentiment
		signals   models.Signals
		sigErrs   map[string]string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		sentiment = a.src.Sentiment.Aggregate(ctx, token)
	}()
	go func() {
		defer wg.Done()
		signals, sigErrs = a.gatherSignals(ctx, token)
	}()
	wg.Wait()

	appendHeuristics(&signals, core.chain, core.onchain)

	res := &models.MarketAnalysis{
		Token:          token,
		Timestamp:      a.now().UTC(),
		Price:          core.price,
		Volume24h:      core.volume,
		Liquidity:      core.liquidity,
		PriceChange:    core.onchain.PriceChange24h,
		Sentiment:      sentiment.Score,
		Recommendation: ClassifyRecommendation(signals.All()),
		Signals:        signals,
	}
	res.SourceErrors = mergeErrors(res.SourceErrors, "sentiment.", sentiment.Errors)
	res.SourceErrors = mergeErrors(res.SourceErrors, "signals.", sigErrs)

	a.metrics.RecordRecommendation(token, string(res.Recommendation))
	a.metrics.RecordLastPrice(token, res.Price)
	a.log.Info("market analyzed",
		logger.String("token", token),
		logger.String("recommendation", string(res.Recommendation)),
		logger.Float64("sentiment", res.Sentiment),
		logger.Int("signals", len(signals.All())),
		logger.Int("source_errors", len(res.SourceErrors)),
	)
	return res, nil
}

// fetchCore loads the five core inputs concurrently. The first failure
// cancels the rest and is returned.
func (a *MarketAnalyzer) fetchCore(ctx context.Context, token string) (marketCore, error) {
	var c marketCore
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		c.price, err = timed(gctx, a.timeout, a.metrics, "market", "price", func(ctx context.Context) (float64, error) {
			return a.src.Market.Price(ctx, token)
		})
		return wrap("price", err)
	})
	g.Go(func() (err error) {
		c.volume, err = timed(gctx, a.timeout, a.metrics, "market", "volume_24h", func(ctx context.Context) (float64, error) {
			return a.src.Market.Volume24h(ctx, token)
		})
		return wrap("volume", err)
	})
	g.Go(func() (err error) {
		c.liquidity, err = timed(gctx, a.timeout, a.metrics, "liquidity", "liquidity", func(ctx context.Context) (float64, error) {
			return a.src.Liquidity.Liquidity(ctx, token)
		})
		return wrap("liquidity", err)
	})
	g.Go(func() (err error) {
		c.chain, err = timed(gctx, a.timeout, a.metrics, "tvl", "chain_tvl", func(ctx context.Context) (models.ChainTVL, error) {
			return a.src.TVL.ChainTVL(ctx, a.chain)
		})
		return wrap("chain tvl", err)
	})
	g.Go(func() (err error) {
		c.onchain, err = timed(gctx, a.timeout, a.metrics, "onchain", "token_metrics", func(ctx context.Context) (models.TokenMetrics, error) {
			return a.src.OnChain.TokenMetrics(ctx, token)
		})
		return wrap("on-chain metrics", err)
	})

	return c, g.Wait()
}

func (a *MarketAnalyzer) gatherSignals(ctx context.Context, token string) (models.Signals, map[string]string) {
	fromSource := func(op string) func(context.Context, service.SignalSource) ([]string, error) {
		return func(ctx context.Context, s service.SignalSource) ([]string, error) {
			return timed(ctx, a.timeout, a.metrics, s.Name(), op, func(ctx context.Context) ([]string, error) {
				return s.Signals(ctx, token)
			})
		}
	}

	var (
		wg                     sync.WaitGroup
		technical, fundamental []service.Result[[]string]
		social                 []service.Result[[]string]
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		technical = fanOut(ctx, a.src.Technical, providerName[service.SignalSource], fromSource("technical_signals"))
	}()
	go func() {
		defer wg.Done()
		fundamental = fanOut(ctx, a.src.Fundamental, providerName[service.SignalSource], fromSource("fundamental_signals"))
	}()
	go func() {
		defer wg.Done()
		social = fanOut(ctx, a.src.Social, providerName[service.SocialProvider], func(ctx context.Context, p service.SocialProvider) ([]string, error) {
			return timed(ctx, a.timeout, a.metrics, p.Name(), "social_signals", func(ctx context.Context) ([]string, error) {
				return p.SocialSignals(ctx, token)
			})
		})
	}()
	wg.Wait()

	out := models.Signals{
		Technical:   flatten(service.Successful(technical)),
		Fundamental: flatten(service.Successful(fundamental)),
		Social:      flatten(service.Successful(social)),
	}
	var errs map[string]string
	errs = mergeErrors(errs, "technical:", service.Failures(technical))
	errs = mergeErrors(errs, "fundamental:", service.Failures(fundamental))
	errs = mergeErrors(errs, "social:", service.Failures(social))
	return out, errs
}

// appendHeuristics adds rule-based observations derived from the core
// inputs. Wording uses the lower-case polarity terms the classifier counts.
func appendHeuristics(s *models.Signals, chain models.ChainTVL, m models.TokenMetrics) {
	switch {
	case chain.TVLChange24h > tvlGrowthThreshold:
		s.Fundamental = append(s.Fundamental, fmt.Sprintf("TVL growth of %.1f%% in 24h on %s", chain.TVLChange24h, chain.Chain))
	case chain.TVLChange24h < tvlDeclineThreshold:
		s.Fundamental = append(s.Fundamental, fmt.Sprintf("TVL decline of %.1f%% in 24h on %s", math.Abs(chain.TVLChange24h), chain.Chain))
	}
	if top, ok := chain.TopProtocol(); ok && top.Dominance > dominanceThreshold {
		s.Fundamental = append(s.Fundamental, fmt.Sprintf("Protocol dominance: %s holds %.1f%% of chain TVL", top.Name, top.Dominance))
	}

	if m.VolumeChange24h > volumeSpikeThreshold {
		s.Technical = append(s.Technical, fmt.Sprintf("Volume spike of %.1f%% in 24h", m.VolumeChange24h))
	}
	if m.LiquidityChange24h > liquidityGrowthThreshold {
		s.Technical = append(s.Technical, fmt.Sprintf("Liquidity growth of %.1f%% in 24h", m.LiquidityChange24h))
	}
	if m.Trend == models.TrendUp && m.Confidence > momentumConfidence {
		s.Technical = append(s.Technical, fmt.Sprintf("Strong bullish momentum (confidence %.2f)", m.Confidence))
	}
}

func flatten(lists [][]string) []string {
	out := []string{}
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
