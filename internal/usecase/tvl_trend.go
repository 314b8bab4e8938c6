package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/logger"
)

const (
	tvlWeight24h = 0.7
	tvlWeight7d  = 0.3

	tvlTrendThreshold    = 5.0
	tvlStrongThreshold   = 20.0
	tvlModerateThreshold = 10.0
)

// ClassifyTVLTrend weights the 24h and 7d changes and maps the result to a
// direction and strength. A stable trend is always reported as moderate.
func ClassifyTVLTrend(change24h, change7d float64) (models.TVLTrendDirection, models.TrendStrength, float64) {
	w := tvlWeight24h*change24h + tvlWeight7d*change7d

	var dir models.TVLTrendDirection
	switch {
	case w > tvlTrendThreshold:
		dir = models.TVLGrowing
	case w < -tvlTrendThreshold:
		dir = models.TVLDeclining
	default:
		return models.TVLStable, models.StrengthModerate, w
	}

	switch abs := math.Abs(w); {
	case abs > tvlStrongThreshold:
		return dir, models.StrengthStrong, w
	case abs > tvlModerateThreshold:
		return dir, models.StrengthModerate, w
	default:
		return dir, models.StrengthWeak, w
	}
}

// TVLConfidence is the share of protocols whose TVL and change figures are
// all finite numbers, capped at 1.
func TVLConfidence(protocols []models.ProtocolTVL) float64 {
	if len(protocols) == 0 {
		return 0
	}
	valid := 0
	for _, p := range protocols {
		if finite(p.TVL) && finite(p.Change24h) && finite(p.Change7d) {
			valid++
		}
	}
	return math.Min(float64(valid)/float64(len(protocols)), 1)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// TVLAnalyzer serves chain TVL snapshots through the TVL cache and derives
// the chain's trend from them. It is itself a ChainTVLProvider so market
// analysis shares the same snapshots.
type TVLAnalyzer struct {
	provider service.ChainTVLProvider
	cache    *cache.Layered[models.ChainTVL]
	chain    string
	timeout  time.Duration
	metrics  repository.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewTVLAnalyzer(provider service.ChainTVLProvider, c *cache.Layered[models.ChainTVL], chain string, timeout time.Duration, m repository.Metrics, l *logger.Logger) *TVLAnalyzer {
	if c == nil {
		c = cache.NewLayered[models.ChainTVL]("tvl", cache.New[string, models.ChainTVL](), nil)
	}
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &TVLAnalyzer{provider: provider, cache: c, chain: chain, timeout: timeout, metrics: m, log: l, now: time.Now}
}

// ChainTVL returns the cached snapshot for chain, fetching it on a miss.
func (a *TVLAnalyzer) ChainTVL(ctx context.Context, chain string) (models.ChainTVL, error) {
	if snap, ok := a.cache.Get(ctx, chain); ok {
		a.metrics.RecordCacheLookup("tvl", true)
		return snap, nil
	}
	a.metrics.RecordCacheLookup("tvl", false)

	snap, err := timed(ctx, a.timeout, a.metrics, "chain_tvl", "chain_tvl", func(ctx context.Context) (models.ChainTVL, error) {
		return a.provider.ChainTVL(ctx, chain)
	})
	if err != nil {
		return models.ChainTVL{}, fmt.Errorf("chain tvl %s: %w", chain, err)
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = a.now().UTC()
	}
	if err := a.cache.Set(ctx, chain, snap); err != nil {
		a.log.Warn("tvl snapshot not shared", logger.String("chain", chain), logger.Error(err))
	}
	return snap, nil
}

// AnalyzeTVLTrends classifies the configured chain's TVL trend.
func (a *TVLAnalyzer) AnalyzeTVLTrends(ctx context.Context) (*models.TVLTrend, error) {
	snap, err := a.ChainTVL(ctx, a.chain)
	if err != nil {
		return nil, err
	}

	dir, strength, weighted := ClassifyTVLTrend(snap.TVLChange24h, snap.TVLChange7d)
	trend := &models.TVLTrend{
		Chain:          snap.Chain,
		Trend:          dir,
		Strength:       strength,
		WeightedChange: weighted,
		Confidence:     TVLConfidence(snap.Protocols),
		Protocols:      snap.Protocols,
		Timestamp:      a.now().UTC(),
	}
	if trend.Chain == "" {
		trend.Chain = a.chain
	}
	return trend, nil
}

// Refresh drops every cached snapshot and recomputes the trend.
func (a *TVLAnalyzer) Refresh(ctx context.Context) (*models.TVLTrend, error) {
	if err := a.cache.Clear(ctx); err != nil {
		a.log.Warn("clear shared tvl snapshots", logger.Error(err))
	}
	trend, err := a.AnalyzeTVLTrends(ctx)
	if err != nil {
		return nil, err
	}
	a.log.Info("tvl trend refreshed",
		logger.String("chain", trend.Chain),
		logger.String("trend", string(trend.Trend)),
		logger.String("strength", string(trend.Strength)),
		logger.Float64("weighted_change", trend.WeightedChange),
	)
	return trend, nil
}

// ClearCache drops cached snapshots without refetching.
func (a *TVLAnalyzer) ClearCache(ctx context.Context) error {
	return a.cache.Clear(ctx)
}
