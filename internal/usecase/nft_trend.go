package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/logger"
)

const (
	nftTrendThreshold = 5.0
	// nftSalesBaseline is the 24h sales count at which confidence saturates.
	nftSalesBaseline = 10.0
)

// ClassifyNFTTrend compares the mean sale price of the most recent half of
// sales against the older half. The older half takes the extra sale when
// the count is odd.
func ClassifyNFTTrend(sales []models.NFTSale) (models.Trend, float64) {
	sorted := make([]models.NFTSale, len(sales))
	copy(sorted, sales)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	half := len(sorted) / 2
	recent, older := sorted[:half], sorted[half:]
	if len(recent) == 0 || len(older) == 0 {
		return models.TrendStable, 0
	}

	olderMean := meanPrice(older)
	if olderMean == 0 {
		return models.TrendStable, 0
	}
	change := (meanPrice(recent) - olderMean) / olderMean * 100

	switch {
	case change > nftTrendThreshold:
		return models.TrendUp, change
	case change < -nftTrendThreshold:
		return models.TrendDown, change
	default:
		return models.TrendStable, change
	}
}

// NFTConfidence grows linearly with 24h sales up to the baseline.
func NFTConfidence(sales24h int) float64 {
	if sales24h <= 0 {
		return 0
	}
	return math.Min(float64(sales24h)/nftSalesBaseline, 1)
}

func meanPrice(sales []models.NFTSale) float64 {
	prices := make([]float64, len(sales))
	for i, s := range sales {
		prices[i] = s.Price
	}
	return mean(prices)
}

// NFTAnalyzer classifies price trends of NFT collections.
type NFTAnalyzer struct {
	provider    service.NFTProvider
	stats       *cache.Layered[models.NFTMarketStats]
	collections []string
	timeout     time.Duration
	metrics     repository.Metrics
	log         *logger.Logger
	now         func() time.Time
}

func NewNFTAnalyzer(provider service.NFTProvider, stats *cache.Layered[models.NFTMarketStats], collections []string, timeout time.Duration, m repository.Metrics, l *logger.Logger) *NFTAnalyzer {
	if stats == nil {
		stats = cache.NewLayered[models.NFTMarketStats]("nft", cache.New[string, models.NFTMarketStats](), nil)
	}
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &NFTAnalyzer{provider: provider, stats: stats, collections: collections, timeout: timeout, metrics: m, log: l, now: time.Now}
}

// AnalyzeNFTMarket analyzes one collection, or every configured collection
// when collection is empty. In the latter case a failing collection is
// logged and left out; the call fails only if all of them fail.
func (a *NFTAnalyzer) AnalyzeNFTMarket(ctx context.Context, collection string) ([]models.NFTTrend, error) {
	if collection != "" {
		trend, err := a.analyze(ctx, collection)
		if err != nil {
			return nil, err
		}
		return []models.NFTTrend{trend}, nil
	}

	if len(a.collections) == 0 {
		return nil, nil
	}
	results := fanOut(ctx, a.collections, func(c string) string { return c }, a.analyze)

	trends := service.Successful(results)
	for src, msg := range service.Failures(results) {
		a.log.Warn("nft collection analysis failed", logger.String("collection", src), logger.String("error", msg))
	}
	if len(trends) == 0 {
		return nil, fmt.Errorf("nft analysis: all %d collections failed", len(a.collections))
	}
	return trends, nil
}

func (a *NFTAnalyzer) analyze(ctx context.Context, collection string) (models.NFTTrend, error) {
	stats, err := a.collectionStats(ctx, collection)
	if err != nil {
		return models.NFTTrend{}, err
	}
	sales, err := timed(ctx, a.timeout, a.metrics, "nft", "recent_sales", func(ctx context.Context) ([]models.NFTSale, error) {
		return a.provider.RecentSales(ctx, collection)
	})
	if err != nil {
		return models.NFTTrend{}, fmt.Errorf("recent sales %s: %w", collection, err)
	}

	trend, change := ClassifyNFTTrend(sales)
	return models.NFTTrend{
		Collection:    collection,
		Trend:         trend,
		ChangePercent: change,
		Confidence:    NFTConfidence(stats.Sales24h),
		Stats:         stats,
		Timestamp:     a.now().UTC(),
	}, nil
}

func (a *NFTAnalyzer) collectionStats(ctx context.Context, collection string) (models.NFTMarketStats, error) {
	if s, ok := a.stats.Get(ctx, collection); ok {
		a.metrics.RecordCacheLookup("nft", true)
		return s, nil
	}
	a.metrics.RecordCacheLookup("nft", false)

	s, err := timed(ctx, a.timeout, a.metrics, "nft", "collection_stats", func(ctx context.Context) (models.NFTMarketStats, error) {
		return a.provider.CollectionStats(ctx, collection)
	})
	if err != nil {
		return models.NFTMarketStats{}, fmt.Errorf("collection stats %s: %w", collection, err)
	}
	if s.Collection == "" {
		s.Collection = collection
	}
	if err := a.stats.Set(ctx, collection, s); err != nil {
		a.log.Warn("nft stats not shared", logger.String("collection", collection), logger.Error(err))
	}
	return s, nil
}

// ClearCache drops cached collection stats.
func (a *NFTAnalyzer) ClearCache(ctx context.Context) error {
	return a.stats.Clear(ctx)
}
