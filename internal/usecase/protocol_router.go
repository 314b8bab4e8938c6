package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/logger"
)

// ErrNoVenue means no configured venue can take the trade.
var ErrNoVenue = errors.New("no eligible venue")

// ProtocolRouter picks the venue with the lowest price impact among the
// DEXes deep enough to take a trade.
type ProtocolRouter struct {
	registry     service.ProtocolRegistry
	venues       []string
	minLiquidity float64
	timeout      time.Duration
	metrics      repository.Metrics
	log          *logger.Logger
}

func NewProtocolRouter(registry service.ProtocolRegistry, venues []string, minLiquidity float64, timeout time.Duration, m repository.Metrics, l *logger.Logger) *ProtocolRouter {
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &ProtocolRouter{
		registry:     registry,
		venues:       venues,
		minLiquidity: minLiquidity,
		timeout:      timeout,
		metrics:      m,
		log:          l,
	}
}

// FindBestProtocol returns the eligible venue with the lowest impact, or
// ErrNoVenue. Venues that fail to answer are skipped.
func (r *ProtocolRouter) FindBestProtocol(ctx context.Context, trade *models.Trade) (*models.VenueQuote, error) {
	quotes := r.Quotes(ctx, trade)
	if len(quotes) == 0 {
		return nil, ErrNoVenue
	}
	best := quotes[0]
	return &best, nil
}

// Quotes returns every eligible venue sorted by ascending price impact.
// Equal impacts keep registry order.
func (r *ProtocolRouter) Quotes(ctx context.Context, trade *models.Trade) []models.VenueQuote {
	results := fanOut(ctx, r.venues, func(v string) string { return v }, func(ctx context.Context, venue string) (models.VenueQuote, error) {
		return r.quote(ctx, venue, trade)
	})

	quotes := make([]models.VenueQuote, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			r.log.Warn("venue quote failed", logger.String("venue", res.Source), logger.Error(res.Err))
			continue
		}
		q := res.Value
		if q.Protocol.Kind != models.ProtocolDEX || q.Protocol.TVL < r.minLiquidity {
			r.log.Debug("venue filtered",
				logger.String("venue", res.Source),
				logger.String("kind", string(q.Protocol.Kind)),
				logger.Float64("tvl", q.Protocol.TVL),
			)
			continue
		}
		quotes = append(quotes, q)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].PriceImpact < quotes[j].PriceImpact
	})
	return quotes
}

func (r *ProtocolRouter) quote(ctx context.Context, venue string, trade *models.Trade) (models.VenueQuote, error) {
	info, err := timed(ctx, r.timeout, r.metrics, venue, "protocol_info", func(ctx context.Context) (models.Protocol, error) {
		return r.registry.ProtocolInfo(ctx, venue)
	})
	if err != nil {
		return models.VenueQuote{}, fmt.Errorf("protocol info: %w", err)
	}
	impact, err := timed(ctx, r.timeout, r.metrics, venue, "price_impact", func(ctx context.Context) (float64, error) {
		return r.registry.CalculatePriceImpact(ctx, venue, trade)
	})
	if err != nil {
		return models.VenueQuote{}, fmt.Errorf("price impact: %w", err)
	}
	return models.VenueQuote{Protocol: info, PriceImpact: impact}, nil
}
