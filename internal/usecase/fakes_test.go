package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ChainPulse/internal/domain/models"
)

var errDown = errors.New("provider down")

type fakeMarket struct {
	price, volume, change float64
	err                   error
	calls                 atomic.Int32
}

func (f *fakeMarket) Price(context.Context, string) (float64, error) {
	f.calls.Add(1)
	return f.price, f.err
}

func (f *fakeMarket) Volume24h(context.Context, string) (float64, error) {
	f.calls.Add(1)
	return f.volume, f.err
}

func (f *fakeMarket) PriceChange(context.Context, string) (float64, error) {
	f.calls.Add(1)
	return f.change, f.err
}

type fakeLiquidity struct {
	value float64
	err   error
	calls atomic.Int32
}

func (f *fakeLiquidity) Liquidity(context.Context, string) (float64, error) {
	f.calls.Add(1)
	return f.value, f.err
}

type fakeTVL struct {
	snap  models.ChainTVL
	err   error
	calls atomic.Int32
}

func (f *fakeTVL) ChainTVL(_ context.Context, chain string) (models.ChainTVL, error) {
	f.calls.Add(1)
	s := f.snap
	if s.Chain == "" {
		s.Chain = chain
	}
	return s, f.err
}

type fakeOnChain struct {
	metrics models.TokenMetrics
	err     error
}

func (f *fakeOnChain) TokenMetrics(context.Context, string) (models.TokenMetrics, error) {
	return f.metrics, f.err
}

type fakeSocial struct {
	name    string
	score   float64
	signals []string
	err     error
	calls   atomic.Int32
}

func (f *fakeSocial) Name() string { return f.name }

func (f *fakeSocial) Sentiment(context.Context, string) (float64, error) {
	f.calls.Add(1)
	return f.score, f.err
}

func (f *fakeSocial) SocialSignals(context.Context, string) ([]string, error) {
	return f.signals, f.err
}

type fakeNews struct {
	name  string
	score float64
	err   error
}

func (f *fakeNews) Name() string { return f.name }

func (f *fakeNews) NewsSentiment(context.Context, string) (float64, error) {
	return f.score, f.err
}

type fakeSignals struct {
	name    string
	signals []string
	err     error
}

func (f *fakeSignals) Name() string { return f.name }

func (f *fakeSignals) Signals(context.Context, string) ([]string, error) {
	return f.signals, f.err
}

type venue struct {
	info   models.Protocol
	impact float64
	err    error
}

type fakeRegistry struct {
	venues map[string]venue
	calls  atomic.Int32
}

func (f *fakeRegistry) ProtocolInfo(_ context.Context, name string) (models.Protocol, error) {
	f.calls.Add(1)
	v, ok := f.venues[name]
	if !ok {
		return models.Protocol{}, errors.New("unknown venue")
	}
	if v.err != nil {
		return models.Protocol{}, v.err
	}
	return v.info, nil
}

func (f *fakeRegistry) CalculatePriceImpact(_ context.Context, name string, _ *models.Trade) (float64, error) {
	f.calls.Add(1)
	v := f.venues[name]
	return v.impact, v.err
}

type fakeGateway struct {
	txHash string
	err    error
	venue  models.Protocol
	calls  atomic.Int32
}

func (f *fakeGateway) ExecuteTrade(_ context.Context, venue models.Protocol, _ *models.Trade) (string, error) {
	f.calls.Add(1)
	f.venue = venue
	return f.txHash, f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	posts  []string
	trades []*models.Trade
	err    error
}

func (f *fakeNotifier) Post(_ context.Context, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, content)
	return f.err
}

func (f *fakeNotifier) PostTradeUpdate(_ context.Context, trade *models.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, trade)
	return f.err
}

type fakeNFT struct {
	stats map[string]models.NFTMarketStats
	sales map[string][]models.NFTSale
	err   map[string]error
	calls atomic.Int32
}

func (f *fakeNFT) CollectionStats(_ context.Context, c string) (models.NFTMarketStats, error) {
	f.calls.Add(1)
	if err := f.err[c]; err != nil {
		return models.NFTMarketStats{}, err
	}
	return f.stats[c], nil
}

func (f *fakeNFT) RecentSales(_ context.Context, c string) ([]models.NFTSale, error) {
	if err := f.err[c]; err != nil {
		return nil, err
	}
	return f.sales[c], nil
}

func ptr[T any](v T) *T { return &v }
