package di

import (
	"context"
	"fmt"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/internal/handler/api"
	"ChainPulse/internal/handler/ws"
	internalrepo "ChainPulse/internal/repository"
	"ChainPulse/internal/service/ratelimit"
	"ChainPulse/internal/services/providers"
	"ChainPulse/internal/usecase"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/config"
	xhttp "ChainPulse/pkg/http"
	pkgkafka "ChainPulse/pkg/kafka"
	"ChainPulse/pkg/logger"
	"ChainPulse/pkg/metrics"
	"ChainPulse/pkg/server"
)

const klineInterval = "1h"

// Engine groups the use cases shared by the server and the one-shot CLI
// commands.
type Engine struct {
	Analyzer  *usecase.MarketAnalyzer
	Trades    *usecase.TradeExecutor
	TVL       *usecase.TVLAnalyzer
	NFT       *usecase.NFTAnalyzer
	Sentiment *usecase.SentimentAggregator
	Market    *providers.Binance
}

// ProvideLogger creates the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func ProvideClientSettings(cfg *config.Config) providers.ClientSettings {
	return providers.ClientSettings{
		Timeout:           cfg.Providers.Timeout,
		RequestsPerSecond: cfg.Providers.RequestsPerSecond,
	}
}

// ProvideRedisCache connects to Redis when it is enabled and returns nil
// otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// The nil checks below keep a nil *RedisCache from turning into a
// non-nil interface.

func ProvideSnapshotStore(rc *cache.RedisCache) cache.Store {
	if rc == nil {
		return nil
	}
	return rc
}

func ProvideJobLock(rc *cache.RedisCache) repository.JobLock {
	if rc == nil {
		return nil
	}
	return rc
}

func ProvideBinance(cfg *config.Config) *providers.Binance {
	return providers.NewBinance(cfg.Credentials.BinanceAPIKey, cfg.Credentials.BinanceAPISecret, "", cfg.DeFi.QuoteAsset)
}

func ProvideDefiLlama(cfg *config.Config, s providers.ClientSettings) *providers.DefiLlama {
	return providers.NewDefiLlama(cfg.Providers.LlamaURL, cfg.DeFi.Chain, s)
}

func ProvideOnChain(cfg *config.Config, s providers.ClientSettings) *providers.OnChain {
	return providers.NewOnChain(cfg.Providers.OnChainURL, s)
}

func ProvideSocialProviders(cfg *config.Config, s providers.ClientSettings) ([]service.SocialProvider, error) {
	return providers.NewSocialProviders(cfg.Providers.Social, s)
}

func ProvideNewsProviders(cfg *config.Config, s providers.ClientSettings) []service.NewsProvider {
	documents := cache.New[string, []string](
		cache.WithTTL(cfg.Cache.DocumentsTTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	scrapers := providers.NewNewsScrapers(cfg.Providers.NewsURLs, s, documents)
	out := make([]service.NewsProvider, 0, len(scrapers))
	for _, sc := range scrapers {
		out = append(out, sc)
	}
	return out
}

func ProvideNFTMarket(cfg *config.Config, s providers.ClientSettings) *providers.NFTMarket {
	return providers.NewNFTMarket(cfg.Providers.NFTURL, cfg.Credentials.NFTAPIKey, s)
}

func ProvideExecutionGateway(cfg *config.Config, s providers.ClientSettings) *providers.ExecutionGateway {
	return providers.NewExecutionGateway(cfg.Providers.ExecutionURL, cfg.Credentials.ExecutionAPIKey, s)
}

func ProvideSentimentAggregator(
	cfg *config.Config,
	social []service.SocialProvider,
	news []service.NewsProvider,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.SentimentAggregator {
	c := cache.New[string, float64](
		cache.WithTTL(cfg.Cache.SentimentTTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	return usecase.NewSentimentAggregator(social, news, c, cfg.Providers.Timeout, m, l.With("sentiment"))
}

func ProvideTVLAnalyzer(cfg *config.Config, llama *providers.DefiLlama, store cache.Store, m repository.Metrics, l *logger.Logger) *usecase.TVLAnalyzer {
	local := cache.New[string, models.ChainTVL](
		cache.WithTTL(cfg.Cache.TVLTTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	return usecase.NewTVLAnalyzer(llama, cache.NewLayered("tvl", local, store), cfg.DeFi.Chain, cfg.Providers.Timeout, m, l.With("tvl"))
}

func ProvideNFTAnalyzer(cfg *config.Config, market *providers.NFTMarket, store cache.Store, m repository.Metrics, l *logger.Logger) *usecase.NFTAnalyzer {
	local := cache.New[string, models.NFTMarketStats](
		cache.WithTTL(cfg.Cache.NFTTTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	return usecase.NewNFTAnalyzer(market, cache.NewLayered("nft", local, store), cfg.NFT.Collections, cfg.Providers.Timeout, m, l.With("nft"))
}

// ProvideMarketAnalyzer reads chain TVL through the TVL analyzer so both
// share one snapshot cache.
func ProvideMarketAnalyzer(
	cfg *config.Config,
	binance *providers.Binance,
	onchain *providers.OnChain,
	tvl *usecase.TVLAnalyzer,
	sentiment *usecase.SentimentAggregator,
	social []service.SocialProvider,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.MarketAnalyzer {
	return usecase.NewMarketAnalyzer(usecase.MarketSources{
		Market:      binance,
		Liquidity:   binance,
		TVL:         tvl,
		OnChain:     onchain,
		Sentiment:   sentiment,
		Technical:   []service.SignalSource{providers.NewTechnicalSignals(binance, klineInterval)},
		Fundamental: []service.SignalSource{onchain},
		Social:      social,
	}, cfg.DeFi.Chain, cfg.Providers.Timeout, m, l.With("analyzer"))
}

func ProvideProtocolRouter(cfg *config.Config, llama *providers.DefiLlama, m repository.Metrics, l *logger.Logger) *usecase.ProtocolRouter {
	return usecase.NewProtocolRouter(llama, cfg.DeFi.TargetVenues, cfg.DeFi.MinLiquidity, cfg.Providers.Timeout, m, l.With("router"))
}

func ProvideTradePolicy(cfg *config.Config) usecase.TradePolicy {
	return usecase.TradePolicy{
		MinAmount:         cfg.Trading.MinAmount,
		MaxAmount:         cfg.Trading.MaxAmount,
		MinLiquidity:      cfg.DeFi.MinLiquidity,
		MinVolume:         cfg.DeFi.MinVolume,
		MaxPriceImpact:    cfg.DeFi.MaxPriceImpact,
		SlippageTolerance: cfg.Trading.SlippageTolerance,
	}
}

func ProvideTradeExecutor(
	cfg *config.Config,
	policy usecase.TradePolicy,
	binance *providers.Binance,
	router *usecase.ProtocolRouter,
	gateway *providers.ExecutionGateway,
	notifier service.Notifier,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.TradeExecutor {
	return usecase.NewTradeExecutor(policy, binance, binance, router, gateway, notifier, cfg.Providers.Timeout, m, l.With("trades"))
}

func ProvideEngine(
	analyzer *usecase.MarketAnalyzer,
	trades *usecase.TradeExecutor,
	tvl *usecase.TVLAnalyzer,
	nft *usecase.NFTAnalyzer,
	sentiment *usecase.SentimentAggregator,
	binance *providers.Binance,
) *Engine {
	return &Engine{Analyzer: analyzer, Trades: trades, TVL: tvl, NFT: nft, Sentiment: sentiment, Market: binance}
}

// ProvideSilentNotifier is used by one-shot commands, which print their own
// results.
func ProvideSilentNotifier() service.Notifier {
	return internalrepo.MultiNotifier{}
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled and
// returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithWriteTimeout(cfg.Providers.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideBroadcaster(l *logger.Logger) *ws.Broadcaster {
	return ws.NewBroadcaster(l.With("ws"))
}

// ProvideNotifier fans notifications out to websocket clients and, when
// Kafka is enabled, to the notification topic.
func ProvideNotifier(cfg *config.Config, hub *ws.Broadcaster, producer *pkgkafka.Producer) service.Notifier {
	n := internalrepo.MultiNotifier{hub}
	if producer != nil {
		n = append(n, internalrepo.NewKafkaNotifier(producer, cfg.Kafka.NotifyTopic))
	}
	return n
}

func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.RetryMax, 200*time.Millisecond, 5*time.Second),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
		pkgkafka.WithConsumerLogger(l.With("kafka")),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideTradeCommandHandler(cfg *config.Config, trades *usecase.TradeExecutor, m repository.Metrics, l *logger.Logger) pkgkafka.MessageHandler {
	return usecase.NewTradeCommandHandler(cfg.Kafka.CommandTopic, cfg.DeFi.QuoteAsset, trades, m, l.With("commands"))
}

// ProvideScheduler registers the scan, monitor and TVL refresh jobs. With
// the scheduler disabled it has no jobs and App never starts it.
func ProvideScheduler(
	cfg *config.Config,
	lock repository.JobLock,
	engine *Engine,
	notifier service.Notifier,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Scheduler {
	s := usecase.NewScheduler(lock, cfg.Scheduler.LockTTL, m, l.With("scheduler"))
	if !cfg.Scheduler.Enabled {
		return s
	}

	scanner := usecase.NewOpportunityScanner(
		engine.Analyzer, engine.Trades, notifier,
		cfg.Scheduler.Tokens, cfg.Scheduler.TradeAmount, cfg.DeFi.QuoteAsset,
		cfg.Trading.AutoExecute, l.With("scanner"),
	)
	monitor := usecase.NewMarketMonitor(engine.Market, notifier, cfg.Scheduler.Tokens, cfg.Providers.Timeout, m, l.With("monitor"))

	s.Add("scan", cfg.Scheduler.ScanInterval, func(ctx context.Context) error {
		_, err := scanner.Scan(ctx)
		return err
	})
	s.Add("monitor", cfg.Scheduler.MonitorInterval, monitor.Broadcast)
	s.Add("tvl_refresh", cfg.Scheduler.TVLInterval, func(ctx context.Context) error {
		_, err := engine.TVL.Refresh(ctx)
		return err
	})
	return s
}

func ProvideHTTPServer(cfg *config.Config, engine *Engine, hub *ws.Broadcaster, l *logger.Logger) *xhttp.Server {
	handler := api.NewEngineEchoHandler(l.With("api"), api.EngineDeps{
		Analyzer:  engine.Analyzer,
		Trades:    engine.Trades,
		TVL:       engine.TVL,
		NFT:       engine.NFT,
		Sentiment: engine.Sentiment,
		Quote:     cfg.DeFi.QuoteAsset,
		Limiter:   ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst),
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{handler, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l.With("http")),
	)
}

func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	rc *cache.RedisCache,
) *server.App {
	return server.New(cfg, l, httpServer, scheduler, consumer, kh, producer, rc)
}
