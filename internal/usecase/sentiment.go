package usecase

import (
	"context"
	"sync"
	"time"

	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/logger"
)

const (
	SocialWeight = 0.6
	NewsWeight   = 0.4
)

// CombineSentiment weights social and news sentiment into one score.
func CombineSentiment(social, news float64) float64 {
	return SocialWeight*social + NewsWeight*news
}

// Sentiment is a combined score with the per-source means it came from.
type Sentiment struct {
	Score  float64
	Social float64
	News   float64
	Errors map[string]string
}

// SentimentAggregator averages every social and news provider that answers.
// Social scores are cached per provider and token.
type SentimentAggregator struct {
	social  []service.SocialProvider
	news    []service.NewsProvider
	cache   *cache.Cache[string, float64]
	timeout time.Duration
	metrics repository.Metrics
	log     *logger.Logger
}

func NewSentimentAggregator(
	social []service.SocialProvider,
	news []service.NewsProvider,
	c *cache.Cache[string, float64],
	timeout time.Duration,
	m repository.Metrics,
	l *logger.Logger,
) *SentimentAggregator {
	if c == nil {
		c = cache.New[string, float64]()
	}
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &SentimentAggregator{social: social, news: news, cache: c, timeout: timeout, metrics: m, log: l}
}

// Aggregate never fails: a provider error only removes that provider from
// its source's mean, and a source with no answers contributes 0.
func (a *SentimentAggregator) Aggregate(ctx context.Context, token string) Sentiment {
	var (
		wg            sync.WaitGroup
		socialResults []service.Result[float64]
		newsResults   []service.Result[float64]
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		socialResults = fanOut(ctx, a.social, providerName[service.SocialProvider], func(ctx context.Context, p service.SocialProvider) (float64, error) {
			return a.socialSentiment(ctx, p, token)
		})
	}()
	go func() {
		defer wg.Done()
		newsResults = fanOut(ctx, a.news, providerName[service.NewsProvider], func(ctx context.Context, p service.NewsProvider) (float64, error) {
			return timed(ctx, a.timeout, a.metrics, p.Name(), "news_sentiment", func(ctx context.Context) (float64, error) {
				return p.NewsSentiment(ctx, token)
			})
		})
	}()
	wg.Wait()

	s := Sentiment{
		Social: mean(service.Successful(socialResults)),
		News:   mean(service.Successful(newsResults)),
	}
	s.Score = CombineSentiment(s.Social, s.News)
	s.Errors = mergeErrors(s.Errors, "social:", service.Failures(socialResults))
	s.Errors = mergeErrors(s.Errors, "news:", service.Failures(newsResults))

	for src, msg := range s.Errors {
		a.log.Warn("sentiment source failed", logger.String("source", src), logger.String("token", token), logger.String("error", msg))
	}
	return s
}

func (a *SentimentAggregator) socialSentiment(ctx context.Context, p service.SocialProvider, token string) (float64, error) {
	v, hit, err := a.cache.GetOrLoad(ctx, cache.Key("sentiment", p.Name(), token), func(ctx context.Context) (float64, error) {
		return timed(ctx, a.timeout, a.metrics, p.Name(), "sentiment", func(ctx context.Context) (float64, error) {
			return p.Sentiment(ctx, token)
		})
	})
	if err == nil {
		a.metrics.RecordCacheLookup("sentiment", hit)
	}
	return v, err
}

// Clear drops cached social scores.
func (a *SentimentAggregator) Clear() { a.cache.Clear() }

func providerName[P service.Named](p P) string { return p.Name() }
