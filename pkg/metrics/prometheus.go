package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls   *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	validations     *prometheus.CounterVec
	trades          *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder's collectors with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_provider_calls_total",
				Help: "External provider calls by provider, operation and result",
			},
			[]string{"provider", "op", "result"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_cache_lookups_total",
				Help: "Cache lookups by domain and result",
			},
			[]string{"domain", "result"},
		),
		validations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_trade_validations_total",
				Help: "Trade validation outcomes by stage",
			},
			[]string{"stage", "result"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_trades_total",
				Help: "Trades reaching a terminal status",
			},
			[]string{"status"},
		),
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_recommendations_total",
				Help: "Market recommendations issued per token",
			},
			[]string{"token", "recommendation"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chainpulse_last_price",
				Help: "Last observed spot price for a token",
			},
			[]string{"token"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordProviderCall(provider, op string, err error) {
	r.providerCalls.WithLabelValues(provider, op, result(err == nil)).Inc()
}

func (r *Recorder) RecordCacheLookup(domain string, hit bool) {
	res := "miss"
	if hit {
		res = "hit"
	}
	r.cacheLookups.WithLabelValues(domain, res).Inc()
}

func (r *Recorder) RecordValidation(stage string, passed bool) {
	res := "reject"
	if passed {
		res = "pass"
	}
	r.validations.WithLabelValues(stage, res).Inc()
}

func (r *Recorder) RecordTrade(status string) {
	r.trades.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordRecommendation(token, recommendation string) {
	r.recommendations.WithLabelValues(token, recommendation).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a token.
func (r *Recorder) RecordLastPrice(token string, price float64) {
	r.lastPrice.WithLabelValues(token).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
