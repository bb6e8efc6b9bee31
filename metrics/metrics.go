package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the bot engine.
type Metrics struct {
	// CyclesTotal counts completed evaluation cycles.
	CyclesTotal prometheus.Counter
	// CyclesSkipped counts cycles skipped because one was already in flight
	// or the data fetch failed.
	CyclesSkipped prometheus.Counter
	// FetchErrors counts venue fetch failures.
	FetchErrors prometheus.Counter
	// SignalsTotal counts emitted signals by direction.
	SignalsTotal *prometheus.CounterVec
	// TradesOpened counts opened simulated trades.
	TradesOpened prometheus.Counter
	// TradesClosed counts closed simulated trades by close reason.
	TradesClosed *prometheus.CounterVec
	// OpenTrades gauges the number of currently open trades.
	OpenTrades prometheus.Gauge
	// CycleDuration observes end-to-end cycle durations.
	CycleDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New initializes the bot engine metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Completed evaluation cycles.",
		}),
		CyclesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_cycles_skipped_total",
			Help: "Cycles skipped due to overlap or fetch failure.",
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_fetch_errors_total",
			Help: "Venue fetch failures.",
		}),
		SignalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Emitted signals by direction.",
		}, []string{"direction"}),
		TradesOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_trades_opened_total",
			Help: "Opened simulated trades.",
		}),
		TradesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_closed_total",
			Help: "Closed simulated trades by close reason.",
		}, []string{"reason"}),
		OpenTrades: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_trades",
			Help: "Currently open simulated trades.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_cycle_duration_seconds",
			Help:    "End-to-end evaluation cycle duration.",
			Buckets: prometheus.DefBuckets,
		}),
		registry: registry,
	}
}

// Handler returns an http handler exposing the registered collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
