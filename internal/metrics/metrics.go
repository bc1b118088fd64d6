package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the cache, fetchers and API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	FetchFailures  prometheus.Counter
	FetchDur       prometheus.Histogram

	IndicatorComputeDur prometheus.Histogram
	SnapshotsRecorded   prometheus.Counter

	HTTPRequests *prometheus.CounterVec // labels: route, code

	gatherer prometheus.Gatherer
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_cache_hits_total",
			Help: "Fetch cache lookups served from a live entry",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_cache_misses_total",
			Help: "Fetch cache lookups that required an external fetch",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_cache_evictions_total",
			Help: "Stale entries dropped on lookup",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_fetch_failures_total",
			Help: "External fetches that failed or timed out",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketlens_fetch_duration_seconds",
			Help:    "External market-data fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketlens_indicator_compute_duration_seconds",
			Help:    "Indicator computation latency per request",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SnapshotsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_snapshots_recorded_total",
			Help: "Watchlist indicator snapshots persisted",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketlens_http_requests_total",
			Help: "HTTP API requests by route and status code",
		}, []string{"route", "code"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvictions,
		m.FetchFailures,
		m.FetchDur,
		m.IndicatorComputeDur,
		m.SnapshotsRecorded,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Hit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) Miss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) Evicted() {
	if m != nil {
		m.CacheEvictions.Inc()
	}
}

// ObserveFetch records one external fetch and whether it failed.
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDur.Observe(d.Seconds())
	if err != nil {
		m.FetchFailures.Inc()
	}
}

func (m *Metrics) ObserveCompute(d time.Duration) {
	if m != nil {
		m.IndicatorComputeDur.Observe(d.Seconds())
	}
}

func (m *Metrics) SnapshotRecorded() {
	if m != nil {
		m.SnapshotsRecorded.Inc()
	}
}

func (m *Metrics) Request(route string, code int) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	}
}
