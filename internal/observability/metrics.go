// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Screener metrics
	WalletsFetched     *prometheus.CounterVec
	WalletFetchErrors  prometheus.Counter
	SyntheticFallbacks prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	RefreshDuration    prometheus.Histogram
	RefreshWallets     prometheus.Gauge
	LastRefresh        prometheus.Gauge

	// Provider metrics
	AnalyticsCalls       *prometheus.CounterVec
	AnalyticsCallLatency *prometheus.HistogramVec
	AnalyticsCredits     prometheus.Counter
	ExchangeCallLatency  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	SnapshotsStored prometheus.Counter

	// Health metrics
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "whale_screener"
	}

	return &Metrics{
		// Screener metrics
		WalletsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "wallets_fetched_total",
			Help:      "Total number of wallet fetches by data source",
		}, []string{"source"}),
		WalletFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "wallet_fetch_errors_total",
			Help:      "Total number of failed wallet fetches",
		}),
		SyntheticFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "synthetic_fallbacks_total",
			Help:      "Total number of wallets served from synthetic data",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "cache_hits_total",
			Help:      "Total number of position cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "cache_misses_total",
			Help:      "Total number of position cache misses",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "refresh_duration_seconds",
			Help:      "Full refresh duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		RefreshWallets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "refresh_wallets",
			Help:      "Number of wallets covered by the last refresh",
		}),
		LastRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "last_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh",
		}),

		// Provider metrics
		AnalyticsCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "calls_total",
			Help:      "Total number of analytics API calls by endpoint and status",
		}, []string{"endpoint", "status"}),
		AnalyticsCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "call_latency_seconds",
			Help:      "Analytics API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		AnalyticsCredits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "credits_spent_total",
			Help:      "Total API credits spent on successful calls",
		}),
		ExchangeCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "call_latency_seconds",
			Help:      "Exchange info API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"request_type"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		SnapshotsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "snapshots_stored_total",
			Help:      "Total number of wallet snapshots persisted",
		}),

		// Health metrics
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWalletFetched increments the wallet fetch counter for a source.
func RecordWalletFetched(source string) {
	DefaultMetrics.WalletsFetched.WithLabelValues(source).Inc()
}

// RecordWalletFetchError increments the failed fetch counter.
func RecordWalletFetchError() {
	DefaultMetrics.WalletFetchErrors.Inc()
}

// RecordSyntheticFallback increments the synthetic fallback counter.
func RecordSyntheticFallback() {
	DefaultMetrics.SyntheticFallbacks.Inc()
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheMisses.Inc()
}

// RecordRefresh records a completed screener refresh.
func RecordRefresh(seconds float64, wallets int) {
	DefaultMetrics.RefreshDuration.Observe(seconds)
	DefaultMetrics.RefreshWallets.Set(float64(wallets))
}

// RecordAnalyticsCall records one analytics API call.
func RecordAnalyticsCall(endpoint string, success bool, seconds float64, credits int) {
	status := "error"
	if success {
		status = "ok"
	}
	DefaultMetrics.AnalyticsCalls.WithLabelValues(endpoint, status).Inc()
	DefaultMetrics.AnalyticsCallLatency.WithLabelValues(endpoint).Observe(seconds)
	if credits > 0 {
		DefaultMetrics.AnalyticsCredits.Add(float64(credits))
	}
}

// RecordExchangeCall records exchange info API latency.
func RecordExchangeCall(requestType string, seconds float64) {
	DefaultMetrics.ExchangeCallLatency.WithLabelValues(requestType).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSnapshotsStored adds to the persisted snapshot counter.
func RecordSnapshotsStored(n int) {
	DefaultMetrics.SnapshotsStored.Add(float64(n))
}
