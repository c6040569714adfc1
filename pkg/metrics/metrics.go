package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchAttemptsTotal *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	PagesFetchedTotal  *prometheus.CounterVec
	RecordsTotal       *prometheus.CounterVec
	ProxyPoolAvailable prometheus.Gauge
)

var initOnce sync.Once

// Init registers the collectors. Idempotent, so test binaries that touch
// several instrumented packages can call it freely.
func Init() {
	initOnce.Do(register)
}

func register() {
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_attempts_total",
			Help: "Total number of fetch attempts by classified outcome.",
		},
		[]string{"outcome"}, // success, soft_failure, hard_failure
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Duration of individual fetch attempts.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"host"},
	)

	PagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pages_fetched_total",
			Help: "Total number of pages processed by the pagination controller.",
		},
		[]string{"status"}, // ok, failed, drift
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_total",
			Help: "Total number of records by validation disposition.",
		},
		[]string{"disposition"}, // emitted, rejected, deduplicated
	)

	ProxyPoolAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_pool_available",
			Help: "Number of proxy identities currently eligible for selection.",
		},
	)
}
