package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marksearch"

// Metrics holds the Prometheus collectors for search activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	searchDuration *prometheus.HistogramVec
	searchResults  prometheus.Histogram
	cacheRequests  *prometheus.CounterVec
	indexRebuilds  *prometheus.CounterVec
	records        *prometheus.GaugeVec
}

// MustNewMetrics registers the collectors with reg. Collectors that are
// already registered are reused, so constructing twice against the same
// registry is safe. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Time spent answering a search query.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"strategy", "mode"},
		),
		searchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "results",
				Help:      "Number of results returned per query.",
				Buckets:   prometheus.LinearBuckets(0, 8, 8),
			},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "cache_requests_total",
				Help:      "Result cache lookups by outcome.",
			},
			[]string{"result"},
		),
		indexRebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "index_rebuilds_total",
				Help:      "Derived index builds by index name.",
			},
			[]string{"index"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "records",
				Help:      "Records held in the catalog by kind.",
			},
			[]string{"kind"},
		),
	}

	m.searchDuration = register(reg, m.searchDuration)
	m.searchResults = register(reg, m.searchResults)
	m.cacheRequests = register(reg, m.cacheRequests)
	m.indexRebuilds = register(reg, m.indexRebuilds)
	m.records = register(reg, m.records)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveSearch records the duration and result count of one query
func (m *Metrics) ObserveSearch(strategy, mode string, d time.Duration, results int) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues(strategy, mode).Observe(d.Seconds())
	m.searchResults.Observe(float64(results))
}

// CacheHit counts a result cache hit
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

// CacheMiss counts a result cache miss
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

// IndexRebuilt counts a derived index build
func (m *Metrics) IndexRebuilt(index string) {
	if m == nil {
		return
	}
	m.indexRebuilds.WithLabelValues(index).Inc()
}

// SetRecords reports the number of records held for a kind
func (m *Metrics) SetRecords(kind string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind).Set(float64(n))
}
