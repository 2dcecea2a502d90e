// Package metrics exposes Prometheus collectors for store executions,
// cache traffic and remote requests.
//
// A nil *Metrics is valid and records nothing, so stores can be built
// without a registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors registered by New.
type Metrics struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	executions     *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifter",
			Name:      "cache_hits_total",
			Help:      "Query results served from the cache.",
		}, []string{"store"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifter",
			Name:      "cache_misses_total",
			Help:      "Cache lookups that fell through to the backend.",
		}, []string{"store"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifter",
			Name:      "executions_total",
			Help:      "Queries executed against a backend.",
		}, []string{"store", "action"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lifter",
			Name:      "remote_request_duration_seconds",
			Help:      "Duration of remote backend requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{m.cacheHits, m.cacheMisses, m.executions, m.remoteDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Must is New that panics on registration failure.
func Must(reg prometheus.Registerer) *Metrics {
	m, err := New(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) CacheHit(store string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(store).Inc()
}

func (m *Metrics) CacheMiss(store string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(store).Inc()
}

func (m *Metrics) Executed(store, action string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(store, action).Inc()
}

// ObserveRemote records a request duration under its status class
// ("2xx", "4xx", ...), or "error" when no response was received.
func (m *Metrics) ObserveRemote(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteDuration.WithLabelValues(StatusClass(status)).Observe(d.Seconds())
}

// StatusClass buckets an HTTP status code; zero means transport failure.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
