// Package metrics exposes Prometheus collectors for the form cache and the
// form factory.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-scriptform/pkg/cache"
	"github.com/goliatone/go-scriptform/pkg/factory"
)

const namespace = "scriptform"

// Collector records cache and build events. It satisfies cache.Observer and
// factory.BuildObserver so one value can be handed to both.
type Collector struct {
	cacheEvents   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	buildFailures prometheus.Counter
}

var (
	_ cache.Observer        = (*Collector)(nil)
	_ factory.BuildObserver = (*Collector)(nil)
)

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		// Labels:
		//   - event: hit, miss or invalidated
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_cache_events_total",
				Help:      "Total number of form cache lookups and invalidations",
			},
			[]string{"event"},
		),
		// Labels:
		//   - status: success or failed
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "form_build_duration_seconds",
				Help:      "Duration of form builds in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"status"},
		),
		buildFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_build_failures_total",
				Help:      "Total number of form builds that returned an error",
			},
		),
	}

	if reg != nil {
		for _, collector := range []prometheus.Collector{c.cacheEvents, c.buildDuration, c.buildFailures} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// CacheHit implements cache.Observer.
func (c *Collector) CacheHit(int64) { c.cacheEvents.WithLabelValues("hit").Inc() }

// CacheMiss implements cache.Observer.
func (c *Collector) CacheMiss(int64) { c.cacheEvents.WithLabelValues("miss").Inc() }

// CacheInvalidated implements cache.Observer.
func (c *Collector) CacheInvalidated(int64) { c.cacheEvents.WithLabelValues("invalidated").Inc() }

// BuildCompleted implements factory.BuildObserver.
func (c *Collector) BuildCompleted(_ int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
		c.buildFailures.Inc()
	}
	c.buildDuration.WithLabelValues(status).Observe(duration.Seconds())
}
