// Package metrics exposes Prometheus counters for the item lifecycle and
// the expiry sweep.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the service and worker layers record against.
type Recorder interface {
	RecordTransition(event string)
	RecordTransitionConflict()
	RecordSweep(expired int)
}

type Collector struct {
	registry            *prometheus.Registry
	transitions         *prometheus.CounterVec
	transitionConflicts prometheus.Counter
	sweepRuns           prometheus.Counter
	sweepExpired        prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qrfound_item_transitions_total",
			Help: "Item lifecycle transitions applied, by event.",
		}, []string{"event"}),
		transitionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qrfound_item_transition_conflicts_total",
			Help: "Transitions rejected because a concurrent writer won the conditional update.",
		}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qrfound_expiry_sweep_runs_total",
			Help: "Expiry sweep executions.",
		}),
		sweepExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qrfound_expiry_sweep_expired_total",
			Help: "Items auto-expired by the sweep.",
		}),
	}

	c.registry.MustRegister(
		c.transitions,
		c.transitionConflicts,
		c.sweepRuns,
		c.sweepExpired,
	)

	return c
}

func (c *Collector) RecordTransition(event string) {
	c.transitions.WithLabelValues(event).Inc()
}

func (c *Collector) RecordTransitionConflict() {
	c.transitionConflicts.Inc()
}

func (c *Collector) RecordSweep(expired int) {
	c.sweepRuns.Inc()
	c.sweepExpired.Add(float64(expired))
}

// Handler serves the collector's registry for Prometheus scrapes.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Nop discards all recordings; used in tests.
type Nop struct{}

func (Nop) RecordTransition(string)   {}
func (Nop) RecordTransitionConflict() {}
func (Nop) RecordSweep(int)           {}
