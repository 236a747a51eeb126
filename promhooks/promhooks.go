// Package promhooks counts ccfacade.Hooks events as Prometheus metrics.
package promhooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/ccfacade"
)

type Hooks struct {
	Retries       prometheus.Counter
	RetryDelay    prometheus.Histogram
	Exhausted     prometheus.Counter
	WriteFailures prometheus.Counter
	ReadFailures  prometheus.Counter
}

var _ ccfacade.Hooks = (*Hooks)(nil)

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		Retries: f.NewCounter(prometheus.CounterOpts{
			Name: "ccfacade_store_contention_retries_total",
			Help: "Total number of case writes retried after losing to a concurrent writer",
		}),
		RetryDelay: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ccfacade_store_retry_delay_seconds",
			Help:    "Backoff delay before a contended case write is retried",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2},
		}),
		Exhausted: f.NewCounter(prometheus.CounterOpts{
			Name: "ccfacade_store_retries_exhausted_total",
			Help: "Total number of case writes abandoned after every attempt was contended",
		}),
		WriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ccfacade_store_failures_total",
			Help: "Total number of case writes that failed with a non-contention error",
		}),
		ReadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ccfacade_read_failures_total",
			Help: "Total number of case reads that failed with a backing store error",
		}),
	}
}

func (h *Hooks) ContentionRetry(_ string, _ int, delay time.Duration) {
	h.Retries.Inc()
	h.RetryDelay.Observe(delay.Seconds())
}

func (h *Hooks) RetriesExhausted(string, int) { h.Exhausted.Inc() }
func (h *Hooks) WriteFailed(string, error)    { h.WriteFailures.Inc() }
func (h *Hooks) ReadFailed(string, error)     { h.ReadFailures.Inc() }
