package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "updwatch",
			Subsystem: "check",
			Name:      "runs_total",
			Help:      "Number of completed check runs per outcome.",
		}, []string{"outcome"},
	)
	checkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "updwatch",
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of one check run.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	notifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "updwatch",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Number of failed notification deliveries.",
		},
	)
	auditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "updwatch",
			Subsystem: "audit",
			Name:      "failures_total",
			Help:      "Number of failed audit sink writes.",
		},
	)
	lastRunTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "updwatch",
			Subsystem: "check",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the most recent completed check run.",
		},
	)
	lastOutcome = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "updwatch",
			Subsystem: "check",
			Name:      "last_outcome",
			Help:      "Outcome of the most recent run (1 = this outcome, 0 = not).",
		}, []string{"outcome"},
	)
)

// Outcomes tracked by the last_outcome gauge. Kept in one place so the gauge
// flags stay mutually exclusive.
var outcomeLabels = []string{"success", "no-update", "update-failed", "error"}

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{checksTotal, checkDuration, notifyFailures, auditFailures, lastRunTime, lastOutcome}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func ObserveCheck(outcome string, seconds float64, finished time.Time) {
	if !regOK.Load() {
		return
	}
	checksTotal.WithLabelValues(outcome).Inc()
	checkDuration.Observe(seconds)
	lastRunTime.Set(float64(finished.Unix()))
	for _, o := range outcomeLabels {
		var value float64
		if o == outcome {
			value = 1
		}
		lastOutcome.WithLabelValues(o).Set(value)
	}
}

func IncNotifyFailure() {
	if regOK.Load() {
		notifyFailures.Inc()
	}
}

func IncAuditFailure() {
	if regOK.Load() {
		auditFailures.Inc()
	}
}
