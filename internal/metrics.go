package internal

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports scheduler and tick activity. A nil *Metrics records nothing.
type Metrics struct {
	flushes       prometheus.Counter
	flushDuration prometheus.Histogram
	flushLength   prometheus.Histogram
	watcherRuns   *prometheus.CounterVec
	errors        *prometheus.CounterVec
	runaways      prometheus.Counter
	ticks         prometheus.Counter
	callbacks     prometheus.Counter
}

// NewMetrics registers the collectors on reg. Runtimes sharing a registry share the collectors.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.flushes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "flushes_total",
		Help:      "Total number of scheduler flushes.",
	})); err != nil {
		return nil, err
	}

	if m.flushDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "flush_duration_seconds",
		Help:      "Duration of scheduler flushes.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	})); err != nil {
		return nil, err
	}

	if m.flushLength, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "flush_queue_length",
		Help:      "Number of queue entries processed by a flush.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})); err != nil {
		return nil, err
	}

	if m.watcherRuns, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watcher",
		Name:      "runs_total",
		Help:      "Total number of watcher re-evaluations by kind.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}

	if m.errors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of reported errors by phase.",
	}, []string{"phase"})); err != nil {
		return nil, err
	}

	if m.runaways, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "runaway_total",
		Help:      "Total number of watchers dropped from a flush for re-queueing too many times.",
	})); err != nil {
		return nil, err
	}

	if m.ticks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tick",
		Name:      "ticks_total",
		Help:      "Total number of ticks run.",
	})); err != nil {
		return nil, err
	}

	if m.callbacks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tick",
		Name:      "callbacks_total",
		Help:      "Total number of callbacks run by ticks.",
	})); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, fmt.Errorf("observe: register metrics: %w", err)
}

func (m *Metrics) flush(length int, d time.Duration) {
	if m == nil {
		return
	}

	m.flushes.Inc()
	m.flushDuration.Observe(d.Seconds())
	m.flushLength.Observe(float64(length))
}

func (m *Metrics) watcherRun(kind Kind) {
	if m == nil {
		return
	}

	m.watcherRuns.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) reported(phase Phase) {
	if m == nil {
		return
	}

	m.errors.WithLabelValues(phase.String()).Inc()
}

func (m *Metrics) runaway() {
	if m == nil {
		return
	}

	m.runaways.Inc()
}

func (m *Metrics) tick(callbacks int) {
	if m == nil {
		return
	}

	m.ticks.Inc()
	m.callbacks.Add(float64(callbacks))
}
