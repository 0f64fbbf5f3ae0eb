// Package metrics provides the Prometheus metrics of the gate check service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GateCheckMetrics contains all Prometheus metrics related to gate check
// lifecycle operations. A nil *GateCheckMetrics is valid and records nothing.
type GateCheckMetrics struct {
	started              *prometheus.CounterVec
	closed               *prometheus.CounterVec
	itemUpdates          *prometheus.CounterVec
	deficienciesCreated  prometheus.Counter
	deficienciesResolved prometheus.Counter
	operationErrors      *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
}

// NewGateCheckMetrics creates the gate check metrics and registers them
// with registry.
func NewGateCheckMetrics(registry prometheus.Registerer) (*GateCheckMetrics, error) {
	m := &GateCheckMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register gate check metrics: %w", err)
	}
	return m, nil
}

func (m *GateCheckMetrics) initMetrics() {
	m.started = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecheck_started_total",
		Help: "Total number of gate checks started",
	}, []string{"transition"})

	m.closed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecheck_closed_total",
		Help: "Total number of gate checks closed, by terminal status",
	}, []string{"transition", "status"})

	m.itemUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecheck_item_updates_total",
		Help: "Total number of checklist item results recorded",
	}, []string{"result"})

	m.deficienciesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecheck_deficiencies_created_total",
		Help: "Total number of deficiencies raised by failed blocking items",
	})

	m.deficienciesResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecheck_deficiencies_resolved_total",
		Help: "Total number of deficiencies resolved",
	})

	m.operationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecheck_operation_errors_total",
		Help: "Total number of failed operations, by error code",
	}, []string{"operation", "code"})

	m.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatecheck_operation_duration_seconds",
		Help:    "Duration of gate check operations in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"operation"})
}

// RecordStarted counts a newly started gate check.
func (m *GateCheckMetrics) RecordStarted(transition string) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(transition).Inc()
}

// RecordClosed counts a gate check reaching a terminal status.
func (m *GateCheckMetrics) RecordClosed(transition, status string) {
	if m == nil {
		return
	}
	m.closed.WithLabelValues(transition, status).Inc()
}

// RecordItemUpdate counts a recorded item result.
func (m *GateCheckMetrics) RecordItemUpdate(result string) {
	if m == nil {
		return
	}
	m.itemUpdates.WithLabelValues(result).Inc()
}

// RecordDeficiencyCreated counts a new deficiency.
func (m *GateCheckMetrics) RecordDeficiencyCreated() {
	if m == nil {
		return
	}
	m.deficienciesCreated.Inc()
}

// RecordDeficiencyResolved counts a resolved deficiency.
func (m *GateCheckMetrics) RecordDeficiencyResolved() {
	if m == nil {
		return
	}
	m.deficienciesResolved.Inc()
}

// RecordOperation records the duration of an operation and, when code is
// non-empty, counts it as failed with that error code.
func (m *GateCheckMetrics) RecordOperation(operation string, start time.Time, code string) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if code != "" {
		m.operationErrors.WithLabelValues(operation, code).Inc()
	}
}

// Collect implements the prometheus.Collector interface.
func (m *GateCheckMetrics) Collect(ch chan<- prometheus.Metric) {
	m.started.Collect(ch)
	m.closed.Collect(ch)
	m.itemUpdates.Collect(ch)
	ch <- m.deficienciesCreated
	ch <- m.deficienciesResolved
	m.operationErrors.Collect(ch)
	m.operationDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *GateCheckMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.started.Describe(ch)
	m.closed.Describe(ch)
	m.itemUpdates.Describe(ch)
	ch <- m.deficienciesCreated.Desc()
	ch <- m.deficienciesResolved.Desc()
	m.operationErrors.Describe(ch)
	m.operationDuration.Describe(ch)
}
