// Package metrics records lifecycle operation metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives operation measurements.
type Recorder interface {
	ObserveOperation(op, result string, took time.Duration)
	SetActiveRecords(n int)
	AddDecryptFailures(n int)
}

type noop struct{}

func (noop) ObserveOperation(string, string, time.Duration) {}
func (noop) SetActiveRecords(int)                           {}
func (noop) AddDecryptFailures(int)                         {}

// Noop discards every measurement.
var Noop Recorder = noop{}

const namespace = "todo_ledger"

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	activeRecords  prometheus.Gauge
	decryptFailure prometheus.Counter
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Lifecycle operations by operation and result kind.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Lifecycle operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		activeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_records",
			Help:      "Records currently held in the record store.",
		}),
		decryptFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Records loaded with an undecryptable payload.",
		}),
	}
	for _, c := range []prometheus.Collector{p.operations, p.duration, p.activeRecords, p.decryptFailure} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) ObserveOperation(op, result string, took time.Duration) {
	p.operations.WithLabelValues(op, result).Inc()
	p.duration.WithLabelValues(op).Observe(took.Seconds())
}

func (p *Prometheus) SetActiveRecords(n int) {
	p.activeRecords.Set(float64(n))
}

func (p *Prometheus) AddDecryptFailures(n int) {
	if n > 0 {
		p.decryptFailure.Add(float64(n))
	}
}
