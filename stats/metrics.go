// Package stats registers and updates the OSD's Prometheus metrics.
// The counter/gauge/histogram wrapper shape is carried over from the
// retrieved stats package's iprom family, trimmed to the handful of
// metrics this core actually needs: request counts by
// opcode, per-op latency, bytes moved, and FAILOK occurrences (spec
// §6).
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the OSD daemon's registered metric set (spec §6).
type Metrics struct {
	OpsTotal      *prometheus.CounterVec
	OpErrorsTotal *prometheus.CounterVec
	OpLatency     *prometheus.HistogramVec
	BytesRead     prometheus.Counter
	BytesWritten  prometheus.Counter
	FailokTotal   prometheus.Counter
	ObjectsTotal  prometheus.Gauge
	Uptime        prometheus.Gauge
}

// NewMetrics builds and registers a fresh Metrics set against reg.
// Passing prometheus.NewRegistry() (rather than the global default
// registry) keeps repeated test-suite construction collision-free,
// the same isolation the retrieved source's stats runner gives each
// unit test.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osd",
			Name:      "ops_total",
			Help:      "Total ops dispatched, by opcode.",
		}, []string{"op"}),
		OpErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osd",
			Name:      "op_errors_total",
			Help:      "Total ops that returned a non-zero rval, by opcode.",
		}, []string{"op"}),
		OpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "osd",
			Name:      "op_latency_seconds",
			Help:      "Per-op execution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osd",
			Name:      "bytes_read_total",
			Help:      "Total bytes served by READ ops.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osd",
			Name:      "bytes_written_total",
			Help:      "Total bytes accepted by WRITE/WRITEFULL/ZERO ops.",
		}),
		FailokTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osd",
			Name:      "failok_total",
			Help:      "Total op failures suppressed by the FAILOK flag.",
		}),
		ObjectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "osd",
			Name:      "objects",
			Help:      "Current number of live objects in the store.",
		}),
		Uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "osd",
			Name:      "uptime_seconds",
			Help:      "Seconds since daemon start.",
		}),
	}
	reg.MustRegister(m.OpsTotal, m.OpErrorsTotal, m.OpLatency, m.BytesRead,
		m.BytesWritten, m.FailokTotal, m.ObjectsTotal, m.Uptime)
	return m
}

// ObserveOp records one op's completion: a count, an optional error
// count, and a latency sample, keyed by opcode name.
func (m *Metrics) ObserveOp(opName string, failed bool, seconds float64) {
	m.OpsTotal.WithLabelValues(opName).Inc()
	if failed {
		m.OpErrorsTotal.WithLabelValues(opName).Inc()
	}
	m.OpLatency.WithLabelValues(opName).Observe(seconds)
}
