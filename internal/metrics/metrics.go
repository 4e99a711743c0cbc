// Package metrics exposes Prometheus collectors for the bootstrap run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	phaseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kubestrap",
			Subsystem: "sequencer",
			Name:      "phase_total",
			Help:      "Total number of executed phases by result",
		},
		[]string{"phase", "result"},
	)

	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kubestrap",
			Subsystem: "sequencer",
			Name:      "phase_duration_seconds",
			Help:      "Duration of phase execution in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
		[]string{"phase"},
	)

	commandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kubestrap",
			Subsystem: "remote",
			Name:      "command_total",
			Help:      "Total number of remote commands by host and result",
		},
		[]string{"host", "result"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kubestrap",
			Subsystem: "remote",
			Name:      "command_duration_seconds",
			Help:      "Duration of remote commands in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3min
		},
		[]string{"host"},
	)

	probeAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kubestrap",
			Subsystem: "readiness",
			Name:      "probe_attempts",
			Help:      "Number of probe attempts before a gate resolved",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
		[]string{"phase", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		phaseTotal,
		phaseDuration,
		commandTotal,
		commandDuration,
		probeAttempts,
	)
}

// RecordPhase records a completed phase.
func RecordPhase(phase, result string, seconds float64) {
	phaseTotal.WithLabelValues(phase, result).Inc()
	phaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordCommand records a collected command result.
func RecordCommand(host, result string, seconds float64) {
	commandTotal.WithLabelValues(host, result).Inc()
	commandDuration.WithLabelValues(host).Observe(seconds)
}

// RecordGate records a resolved readiness gate.
func RecordGate(phase string, ready bool, attempts int) {
	result := "ready"
	if !ready {
		result = "timedout"
	}
	probeAttempts.WithLabelValues(phase, result).Observe(float64(attempts))
}
