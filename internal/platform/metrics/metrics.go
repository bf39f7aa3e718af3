// Package metrics exposes the service's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts borrow state machine outcomes by target status and
	// result (ok, invalid_transition, conflict, error).
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_borrow_transitions_total",
		Help: "Borrow record state transitions by target status and result.",
	}, []string{"target", "result"})

	// FinesAccrued counts fine ledger upserts performed by the accrual engine.
	FinesAccrued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_fines_accrued_total",
		Help: "Fine ledger upserts performed by the accrual engine.",
	})

	// SweepDuration tracks reconciliation sweep wall time by job name.
	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lms_sweep_duration_seconds",
		Help:    "Duration of reconciliation sweeps.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	// SweepErrors counts per-record failures skipped during sweeps.
	SweepErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_sweep_record_errors_total",
		Help: "Records skipped due to errors during reconciliation sweeps.",
	}, []string{"job"})
)
