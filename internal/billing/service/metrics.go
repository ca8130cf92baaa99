package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymdesk_payments_recorded_total",
		Help: "Payments recorded, by completeness of the settlement.",
	}, []string{"result"})

	cycleWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymdesk_cycle_write_failures_total",
		Help: "Dual writes where the cycle-ledger side failed after the legacy write.",
	})

	reconciliationsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymdesk_reconciliations_resolved_total",
		Help: "Diverged dual writes later repaired by the reconciliation sweep.",
	})
)
