package workflow

import "github.com/prometheus/client_golang/prometheus"

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "workflow_transitions_total", Help: "Paper status transitions by outcome"},
		[]string{"from", "to", "outcome"},
	)
	doiAllocationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "doi_allocations_total", Help: "DOIs issued"},
	)
)

func init() { prometheus.MustRegister(transitionsTotal, doiAllocationsTotal) }
