package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arbedge",
	Subsystem: "lifecycle",
	Name:      "transitions_total",
	Help:      "Edge state transitions, by from and to state",
}, []string{"from", "to"})

var discardedSignalsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "arbedge",
	Subsystem: "lifecycle",
	Name:      "discarded_signals_total",
	Help:      "Raw signals scored below the viability floor and discarded",
})

var capitalInUse = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "arbedge",
	Subsystem: "lifecycle",
	Name:      "capital_in_use_lamports",
	Help:      "Capital reserved across approved and executing edges",
})
