package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the detection loop. Detection-layer faults are
// surfaced here and in the status counters only; they never propagate to
// callers of the approval/execution API.

var scanCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "arbedge",
	Subsystem: "scanner",
	Name:      "cycles_total",
	Help:      "Total number of completed scan cycles",
})

var signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arbedge",
	Subsystem: "scanner",
	Name:      "signals_total",
	Help:      "Total raw signals produced, by strategy",
}, []string{"strategy"})

var strategyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arbedge",
	Subsystem: "scanner",
	Name:      "strategy_errors_total",
	Help:      "Total isolated strategy detection failures, by strategy and venue",
}, []string{"strategy", "venue"})

var venueErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arbedge",
	Subsystem: "scanner",
	Name:      "venue_errors_total",
	Help:      "Total venue snapshot failures, by venue",
}, []string{"venue"})

var venuesActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "arbedge",
	Subsystem: "scanner",
	Name:      "venues_active",
	Help:      "Venues that produced a snapshot in the last cycle",
})
