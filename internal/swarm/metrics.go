package swarm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var agentsByHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "arbedge",
	Subsystem: "swarm",
	Name:      "agents",
	Help:      "Agents by health state",
}, []string{"health"})

var swarmPaused = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "arbedge",
	Subsystem: "swarm",
	Name:      "paused",
	Help:      "1 while the supervisor pause is active",
})

var executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arbedge",
	Subsystem: "swarm",
	Name:      "executions_total",
	Help:      "Execution attempts, by outcome",
}, []string{"outcome"})
