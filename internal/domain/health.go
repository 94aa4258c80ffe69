package domain

import "time"

// AgentHealth is the health state of one execution agent. States are ordered
// from best to worst so the supervisor can compare them directly.
type AgentHealth int

const (
	AgentHealthy AgentHealth = iota
	AgentDegraded
	AgentUnhealthy
	AgentDead
)

// String returns the wire representation of the health state.
func (h AgentHealth) String() string {
	switch h {
	case AgentHealthy:
		return "healthy"
	case AgentDegraded:
		return "degraded"
	case AgentUnhealthy:
		return "unhealthy"
	case AgentDead:
		return "dead"
	default:
		return "unknown"
	}
}

// CanClaim reports whether an agent in this state may claim approved edges.
func (h AgentHealth) CanClaim() bool {
	return h == AgentHealthy || h == AgentDegraded
}

// SwarmHealth is a point-in-time aggregate of the execution pool. It is
// derived on read and never persisted independently.
type SwarmHealth struct {
	Healthy   int
	Degraded  int
	Unhealthy int
	Dead      int

	OverallHealth AgentHealth
	IsPaused      bool
}

// Total returns the number of agents counted in the aggregate.
func (s SwarmHealth) Total() int {
	return s.Healthy + s.Degraded + s.Unhealthy + s.Dead
}

// ScannerStatus summarises the scanner control loop for status reads. The
// scanner process itself stays authoritative over its own state.
type ScannerStatus struct {
	IsRunning    bool
	VenuesActive int

	// TotalSignals24h counts raw signals produced in the trailing 24 hours.
	TotalSignals24h int64
	// StrategyErrors24h counts isolated per-strategy detection failures.
	StrategyErrors24h int64

	LastCycleAt *time.Time
}
