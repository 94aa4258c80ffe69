// Package swarm implements the bounded pool of execution agents and the
// health supervisor that aggregates their state into the swarm-wide
// circuit breaker.
package swarm

import (
	"sync"

	"github.com/solwatch/arbedge/internal/domain"
)

// AgentConfig tunes the per-agent health state machine.
type AgentConfig struct {
	// DegradeAfter consecutive failures move a healthy agent to degraded.
	DegradeAfter int
	// UnhealthyAfter consecutive failures move the agent to unhealthy.
	UnhealthyAfter int
	// RecoverAfter consecutive successes move the agent one state up.
	RecoverAfter int
}

// DefaultAgentConfig returns the stock health thresholds.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{DegradeAfter: 2, UnhealthyAfter: 4, RecoverAfter: 3}
}

// Agent is one execution worker identity with its health state. Health is
// transitioned only by the agent's own execution outcomes; dead agents never
// recover.
type Agent struct {
	id  string
	cfg AgentConfig

	mu        sync.Mutex
	health    domain.AgentHealth
	failures  int // consecutive
	successes int // consecutive
}

// NewAgent creates a healthy agent.
func NewAgent(id string, cfg AgentConfig) *Agent {
	if cfg.DegradeAfter <= 0 {
		cfg.DegradeAfter = 2
	}
	if cfg.UnhealthyAfter <= cfg.DegradeAfter {
		cfg.UnhealthyAfter = cfg.DegradeAfter + 2
	}
	if cfg.RecoverAfter <= 0 {
		cfg.RecoverAfter = 3
	}
	return &Agent{id: id, cfg: cfg, health: domain.AgentHealthy}
}

// ID returns the agent identity used for edge claims.
func (a *Agent) ID() string { return a.id }

// Health returns the agent's current health state.
func (a *Agent) Health() domain.AgentHealth {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.health
}

// RecordSuccess notes a successful execution. A run of successes walks the
// agent back up one state at a time; dead stays dead.
func (a *Agent) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.health == domain.AgentDead {
		return
	}
	a.failures = 0
	a.successes++
	if a.successes >= a.cfg.RecoverAfter && a.health > domain.AgentHealthy {
		a.health--
		a.successes = 0
	}
}

// RecordFailure notes a failed execution or venue I/O error and degrades
// the agent once the consecutive-failure thresholds are crossed.
func (a *Agent) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.health == domain.AgentDead {
		return
	}
	a.successes = 0
	a.failures++
	switch {
	case a.failures >= a.cfg.UnhealthyAfter && a.health < domain.AgentUnhealthy:
		a.health = domain.AgentUnhealthy
	case a.failures >= a.cfg.DegradeAfter && a.health < domain.AgentDegraded:
		a.health = domain.AgentDegraded
	}
}

// RecordFatal marks the agent dead. There is no way back.
func (a *Agent) RecordFatal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.health = domain.AgentDead
}
