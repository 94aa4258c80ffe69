package swarm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/solwatch/arbedge/internal/domain"
)

// ScannerControl is the slice of the scanner the supervisor needs: the
// ability to force it stopped when the swarm degrades.
type ScannerControl interface {
	Stop()
}

// Supervisor aggregates agent health into the swarm-wide health signal and
// owns the pause flag. Pausing is the primary circuit breaker protecting
// capital when execution infrastructure degrades: it forces the scanner
// stopped and blocks all new claims. Un-pausing is an explicit operator
// action only, never automatic, to avoid flapping.
type Supervisor struct {
	agents  []*Agent
	scanner ScannerControl
	logger  *slog.Logger

	mu     sync.Mutex
	paused bool
}

// NewSupervisor creates a supervisor over the given agents. The scanner
// control may be nil in detection-less setups.
func NewSupervisor(agents []*Agent, scanner ScannerControl, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		agents:  agents,
		scanner: scanner,
		logger:  logger.With(slog.String("component", "swarm_supervisor")),
	}
}

// Health derives the current point-in-time aggregate. Overall health is the
// plurality category, breaking ties toward the worse state.
func (s *Supervisor) Health() domain.SwarmHealth {
	h := domain.SwarmHealth{}
	for _, a := range s.agents {
		switch a.Health() {
		case domain.AgentHealthy:
			h.Healthy++
		case domain.AgentDegraded:
			h.Degraded++
		case domain.AgentUnhealthy:
			h.Unhealthy++
		case domain.AgentDead:
			h.Dead++
		}
	}
	h.OverallHealth = overall(h)

	s.mu.Lock()
	h.IsPaused = s.paused
	s.mu.Unlock()

	agentsByHealth.WithLabelValues("healthy").Set(float64(h.Healthy))
	agentsByHealth.WithLabelValues("degraded").Set(float64(h.Degraded))
	agentsByHealth.WithLabelValues("unhealthy").Set(float64(h.Unhealthy))
	agentsByHealth.WithLabelValues("dead").Set(float64(h.Dead))
	return h
}

// overall picks the plurality health category, ties going to the worse one.
func overall(h domain.SwarmHealth) domain.AgentHealth {
	if h.Total() == 0 {
		return domain.AgentHealthy
	}
	best := domain.AgentDead
	bestCount := h.Dead
	for _, c := range []struct {
		health domain.AgentHealth
		count  int
	}{
		{domain.AgentUnhealthy, h.Unhealthy},
		{domain.AgentDegraded, h.Degraded},
		{domain.AgentHealthy, h.Healthy},
	} {
		if c.count > bestCount {
			best = c.health
			bestCount = c.count
		}
	}
	return best
}

// shouldPause is the degradation rule: dead-dominant (dead is at least a
// plurality) or an unhealthy majority.
func shouldPause(h domain.SwarmHealth) bool {
	total := h.Total()
	if total == 0 {
		return false
	}
	if h.Dead > 0 && h.Dead >= h.Healthy && h.Dead >= h.Degraded && h.Dead >= h.Unhealthy {
		return true
	}
	return 2*h.Unhealthy > total
}

// Refresh re-evaluates the degradation rule after an execution outcome and
// trips the pause when it is met. Recovery never clears the pause here.
func (s *Supervisor) Refresh() {
	h := s.Health()
	if !shouldPause(h) {
		return
	}

	s.mu.Lock()
	already := s.paused
	s.paused = true
	s.mu.Unlock()
	if already {
		return
	}

	swarmPaused.Set(1)
	s.logger.Error("swarm degraded, pausing execution and scanner",
		slog.String("overall", h.OverallHealth.String()),
		slog.Int("unhealthy", h.Unhealthy),
		slog.Int("dead", h.Dead),
		slog.Int("total", h.Total()),
	)
	if s.scanner != nil {
		s.scanner.Stop()
	}
}

// Paused reports whether the supervisor pause is active.
func (s *Supervisor) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Unpause clears the pause on explicit operator action. It refuses while
// the degradation rule still holds.
func (s *Supervisor) Unpause() error {
	h := s.Health()
	if shouldPause(h) {
		return fmt.Errorf("swarm still degraded (%s): %w", h.OverallHealth, domain.ErrStateConflict)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return nil
	}
	s.paused = false
	swarmPaused.Set(0)
	s.logger.Info("swarm unpaused by operator")
	return nil
}
