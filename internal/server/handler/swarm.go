package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solwatch/arbedge/internal/domain"
)

// SwarmService defines the core operations the swarm handler requires.
type SwarmService interface {
	GetSwarmHealth(ctx context.Context) domain.SwarmHealth
	UnpauseSwarm(ctx context.Context) error
	CapitalInUse(ctx context.Context) (inUse, ceiling int64)
}

// SwarmHandler serves execution-swarm health and capital endpoints.
type SwarmHandler struct {
	core   SwarmService
	logger *slog.Logger
}

// NewSwarmHandler creates a SwarmHandler.
func NewSwarmHandler(core SwarmService, logger *slog.Logger) *SwarmHandler {
	return &SwarmHandler{core: core, logger: logger}
}

type swarmHealthView struct {
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
	Dead      int `json:"dead"`

	OverallHealth string `json:"overall_health"`
	IsPaused      bool   `json:"is_paused"`
}

// Health returns the per-state agent counts and the aggregate health verdict.
// GET /api/swarm/health
func (h *SwarmHandler) Health(w http.ResponseWriter, r *http.Request) {
	sh := h.core.GetSwarmHealth(r.Context())

	writeJSON(w, http.StatusOK, swarmHealthView{
		Healthy:       sh.Healthy,
		Degraded:      sh.Degraded,
		Unhealthy:     sh.Unhealthy,
		Dead:          sh.Dead,
		OverallHealth: sh.OverallHealth.String(),
		IsPaused:      sh.IsPaused,
	})
}

// Unpause lifts a supervisor-imposed execution pause. The pause never lifts
// on its own, so this is the only way back.
// POST /api/swarm/unpause
func (h *SwarmHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	if err := h.core.UnpauseSwarm(r.Context()); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unpaused"})
}

// Capital returns the reserved and ceiling lamport amounts of the admission
// ledger.
// GET /api/capital
func (h *SwarmHandler) Capital(w http.ResponseWriter, r *http.Request) {
	inUse, ceiling := h.core.CapitalInUse(r.Context())

	writeJSON(w, http.StatusOK, map[string]int64{
		"in_use_lamports":  inUse,
		"ceiling_lamports": ceiling,
	})
}
