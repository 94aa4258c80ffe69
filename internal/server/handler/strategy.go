package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solwatch/arbedge/internal/domain"
)

// StrategyService defines the core operations the strategy handler requires.
type StrategyService interface {
	ListStrategies(ctx context.Context) []domain.BehavioralStrategy
	ToggleStrategy(ctx context.Context, name string, active bool) error
	ToggleAllStrategies(ctx context.Context, active bool) error
}

// StrategyHandler serves detection-strategy endpoints.
type StrategyHandler struct {
	core   StrategyService
	logger *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler.
func NewStrategyHandler(core StrategyService, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{core: core, logger: logger}
}

type strategyView struct {
	Name            string   `json:"name"`
	StrategyType    string   `json:"strategy_type"`
	SupportedVenues []string `json:"supported_venues"`
	IsActive        bool     `json:"is_active"`
}

func strategyToView(s domain.BehavioralStrategy) strategyView {
	venues := make([]string, 0, len(s.SupportedVenues))
	for _, v := range s.SupportedVenues {
		venues = append(venues, string(v))
	}
	return strategyView{
		Name:            s.Name,
		StrategyType:    string(s.StrategyType),
		SupportedVenues: venues,
		IsActive:        s.IsActive,
	}
}

// List returns all registered strategies with their activation state.
// GET /api/strategies
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	strategies := h.core.ListStrategies(r.Context())

	views := make([]strategyView, 0, len(strategies))
	for _, s := range strategies {
		views = append(views, strategyToView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategies": views})
}

type toggleRequest struct {
	Active bool `json:"active"`
}

// Toggle enables or disables a single strategy.
// POST /api/strategies/{name}/toggle
func (h *StrategyHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body: "+err.Error())
		return
	}

	if err := h.core.ToggleStrategy(r.Context(), name, req.Active); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":   name,
		"active": req.Active,
	})
}

// ToggleAll enables or disables every registered strategy at once.
// POST /api/strategies/toggle
func (h *StrategyHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body: "+err.Error())
		return
	}

	if err := h.core.ToggleAllStrategies(r.Context(), req.Active); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"active": req.Active})
}
