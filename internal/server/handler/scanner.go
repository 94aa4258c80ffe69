package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

// ScannerService defines the core operations the scanner handler requires.
type ScannerService interface {
	GetScannerStatus(ctx context.Context) domain.ScannerStatus
	StartScanner(ctx context.Context) error
	StopScanner(ctx context.Context) error
}

// ScannerHandler serves scanner control-loop endpoints.
type ScannerHandler struct {
	core   ScannerService
	logger *slog.Logger
}

// NewScannerHandler creates a ScannerHandler.
func NewScannerHandler(core ScannerService, logger *slog.Logger) *ScannerHandler {
	return &ScannerHandler{core: core, logger: logger}
}

type scannerStatusView struct {
	IsRunning         bool   `json:"is_running"`
	VenuesActive      int    `json:"venues_active"`
	TotalSignals24h   int64  `json:"total_signals_24h"`
	StrategyErrors24h int64  `json:"strategy_errors_24h"`
	LastCycleAt       string `json:"last_cycle_at,omitempty"`
}

// Status returns the aggregate scanner counters.
// GET /api/scanner
func (h *ScannerHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.core.GetScannerStatus(r.Context())

	view := scannerStatusView{
		IsRunning:         st.IsRunning,
		VenuesActive:      st.VenuesActive,
		TotalSignals24h:   st.TotalSignals24h,
		StrategyErrors24h: st.StrategyErrors24h,
	}
	if st.LastCycleAt != nil {
		view.LastCycleAt = st.LastCycleAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, view)
}

// Start begins scan cycles. Idempotent.
// POST /api/scanner/start
func (h *ScannerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.core.StartScanner(r.Context()); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

// Stop halts scan cycles, waiting for any in-flight cycle. Idempotent.
// POST /api/scanner/stop
func (h *ScannerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.core.StopScanner(r.Context()); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
