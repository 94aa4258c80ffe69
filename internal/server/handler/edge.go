package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

// EdgeService defines the core operations the edge handler requires.
type EdgeService interface {
	GetEdge(ctx context.Context, id string) (domain.Edge, error)
	ListEdges(ctx context.Context, status domain.EdgeStatus) []domain.Edge
	ApproveEdge(ctx context.Context, id string) error
	RejectEdge(ctx context.Context, id, reason string) error
	ExecuteEdge(ctx context.Context, id string) (domain.Trade, error)
}

// EdgeHandler serves edge lifecycle endpoints.
type EdgeHandler struct {
	core   EdgeService
	logger *slog.Logger
}

// NewEdgeHandler creates an EdgeHandler.
func NewEdgeHandler(core EdgeService, logger *slog.Logger) *EdgeHandler {
	return &EdgeHandler{core: core, logger: logger}
}

type routeHopView struct {
	Venue     string `json:"venue"`
	VenueType string `json:"venue_type"`
	PoolAddr  string `json:"pool_addr"`
}

type routeView struct {
	InputMint  string         `json:"input_mint"`
	OutputMint string         `json:"output_mint"`
	Venues     []routeHopView `json:"venues"`
}

type scoreView struct {
	GraduationFactor float64  `json:"graduation_factor"`
	VolumeFactor     float64  `json:"volume_factor"`
	HolderFactor     float64  `json:"holder_factor"`
	MomentumFactor   float64  `json:"momentum_factor"`
	RiskPenalty      float64  `json:"risk_penalty"`
	OverallScore     float64  `json:"overall_score"`
	Recommendation   string   `json:"recommendation"`
	RiskWarnings     []string `json:"risk_warnings,omitempty"`
	PositiveSignals  []string `json:"positive_signals,omitempty"`
}

type edgeView struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at,omitempty"`

	Strategy  string    `json:"strategy"`
	EdgeType  string    `json:"edge_type"`
	VenueType string    `json:"venue_type"`
	Route     routeView `json:"route"`

	EstimatedProfitLamports int64  `json:"estimated_profit_lamports"`
	CapitalLamports         int64  `json:"capital_lamports"`
	RiskScore               int    `json:"risk_score"`
	Atomicity               string `json:"atomicity"`
	ZeroCapitalRisk         bool   `json:"zero_capital_risk"`

	ExecutionMode string    `json:"execution_mode"`
	Status        string    `json:"status"`
	Score         scoreView `json:"score"`

	RejectionReason string `json:"rejection_reason,omitempty"`
	FailureCause    string `json:"failure_cause,omitempty"`
	ClaimedBy       string `json:"claimed_by,omitempty"`
	TradeID         string `json:"trade_id,omitempty"`
}

func edgeToView(e domain.Edge) edgeView {
	hops := make([]routeHopView, 0, len(e.Route.Venues))
	for _, h := range e.Route.Venues {
		hops = append(hops, routeHopView{
			Venue:     h.Venue,
			VenueType: string(h.VenueType),
			PoolAddr:  h.PoolAddr,
		})
	}

	v := edgeView{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		Strategy:  e.Strategy,
		EdgeType:  string(e.EdgeType),
		VenueType: string(e.VenueType),
		Route: routeView{
			InputMint:  e.Route.InputMint,
			OutputMint: e.Route.OutputMint,
			Venues:     hops,
		},
		EstimatedProfitLamports: e.EstimatedProfitLamports,
		CapitalLamports:         e.CapitalLamports,
		RiskScore:               e.RiskScore,
		Atomicity:               string(e.Atomicity),
		ZeroCapitalRisk:         e.ZeroCapitalRisk(),
		ExecutionMode:           string(e.ExecutionMode),
		Status:                  string(e.Status),
		Score: scoreView{
			GraduationFactor: e.Score.GraduationFactor,
			VolumeFactor:     e.Score.VolumeFactor,
			HolderFactor:     e.Score.HolderFactor,
			MomentumFactor:   e.Score.MomentumFactor,
			RiskPenalty:      e.Score.RiskPenalty,
			OverallScore:     e.Score.OverallScore,
			Recommendation:   e.Score.Recommendation.String(),
			RiskWarnings:     e.Score.RiskWarnings,
			PositiveSignals:  e.Score.PositiveSignals,
		},
		RejectionReason: e.RejectionReason,
		FailureCause:    e.FailureCause,
		ClaimedBy:       e.ClaimedBy,
		TradeID:         e.TradeID,
	}
	if e.ExpiresAt != nil {
		v.ExpiresAt = e.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return v
}

var validEdgeStatuses = map[domain.EdgeStatus]bool{
	domain.EdgeStatusDetected:        true,
	domain.EdgeStatusPendingApproval: true,
	domain.EdgeStatusApproved:        true,
	domain.EdgeStatusRejected:        true,
	domain.EdgeStatusExecuting:       true,
	domain.EdgeStatusExecuted:        true,
	domain.EdgeStatusFailed:          true,
	domain.EdgeStatusExpired:         true,
}

// List returns edges, optionally filtered by lifecycle status.
// GET /api/edges?status=pending_approval
func (h *EdgeHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.EdgeStatus(r.URL.Query().Get("status"))
	if status != "" && !validEdgeStatuses[status] {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "unknown status "+string(status))
		return
	}

	edges := h.core.ListEdges(r.Context(), status)

	views := make([]edgeView, 0, len(edges))
	for _, e := range edges {
		views = append(views, edgeToView(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": views})
}

// Get returns a single edge by id.
// GET /api/edges/{id}
func (h *EdgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	edge, err := h.core.GetEdge(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edgeToView(edge))
}

// Approve moves a pending edge to approved, reserving its capital.
// POST /api/edges/{id}/approve
func (h *EdgeHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.core.ApproveEdge(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(domain.EdgeStatusApproved)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject moves a pending edge to rejected with an operator-supplied reason.
// POST /api/edges/{id}/reject
func (h *EdgeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req rejectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body: "+err.Error())
		return
	}

	if err := h.core.RejectEdge(r.Context(), id, req.Reason); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(domain.EdgeStatusRejected)})
}

// Execute claims an approved edge through the standard claim protocol and
// runs it synchronously, returning the recorded trade.
// POST /api/edges/{id}/execute
func (h *EdgeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	trade, err := h.core.ExecuteEdge(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeToView(trade))
}
