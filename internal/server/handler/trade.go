package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

// TradeService defines the core operations the trade handler requires.
type TradeService interface {
	ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error)
}

// TradeHandler serves trade history endpoints.
type TradeHandler struct {
	core   TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(core TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{core: core, logger: logger}
}

type tradeView struct {
	ID     string `json:"id"`
	EdgeID string `json:"edge_id"`

	EntryPrice float64  `json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`

	ProfitLamports  int64   `json:"profit_lamports"`
	GasCostLamports int64   `json:"gas_cost_lamports"`
	SlippageBps     float64 `json:"slippage_bps"`

	ExecutedAt  string `json:"executed_at"`
	TxSignature string `json:"tx_signature"`
}

func tradeToView(t domain.Trade) tradeView {
	return tradeView{
		ID:              t.ID,
		EdgeID:          t.EdgeID,
		EntryPrice:      t.EntryPrice,
		ExitPrice:       t.ExitPrice,
		ProfitLamports:  t.ProfitLamports,
		GasCostLamports: t.GasCostLamports,
		SlippageBps:     t.SlippageBps,
		ExecutedAt:      t.ExecutedAt.UTC().Format(time.RFC3339),
		TxSignature:     t.TxSignature,
	}
}

// List returns recorded trades, newest first, narrowed by query filters.
// GET /api/trades?edge_id=&since=&until=&profitable_only=&limit=&offset=
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	since, err := queryTime(r, "since")
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, err.Error())
		return
	}
	until, err := queryTime(r, "until")
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, err.Error())
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	filter := domain.TradeFilter{
		EdgeID:         r.URL.Query().Get("edge_id"),
		Since:          since,
		Until:          until,
		ProfitableOnly: r.URL.Query().Get("profitable_only") == "true",
		Limit:          limit,
		Offset:         queryInt(r, "offset", 0),
	}

	trades, err := h.core.ListTrades(r.Context(), filter)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, tradeToView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": views})
}
