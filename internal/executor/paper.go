// Package executor provides execution adapter implementations. The paper
// adapter simulates fills for dry runs; a live on-venue adapter plugs in
// behind the same interface.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solwatch/arbedge/internal/domain"
)

// PaperConfig tunes the simulated fill model.
type PaperConfig struct {
	// BaseSlippageBps is charged on every fill.
	BaseSlippageBps float64
	// PerHopSlippageBps is charged per additional route hop.
	PerHopSlippageBps float64
	// GasCostLamports is the flat simulated network cost per execution.
	GasCostLamports int64
	// Latency delays each fill to exercise timeout paths.
	Latency time.Duration
}

// DefaultPaperConfig returns the stock simulation parameters.
func DefaultPaperConfig() PaperConfig {
	return PaperConfig{
		BaseSlippageBps:   12,
		PerHopSlippageBps: 8,
		GasCostLamports:   25_000,
		Latency:           50 * time.Millisecond,
	}
}

// Paper simulates executions deterministically from route shape: same edge,
// same fill. Guaranteed atomic routes fill at their estimate.
type Paper struct {
	cfg PaperConfig
}

// NewPaper creates the paper execution adapter.
func NewPaper(cfg PaperConfig) *Paper {
	return &Paper{cfg: cfg}
}

// Execute simulates filling the edge's route and returns the resulting
// trade.
func (p *Paper) Execute(ctx context.Context, edge domain.Edge) (domain.Trade, error) {
	if len(edge.Route.Venues) == 0 {
		return domain.Trade{}, fmt.Errorf("edge %s has an empty route: %w", edge.ID, domain.ErrExecutionFailure)
	}

	if p.cfg.Latency > 0 {
		select {
		case <-ctx.Done():
			return domain.Trade{}, fmt.Errorf("execution cancelled: %w", domain.ErrExecutionFailure)
		case <-time.After(p.cfg.Latency):
		}
	}

	slippageBps := p.cfg.BaseSlippageBps + p.cfg.PerHopSlippageBps*float64(len(edge.Route.Venues)-1)
	profit := edge.EstimatedProfitLamports
	if !edge.ZeroCapitalRisk() {
		profit -= int64(float64(edge.CapitalLamports) * slippageBps / 10_000)
	} else {
		slippageBps = 0
	}
	profit -= p.cfg.GasCostLamports

	return domain.Trade{
		ID:              uuid.New().String(),
		EdgeID:          edge.ID,
		EntryPrice:      1.0,
		ProfitLamports:  profit,
		GasCostLamports: p.cfg.GasCostLamports,
		SlippageBps:     slippageBps,
		ExecutedAt:      time.Now(),
		TxSignature:     "paper-" + edge.ID,
	}, nil
}
