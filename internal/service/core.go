// Package service exposes the engine's request/response surface: strategy
// toggles, scanner control, edge approval and execution, swarm health, and
// trade listings. Every mutating call fails with a sentinel from the domain
// error taxonomy; domain.KindOf turns it into the machine-readable kind
// clients branch on.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/lifecycle"
	"github.com/solwatch/arbedge/internal/scanner"
	"github.com/solwatch/arbedge/internal/strategy"
	"github.com/solwatch/arbedge/internal/swarm"
)

// manualAgentID identifies operator-triggered executions in edge claims.
const manualAgentID = "operator"

// Core wires the engine components behind one facade.
type Core struct {
	registry   *strategy.Registry
	scanner    *scanner.Scanner
	manager    *lifecycle.Manager
	supervisor *swarm.Supervisor
	adapter    swarm.ExecutionAdapter
	trades     domain.TradeStore
	edges      domain.EdgeStore  // optional journal fallback for evicted edges
	audit      domain.AuditStore // optional
	logger     *slog.Logger
}

// NewCore creates the service facade.
func NewCore(
	registry *strategy.Registry,
	sc *scanner.Scanner,
	manager *lifecycle.Manager,
	supervisor *swarm.Supervisor,
	adapter swarm.ExecutionAdapter,
	trades domain.TradeStore,
	logger *slog.Logger,
) *Core {
	return &Core{
		registry:   registry,
		scanner:    sc,
		manager:    manager,
		supervisor: supervisor,
		adapter:    adapter,
		trades:     trades,
		logger:     logger.With(slog.String("component", "core_service")),
	}
}

// SetAuditStore attaches the operator-action audit log.
func (c *Core) SetAuditStore(audit domain.AuditStore) { c.audit = audit }

// SetEdgeStore attaches the edge journal. With it attached, edges the
// manager has evicted from memory stay readable, and terminal listings are
// served from the journal's full history.
func (c *Core) SetEdgeStore(edges domain.EdgeStore) { c.edges = edges }

// ListStrategies returns all registered strategies with their activation
// state.
func (c *Core) ListStrategies(ctx context.Context) []domain.BehavioralStrategy {
	return c.registry.List()
}

// ToggleStrategy flips one strategy's activation state. Unknown names fail
// with domain.ErrNotFound; toggling to the current value is a no-op success.
func (c *Core) ToggleStrategy(ctx context.Context, name string, active bool) error {
	if err := c.registry.Toggle(name, active); err != nil {
		return fmt.Errorf("core: toggle strategy: %w", err)
	}
	c.auditLog(ctx, "strategy_toggled", map[string]any{"name": name, "active": active})
	return nil
}

// ToggleAllStrategies sets every strategy's activation state atomically with
// respect to concurrent listings.
func (c *Core) ToggleAllStrategies(ctx context.Context, active bool) error {
	c.registry.ToggleAll(active)
	c.auditLog(ctx, "strategies_toggled_all", map[string]any{"active": active})
	return nil
}

// GetScannerStatus returns the scanner summary.
func (c *Core) GetScannerStatus(ctx context.Context) domain.ScannerStatus {
	return c.scanner.Status()
}

// StartScanner starts the detection loop. Starting while the supervisor
// pause is active is refused: the pause exists to halt detection.
func (c *Core) StartScanner(ctx context.Context) error {
	if c.supervisor != nil && c.supervisor.Paused() {
		return fmt.Errorf("core: start scanner: %w", domain.ErrSwarmPaused)
	}
	c.scanner.Start()
	c.auditLog(ctx, "scanner_started", nil)
	return nil
}

// StopScanner stops the detection loop. Idempotent.
func (c *Core) StopScanner(ctx context.Context) error {
	c.scanner.Stop()
	c.auditLog(ctx, "scanner_stopped", nil)
	return nil
}

// ApproveEdge approves a pending edge on operator authority.
func (c *Core) ApproveEdge(ctx context.Context, id string) error {
	if err := c.manager.Approve(ctx, id); err != nil {
		return fmt.Errorf("core: approve edge: %w", err)
	}
	c.auditLog(ctx, "edge_approved", map[string]any{"edge_id": id})
	return nil
}

// RejectEdge rejects a pending edge. The reason is required.
func (c *Core) RejectEdge(ctx context.Context, id, reason string) error {
	if err := c.manager.Reject(ctx, id, reason); err != nil {
		return fmt.Errorf("core: reject edge: %w", err)
	}
	c.auditLog(ctx, "edge_rejected", map[string]any{"edge_id": id, "reason": reason})
	return nil
}

// ExecuteEdge triggers manual execution of an approved edge. It runs the
// same claim protocol as swarm execution: exactly one caller wins the
// claim, everyone else gets unavailable or a state conflict.
func (c *Core) ExecuteEdge(ctx context.Context, id string) (domain.Trade, error) {
	edge, err := c.manager.Claim(ctx, id, manualAgentID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("core: execute edge: %w", err)
	}
	c.auditLog(ctx, "edge_execution_triggered", map[string]any{"edge_id": id})

	trade, execErr := c.adapter.Execute(ctx, edge)
	if execErr != nil {
		if failErr := c.manager.Fail(ctx, id, execErr.Error()); failErr != nil {
			c.logger.Error("manual execution fail transition",
				slog.String("edge_id", id),
				slog.String("error", failErr.Error()),
			)
		}
		return domain.Trade{}, fmt.Errorf("core: execute edge: %s: %w", execErr.Error(), domain.ErrExecutionFailure)
	}

	if err := c.manager.Complete(ctx, id, trade); err != nil {
		return domain.Trade{}, fmt.Errorf("core: execute edge complete: %w", err)
	}
	return trade, nil
}

// GetEdge returns one edge by id. Edges no longer held in memory are
// looked up in the journal, so terminal edges past the retention window
// remain addressable.
func (c *Core) GetEdge(ctx context.Context, id string) (domain.Edge, error) {
	edge, err := c.manager.Get(ctx, id)
	if err == nil {
		return edge, nil
	}
	if c.edges != nil && errors.Is(err, domain.ErrNotFound) {
		stored, storeErr := c.edges.GetByID(ctx, id)
		if storeErr == nil {
			return stored, nil
		}
	}
	return domain.Edge{}, fmt.Errorf("core: get edge: %w", err)
}

// listHistoryLimit caps journal-backed terminal listings.
const listHistoryLimit = 200

// ListEdges returns edges in the given status, newest first. An empty
// status lists everything held in memory; terminal statuses are served from
// the journal when one is attached, since the manager evicts aged terminal
// edges.
func (c *Core) ListEdges(ctx context.Context, status domain.EdgeStatus) []domain.Edge {
	if c.edges != nil && status.Terminal() {
		stored, err := c.edges.ListByStatus(ctx, status, domain.ListOpts{Limit: listHistoryLimit})
		if err == nil {
			return stored
		}
		c.logger.Warn("edge journal listing failed, serving in-memory view",
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
	return c.manager.List(ctx, status)
}

// GetSwarmHealth returns the aggregated swarm health.
func (c *Core) GetSwarmHealth(ctx context.Context) domain.SwarmHealth {
	return c.supervisor.Health()
}

// UnpauseSwarm clears the supervisor pause on explicit operator action.
func (c *Core) UnpauseSwarm(ctx context.Context) error {
	if err := c.supervisor.Unpause(); err != nil {
		return fmt.Errorf("core: unpause swarm: %w", err)
	}
	c.auditLog(ctx, "swarm_unpaused", nil)
	return nil
}

// ListTrades returns recorded trades matching the filter.
func (c *Core) ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	trades, err := c.trades.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("core: list trades: %w", err)
	}
	return trades, nil
}

// CapitalInUse reports the ledger's reserved exposure and ceiling.
func (c *Core) CapitalInUse(ctx context.Context) (inUse, ceiling int64) {
	return c.manager.Ledger().InUse(), c.manager.Ledger().Ceiling()
}

// auditLog records an operator action. Audit trouble is logged, never
// surfaced to the caller.
func (c *Core) auditLog(ctx context.Context, event string, detail map[string]any) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Log(ctx, event, detail); err != nil {
		c.logger.Warn("audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
