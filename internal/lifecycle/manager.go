// Package lifecycle owns the edge state machine. The Manager is the single
// source of truth for every edge's status: all transitions are serialized
// per edge, capital admission happens at the approval transition, and the
// claim transition is the one operation with strict exactly-once semantics.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/scoring"
)

// validTransitions defines the edge state machine. Expiry applies to states
// that have not yet dispatched execution; an executing edge runs to its
// agent-reported outcome so the claim holder can always return ownership.
var validTransitions = map[domain.EdgeStatus][]domain.EdgeStatus{
	domain.EdgeStatusDetected:        {domain.EdgeStatusPendingApproval, domain.EdgeStatusRejected, domain.EdgeStatusExpired},
	domain.EdgeStatusPendingApproval: {domain.EdgeStatusApproved, domain.EdgeStatusRejected, domain.EdgeStatusExpired},
	domain.EdgeStatusApproved:        {domain.EdgeStatusExecuting, domain.EdgeStatusExpired},
	domain.EdgeStatusExecuting:       {domain.EdgeStatusExecuted, domain.EdgeStatusFailed},
}

func canTransition(from, to domain.EdgeStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PauseChecker gates claims on the swarm supervisor's pause flag.
type PauseChecker interface {
	Paused() bool
}

// MarketProvider supplies the current market context for an edge's venue so
// approval can re-score against live state instead of the admission
// snapshot. A false return means no fresh context is available; the
// admission score then stands, bounded in staleness by the edge TTL.
type MarketProvider interface {
	MarketFor(ctx context.Context, edge domain.Edge) (domain.MarketContext, bool)
}

// Config tunes the lifecycle manager.
type Config struct {
	// ViabilityFloor is the minimum overall score a signal needs to become
	// an edge at all.
	ViabilityFloor float64
	// AutoExecuteTier is the minimum recommendation for auto-mode approval.
	AutoExecuteTier domain.Recommendation
	// DefaultTTL applies when a signal carries no TTL of its own.
	DefaultTTL time.Duration
	// SweepInterval paces the background expiry sweep.
	SweepInterval time.Duration
	// TerminalRetention is how long terminal edges stay readable in memory
	// before the sweep evicts them. Evicted edges remain in the journal.
	TerminalRetention time.Duration
}

type entry struct {
	mu         sync.Mutex
	edge       domain.Edge
	terminalAt time.Time
}

// Manager owns all live edges and their transitions.
type Manager struct {
	scorer *scoring.Engine
	ledger *Ledger
	cfg    Config
	logger *slog.Logger

	store   domain.EdgeStore  // optional write-through journal
	trades  domain.TradeStore // optional trade journal
	bus     domain.EventBus   // optional lifecycle event publisher
	pause   PauseChecker      // optional claim gate
	markets MarketProvider    // optional approval-time re-scoring source

	mu    sync.RWMutex
	edges map[string]*entry
}

// NewManager creates a Manager. Store, trade store, event bus, and pause
// checker are attached afterwards by the wiring layer; all are optional.
func NewManager(scorer *scoring.Engine, ledger *Ledger, cfg Config, logger *slog.Logger) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 90 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	if cfg.TerminalRetention <= 0 {
		cfg.TerminalRetention = 10 * time.Minute
	}
	return &Manager{
		scorer: scorer,
		ledger: ledger,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "lifecycle")),
		edges:  make(map[string]*entry),
	}
}

// SetStores attaches the persistence sinks.
func (m *Manager) SetStores(edges domain.EdgeStore, trades domain.TradeStore) {
	m.store = edges
	m.trades = trades
}

// SetEventBus attaches the lifecycle event publisher.
func (m *Manager) SetEventBus(bus domain.EventBus) { m.bus = bus }

// SetPauseChecker attaches the supervisor's pause gate.
func (m *Manager) SetPauseChecker(p PauseChecker) { m.pause = p }

// SetMarketProvider attaches the approval-time re-scoring source.
func (m *Manager) SetMarketProvider(p MarketProvider) { m.markets = p }

// Ledger exposes the capital ledger for status reads.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// Rehydrate rebuilds the in-memory edge book from the journal after a
// restart and returns the number of edges restored. Approved edges
// re-reserve their capital; when the ceiling no longer accommodates one it
// expires rather than silently exceeding admission control. Executing edges
// lost their claim holder with the previous process and are failed.
func (m *Manager) Rehydrate(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}
	open, err := m.store.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("rehydrate edges: %w", err)
	}

	restored := 0
	for _, edge := range open {
		m.mu.Lock()
		if _, exists := m.edges[edge.ID]; exists {
			m.mu.Unlock()
			continue
		}
		e := &entry{edge: edge.Clone()}
		m.edges[edge.ID] = e
		m.mu.Unlock()
		restored++

		e.mu.Lock()
		switch e.edge.Status {
		case domain.EdgeStatusApproved:
			if err := m.ledger.Reserve(e.edge.ID, e.edge.Exposure()); err != nil {
				m.logger.Warn("rehydrated edge lost capital reservation",
					slog.String("edge_id", e.edge.ID),
					slog.String("error", err.Error()),
				)
				m.applyLocked(e, domain.EdgeStatusExpired, nil)
			}
		case domain.EdgeStatusExecuting:
			m.applyLocked(e, domain.EdgeStatusFailed, func(edge *domain.Edge) {
				edge.FailureCause = "claim orphaned by restart"
			})
		}
		m.expireLocked(e)
		e.mu.Unlock()
	}
	capitalInUse.Set(float64(m.ledger.InUse()))
	return restored, nil
}

// Admit scores a raw signal and, if it clears the viability floor, creates
// an edge and advances it through revalidation. Signals below the floor are
// discarded without creating any state. The returned bool reports whether an
// edge was created.
func (m *Manager) Admit(ctx context.Context, sig domain.RawSignal, mkt domain.MarketContext) (domain.Edge, bool, error) {
	score := m.scorer.Score(sig, mkt)
	if score.OverallScore < m.cfg.ViabilityFloor {
		discardedSignalsTotal.Inc()
		return domain.Edge{}, false, nil
	}

	now := time.Now()
	ttl := sig.TTL
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}
	expires := now.Add(ttl)

	mode := sig.ExecutionMode
	if mode == "" {
		mode = domain.ExecutionModeManual
	}

	e := &entry{edge: domain.Edge{
		ID:                        uuid.New().String(),
		CreatedAt:                 now,
		ExpiresAt:                 &expires,
		Strategy:                  sig.Strategy,
		EdgeType:                  sig.EdgeType,
		VenueType:                 sig.VenueType,
		Route:                     sig.Route,
		EstimatedProfitLamports:   sig.EstimatedProfitLamports,
		CapitalLamports:           sig.CapitalLamports,
		RiskScore:                 sig.RiskScore,
		Atomicity:                 sig.Atomicity,
		SimulatedProfitGuaranteed: sig.SimulatedProfitGuaranteed,
		ExecutionMode:             mode,
		Status:                    domain.EdgeStatusDetected,
		Score:                     score,
	}}

	m.mu.Lock()
	m.edges[e.edge.ID] = e
	m.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// detected -> pending_approval, or straight to rejected when the
	// re-validation against the admission snapshot fails.
	if reason, ok := m.viableLocked(e); !ok {
		m.applyLocked(e, domain.EdgeStatusRejected, func(edge *domain.Edge) {
			edge.RejectionReason = "auto-rejected: " + reason
		})
		return e.edge.Clone(), true, nil
	}
	m.applyLocked(e, domain.EdgeStatusPendingApproval, nil)

	// Auto-execute mode approves on the spot when the recommendation tier
	// clears the configured bar. The viability check runs again inside
	// approveLocked; a capital refusal leaves the edge pending for retry.
	if mode == domain.ExecutionModeAuto && score.Recommendation >= m.cfg.AutoExecuteTier {
		if err := m.approveLocked(ctx, e, "auto"); err != nil {
			m.logger.Info("auto-approval deferred",
				slog.String("edge_id", e.edge.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return e.edge.Clone(), true, nil
}

// Approve transitions a pending edge to approved on explicit operator
// action. Capital admission happens here; a refusal leaves the edge
// pending_approval and is retryable once capital frees up.
func (m *Manager) Approve(ctx context.Context, id string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	m.expireLocked(e)
	return m.approveLocked(ctx, e, "operator")
}

// approveLocked performs the pending_approval -> approved transition with
// the entry lock held. When a market provider is attached the edge is
// re-scored against the current market first, so the viability check never
// reuses the admission-time score; without one the admission score stands,
// bounded in staleness by the edge TTL.
func (m *Manager) approveLocked(ctx context.Context, e *entry, actor string) error {
	if e.edge.Status != domain.EdgeStatusPendingApproval {
		return fmt.Errorf("approve edge %s in status %s: %w", e.edge.ID, e.edge.Status, domain.ErrStateConflict)
	}
	if m.markets != nil {
		if mkt, ok := m.markets.MarketFor(ctx, e.edge); ok {
			e.edge.Score = m.scorer.Score(signalFromEdge(&e.edge), mkt)
		}
	}
	if reason, ok := m.viableLocked(e); !ok {
		m.applyLocked(e, domain.EdgeStatusRejected, func(edge *domain.Edge) {
			edge.RejectionReason = "auto-rejected: " + reason
		})
		return fmt.Errorf("edge %s no longer viable (%s): %w", e.edge.ID, reason, domain.ErrStateConflict)
	}
	if err := m.ledger.Reserve(e.edge.ID, e.edge.Exposure()); err != nil {
		return fmt.Errorf("approve edge %s: %w", e.edge.ID, err)
	}
	capitalInUse.Set(float64(m.ledger.InUse()))

	m.applyLocked(e, domain.EdgeStatusApproved, nil)
	m.logger.Info("edge approved",
		slog.String("edge_id", e.edge.ID),
		slog.String("actor", actor),
		slog.Int64("exposure_lamports", e.edge.Exposure()),
	)
	return nil
}

// viableLocked re-runs the risk/profit viability check. It returns a reason
// when the edge is not viable.
func (m *Manager) viableLocked(e *entry) (string, bool) {
	if e.edge.EstimatedProfitLamports <= 0 {
		return "estimated profit not positive", false
	}
	if e.edge.Score.OverallScore < m.cfg.ViabilityFloor {
		return fmt.Sprintf("score %.1f below viability floor %.1f", e.edge.Score.OverallScore, m.cfg.ViabilityFloor), false
	}
	return "", true
}

// signalFromEdge reconstructs the scoring input from the edge's detection
// fields for approval-time re-scoring.
func signalFromEdge(e *domain.Edge) domain.RawSignal {
	return domain.RawSignal{
		ID:                        e.ID,
		Strategy:                  e.Strategy,
		EdgeType:                  e.EdgeType,
		VenueType:                 e.VenueType,
		Route:                     e.Route,
		EstimatedProfitLamports:   e.EstimatedProfitLamports,
		CapitalLamports:           e.CapitalLamports,
		RiskScore:                 e.RiskScore,
		Atomicity:                 e.Atomicity,
		SimulatedProfitGuaranteed: e.SimulatedProfitGuaranteed,
		ExecutionMode:             e.ExecutionMode,
		CreatedAt:                 e.CreatedAt,
	}
}

// Reject transitions a pending edge to rejected. The reason is required and
// rejection is terminal and irreversible.
func (m *Manager) Reject(ctx context.Context, id, reason string) error {
	if reason == "" {
		return fmt.Errorf("rejection reason must not be empty: %w", domain.ErrValidation)
	}
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	m.expireLocked(e)
	if e.edge.Status != domain.EdgeStatusPendingApproval {
		return fmt.Errorf("reject edge %s in status %s: %w", id, e.edge.Status, domain.ErrStateConflict)
	}
	m.applyLocked(e, domain.EdgeStatusRejected, func(edge *domain.Edge) {
		edge.RejectionReason = reason
	})
	return nil
}

// Claim atomically transitions an approved edge to executing on behalf of
// the given agent. Exactly one claim succeeds per edge: a competitor that
// lost the race gets domain.ErrEdgeUnavailable, not a hard error. Expiry is
// checked here at read time, so a stale sweep can never let an expired edge
// through.
func (m *Manager) Claim(ctx context.Context, id, agentID string) (domain.Edge, error) {
	if m.pause != nil && m.pause.Paused() {
		return domain.Edge{}, fmt.Errorf("claim edge %s: %w", id, domain.ErrSwarmPaused)
	}

	e, err := m.lookup(id)
	if err != nil {
		return domain.Edge{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	m.expireLocked(e)

	switch e.edge.Status {
	case domain.EdgeStatusApproved:
		// fall through to the claim below
	case domain.EdgeStatusExecuting, domain.EdgeStatusExpired:
		return domain.Edge{}, fmt.Errorf("claim edge %s: %w", id, domain.ErrEdgeUnavailable)
	default:
		return domain.Edge{}, fmt.Errorf("claim edge %s in status %s: %w", id, e.edge.Status, domain.ErrStateConflict)
	}

	m.applyLocked(e, domain.EdgeStatusExecuting, func(edge *domain.Edge) {
		edge.ClaimedBy = agentID
	})
	return e.edge.Clone(), nil
}

// ApprovedByPriority returns the currently claimable edges in execution
// priority order: guaranteed-profit fully-atomic edges first, then by
// overall score, oldest first on ties.
func (m *Manager) ApprovedByPriority(ctx context.Context) []domain.Edge {
	m.mu.RLock()
	candidates := make([]*entry, 0, len(m.edges))
	for _, e := range m.edges {
		candidates = append(candidates, e)
	}
	m.mu.RUnlock()

	var out []domain.Edge
	for _, e := range candidates {
		e.mu.Lock()
		m.expireLocked(e)
		if e.edge.Status == domain.EdgeStatusApproved {
			out = append(out, e.edge.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZeroCapitalRisk() != out[j].ZeroCapitalRisk() {
			return out[i].ZeroCapitalRisk()
		}
		if out[i].Score.OverallScore != out[j].Score.OverallScore {
			return out[i].Score.OverallScore > out[j].Score.OverallScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ClaimNext claims the best available approved edge for the agent. It
// reports false when nothing is claimable.
func (m *Manager) ClaimNext(ctx context.Context, agentID string) (domain.Edge, bool) {
	for _, cand := range m.ApprovedByPriority(ctx) {
		edge, err := m.Claim(ctx, cand.ID, agentID)
		if err == nil {
			return edge, true
		}
	}
	return domain.Edge{}, false
}

// Complete records the agent's successful outcome: the trade is journaled
// and the edge becomes executed. The executed state always carries a linked
// trade.
func (m *Manager) Complete(ctx context.Context, id string, trade domain.Trade) error {
	if trade.EdgeID != id {
		return fmt.Errorf("trade edge id %q does not match edge %q: %w", trade.EdgeID, id, domain.ErrValidation)
	}
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edge.Status != domain.EdgeStatusExecuting {
		return fmt.Errorf("complete edge %s in status %s: %w", id, e.edge.Status, domain.ErrStateConflict)
	}

	if m.trades != nil {
		if err := m.trades.Insert(ctx, trade); err != nil {
			m.logger.Warn("trade journal insert failed",
				slog.String("edge_id", id),
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	m.ledger.Release(id)
	capitalInUse.Set(float64(m.ledger.InUse()))
	m.applyLocked(e, domain.EdgeStatusExecuted, func(edge *domain.Edge) {
		edge.TradeID = trade.ID
	})
	return nil
}

// Fail records the agent's failed outcome. Failed edges are never retried
// silently; re-execution requires a fresh detection and approval cycle.
func (m *Manager) Fail(ctx context.Context, id, cause string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edge.Status != domain.EdgeStatusExecuting {
		return fmt.Errorf("fail edge %s in status %s: %w", id, e.edge.Status, domain.ErrStateConflict)
	}

	m.ledger.Release(id)
	capitalInUse.Set(float64(m.ledger.InUse()))
	m.applyLocked(e, domain.EdgeStatusFailed, func(edge *domain.Edge) {
		edge.FailureCause = cause
	})
	return nil
}

// Get returns a copy of the edge, applying lazy expiry first.
func (m *Manager) Get(ctx context.Context, id string) (domain.Edge, error) {
	e, err := m.lookup(id)
	if err != nil {
		return domain.Edge{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	m.expireLocked(e)
	return e.edge.Clone(), nil
}

// List returns copies of edges in the given status, newest first. An empty
// status lists everything.
func (m *Manager) List(ctx context.Context, status domain.EdgeStatus) []domain.Edge {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.edges))
	for _, e := range m.edges {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var out []domain.Edge
	for _, e := range entries {
		e.mu.Lock()
		m.expireLocked(e)
		if status == "" || e.edge.Status == status {
			out = append(out, e.edge.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Run drives the periodic expiry sweep until ctx is cancelled. Expiry is
// additionally enforced lazily on every access, so the sweep only bounds how
// long a dead edge lingers in listings.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep applies TTL expiry and evicts terminal edges older than the
// retention window. Evicted edges stay readable through the journal; the
// in-memory book only holds the working set.
func (m *Manager) sweep() {
	m.mu.RLock()
	entries := make(map[string]*entry, len(m.edges))
	for id, e := range m.edges {
		entries[id] = e
	}
	m.mu.RUnlock()

	cutoff := time.Now().Add(-m.cfg.TerminalRetention)
	var evict []string
	for id, e := range entries {
		e.mu.Lock()
		m.expireLocked(e)
		if e.edge.Status.Terminal() && !e.terminalAt.IsZero() && e.terminalAt.Before(cutoff) {
			evict = append(evict, id)
		}
		e.mu.Unlock()
	}

	if len(evict) == 0 {
		return
	}
	m.mu.Lock()
	for _, id := range evict {
		delete(m.edges, id)
	}
	m.mu.Unlock()
	m.logger.Debug("terminal edges evicted", slog.Int("count", len(evict)))
}

// expireLocked applies TTL expiry with the entry lock held. Executing edges
// are left to their agent's outcome.
func (m *Manager) expireLocked(e *entry) {
	if e.edge.Status.Terminal() || e.edge.Status == domain.EdgeStatusExecuting {
		return
	}
	if !e.edge.ExpiredAt(time.Now()) {
		return
	}
	m.ledger.Release(e.edge.ID)
	capitalInUse.Set(float64(m.ledger.InUse()))
	m.applyLocked(e, domain.EdgeStatusExpired, nil)
}

// applyLocked performs a transition with the entry lock held. Invalid
// transitions panic here because every caller validates first; the
// validation table is the single authority.
func (m *Manager) applyLocked(e *entry, to domain.EdgeStatus, mutate func(*domain.Edge)) {
	from := e.edge.Status
	if !canTransition(from, to) {
		m.logger.Error("invalid transition suppressed",
			slog.String("edge_id", e.edge.ID),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		return
	}
	e.edge.Status = to
	if mutate != nil {
		mutate(&e.edge)
	}
	if to.Terminal() {
		e.terminalAt = time.Now()
	}
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()

	snapshot := e.edge.Clone()
	go m.flush(snapshot, from)
}

// flush journals the edge snapshot and publishes the transition event.
// Both are best-effort: persistence or bus trouble never blocks or rolls
// back a transition.
func (m *Manager) flush(edge domain.Edge, from domain.EdgeStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if m.store != nil {
		if err := m.store.Upsert(ctx, edge); err != nil {
			m.logger.Warn("edge journal upsert failed",
				slog.String("edge_id", edge.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if m.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"edge_id": edge.ID,
			"from":    string(from),
			"to":      string(edge.Status),
			"at":      time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err == nil {
			if err := m.bus.Publish(ctx, "edges.transitions", payload); err != nil {
				m.logger.Warn("transition publish failed",
					slog.String("edge_id", edge.ID),
					slog.String("error", err.Error()),
				)
			}
			_ = m.bus.StreamAppend(ctx, "edges.journal", payload)
		}
	}
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[id]
	if !ok {
		return nil, fmt.Errorf("edge %s: %w", id, domain.ErrNotFound)
	}
	return e, nil
}
