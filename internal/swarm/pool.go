package swarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/lifecycle"
)

// ExecutionAdapter is the lower execution layer an agent drives once it
// holds a claim. Implementations submit the route on-venue and report the
// resulting trade. On-chain transaction construction lives behind this
// boundary.
type ExecutionAdapter interface {
	Execute(ctx context.Context, edge domain.Edge) (domain.Trade, error)
}

// PoolConfig tunes the execution pool.
type PoolConfig struct {
	// Size is the number of agents.
	Size int
	// PollInterval paces each agent's claim attempts.
	PollInterval time.Duration
	// ExecTimeout bounds a single execution attempt.
	ExecTimeout time.Duration
	// ClaimFenceTTL bounds the distributed fence held around a claim.
	ClaimFenceTTL time.Duration
}

// Pool is the bounded swarm of execution agents. Each agent repeatedly
// claims the highest-priority approved edge it is allowed to take and runs
// it through the execution adapter, reporting the outcome back to the
// lifecycle manager and its own health state.
type Pool struct {
	agents     []*Agent
	manager    *lifecycle.Manager
	adapter    ExecutionAdapter
	supervisor *Supervisor
	lock       domain.LockManager // optional cross-instance claim fence
	cfg        PoolConfig
	logger     *slog.Logger
}

// NewPool creates the agent pool and its supervisor. The scanner control is
// handed to the supervisor so degradation can halt detection.
func NewPool(manager *lifecycle.Manager, adapter ExecutionAdapter, scanner ScannerControl, agentCfg AgentConfig, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 20 * time.Second
	}
	if cfg.ClaimFenceTTL <= 0 {
		cfg.ClaimFenceTTL = 30 * time.Second
	}

	agents := make([]*Agent, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		agents = append(agents, NewAgent(fmt.Sprintf("agent-%d-%s", i, uuid.New().String()[:8]), agentCfg))
	}

	p := &Pool{
		agents:  agents,
		manager: manager,
		adapter: adapter,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "swarm_pool")),
	}
	p.supervisor = NewSupervisor(agents, scanner, logger)
	return p
}

// Supervisor returns the pool's health supervisor.
func (p *Pool) Supervisor() *Supervisor { return p.supervisor }

// SetLockManager attaches the optional distributed claim fence used when
// several engine instances share one venue set.
func (p *Pool) SetLockManager(lm domain.LockManager) { p.lock = lm }

// Run drives all agents until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, ag := range p.agents {
		ag := ag
		g.Go(func() error {
			return p.runAgent(ctx, ag)
		})
	}
	return g.Wait()
}

func (p *Pool) runAgent(ctx context.Context, ag *Agent) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx, ag)
		}
	}
}

// tick makes one claim-and-execute attempt for the agent.
func (p *Pool) tick(ctx context.Context, ag *Agent) {
	if p.supervisor.Paused() {
		return
	}
	if !ag.Health().CanClaim() {
		return
	}

	edge, ok := p.claim(ctx, ag)
	if !ok {
		return
	}
	p.execute(ctx, ag, edge)
}

// claim walks the priority-ordered approved edges and takes the first one
// it can fence and claim. Losing the race on one candidate just moves on to
// the next.
func (p *Pool) claim(ctx context.Context, ag *Agent) (domain.Edge, bool) {
	for _, cand := range p.manager.ApprovedByPriority(ctx) {
		unlock := func() {}
		if p.lock != nil {
			u, err := p.lock.Acquire(ctx, "claim:"+cand.ID, p.cfg.ClaimFenceTTL)
			if err != nil {
				if !errors.Is(err, domain.ErrLockHeld) {
					p.logger.Warn("claim fence error", slog.String("edge_id", cand.ID), slog.String("error", err.Error()))
				}
				continue
			}
			unlock = u
		}

		edge, err := p.manager.Claim(ctx, cand.ID, ag.ID())
		if err != nil {
			unlock()
			if errors.Is(err, domain.ErrSwarmPaused) {
				return domain.Edge{}, false
			}
			// Lost the race or the edge expired under us; try the next one.
			continue
		}
		unlock()
		return edge, true
	}
	return domain.Edge{}, false
}

func (p *Pool) execute(ctx context.Context, ag *Agent, edge domain.Edge) {
	execCtx, cancel := context.WithTimeout(ctx, p.cfg.ExecTimeout)
	defer cancel()

	trade, err := p.adapter.Execute(execCtx, edge)
	if err != nil {
		p.failed(ctx, ag, edge, err)
		return
	}

	ag.RecordSuccess()
	executionsTotal.WithLabelValues("executed").Inc()
	if err := p.manager.Complete(ctx, edge.ID, trade); err != nil {
		p.logger.Error("complete transition failed",
			slog.String("edge_id", edge.ID),
			slog.String("error", err.Error()),
		)
	}
	p.supervisor.Refresh()
}

func (p *Pool) failed(ctx context.Context, ag *Agent, edge domain.Edge, execErr error) {
	if errors.Is(execErr, domain.ErrIrrecoverable) {
		ag.RecordFatal()
		executionsTotal.WithLabelValues("fatal").Inc()
	} else {
		ag.RecordFailure()
		executionsTotal.WithLabelValues("failed").Inc()
	}

	p.logger.Warn("execution failed",
		slog.String("edge_id", edge.ID),
		slog.String("agent_id", ag.ID()),
		slog.String("error", execErr.Error()),
	)
	if err := p.manager.Fail(ctx, edge.ID, execErr.Error()); err != nil {
		p.logger.Error("fail transition failed",
			slog.String("edge_id", edge.ID),
			slog.String("error", err.Error()),
		)
	}
	p.supervisor.Refresh()
}
