package swarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/lifecycle"
	"github.com/solwatch/arbedge/internal/scoring"
)

type okAdapter struct{}

func (okAdapter) Execute(ctx context.Context, edge domain.Edge) (domain.Trade, error) {
	return domain.Trade{ID: "trade-" + edge.ID, EdgeID: edge.ID, ExecutedAt: time.Now()}, nil
}

type fatalAdapter struct{}

func (fatalAdapter) Execute(ctx context.Context, edge domain.Edge) (domain.Trade, error) {
	return domain.Trade{}, domain.ErrIrrecoverable
}

func poolManager(t *testing.T) *lifecycle.Manager {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultWeights(), scoring.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return lifecycle.NewManager(engine, lifecycle.NewLedger(10_000_000_000), lifecycle.Config{
		ViabilityFloor:  35,
		AutoExecuteTier: domain.RecommendationExecute,
	}, testLogger())
}

func approvedEdge(t *testing.T, m *lifecycle.Manager) domain.Edge {
	t.Helper()
	ctx := context.Background()

	sig := domain.RawSignal{
		Strategy:  "graduation_sniper",
		EdgeType:  domain.EdgeTypeGraduation,
		VenueType: domain.VenueTypeBondingCurve,
		Route: domain.RouteData{
			InputMint:  "SOL",
			OutputMint: "mint-x",
			Venues:     []domain.RouteHop{{Venue: "pumpfun", VenueType: domain.VenueTypeBondingCurve, PoolAddr: "pool"}},
		},
		EstimatedProfitLamports: 1_000_000,
		CapitalLamports:         100_000_000,
		RiskScore:               20,
		Atomicity:               domain.AtomicityPartial,
		ExecutionMode:           domain.ExecutionModeManual,
	}
	mkt := domain.MarketContext{
		GraduationPct:     90,
		Volume24hLamports: 3_000_000_000,
		VolumeBaseline:    1_000_000_000,
		HolderCount:       500,
		TopHolderPct:      10,
	}

	edge, created, err := m.Admit(ctx, sig, mkt)
	if err != nil || !created {
		t.Fatalf("Admit: created=%v err=%v", created, err)
	}
	if err := m.Approve(ctx, edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return edge
}

func waitForStatus(t *testing.T, m *lifecycle.Manager, id string, want domain.EdgeStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := m.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := m.Get(context.Background(), id)
	t.Fatalf("edge stuck in %s, want %s", got.Status, want)
}

func TestPoolExecutesApprovedEdge(t *testing.T) {
	m := poolManager(t)
	p := NewPool(m, okAdapter{}, nil, DefaultAgentConfig(), PoolConfig{Size: 2, PollInterval: 5 * time.Millisecond}, testLogger())
	m.SetPauseChecker(p.Supervisor())

	edge := approvedEdge(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	waitForStatus(t, m, edge.ID, domain.EdgeStatusExecuted)

	got, _ := m.Get(context.Background(), edge.ID)
	if got.TradeID == "" {
		t.Fatal("executed edge has no linked trade")
	}
	if got.ClaimedBy == "" {
		t.Fatal("executed edge records no claiming agent")
	}

	cancel()
	<-done
}

func TestPoolRunStopsOnCancel(t *testing.T) {
	m := poolManager(t)
	p := NewPool(m, okAdapter{}, nil, DefaultAgentConfig(), PoolConfig{Size: 2, PollInterval: 5 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestPoolFatalAdapterPausesSwarm(t *testing.T) {
	m := poolManager(t)
	sc := &stubScanner{}
	p := NewPool(m, fatalAdapter{}, sc, DefaultAgentConfig(), PoolConfig{Size: 2, PollInterval: 5 * time.Millisecond}, testLogger())
	m.SetPauseChecker(p.Supervisor())

	edge := approvedEdge(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	// The first fatal outcome kills an agent; one dead among two trips the
	// dead-dominant rule and pauses the swarm.
	waitForStatus(t, m, edge.ID, domain.EdgeStatusFailed)
	deadline := time.Now().Add(2 * time.Second)
	for !p.Supervisor().Paused() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !p.Supervisor().Paused() {
		t.Fatal("swarm not paused after fatal agent loss")
	}

	cancel()
	<-done
}
