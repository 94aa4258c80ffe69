package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/scoring"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, ceiling int64, cfg Config) *Manager {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultWeights(), scoring.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if cfg.ViabilityFloor == 0 {
		cfg.ViabilityFloor = 35
	}
	if cfg.AutoExecuteTier == 0 {
		cfg.AutoExecuteTier = domain.RecommendationExecute
	}
	return NewManager(engine, NewLedger(ceiling), cfg, testLogger())
}

func testSignal() domain.RawSignal {
	return domain.RawSignal{
		Strategy:                "graduation_sniper",
		EdgeType:                domain.EdgeTypeGraduation,
		VenueType:               domain.VenueTypeBondingCurve,
		Route:                   testRoute(),
		EstimatedProfitLamports: 1_000_000,
		CapitalLamports:         100_000_000,
		RiskScore:               20,
		Atomicity:               domain.AtomicityPartial,
		ExecutionMode:           domain.ExecutionModeManual,
	}
}

func testRoute() domain.RouteData {
	return domain.RouteData{
		InputMint:  "So11111111111111111111111111111111111111112",
		OutputMint: "mint-out",
		Venues: []domain.RouteHop{
			{Venue: "pumpfun", VenueType: domain.VenueTypeBondingCurve, PoolAddr: "pool-1"},
		},
	}
}

func strongMarket() domain.MarketContext {
	return domain.MarketContext{
		GraduationPct:     90,
		Volume24hLamports: 3_000_000_000,
		VolumeBaseline:    1_000_000_000,
		HolderCount:       500,
		TopHolderPct:      10,
		PriceChange1hPct:  10,
	}
}

func weakMarket() domain.MarketContext {
	return domain.MarketContext{
		GraduationPct:     50,
		Volume24hLamports: 1_000_000_000,
		VolumeBaseline:    1_000_000_000,
		HolderCount:       100,
	}
}

func admit(t *testing.T, m *Manager, sig domain.RawSignal, mkt domain.MarketContext) domain.Edge {
	t.Helper()
	edge, created, err := m.Admit(context.Background(), sig, mkt)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if !created {
		t.Fatal("Admit discarded a viable signal")
	}
	return edge
}

func TestAdmitDiscardsBelowFloor(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{ViabilityFloor: 99})

	edge, created, err := m.Admit(context.Background(), testSignal(), strongMarket())
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if created {
		t.Fatalf("sub-floor signal created edge %+v", edge)
	}
	if got := m.List(context.Background(), ""); len(got) != 0 {
		t.Fatalf("discarded signal left %d edges behind", len(got))
	}
}

func TestAdmitAutoRejectsNonPositiveProfit(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{})

	sig := testSignal()
	sig.EstimatedProfitLamports = 0
	edge := admit(t, m, sig, strongMarket())

	if edge.Status != domain.EdgeStatusRejected {
		t.Fatalf("status = %s, want rejected", edge.Status)
	}
	if edge.RejectionReason == "" {
		t.Fatal("auto-rejected edge has no reason")
	}
}

func TestAdmitPendingApproval(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{})

	edge := admit(t, m, testSignal(), strongMarket())
	if edge.Status != domain.EdgeStatusPendingApproval {
		t.Fatalf("status = %s, want pending_approval", edge.Status)
	}
	if edge.ExpiresAt == nil {
		t.Fatal("edge has no expiry")
	}
}

func TestAutoModeApprovesOnAdmit(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{AutoExecuteTier: domain.RecommendationConsider})

	sig := testSignal()
	sig.ExecutionMode = domain.ExecutionModeAuto
	edge := admit(t, m, sig, strongMarket())

	if edge.Status != domain.EdgeStatusApproved {
		t.Fatalf("status = %s, want approved", edge.Status)
	}
	if m.Ledger().InUse() != sig.CapitalLamports {
		t.Fatalf("in use = %d, want %d", m.Ledger().InUse(), sig.CapitalLamports)
	}
}

func TestAutoApprovalDeferredOnCapital(t *testing.T) {
	m := newTestManager(t, 50, Config{AutoExecuteTier: domain.RecommendationConsider})

	sig := testSignal()
	sig.ExecutionMode = domain.ExecutionModeAuto
	edge := admit(t, m, sig, strongMarket())

	if edge.Status != domain.EdgeStatusPendingApproval {
		t.Fatalf("status = %s, want pending_approval after capital refusal", edge.Status)
	}
}

func TestApproveTransitions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})
	edge := admit(t, m, testSignal(), strongMarket())

	if err := m.Approve(ctx, edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	got, err := m.Get(ctx, edge.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.EdgeStatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}

	if err := m.Approve(ctx, edge.ID); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("second Approve error = %v, want ErrStateConflict", err)
	}
	if err := m.Reject(ctx, edge.ID, "late"); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("Reject after approve error = %v, want ErrStateConflict", err)
	}
}

func TestApproveUnknownEdge(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{})
	if err := m.Approve(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{})
	edge := admit(t, m, testSignal(), strongMarket())

	if err := m.Reject(context.Background(), edge.ID, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if err := m.Reject(context.Background(), edge.ID, "too thin"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	got, _ := m.Get(context.Background(), edge.ID)
	if got.Status != domain.EdgeStatusRejected || got.RejectionReason != "too thin" {
		t.Fatalf("got status %s reason %q", got.Status, got.RejectionReason)
	}
}

func TestClaimExactlyOnce(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})
	edge := admit(t, m, testSignal(), strongMarket())
	if err := m.Approve(ctx, edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	const racers = 16
	var wins, unavailable atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Claim(ctx, edge.ID, "agent")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrEdgeUnavailable):
				unavailable.Add(1)
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins.Load())
	}
	if unavailable.Load() != racers-1 {
		t.Fatalf("unavailable = %d, want %d", unavailable.Load(), racers-1)
	}
}

type stubPause struct{ paused bool }

func (s *stubPause) Paused() bool { return s.paused }

func TestClaimRefusedWhilePaused(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})
	m.SetPauseChecker(&stubPause{paused: true})

	edge := admit(t, m, testSignal(), strongMarket())
	if _, err := m.Claim(ctx, edge.ID, "agent"); !errors.Is(err, domain.ErrSwarmPaused) {
		t.Fatalf("error = %v, want ErrSwarmPaused", err)
	}
}

func TestClaimPendingEdgeConflicts(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{})
	edge := admit(t, m, testSignal(), strongMarket())

	if _, err := m.Claim(context.Background(), edge.ID, "agent"); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("error = %v, want ErrStateConflict", err)
	}
}

func TestCapitalCeilingBlocksSecondApproval(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 150_000_000, Config{})

	first := admit(t, m, testSignal(), strongMarket())
	second := admit(t, m, testSignal(), strongMarket())

	if err := m.Approve(ctx, first.ID); err != nil {
		t.Fatalf("Approve first: %v", err)
	}
	if err := m.Approve(ctx, second.ID); !errors.Is(err, domain.ErrCapitalExceeded) {
		t.Fatalf("Approve second error = %v, want ErrCapitalExceeded", err)
	}
	got, _ := m.Get(ctx, second.ID)
	if got.Status != domain.EdgeStatusPendingApproval {
		t.Fatalf("refused edge status = %s, want pending_approval", got.Status)
	}

	// A failed execution releases the first reservation and the retry goes
	// through.
	if _, err := m.Claim(ctx, first.ID, "agent"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := m.Fail(ctx, first.ID, "venue timeout"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := m.Approve(ctx, second.ID); err != nil {
		t.Fatalf("Approve retry: %v", err)
	}
}

func TestZeroRiskEdgeCarriesNoExposure(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, Config{})

	sig := testSignal()
	sig.Atomicity = domain.AtomicityFull
	sig.SimulatedProfitGuaranteed = true
	edge := admit(t, m, sig, strongMarket())

	if err := m.Approve(ctx, edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := m.Ledger().InUse(); got != 0 {
		t.Fatalf("in use = %d, want 0", got)
	}
}

func TestExpiryOnAccess(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})

	sig := testSignal()
	sig.TTL = time.Millisecond
	edge := admit(t, m, sig, strongMarket())

	time.Sleep(20 * time.Millisecond)

	got, err := m.Get(ctx, edge.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.EdgeStatusExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
	if _, err := m.Claim(ctx, edge.ID, "agent"); !errors.Is(err, domain.ErrEdgeUnavailable) {
		t.Fatalf("Claim error = %v, want ErrEdgeUnavailable", err)
	}
	if err := m.Approve(ctx, edge.ID); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("Approve error = %v, want ErrStateConflict", err)
	}
}

func TestExecutingEdgeNeverExpires(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})

	sig := testSignal()
	sig.TTL = 200 * time.Millisecond
	edge := admit(t, m, sig, strongMarket())
	if err := m.Approve(ctx, edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := m.Claim(ctx, edge.ID, "agent"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	got, _ := m.Get(ctx, edge.ID)
	if got.Status != domain.EdgeStatusExecuting {
		t.Fatalf("status = %s, want executing past the TTL", got.Status)
	}

	trade := domain.Trade{ID: "t-1", EdgeID: edge.ID}
	if err := m.Complete(ctx, edge.ID, trade); err != nil {
		t.Fatalf("Complete after TTL: %v", err)
	}
}

func TestCompleteRejectsMismatchedTrade(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})
	edge := admit(t, m, testSignal(), strongMarket())
	if err := m.Approve(ctx, edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := m.Claim(ctx, edge.ID, "agent"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	trade := domain.Trade{ID: "t-1", EdgeID: "someone-else"}
	if err := m.Complete(ctx, edge.ID, trade); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestCompleteAndFailOutcomes(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})

	ok := admit(t, m, testSignal(), strongMarket())
	bad := admit(t, m, testSignal(), strongMarket())
	for _, id := range []string{ok.ID, bad.ID} {
		if err := m.Approve(ctx, id); err != nil {
			t.Fatalf("Approve %s: %v", id, err)
		}
		if _, err := m.Claim(ctx, id, "agent-1"); err != nil {
			t.Fatalf("Claim %s: %v", id, err)
		}
	}

	if err := m.Complete(ctx, ok.ID, domain.Trade{ID: "t-1", EdgeID: ok.ID}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ := m.Get(ctx, ok.ID)
	if got.Status != domain.EdgeStatusExecuted || got.TradeID != "t-1" {
		t.Fatalf("got status %s trade %q", got.Status, got.TradeID)
	}

	if err := m.Fail(ctx, bad.ID, "slippage blew out"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ = m.Get(ctx, bad.ID)
	if got.Status != domain.EdgeStatusFailed || got.FailureCause != "slippage blew out" {
		t.Fatalf("got status %s cause %q", got.Status, got.FailureCause)
	}

	if m.Ledger().InUse() != 0 {
		t.Fatalf("in use = %d after terminal outcomes, want 0", m.Ledger().InUse())
	}

	// Terminal edges accept no further outcomes.
	if err := m.Fail(ctx, ok.ID, "again"); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("Fail on executed error = %v, want ErrStateConflict", err)
	}
	if err := m.Complete(ctx, bad.ID, domain.Trade{ID: "t-2", EdgeID: bad.ID}); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("Complete on failed error = %v, want ErrStateConflict", err)
	}
}

func TestApprovedByPriorityOrdersZeroRiskFirst(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{})

	// Zero-capital-risk edge scored against the weaker market still wins
	// priority over a better-scored regular edge.
	zcr := testSignal()
	zcr.Atomicity = domain.AtomicityFull
	zcr.SimulatedProfitGuaranteed = true
	zcrEdge := admit(t, m, zcr, weakMarket())

	strongEdge := admit(t, m, testSignal(), strongMarket())
	weakEdge := admit(t, m, testSignal(), weakMarket())

	for _, id := range []string{zcrEdge.ID, strongEdge.ID, weakEdge.ID} {
		if err := m.Approve(ctx, id); err != nil {
			t.Fatalf("Approve %s: %v", id, err)
		}
	}

	got := m.ApprovedByPriority(ctx)
	if len(got) != 3 {
		t.Fatalf("priority list has %d edges, want 3", len(got))
	}
	wantOrder := []string{zcrEdge.ID, strongEdge.ID, weakEdge.ID}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}

	// ClaimNext walks the same order.
	claimed, ok := m.ClaimNext(ctx, "agent-1")
	if !ok || claimed.ID != zcrEdge.ID {
		t.Fatalf("ClaimNext = %s ok=%v, want %s", claimed.ID, ok, zcrEdge.ID)
	}
	claimed, ok = m.ClaimNext(ctx, "agent-2")
	if !ok || claimed.ID != strongEdge.ID {
		t.Fatalf("second ClaimNext = %s ok=%v, want %s", claimed.ID, ok, strongEdge.ID)
	}
}

type stubMarkets struct {
	mkt domain.MarketContext
	ok  bool
}

func (s *stubMarkets) MarketFor(ctx context.Context, edge domain.Edge) (domain.MarketContext, bool) {
	return s.mkt, s.ok
}

func TestApproveRescoresAgainstCurrentMarket(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{ViabilityFloor: 50})
	m.SetMarketProvider(&stubMarkets{mkt: weakMarket(), ok: true})

	edge := admit(t, m, testSignal(), strongMarket())

	err := m.Approve(context.Background(), edge.ID)
	if !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("Approve after market collapse = %v, want ErrStateConflict", err)
	}
	got, err := m.Get(context.Background(), edge.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.EdgeStatusRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}
	if !strings.HasPrefix(got.RejectionReason, "auto-rejected") {
		t.Fatalf("rejection reason = %q", got.RejectionReason)
	}
}

func TestApproveReplacesAdmissionScore(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{})
	m.SetMarketProvider(&stubMarkets{mkt: weakMarket(), ok: true})

	edge := admit(t, m, testSignal(), strongMarket())

	if err := m.Approve(context.Background(), edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	got, err := m.Get(context.Background(), edge.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.EdgeStatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
	if got.Score.OverallScore >= edge.Score.OverallScore {
		t.Fatalf("score = %.2f, not refreshed below admission score %.2f",
			got.Score.OverallScore, edge.Score.OverallScore)
	}
}

func TestApproveWithoutFreshMarketKeepsAdmissionScore(t *testing.T) {
	m := newTestManager(t, 10_000_000_000, Config{ViabilityFloor: 50})
	m.SetMarketProvider(&stubMarkets{ok: false})

	edge := admit(t, m, testSignal(), strongMarket())

	if err := m.Approve(context.Background(), edge.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	got, err := m.Get(context.Background(), edge.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score.OverallScore != edge.Score.OverallScore {
		t.Fatalf("score = %.2f, want admission score %.2f kept",
			got.Score.OverallScore, edge.Score.OverallScore)
	}
}

func TestSweepEvictsAgedTerminalEdges(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{TerminalRetention: time.Millisecond})

	done := admit(t, m, testSignal(), strongMarket())
	if err := m.Reject(ctx, done.ID, "noise"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	pending := admit(t, m, testSignal(), strongMarket())

	time.Sleep(10 * time.Millisecond)
	m.sweep()

	if _, err := m.Get(ctx, done.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("aged terminal edge still readable, err = %v", err)
	}
	if _, err := m.Get(ctx, pending.ID); err != nil {
		t.Fatalf("pending edge evicted: %v", err)
	}
}

func TestSweepKeepsRecentTerminalEdges(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10_000_000_000, Config{TerminalRetention: time.Hour})

	done := admit(t, m, testSignal(), strongMarket())
	if err := m.Reject(ctx, done.ID, "noise"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	m.sweep()

	got, err := m.Get(ctx, done.ID)
	if err != nil {
		t.Fatalf("recent terminal edge evicted: %v", err)
	}
	if got.Status != domain.EdgeStatusRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}
}

// journalStore is an in-memory domain.EdgeStore for restart tests.
type journalStore struct {
	mu    sync.Mutex
	edges map[string]domain.Edge
}

func newJournalStore() *journalStore {
	return &journalStore{edges: make(map[string]domain.Edge)}
}

func (s *journalStore) Upsert(ctx context.Context, edge domain.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edge.ID] = edge
	return nil
}

func (s *journalStore) GetByID(ctx context.Context, id string) (domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return domain.Edge{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *journalStore) ListByStatus(ctx context.Context, status domain.EdgeStatus, opts domain.ListOpts) ([]domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Edge
	for _, e := range s.edges {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *journalStore) ListOpen(ctx context.Context) ([]domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Edge
	for _, e := range s.edges {
		if !e.Status.Terminal() {
			out = append(out, e)
		}
	}
	return out, nil
}

func seedJournalEdge(store *journalStore, id string, status domain.EdgeStatus, capital int64) {
	future := time.Now().Add(time.Hour)
	store.edges[id] = domain.Edge{
		ID:                      id,
		CreatedAt:               time.Now(),
		ExpiresAt:               &future,
		Strategy:                "graduation_sniper",
		EdgeType:                domain.EdgeTypeGraduation,
		VenueType:               domain.VenueTypeBondingCurve,
		Route:                   testRoute(),
		EstimatedProfitLamports: 1_000_000,
		CapitalLamports:         capital,
		RiskScore:               20,
		Atomicity:               domain.AtomicityPartial,
		ExecutionMode:           domain.ExecutionModeManual,
		Status:                  status,
		Score: domain.OpportunityScore{
			OverallScore:   60,
			Recommendation: domain.RecommendationConsider,
		},
	}
}

func TestRehydrateRestoresOpenEdges(t *testing.T) {
	ctx := context.Background()
	store := newJournalStore()
	seedJournalEdge(store, "e-pending", domain.EdgeStatusPendingApproval, 100_000_000)
	seedJournalEdge(store, "e-approved", domain.EdgeStatusApproved, 100_000_000)
	seedJournalEdge(store, "e-executing", domain.EdgeStatusExecuting, 100_000_000)
	seedJournalEdge(store, "e-done", domain.EdgeStatusExecuted, 100_000_000)

	m := newTestManager(t, 10_000_000_000, Config{})
	m.SetStores(store, nil)

	restored, err := m.Rehydrate(ctx)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if restored != 3 {
		t.Fatalf("restored = %d, want 3", restored)
	}

	if got, err := m.Get(ctx, "e-pending"); err != nil || got.Status != domain.EdgeStatusPendingApproval {
		t.Fatalf("pending edge: status=%v err=%v", got.Status, err)
	}
	if got, err := m.Get(ctx, "e-approved"); err != nil || got.Status != domain.EdgeStatusApproved {
		t.Fatalf("approved edge: status=%v err=%v", got.Status, err)
	}
	if in := m.Ledger().InUse(); in != 100_000_000 {
		t.Fatalf("capital in use = %d, want approved exposure re-reserved", in)
	}

	got, err := m.Get(ctx, "e-executing")
	if err != nil {
		t.Fatalf("Get executing: %v", err)
	}
	if got.Status != domain.EdgeStatusFailed {
		t.Fatalf("orphaned executing edge status = %s, want failed", got.Status)
	}
	if got.FailureCause == "" {
		t.Fatal("orphaned executing edge has no failure cause")
	}

	if _, err := m.Get(ctx, "e-done"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("terminal edge rehydrated, err = %v", err)
	}
}

func TestRehydrateExpiresApprovedBeyondCeiling(t *testing.T) {
	ctx := context.Background()
	store := newJournalStore()
	seedJournalEdge(store, "e-big", domain.EdgeStatusApproved, 100_000_000)

	m := newTestManager(t, 50_000_000, Config{})
	m.SetStores(store, nil)

	if _, err := m.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	got, err := m.Get(ctx, "e-big")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.EdgeStatusExpired {
		t.Fatalf("status = %s, want expired when the ceiling cannot cover it", got.Status)
	}
	if in := m.Ledger().InUse(); in != 0 {
		t.Fatalf("capital in use = %d, want 0", in)
	}
}
