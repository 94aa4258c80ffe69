// Package scanner runs the detection control loop: while running it
// snapshots every reachable venue, fans out the active strategies, and feeds
// the resulting raw signals into the scoring and lifecycle pipeline.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/strategy"
)

// VenueSource produces point-in-time snapshots of one venue. A Snapshot
// error marks the venue unreachable for that cycle; the loop carries on with
// the remaining venues.
type VenueSource interface {
	Venue() string
	VenueType() domain.VenueType
	Snapshot(ctx context.Context) (domain.VenueSnapshot, error)
}

// Pipeline receives raw signals for scoring and admission. Implemented by
// the lifecycle manager.
type Pipeline interface {
	Admit(ctx context.Context, sig domain.RawSignal, mkt domain.MarketContext) (domain.Edge, bool, error)
}

// Config tunes the scan loop.
type Config struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	// DedupTTL is the window within which repeat signals for the same
	// opportunity are suppressed.
	DedupTTL time.Duration
}

// Scanner is the start/stoppable detection loop. It has exactly two states,
// stopped and running; the swarm supervisor expresses its pause by forcing
// Stop.
type Scanner struct {
	registry *strategy.Registry
	sources  []VenueSource
	pipeline Pipeline
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	statusMu     sync.Mutex
	activeVenues int
	lastCycleAt  *time.Time

	marketMu sync.RWMutex
	markets  map[string]domain.MarketContext // latest context per venue

	signals24h windowCounter
	errors24h  windowCounter
	dedup      *dedup
}

// New creates a Scanner over the given venue sources.
func New(registry *strategy.Registry, sources []VenueSource, pipeline Pipeline, cfg Config, logger *slog.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 30 * time.Second
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 2 * time.Minute
	}
	return &Scanner{
		registry: registry,
		sources:  sources,
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scanner")),
		markets:  make(map[string]domain.MarketContext),
		dedup:    newDedup(cfg.DedupTTL),
	}
}

// MarketFor returns the most recent market context captured for the venue
// the edge's route starts on. It reports false until that venue has had a
// successful snapshot, so approval falls back to the admission score.
func (s *Scanner) MarketFor(ctx context.Context, edge domain.Edge) (domain.MarketContext, bool) {
	if len(edge.Route.Venues) == 0 {
		return domain.MarketContext{}, false
	}
	s.marketMu.RLock()
	defer s.marketMu.RUnlock()
	mkt, ok := s.markets[edge.Route.Venues[0].Venue]
	return mkt, ok
}

// Start launches the scan loop. Calling Start while running is a no-op.
func (s *Scanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stopCh)
	s.logger.Info("scanner started", slog.Int("venues", len(s.sources)))
}

// Stop halts the loop. It blocks until the in-flight cycle has drained, so
// no new signal enters the pipeline after Stop returns. Calling Stop while
// stopped is a no-op. Edges already past detection are unaffected.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scanner stopped")
}

// Running reports whether the loop is active.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a point-in-time summary for status reads.
func (s *Scanner) Status() domain.ScannerStatus {
	now := time.Now()

	s.statusMu.Lock()
	active := s.activeVenues
	last := s.lastCycleAt
	s.statusMu.Unlock()

	return domain.ScannerStatus{
		IsRunning:         s.Running(),
		VenuesActive:      active,
		TotalSignals24h:   s.signals24h.Total(now),
		StrategyErrors24h: s.errors24h.Total(now),
		LastCycleAt:       last,
	}
}

func (s *Scanner) loop(stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(s.cfg.DedupTTL)
	defer cleanup.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-cleanup.C:
			s.dedup.cleanup()
		case <-ticker.C:
			s.cycle(stopCh)
		}
	}
}

// cycle snapshots every venue in parallel and runs the active strategies
// against each snapshot. A single strategy or venue failure is isolated: it
// is counted and logged but never stops the cycle.
func (s *Scanner) cycle(stopCh chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CycleTimeout)
	defer cancel()

	// Bind the cycle context to Stop so a long venue call cannot outlive it.
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		g        errgroup.Group
		activeMu sync.Mutex
		active   int
	)
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				venueErrorsTotal.WithLabelValues(src.Venue()).Inc()
				s.logger.Warn("venue snapshot failed",
					slog.String("venue", src.Venue()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			activeMu.Lock()
			active++
			activeMu.Unlock()

			s.marketMu.Lock()
			s.markets[snap.Venue] = snap.Market
			s.marketMu.Unlock()

			s.runStrategies(ctx, snap)
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	s.statusMu.Lock()
	s.activeVenues = active
	s.lastCycleAt = &now
	s.statusMu.Unlock()

	venuesActive.Set(float64(active))
	scanCyclesTotal.Inc()
}

func (s *Scanner) runStrategies(ctx context.Context, snap domain.VenueSnapshot) {
	for _, strat := range s.registry.ActiveFor(snap.VenueType) {
		signals, err := strat.Detect(ctx, snap)
		if err != nil {
			strategyErrorsTotal.WithLabelValues(strat.Name(), snap.Venue).Inc()
			s.errors24h.Add(time.Now(), 1)
			s.logger.Warn("strategy detection failed",
				slog.String("strategy", strat.Name()),
				slog.String("venue", snap.Venue),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, sig := range signals {
			if s.dedup.isDuplicate(sig) {
				continue
			}
			signalsTotal.WithLabelValues(sig.Strategy).Inc()
			s.signals24h.Add(time.Now(), 1)

			if _, _, err := s.pipeline.Admit(ctx, sig, snap.Market); err != nil {
				s.logger.Warn("signal admission failed",
					slog.String("signal_id", sig.ID),
					slog.String("strategy", sig.Strategy),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
