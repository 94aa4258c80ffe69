package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/solwatch/arbedge/internal/crypto"
	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/executor"
	"github.com/solwatch/arbedge/internal/lifecycle"
	"github.com/solwatch/arbedge/internal/notify"
	"github.com/solwatch/arbedge/internal/scanner"
	"github.com/solwatch/arbedge/internal/scoring"
	"github.com/solwatch/arbedge/internal/server"
	"github.com/solwatch/arbedge/internal/service"
	"github.com/solwatch/arbedge/internal/strategy"
	"github.com/solwatch/arbedge/internal/swarm"
	"github.com/solwatch/arbedge/internal/venue"
)

// pipeline bundles the fully wired detection and execution graph for one
// process.
type pipeline struct {
	registry *strategy.Registry
	scanner  *scanner.Scanner
	manager  *lifecycle.Manager
	pool     *swarm.Pool
	core     *service.Core
}

// EngineMode runs the full system against live venue feeds: detection,
// scoring, lifecycle, and the execution swarm.
func (a *App) EngineMode(ctx context.Context, deps *Dependencies) error {
	feeds, sources, err := a.liveSources()
	if err != nil {
		return fmt.Errorf("engine mode: %w", err)
	}

	p, err := a.buildPipeline(ctx, deps, sources)
	if err != nil {
		return fmt.Errorf("engine mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, f := range feeds {
		f := f
		g.Go(func() error { return f.Run(ctx) })
	}
	g.Go(func() error { return p.manager.Run(ctx) })
	g.Go(func() error { return p.pool.Run(ctx) })

	if a.cfg.Scanner.AutoStart {
		p.scanner.Start()
	}
	g.Go(func() error {
		<-ctx.Done()
		p.scanner.Stop()
		for _, f := range feeds {
			f.Close()
		}
		return ctx.Err()
	})

	a.startSupport(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startAPIServer(ctx, g, deps, p)
	}

	if a.cfg.Metrics.Enabled {
		a.startMetricsServer(ctx, g)
	}

	return ignoreCancel(g.Wait())
}

// ScanMode runs detection and scoring against live feeds without the
// execution swarm. Edges accumulate in pending_approval for inspection.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	feeds, sources, err := a.liveSources()
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	p, err := a.buildPipeline(ctx, deps, sources)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, f := range feeds {
		f := f
		g.Go(func() error { return f.Run(ctx) })
	}
	g.Go(func() error { return p.manager.Run(ctx) })

	p.scanner.Start()
	g.Go(func() error {
		<-ctx.Done()
		p.scanner.Stop()
		for _, f := range feeds {
			f.Close()
		}
		return ctx.Err()
	})

	a.startSupport(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startAPIServer(ctx, g, deps, p)
	}

	if a.cfg.Metrics.Enabled {
		a.startMetricsServer(ctx, g)
	}

	return ignoreCancel(g.Wait())
}

// PaperMode runs the full pipeline against scripted venues so the whole
// system can be exercised without network access or live capital.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	sources := []scanner.VenueSource{
		venue.NewStatic("paper-curve", domain.VenueTypeBondingCurve, venue.PaperScript()),
		venue.NewStatic("paper-amm", domain.VenueTypeAMM, venue.PaperScript()),
	}

	p, err := a.buildPipeline(ctx, deps, sources)
	if err != nil {
		return fmt.Errorf("paper mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.manager.Run(ctx) })
	g.Go(func() error { return p.pool.Run(ctx) })

	p.scanner.Start()
	g.Go(func() error {
		<-ctx.Done()
		p.scanner.Stop()
		return ctx.Err()
	})

	a.startSupport(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startAPIServer(ctx, g, deps, p)
	}

	if a.cfg.Metrics.Enabled {
		a.startMetricsServer(ctx, g)
	}

	return ignoreCancel(g.Wait())
}

// buildPipeline wires the scoring engine, lifecycle manager, strategies,
// scanner, swarm, and request surface over the given venue sources.
func (a *App) buildPipeline(ctx context.Context, deps *Dependencies, sources []scanner.VenueSource) (*pipeline, error) {
	engine, err := scoring.NewEngine(
		scoring.Weights{
			Graduation: a.cfg.Scoring.GraduationWeight,
			Volume:     a.cfg.Scoring.VolumeWeight,
			Holder:     a.cfg.Scoring.HolderWeight,
			Momentum:   a.cfg.Scoring.MomentumWeight,
		},
		scoring.Thresholds{
			StrongExecute: a.cfg.Scoring.StrongExecuteFloor,
			Execute:       a.cfg.Scoring.ExecuteFloor,
			Consider:      a.cfg.Scoring.ConsiderFloor,
			Watch:         a.cfg.Scoring.WatchFloor,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	ledger := lifecycle.NewLedger(a.cfg.Capital.CeilingLamports)
	manager := lifecycle.NewManager(engine, ledger, lifecycle.Config{
		ViabilityFloor:    a.cfg.Lifecycle.ViabilityFloor,
		AutoExecuteTier:   recommendationFromTier(a.cfg.Lifecycle.AutoExecuteTier),
		DefaultTTL:        a.cfg.Lifecycle.EdgeTTL.Duration,
		SweepInterval:     a.cfg.Lifecycle.SweepInterval.Duration,
		TerminalRetention: a.cfg.Lifecycle.TerminalRetention.Duration,
	}, a.logger)
	manager.SetStores(deps.EdgeStore, deps.TradeStore)
	if deps.EventBus != nil {
		manager.SetEventBus(deps.EventBus)
	}
	if deps.EdgeStore != nil {
		restored, err := manager.Rehydrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		if restored > 0 {
			a.logger.Info("edge book rehydrated", slog.Int("edges", restored))
		}
	}

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewCopyTrade(strategy.CopyTradeConfig{
		MinBuyLamports:     a.cfg.Strategies.CopyTrade.MinBuyLamports,
		MirrorSizeLamports: a.cfg.Strategies.CopyTrade.MirrorSizeLamports,
		EdgeBps:            int64(a.cfg.Strategies.CopyTrade.EdgeBps),
		SignalTTL:          a.cfg.Strategies.CopyTrade.SignalTTL.Duration,
		ExecutionMode:      executionMode(a.cfg.Strategies.CopyTrade.AutoExecute),
	}), a.cfg.Strategies.CopyTrade.Enabled)
	registry.Register(strategy.NewVolumeHunter(strategy.VolumeHunterConfig{
		SpikeRatio:    a.cfg.Strategies.VolumeHunter.SpikeRatio,
		SizeLamports:  a.cfg.Strategies.VolumeHunter.SizeLamports,
		EdgeBps:       int64(a.cfg.Strategies.VolumeHunter.EdgeBps),
		SignalTTL:     a.cfg.Strategies.VolumeHunter.SignalTTL.Duration,
		ExecutionMode: executionMode(a.cfg.Strategies.VolumeHunter.AutoExecute),
	}), a.cfg.Strategies.VolumeHunter.Enabled)
	registry.Register(strategy.NewGraduationSniper(strategy.GraduationSniperConfig{
		LowerPct:      a.cfg.Strategies.GraduationSniper.LowerPct,
		UpperPct:      a.cfg.Strategies.GraduationSniper.UpperPct,
		SizeLamports:  a.cfg.Strategies.GraduationSniper.SizeLamports,
		EdgeBps:       int64(a.cfg.Strategies.GraduationSniper.EdgeBps),
		SignalTTL:     a.cfg.Strategies.GraduationSniper.SignalTTL.Duration,
		ExecutionMode: executionMode(a.cfg.Strategies.GraduationSniper.AutoExecute),
	}), a.cfg.Strategies.GraduationSniper.Enabled)

	sc := scanner.New(registry, sources, manager, scanner.Config{
		Interval:     a.cfg.Scanner.Interval.Duration,
		CycleTimeout: a.cfg.Scanner.CycleTimeout.Duration,
		DedupTTL:     a.cfg.Scanner.DedupTTL.Duration,
	}, a.logger)
	manager.SetMarketProvider(sc)

	adapter := executor.NewPaper(executor.PaperConfig{
		BaseSlippageBps:   float64(a.cfg.Executor.BaseSlippageBps),
		PerHopSlippageBps: float64(a.cfg.Executor.PerHopSlippageBps),
		GasCostLamports:   a.cfg.Executor.GasCostLamports,
		Latency:           a.cfg.Executor.Latency.Duration,
	})

	pool := swarm.NewPool(manager, adapter, sc,
		swarm.AgentConfig{
			DegradeAfter:   a.cfg.Swarm.DegradeAfter,
			UnhealthyAfter: a.cfg.Swarm.UnhealthyAfter,
			RecoverAfter:   a.cfg.Swarm.RecoverAfter,
		},
		swarm.PoolConfig{
			Size:          a.cfg.Swarm.Size,
			PollInterval:  a.cfg.Swarm.PollInterval.Duration,
			ExecTimeout:   a.cfg.Swarm.ExecTimeout.Duration,
			ClaimFenceTTL: a.cfg.Swarm.ClaimFenceTTL.Duration,
		},
		a.logger,
	)
	if deps.LockManager != nil {
		pool.SetLockManager(deps.LockManager)
	}
	manager.SetPauseChecker(pool.Supervisor())

	core := service.NewCore(registry, sc, manager, pool.Supervisor(), adapter, deps.TradeStore, a.logger)
	if deps.EdgeStore != nil {
		core.SetEdgeStore(deps.EdgeStore)
	}
	if deps.AuditStore != nil {
		core.SetAuditStore(deps.AuditStore)
	}

	return &pipeline{
		registry: registry,
		scanner:  sc,
		manager:  manager,
		pool:     pool,
		core:     core,
	}, nil
}

// liveSources builds one websocket feed per configured venue, resolving
// credentials through the key manager.
func (a *App) liveSources() ([]*venue.Feed, []scanner.VenueSource, error) {
	feeds := make([]*venue.Feed, 0, len(a.cfg.Venues))
	sources := make([]scanner.VenueSource, 0, len(a.cfg.Venues))

	for _, vc := range a.cfg.Venues {
		apiKey, err := crypto.LoadCredential(crypto.CredentialConfig{
			RawKey:           vc.ApiKey,
			EncryptedKeyPath: vc.EncryptedKeyPath,
			KeyPassword:      vc.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("venue %s credential: %w", vc.Name, err)
		}

		feed := venue.NewFeed(venue.FeedConfig{
			Name:      vc.Name,
			VenueType: venueTypeFromConfig(vc.Type),
			WsURL:     vc.WsURL,
			ApiKey:    apiKey,
		}, a.logger)
		feeds = append(feeds, feed)
		sources = append(sources, feed)
	}
	return feeds, sources, nil
}

// startSupport launches the optional background helpers: the transition
// alert watcher and the periodic trade archival sweep. Both are no-ops when
// their dependencies are not wired.
func (a *App) startSupport(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Notify.Enabled && deps.EventBus != nil {
		var senders []notify.Sender
		if a.cfg.Notify.DiscordWebhook != "" {
			senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhook))
		}
		if a.cfg.Notify.TelegramToken != "" && a.cfg.Notify.TelegramChatID != "" {
			senders = append(senders, notify.NewTelegramSender(a.cfg.Notify.TelegramToken, a.cfg.Notify.TelegramChatID))
		}

		notifier := notify.NewNotifier(senders, a.cfg.Notify.Events, a.logger)
		watcher := notify.NewWatcher(deps.EventBus, notifier, a.logger)
		g.Go(func() error { return watcher.Run(ctx) })
	}

	if deps.Archiver != nil {
		interval := a.cfg.S3.ArchiveInterval.Duration
		retain := time.Duration(a.cfg.S3.RetainDays) * 24 * time.Hour

		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					n, err := deps.Archiver.ArchiveTrades(ctx, time.Now().Add(-retain))
					if err != nil {
						a.logger.Warn("trade archival sweep failed",
							slog.String("error", err.Error()),
						)
						continue
					}
					if n > 0 {
						a.logger.Info("trade archival sweep completed",
							slog.Int64("archived", n),
						)
					}
				}
			}
		})
	}
}

// startAPIServer runs the operator HTTP API until the context is cancelled.
func (a *App) startAPIServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, p *pipeline) {
	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, p.core, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	})
}

// startMetricsServer exposes the Prometheus registry over HTTP until the
// context is cancelled.
func (a *App) startMetricsServer(ctx context.Context, g *errgroup.Group) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		a.logger.Info("metrics listener started", slog.String("addr", a.cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	})
}

func venueTypeFromConfig(t string) domain.VenueType {
	if strings.EqualFold(t, "bonding_curve") {
		return domain.VenueTypeBondingCurve
	}
	return domain.VenueTypeAMM
}

func executionMode(auto bool) domain.ExecutionMode {
	if auto {
		return domain.ExecutionModeAuto
	}
	return domain.ExecutionModeManual
}

func recommendationFromTier(tier string) domain.Recommendation {
	switch strings.ToLower(tier) {
	case "strong_execute":
		return domain.RecommendationStrongExecute
	case "consider":
		return domain.RecommendationConsider
	default:
		return domain.RecommendationExecute
	}
}

// ignoreCancel treats context cancellation as a clean shutdown.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
