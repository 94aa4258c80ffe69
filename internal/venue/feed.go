package venue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

const (
	// staleAfter bounds how old the last stats frame may be before the venue
	// is reported unreachable for the cycle.
	staleAfter = 30 * time.Second

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// FeedConfig describes one venue feed connection.
type FeedConfig struct {
	Name      string
	VenueType domain.VenueType
	WsURL     string
	ApiKey    string
}

// Feed subscribes to a venue's market-data WebSocket and accumulates the
// latest market state. It serves point-in-time snapshots to the scan loop
// and reconnects with backoff on disconnect.
type Feed struct {
	cfg    FeedConfig
	client *wsClient
	logger *slog.Logger

	mu         sync.Mutex
	market     domain.MarketContext
	hasStats   bool
	walletBuys []domain.WalletAction
	pairs      map[string]domain.PairQuote

	closeOnce sync.Once
	done      chan struct{}
}

// NewFeed creates a feed for the given venue.
func NewFeed(cfg FeedConfig, logger *slog.Logger) *Feed {
	f := &Feed{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "venue_feed"), slog.String("venue", cfg.Name)),
		pairs:  make(map[string]domain.PairQuote),
		done:   make(chan struct{}),
	}
	return f
}

// Run connects and keeps the subscription alive until ctx is cancelled or
// Close is called. Reconnects with exponential backoff on disconnect.
func (f *Feed) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		client := newWSClient(f.cfg.WsURL, f.cfg.ApiKey)
		client.onStats = f.applyStats
		client.onWalletBuy = f.applyWalletBuy
		client.onPairQuote = f.applyPairQuote
		f.client = client

		if err := client.connect(ctx); err != nil {
			f.logger.Warn("feed connect failed, retrying",
				slog.String("error", err.Error()),
				slog.Duration("delay", delay))
		} else {
			f.logger.Info("feed connected")
			delay = reconnectDelay

			err := client.wait(ctx)
			client.close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("feed disconnected, reconnecting", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Close stops the feed.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		close(f.done)
		if f.client != nil {
			f.client.close()
		}
	})
}

// Venue returns the configured venue name.
func (f *Feed) Venue() string {
	return f.cfg.Name
}

// VenueType returns the configured venue type.
func (f *Feed) VenueType() domain.VenueType {
	return f.cfg.VenueType
}

// Snapshot returns the latest accumulated market state. Tracked wallet buys
// are drained so each buy is surfaced to strategies exactly once. The venue
// counts as unreachable until the first stats frame arrives, and again once
// the last frame is older than the staleness bound.
func (f *Feed) Snapshot(ctx context.Context) (domain.VenueSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasStats {
		return domain.VenueSnapshot{}, fmt.Errorf("venue %s: no market data yet", f.cfg.Name)
	}
	if time.Since(f.market.AsOf) > staleAfter {
		return domain.VenueSnapshot{}, fmt.Errorf("venue %s: market data stale since %s",
			f.cfg.Name, f.market.AsOf.Format(time.RFC3339))
	}

	buys := f.walletBuys
	f.walletBuys = nil

	pairs := make([]domain.PairQuote, 0, len(f.pairs))
	for _, p := range f.pairs {
		pairs = append(pairs, p)
	}

	return domain.VenueSnapshot{
		Venue:             f.cfg.Name,
		VenueType:         f.cfg.VenueType,
		Market:            f.market,
		TrackedWalletBuys: buys,
		Pairs:             pairs,
		CapturedAt:        time.Now(),
	}, nil
}

func (f *Feed) applyStats(msg marketStatsMsg) {
	asOf := time.UnixMilli(msg.Timestamp)
	if msg.Timestamp == 0 {
		asOf = time.Now()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.market = domain.MarketContext{
		GraduationPct:     msg.GraduationPct,
		Volume24hLamports: msg.Volume24hLamports,
		VolumeBaseline:    msg.VolumeBaseline,
		HolderCount:       msg.HolderCount,
		TopHolderPct:      msg.TopHolderPct,
		PriceChange1hPct:  msg.PriceChange1hPct,
		LiquidityLamports: msg.LiquidityLamports,
		AsOf:              asOf,
	}
	f.hasStats = true
}

func (f *Feed) applyWalletBuy(msg walletBuyMsg) {
	observed := time.UnixMilli(msg.Timestamp)
	if msg.Timestamp == 0 {
		observed = time.Now()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.walletBuys = append(f.walletBuys, domain.WalletAction{
		Wallet:         msg.Wallet,
		Mint:           msg.Mint,
		AmountLamports: msg.AmountLamports,
		ObservedAt:     observed,
	})
}

func (f *Feed) applyPairQuote(msg pairQuoteMsg) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pairs[msg.PoolAddr] = domain.PairQuote{
		InputMint:   msg.InputMint,
		OutputMint:  msg.OutputMint,
		PoolAddr:    msg.PoolAddr,
		BidLamports: msg.BidLamports,
		AskLamports: msg.AskLamports,
	}
}
