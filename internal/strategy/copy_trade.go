package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solwatch/arbedge/internal/domain"
)

// CopyTradeConfig tunes the copy-trade strategy.
type CopyTradeConfig struct {
	// MinBuyLamports is the smallest tracked-wallet buy worth mirroring.
	MinBuyLamports int64
	// MirrorSizeLamports is the capital committed per mirrored buy.
	MirrorSizeLamports int64
	// EdgeBps is the assumed gross edge captured by following the wallet.
	EdgeBps int64
	// SignalTTL bounds how long an emitted signal stays actionable.
	SignalTTL time.Duration
	// ExecutionMode is stamped on emitted signals.
	ExecutionMode domain.ExecutionMode
}

// CopyTrade mirrors the observed buys of tracked external wallets. A buy at
// or above the configured threshold produces one mirror signal for the same
// mint on the same venue.
type CopyTrade struct {
	cfg CopyTradeConfig
}

// NewCopyTrade creates the copy-trade strategy.
func NewCopyTrade(cfg CopyTradeConfig) *CopyTrade {
	return &CopyTrade{cfg: cfg}
}

func (s *CopyTrade) Name() string              { return "copy_trade" }
func (s *CopyTrade) Type() domain.StrategyType { return domain.StrategyTypeCopyTrade }

func (s *CopyTrade) SupportedVenues() []domain.VenueType {
	return []domain.VenueType{domain.VenueTypeBondingCurve, domain.VenueTypeAMM}
}

// Detect emits one mirror signal per qualifying tracked-wallet buy in the
// snapshot.
func (s *CopyTrade) Detect(ctx context.Context, snap domain.VenueSnapshot) ([]domain.RawSignal, error) {
	var signals []domain.RawSignal
	for _, buy := range snap.TrackedWalletBuys {
		if buy.AmountLamports < s.cfg.MinBuyLamports {
			continue
		}
		if err := ctx.Err(); err != nil {
			return signals, err
		}

		signals = append(signals, domain.RawSignal{
			ID:        uuid.New().String(),
			Strategy:  s.Name(),
			EdgeType:  domain.EdgeTypeCopyTrade,
			VenueType: snap.VenueType,
			Route: domain.RouteData{
				InputMint:  "SOL",
				OutputMint: buy.Mint,
				Venues: []domain.RouteHop{
					{Venue: snap.Venue, VenueType: snap.VenueType},
				},
			},
			EstimatedProfitLamports: s.cfg.MirrorSizeLamports * s.cfg.EdgeBps / 10_000,
			CapitalLamports:         s.cfg.MirrorSizeLamports,
			RiskScore:               riskFromConcentration(snap.Market),
			Atomicity:               domain.AtomicityNone,
			ExecutionMode:           s.cfg.ExecutionMode,
			Reason:                  fmt.Sprintf("tracked wallet %s bought %d lamports of %s", buy.Wallet, buy.AmountLamports, buy.Mint),
			CreatedAt:               snap.CapturedAt,
			TTL:                     s.cfg.SignalTTL,
		})
	}
	return signals, nil
}

// riskFromConcentration derives a baseline risk score from holder
// concentration; directional mirrors inherit the token's distribution risk.
func riskFromConcentration(mkt domain.MarketContext) int {
	risk := 30 + int(mkt.TopHolderPct/2)
	if risk > 100 {
		risk = 100
	}
	return risk
}
