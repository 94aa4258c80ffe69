package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solwatch/arbedge/internal/domain"
)

// GraduationSniperConfig tunes the graduation-sniper strategy.
type GraduationSniperConfig struct {
	// LowerPct and UpperPct bound the bonding-curve completion band that
	// triggers a signal. Completion at or past UpperPct is too late.
	LowerPct float64
	UpperPct float64

	SizeLamports  int64
	EdgeBps       int64
	SignalTTL     time.Duration
	ExecutionMode domain.ExecutionMode
}

// GraduationSniper watches bonding-curve completion crossing into the
// pre-graduation band. Tokens inside the band get one signal per cycle;
// scoring and expiry keep duplicates from stacking downstream.
type GraduationSniper struct {
	cfg GraduationSniperConfig
}

// NewGraduationSniper creates the graduation-sniper strategy.
func NewGraduationSniper(cfg GraduationSniperConfig) *GraduationSniper {
	return &GraduationSniper{cfg: cfg}
}

func (s *GraduationSniper) Name() string              { return "graduation_sniper" }
func (s *GraduationSniper) Type() domain.StrategyType { return domain.StrategyTypeGraduationSniper }

func (s *GraduationSniper) SupportedVenues() []domain.VenueType {
	return []domain.VenueType{domain.VenueTypeBondingCurve}
}

// Detect emits a signal when the snapshot's completion percentage sits
// inside the configured band.
func (s *GraduationSniper) Detect(ctx context.Context, snap domain.VenueSnapshot) ([]domain.RawSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pct := snap.Market.GraduationPct
	if pct < s.cfg.LowerPct || pct >= s.cfg.UpperPct {
		return nil, nil
	}

	route := domain.RouteData{
		InputMint: "SOL",
		Venues:    []domain.RouteHop{{Venue: snap.Venue, VenueType: domain.VenueTypeBondingCurve}},
	}
	if len(snap.Pairs) > 0 {
		route.OutputMint = snap.Pairs[0].OutputMint
		route.Venues[0].PoolAddr = snap.Pairs[0].PoolAddr
	}

	sig := domain.RawSignal{
		ID:        uuid.New().String(),
		Strategy:  s.Name(),
		EdgeType:  domain.EdgeTypeGraduation,
		VenueType: snap.VenueType,
		Route:     route,
		EstimatedProfitLamports: s.cfg.SizeLamports * s.cfg.EdgeBps / 10_000,
		CapitalLamports:         s.cfg.SizeLamports,
		RiskScore:               riskFromGraduation(pct),
		Atomicity:               domain.AtomicityPartial,
		ExecutionMode:           s.cfg.ExecutionMode,
		Reason:                  fmt.Sprintf("bonding curve at %.1f%% on %s", pct, snap.Venue),
		CreatedAt:               snap.CapturedAt,
		TTL:                     s.cfg.SignalTTL,
	}
	return []domain.RawSignal{sig}, nil
}

// riskFromGraduation falls as completion approaches graduation: the closer
// the curve is to completing, the less time remains for the move to stall.
func riskFromGraduation(pct float64) int {
	risk := 80 - int(pct/2)
	if risk < 20 {
		risk = 20
	}
	return risk
}
