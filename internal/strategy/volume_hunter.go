package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solwatch/arbedge/internal/domain"
)

// VolumeHunterConfig tunes the volume-hunter strategy.
type VolumeHunterConfig struct {
	// SpikeRatio is the minimum 24h-volume-to-baseline ratio that counts as
	// a spike.
	SpikeRatio float64
	// SizeLamports is the capital committed per signal.
	SizeLamports int64
	// EdgeBps is the assumed gross edge on a confirmed spike.
	EdgeBps       int64
	SignalTTL     time.Duration
	ExecutionMode domain.ExecutionMode
}

// VolumeHunter reacts to venue volume spikes against the rolling baseline.
type VolumeHunter struct {
	cfg VolumeHunterConfig
}

// NewVolumeHunter creates the volume-hunter strategy.
func NewVolumeHunter(cfg VolumeHunterConfig) *VolumeHunter {
	return &VolumeHunter{cfg: cfg}
}

func (s *VolumeHunter) Name() string              { return "volume_hunter" }
func (s *VolumeHunter) Type() domain.StrategyType { return domain.StrategyTypeVolumeHunter }

func (s *VolumeHunter) SupportedVenues() []domain.VenueType {
	return []domain.VenueType{domain.VenueTypeAMM, domain.VenueTypeCLOB}
}

// Detect emits at most one signal per snapshot: the venue either is or is
// not in a spike at capture time.
func (s *VolumeHunter) Detect(ctx context.Context, snap domain.VenueSnapshot) ([]domain.RawSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mkt := snap.Market
	if mkt.VolumeBaseline <= 0 || mkt.Volume24hLamports <= 0 {
		return nil, nil
	}
	ratio := float64(mkt.Volume24hLamports) / float64(mkt.VolumeBaseline)
	if ratio < s.cfg.SpikeRatio {
		return nil, nil
	}

	// Pick the most liquid pair as the route; without pair data the venue
	// itself is the single hop.
	route := domain.RouteData{
		InputMint: "SOL",
		Venues:    []domain.RouteHop{{Venue: snap.Venue, VenueType: snap.VenueType}},
	}
	if len(snap.Pairs) > 0 {
		p := snap.Pairs[0]
		route.InputMint = p.InputMint
		route.OutputMint = p.OutputMint
		route.Venues[0].PoolAddr = p.PoolAddr
	}

	sig := domain.RawSignal{
		ID:        uuid.New().String(),
		Strategy:  s.Name(),
		EdgeType:  domain.EdgeTypeVolumeSpike,
		VenueType: snap.VenueType,
		Route:     route,
		EstimatedProfitLamports: s.cfg.SizeLamports * s.cfg.EdgeBps / 10_000,
		CapitalLamports:         s.cfg.SizeLamports,
		RiskScore:               riskFromSpike(ratio),
		Atomicity:               domain.AtomicityPartial,
		ExecutionMode:           s.cfg.ExecutionMode,
		Reason:                  fmt.Sprintf("volume %.1fx above baseline on %s", ratio, snap.Venue),
		CreatedAt:               snap.CapturedAt,
		TTL:                     s.cfg.SignalTTL,
	}
	return []domain.RawSignal{sig}, nil
}

// riskFromSpike grows risk with spike magnitude: extreme spikes are more
// likely wash trading than organic flow.
func riskFromSpike(ratio float64) int {
	risk := 25 + int(ratio*2)
	if risk > 90 {
		risk = 90
	}
	return risk
}
