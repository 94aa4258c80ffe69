package venue

import (
	"context"
	"sync"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

// Static serves a scripted sequence of snapshots, cycling when the script is
// exhausted. Paper mode uses it so the full pipeline can run without a live
// feed.
type Static struct {
	name      string
	venueType domain.VenueType

	mu     sync.Mutex
	script []domain.VenueSnapshot
	next   int
}

// NewStatic creates a scripted source over the given snapshots.
func NewStatic(name string, venueType domain.VenueType, script []domain.VenueSnapshot) *Static {
	return &Static{
		name:      name,
		venueType: venueType,
		script:    script,
	}
}

// Venue returns the configured venue name.
func (s *Static) Venue() string {
	return s.name
}

// VenueType returns the configured venue type.
func (s *Static) VenueType() domain.VenueType {
	return s.venueType
}

// Snapshot returns the next scripted snapshot with venue identity and capture
// time filled in.
func (s *Static) Snapshot(ctx context.Context) (domain.VenueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.script[s.next]
	s.next = (s.next + 1) % len(s.script)

	snap.Venue = s.name
	snap.VenueType = s.venueType
	snap.CapturedAt = time.Now()
	if snap.Market.AsOf.IsZero() {
		snap.Market.AsOf = snap.CapturedAt
	}
	return snap, nil
}

// PaperScript returns a scripted bonding-curve market that ramps toward
// graduation with a volume spike and a tracked-wallet buy along the way, so
// every detection strategy fires at least once per cycle through the script.
func PaperScript() []domain.VenueSnapshot {
	quiet := domain.MarketContext{
		GraduationPct:     62,
		Volume24hLamports: 900_000_000,
		VolumeBaseline:    800_000_000,
		HolderCount:       240,
		TopHolderPct:      18,
		PriceChange1hPct:  1.5,
		LiquidityLamports: 4_000_000_000,
	}
	spiking := domain.MarketContext{
		GraduationPct:     74,
		Volume24hLamports: 3_600_000_000,
		VolumeBaseline:    800_000_000,
		HolderCount:       310,
		TopHolderPct:      16,
		PriceChange1hPct:  22,
		LiquidityLamports: 4_500_000_000,
	}
	nearGraduation := domain.MarketContext{
		GraduationPct:     91,
		Volume24hLamports: 5_100_000_000,
		VolumeBaseline:    900_000_000,
		HolderCount:       420,
		TopHolderPct:      14,
		PriceChange1hPct:  31,
		LiquidityLamports: 5_200_000_000,
	}

	pair := domain.PairQuote{
		InputMint:   "So11111111111111111111111111111111111111112",
		OutputMint:  "PaperMint1111111111111111111111111111111111",
		PoolAddr:    "PaperPool1111111111111111111111111111111111",
		BidLamports: 980_000,
		AskLamports: 1_000_000,
	}

	return []domain.VenueSnapshot{
		{Market: quiet, Pairs: []domain.PairQuote{pair}},
		{
			Market: spiking,
			Pairs:  []domain.PairQuote{pair},
			TrackedWalletBuys: []domain.WalletAction{{
				Wallet:         "TrackedWhale111111111111111111111111111111",
				Mint:           pair.OutputMint,
				AmountLamports: 750_000_000,
			}},
		},
		{Market: nearGraduation, Pairs: []domain.PairQuote{pair}},
	}
}
