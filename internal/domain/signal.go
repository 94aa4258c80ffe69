package domain

import "time"

// RawSignal is emitted by a detection strategy before scoring. Signals below
// the viability floor never become edges.
type RawSignal struct {
	ID       string // UUID for dedup and tracing
	Strategy string // emitting strategy name

	EdgeType  EdgeType
	VenueType VenueType
	Route     RouteData

	EstimatedProfitLamports   int64
	CapitalLamports           int64
	RiskScore                 int
	Atomicity                 Atomicity
	SimulatedProfitGuaranteed bool
	ExecutionMode             ExecutionMode

	Reason    string
	CreatedAt time.Time
	TTL       time.Duration
}

// MarketContext is the market-state input to scoring, captured at detection
// time. Scoring must depend on nothing outside the signal and this snapshot
// so that decisions stay replayable.
type MarketContext struct {
	GraduationPct     float64 // bonding-curve completion, 0-100
	Volume24hLamports int64
	VolumeBaseline    int64 // rolling baseline for spike detection
	HolderCount       int
	TopHolderPct      float64 // share held by the largest holder, 0-100
	PriceChange1hPct  float64
	LiquidityLamports int64
	AsOf              time.Time
}

// VenueSnapshot is the per-venue view handed to strategies on each scan
// cycle.
type VenueSnapshot struct {
	Venue     string
	VenueType VenueType
	Market    MarketContext

	// TrackedWalletBuys lists buys observed from mirrored wallets since the
	// previous cycle (copy-trade input).
	TrackedWalletBuys []WalletAction

	Pairs      []PairQuote
	CapturedAt time.Time
}

// WalletAction is one observed action by a tracked external wallet.
type WalletAction struct {
	Wallet         string
	Mint           string
	AmountLamports int64
	ObservedAt     time.Time
}

// PairQuote is a tradable pair quote within a venue snapshot.
type PairQuote struct {
	InputMint   string
	OutputMint  string
	PoolAddr    string
	BidLamports int64
	AskLamports int64
}
