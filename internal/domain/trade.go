package domain

import "time"

// Trade records the outcome of one execution attempt against an approved
// edge. Trades are immutable once written.
type Trade struct {
	ID     string
	EdgeID string

	EntryPrice float64
	// ExitPrice is nil for single-shot atomic routes that have no separate
	// exit leg.
	ExitPrice *float64

	ProfitLamports  int64
	GasCostLamports int64
	SlippageBps     float64

	ExecutedAt  time.Time
	TxSignature string
}

// TradeFilter narrows trade listings. Zero-valued fields are ignored.
type TradeFilter struct {
	EdgeID         string
	Since          *time.Time
	Until          *time.Time
	ProfitableOnly bool
	Limit          int
	Offset         int
}
