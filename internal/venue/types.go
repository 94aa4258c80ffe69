// Package venue connects to market-data feeds and exposes them as snapshot
// sources for the scan loop.
package venue

import "encoding/json"

// wsCommand is the subscribe/unsubscribe frame sent to a venue feed.
type wsCommand struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
	ApiKey   string   `json:"api_key,omitempty"`
}

// wsEnvelope wraps every inbound frame; Type selects the payload decoding.
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// marketStatsMsg carries the rolling market state for the venue's tracked
// token.
type marketStatsMsg struct {
	GraduationPct     float64 `json:"graduation_pct"`
	Volume24hLamports int64   `json:"volume_24h_lamports"`
	VolumeBaseline    int64   `json:"volume_baseline"`
	HolderCount       int     `json:"holder_count"`
	TopHolderPct      float64 `json:"top_holder_pct"`
	PriceChange1hPct  float64 `json:"price_change_1h_pct"`
	LiquidityLamports int64   `json:"liquidity_lamports"`
	Timestamp         int64   `json:"timestamp"` // unix millis
}

// walletBuyMsg reports a buy observed from a tracked wallet.
type walletBuyMsg struct {
	Wallet         string `json:"wallet"`
	Mint           string `json:"mint"`
	AmountLamports int64  `json:"amount_lamports"`
	Timestamp      int64  `json:"timestamp"` // unix millis
}

// pairQuoteMsg is a top-of-book quote for one tradable pair.
type pairQuoteMsg struct {
	InputMint   string `json:"input_mint"`
	OutputMint  string `json:"output_mint"`
	PoolAddr    string `json:"pool_addr"`
	BidLamports int64  `json:"bid_lamports"`
	AskLamports int64  `json:"ask_lamports"`
}
