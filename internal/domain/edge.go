// Package domain defines the core types shared across the arbitrage edge
// engine: edges, scores, trades, strategies, swarm health, the error
// taxonomy, and the store/cache interfaces implemented by the
// infrastructure layers.
package domain

import "time"

// EdgeStatus drives the edge lifecycle state machine.
type EdgeStatus string

const (
	EdgeStatusDetected        EdgeStatus = "detected"
	EdgeStatusPendingApproval EdgeStatus = "pending_approval"
	EdgeStatusApproved        EdgeStatus = "approved"
	EdgeStatusRejected        EdgeStatus = "rejected"
	EdgeStatusExecuting       EdgeStatus = "executing"
	EdgeStatusExecuted        EdgeStatus = "executed"
	EdgeStatusFailed          EdgeStatus = "failed"
	EdgeStatusExpired         EdgeStatus = "expired"
)

// Terminal reports whether the status is final. Terminal edges are immutable.
func (s EdgeStatus) Terminal() bool {
	switch s {
	case EdgeStatusExecuted, EdgeStatusFailed, EdgeStatusRejected, EdgeStatusExpired:
		return true
	default:
		return false
	}
}

// EdgeType classifies the mechanism of an opportunity.
type EdgeType string

const (
	EdgeTypeCopyTrade        EdgeType = "copy_trade"
	EdgeTypeVolumeSpike      EdgeType = "volume_spike"
	EdgeTypeGraduation       EdgeType = "graduation"
	EdgeTypeCrossVenueSpread EdgeType = "cross_venue_spread"
)

// VenueType classifies the market an opportunity was detected on.
type VenueType string

const (
	VenueTypeBondingCurve VenueType = "bonding_curve"
	VenueTypeAMM          VenueType = "amm"
	VenueTypeCLOB         VenueType = "clob"
)

// Atomicity describes whether a route executes as one indivisible operation.
type Atomicity string

const (
	AtomicityFull    Atomicity = "fully_atomic"
	AtomicityPartial Atomicity = "partial"
	AtomicityNone    Atomicity = "none"
)

// ExecutionMode selects between operator-approved and automatic execution.
type ExecutionMode string

const (
	ExecutionModeManual ExecutionMode = "manual"
	ExecutionModeAuto   ExecutionMode = "auto"
)

// RouteData describes the path an edge's execution traverses. Venues are in
// execution order and there is always at least one.
type RouteData struct {
	InputMint  string
	OutputMint string
	Venues     []RouteHop
}

// RouteHop is a single venue traversal within a route.
type RouteHop struct {
	Venue     string
	VenueType VenueType
	PoolAddr  string
}

// Edge is a detected arbitrage opportunity moving through the lifecycle
// state machine. The lifecycle manager is the exclusive owner of an edge for
// the duration of its non-terminal life; execution agents hold a temporary
// claim between the executing transition and the terminal outcome.
type Edge struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt *time.Time

	Strategy  string
	EdgeType  EdgeType
	VenueType VenueType
	Route     RouteData

	EstimatedProfitLamports int64
	// CapitalLamports is the input amount committed to the route.
	CapitalLamports int64
	RiskScore       int // 0-100, higher = riskier
	Atomicity       Atomicity

	// SimulatedProfitGuaranteed is true only when a pre-execution simulation
	// confirmed profit under current chain state. Together with AtomicityFull
	// this is the zero-capital-risk class and the highest execution priority.
	SimulatedProfitGuaranteed bool

	ExecutionMode ExecutionMode
	Status        EdgeStatus
	Score         OpportunityScore

	// RejectionReason is set iff Status is EdgeStatusRejected.
	RejectionReason string
	// FailureCause is set iff Status is EdgeStatusFailed.
	FailureCause string
	// ClaimedBy is the id of the agent holding the execution claim.
	ClaimedBy string
	// TradeID links the recorded trade once Status is EdgeStatusExecuted.
	TradeID string
}

// ExpiredAt reports whether the edge's TTL has elapsed at the given instant.
// Edges without an ExpiresAt never expire.
func (e *Edge) ExpiredAt(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// ZeroCapitalRisk reports whether the edge belongs to the guaranteed-profit
// fully-atomic class.
func (e *Edge) ZeroCapitalRisk() bool {
	return e.Atomicity == AtomicityFull && e.SimulatedProfitGuaranteed
}

// Exposure returns the capital the edge puts at risk while approved or
// executing. Guaranteed atomic edges carry no exposure.
func (e *Edge) Exposure() int64 {
	if e.ZeroCapitalRisk() {
		return 0
	}
	return e.CapitalLamports
}

// Clone returns a deep copy safe to hand to readers while the manager keeps
// mutating the original.
func (e *Edge) Clone() Edge {
	cp := *e
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		cp.ExpiresAt = &t
	}
	cp.Route.Venues = append([]RouteHop(nil), e.Route.Venues...)
	cp.Score = e.Score.Clone()
	return cp
}
