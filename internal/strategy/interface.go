// Package strategy implements the pluggable detection strategies and the
// registry that controls which of them are active. Strategies are pure
// detectors: they look at one venue snapshot and emit zero or more raw
// signals, leaving scoring and lifecycle decisions to the layers above.
package strategy

import (
	"context"

	"github.com/solwatch/arbedge/internal/domain"
)

// Strategy is the uniform capability interface every detection heuristic
// implements. Adding a heuristic means adding an implementation plus a
// registry entry.
type Strategy interface {
	Name() string
	Type() domain.StrategyType
	SupportedVenues() []domain.VenueType

	// Detect inspects one venue snapshot and returns raw signals. Detect
	// must not block beyond ctx and must be safe for concurrent calls with
	// distinct snapshots.
	Detect(ctx context.Context, snap domain.VenueSnapshot) ([]domain.RawSignal, error)
}
