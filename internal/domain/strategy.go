package domain

// StrategyType is the closed set of detection heuristics.
type StrategyType string

const (
	StrategyTypeCopyTrade        StrategyType = "copy_trade"
	StrategyTypeVolumeHunter     StrategyType = "volume_hunter"
	StrategyTypeGraduationSniper StrategyType = "graduation_sniper"
)

// BehavioralStrategy is a registry entry describing one detection strategy.
// IsActive is mutated through registry operations only.
type BehavioralStrategy struct {
	Name            string
	StrategyType    StrategyType
	SupportedVenues []VenueType
	IsActive        bool
}

// Supports reports whether the strategy can operate on the given venue type.
func (s BehavioralStrategy) Supports(vt VenueType) bool {
	for _, v := range s.SupportedVenues {
		if v == vt {
			return true
		}
	}
	return false
}
