package domain

// Recommendation is the discrete action tier derived from an overall score.
// Tiers are ordered: a higher value is always a stronger recommendation.
type Recommendation int

const (
	RecommendationSkip Recommendation = iota
	RecommendationWatch
	RecommendationConsider
	RecommendationExecute
	RecommendationStrongExecute
)

// String returns the wire representation of the recommendation tier.
func (r Recommendation) String() string {
	switch r {
	case RecommendationSkip:
		return "skip"
	case RecommendationWatch:
		return "watch"
	case RecommendationConsider:
		return "consider"
	case RecommendationExecute:
		return "execute"
	case RecommendationStrongExecute:
		return "strong_execute"
	default:
		return "unknown"
	}
}

// OpportunityScore is the scoring engine's output for one raw signal. The
// overall score is always derived from the factors and penalty; it is
// recomputed, never mutated in place.
type OpportunityScore struct {
	GraduationFactor float64 // 0-100
	VolumeFactor     float64 // 0-100
	HolderFactor     float64 // 0-100
	MomentumFactor   float64 // 0-100

	// RiskPenalty is a fractional multiplicative discount in [0,1).
	RiskPenalty float64

	OverallScore   float64 // 0-100
	Recommendation Recommendation

	// Findings in detection order.
	RiskWarnings    []string
	PositiveSignals []string
}

// Clone returns a deep copy of the score.
func (s OpportunityScore) Clone() OpportunityScore {
	cp := s
	cp.RiskWarnings = append([]string(nil), s.RiskWarnings...)
	cp.PositiveSignals = append([]string(nil), s.PositiveSignals...)
	return cp
}
