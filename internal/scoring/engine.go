// Package scoring turns raw detection signals plus a market context snapshot
// into weighted opportunity scores and discrete recommendations. Scoring is a
// pure function of its inputs: no clock, no randomness, no shared state, so
// every trade decision can be replayed bit-for-bit during an audit.
package scoring

import (
	"fmt"
	"math"

	"github.com/solwatch/arbedge/internal/domain"
)

// Weights are the fixed factor weights of the engine. They are engine
// configuration, never request-supplied.
type Weights struct {
	Graduation float64
	Volume     float64
	Holder     float64
	Momentum   float64
}

// Sum returns the total of all factor weights.
func (w Weights) Sum() float64 {
	return w.Graduation + w.Volume + w.Holder + w.Momentum
}

// DefaultWeights returns the stock factor weighting.
func DefaultWeights() Weights {
	return Weights{Graduation: 0.35, Volume: 0.25, Holder: 0.20, Momentum: 0.20}
}

// Thresholds hold the recommendation band floors. Bands are inclusive at the
// floor; the presence of any risk warning downgrades a borderline result
// (within borderlineMargin of its band floor) by one tier.
type Thresholds struct {
	StrongExecute float64
	Execute       float64
	Consider      float64
	Watch         float64
}

// DefaultThresholds returns the stock recommendation bands.
func DefaultThresholds() Thresholds {
	return Thresholds{StrongExecute: 80, Execute: 65, Consider: 45, Watch: 25}
}

const borderlineMargin = 5.0

// Engine computes opportunity scores. It is stateless and safe for
// unrestricted concurrent use.
type Engine struct {
	weights    Weights
	thresholds Thresholds
}

// NewEngine creates a scoring engine with the given weights and bands. The
// weights must sum to 1 within a small tolerance.
func NewEngine(w Weights, t Thresholds) (*Engine, error) {
	if s := w.Sum(); math.Abs(s-1.0) > 1e-6 {
		return nil, fmt.Errorf("scoring: weights must sum to 1, got %.6f", s)
	}
	if !(t.StrongExecute > t.Execute && t.Execute > t.Consider && t.Consider > t.Watch && t.Watch > 0) {
		return nil, fmt.Errorf("scoring: thresholds must be strictly descending and positive")
	}
	return &Engine{weights: w, thresholds: t}, nil
}

// Score computes the weighted opportunity score for a signal against the
// market context captured at detection time.
func (e *Engine) Score(sig domain.RawSignal, mkt domain.MarketContext) domain.OpportunityScore {
	score := domain.OpportunityScore{
		GraduationFactor: graduationFactor(mkt),
		VolumeFactor:     volumeFactor(mkt),
		HolderFactor:     holderFactor(mkt),
		MomentumFactor:   momentumFactor(mkt),
	}

	score.RiskWarnings, score.PositiveSignals = findings(sig, mkt)
	score.RiskPenalty = riskPenalty(sig, len(score.RiskWarnings))

	weighted := e.weights.Graduation*score.GraduationFactor +
		e.weights.Volume*score.VolumeFactor +
		e.weights.Holder*score.HolderFactor +
		e.weights.Momentum*score.MomentumFactor
	score.OverallScore = clamp(weighted*(1-score.RiskPenalty), 0, 100)

	score.Recommendation = e.recommend(score.OverallScore, len(score.RiskWarnings))
	return score
}

// recommend maps an overall score to its tier, applying the borderline
// downgrade when risk warnings are present.
func (e *Engine) recommend(overall float64, warnings int) domain.Recommendation {
	tier, floor := e.band(overall)
	if warnings > 0 && tier > domain.RecommendationSkip && overall-floor < borderlineMargin {
		tier--
	}
	return tier
}

func (e *Engine) band(overall float64) (domain.Recommendation, float64) {
	t := e.thresholds
	switch {
	case overall >= t.StrongExecute:
		return domain.RecommendationStrongExecute, t.StrongExecute
	case overall >= t.Execute:
		return domain.RecommendationExecute, t.Execute
	case overall >= t.Consider:
		return domain.RecommendationConsider, t.Consider
	case overall >= t.Watch:
		return domain.RecommendationWatch, t.Watch
	default:
		return domain.RecommendationSkip, 0
	}
}

// graduationFactor scores proximity to bonding-curve graduation. The band
// just below completion is where the sniper edge lives; fully graduated
// tokens retain a reduced residual score.
func graduationFactor(mkt domain.MarketContext) float64 {
	pct := clamp(mkt.GraduationPct, 0, 100)
	switch {
	case pct >= 100:
		return 40
	case pct >= 85:
		// Scale 85..100 into 70..100.
		return 70 + (pct-85)*2
	default:
		return pct * 0.8
	}
}

// volumeFactor scores 24h volume relative to the rolling baseline, log
// scaled so a 10x spike and a 100x spike remain distinguishable without the
// latter saturating everything else.
func volumeFactor(mkt domain.MarketContext) float64 {
	if mkt.Volume24hLamports <= 0 {
		return 0
	}
	base := mkt.VolumeBaseline
	if base <= 0 {
		base = 1
	}
	ratio := float64(mkt.Volume24hLamports) / float64(base)
	if ratio <= 0 {
		return 0
	}
	return clamp(50+25*math.Log10(ratio), 0, 100)
}

// holderFactor rewards broad distribution and penalises concentration.
func holderFactor(mkt domain.MarketContext) float64 {
	if mkt.HolderCount <= 0 {
		return 0
	}
	breadth := clamp(20*math.Log10(float64(mkt.HolderCount)), 0, 100)
	concentration := clamp(mkt.TopHolderPct, 0, 100)
	return clamp(breadth*(1-concentration/100*0.8), 0, 100)
}

// momentumFactor maps the 1h price change onto 0..100 with 50 as flat.
// Moves beyond +/-50% saturate.
func momentumFactor(mkt domain.MarketContext) float64 {
	return clamp(50+mkt.PriceChange1hPct, 0, 100)
}

// riskPenalty derives the multiplicative discount from the signal's risk
// score plus a fixed increment per warning, capped below 1. Guaranteed
// atomic routes carry no penalty at all.
func riskPenalty(sig domain.RawSignal, warnings int) float64 {
	if sig.Atomicity == domain.AtomicityFull && sig.SimulatedProfitGuaranteed {
		return 0
	}
	p := float64(sig.RiskScore)/200 + 0.05*float64(warnings)
	return clamp(p, 0, 0.90)
}

// Finding thresholds.
const (
	highRiskScore      = 70
	concentrationLimit = 40.0
	thinLiquidity      = 1_000_000_000 // 1 SOL
	spikeRatio         = 3.0
	imminentGraduation = 85.0
)

// findings collects human-readable risk warnings and positive signals in
// detection order.
func findings(sig domain.RawSignal, mkt domain.MarketContext) (warnings, positives []string) {
	if sig.RiskScore > highRiskScore {
		warnings = append(warnings, fmt.Sprintf("risk score %d above %d", sig.RiskScore, highRiskScore))
	}
	if mkt.TopHolderPct > concentrationLimit {
		warnings = append(warnings, fmt.Sprintf("top holder owns %.1f%% of supply", mkt.TopHolderPct))
	}
	if mkt.LiquidityLamports > 0 && mkt.LiquidityLamports < thinLiquidity {
		warnings = append(warnings, "liquidity below 1 SOL")
	}
	if sig.Atomicity == domain.AtomicityNone {
		warnings = append(warnings, "route is not atomic")
	}
	if sig.EstimatedProfitLamports <= 0 {
		warnings = append(warnings, "estimated profit not positive")
	}

	if sig.SimulatedProfitGuaranteed {
		positives = append(positives, "simulation confirmed profit")
	}
	if sig.Atomicity == domain.AtomicityFull {
		positives = append(positives, "fully atomic route")
	}
	if mkt.GraduationPct >= imminentGraduation && mkt.GraduationPct < 100 {
		positives = append(positives, fmt.Sprintf("graduation imminent at %.1f%%", mkt.GraduationPct))
	}
	if base := mkt.VolumeBaseline; base > 0 && float64(mkt.Volume24hLamports) >= spikeRatio*float64(base) {
		positives = append(positives, fmt.Sprintf("volume %.1fx above baseline", float64(mkt.Volume24hLamports)/float64(base)))
	}
	return warnings, positives
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
