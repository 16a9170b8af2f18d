package domain

import (
	"fmt"
	"math"
)

// RiskWeights are the relative weights of the five composite-risk components.
// They must sum to 1.0; each component is normalized to [0,1] before
// weighting, so the weighted sum lands in [0,1] and scales to 0-100.
type RiskWeights struct {
	Threat   float64
	Slope    float64
	History  float64
	Drainage float64
	Residual float64
}

// DefaultRiskWeights returns the documented 15/25/20/15/25 split.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{Threat: 0.15, Slope: 0.25, History: 0.20, Drainage: 0.15, Residual: 0.25}
}

const weightSumTolerance = 1e-9

// Validate rejects negative weights and sums that drift from 1.0.
func (w RiskWeights) Validate() error {
	for name, v := range map[string]float64{
		"threat": w.Threat, "slope": w.Slope, "history": w.History,
		"drainage": w.Drainage, "residual": w.Residual,
	} {
		if v < 0 {
			return fmt.Errorf("risk weights: %s weight %g is negative", name, v)
		}
	}
	sum := w.Threat + w.Slope + w.History + w.Drainage + w.Residual
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("risk weights: sum %.6f, want 1.0", sum)
	}
	return nil
}

// Bounds are the normalization ranges for the scorer's numeric components.
// They are frozen for one evaluation cycle before any tower is scored, so
// every tower in the cycle is measured against the same scale.
type Bounds struct {
	SlopeMaxDeg  float64 // degrees; values at or above normalize to 1
	HistoryMax   float64 // event count; values at or above normalize to 1
	DrainageMaxM float64 // meters; towers at or beyond contribute 0 drainage risk
}

// DefaultBounds returns the fixed domain bounds: 60 degree slope, 10 events,
// 500 m drainage distance.
func DefaultBounds() Bounds {
	return Bounds{SlopeMaxDeg: 60, HistoryMax: 10, DrainageMaxM: 500}
}

// PopulationBounds derives bounds from the maxima observed across a tower
// population. Degenerate maxima (zero or negative) fall back to the fixed
// domain bounds so a uniform population cannot divide by zero.
func PopulationBounds(towers []Tower) Bounds {
	b := Bounds{}
	for _, t := range towers {
		b.SlopeMaxDeg = math.Max(b.SlopeMaxDeg, t.SlopeDeg)
		b.HistoryMax = math.Max(b.HistoryMax, t.EventCount)
		b.DrainageMaxM = math.Max(b.DrainageMaxM, t.DrainageDistanceM)
	}
	def := DefaultBounds()
	if b.SlopeMaxDeg <= 0 {
		b.SlopeMaxDeg = def.SlopeMaxDeg
	}
	if b.HistoryMax <= 0 {
		b.HistoryMax = def.HistoryMax
	}
	if b.DrainageMaxM <= 0 {
		b.DrainageMaxM = def.DrainageMaxM
	}
	return b
}

// Validate rejects non-positive normalization ranges.
func (b Bounds) Validate() error {
	if b.SlopeMaxDeg <= 0 || b.HistoryMax <= 0 || b.DrainageMaxM <= 0 {
		return fmt.Errorf("bounds: all normalization maxima must be positive, got %+v", b)
	}
	return nil
}

// RiskScorer computes the composite 0-100 risk index. It is a pure function
// of tower attributes; construct one per cycle with that cycle's frozen
// bounds.
type RiskScorer struct {
	weights RiskWeights
	bounds  Bounds
}

// NewRiskScorer validates weights and bounds up front so Score itself has a
// single failure mode (malformed tower attributes).
func NewRiskScorer(weights RiskWeights, bounds Bounds) (RiskScorer, error) {
	if err := weights.Validate(); err != nil {
		return RiskScorer{}, err
	}
	if err := bounds.Validate(); err != nil {
		return RiskScorer{}, err
	}
	return RiskScorer{weights: weights, bounds: bounds}, nil
}

// Score computes the composite risk index for one tower. The result is
// rounded to a whole number and clamped to [0,100]. Fails with
// invalid_attribute when any numeric attribute is outside its domain; the
// threat component tolerates ThreatUnknown (contributing zero) because
// unknown threat is reported separately at threshold lookup.
func (s RiskScorer) Score(t Tower) (float64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	var threat float64
	if t.Threat.Valid() {
		threat = float64(t.Threat.Ordinal()) / float64(numThreatLevels-1)
	}
	slope := clamp01(t.SlopeDeg / s.bounds.SlopeMaxDeg)
	history := clamp01(t.EventCount / s.bounds.HistoryMax)
	drainage := 1 - clamp01(t.DrainageDistanceM/s.bounds.DrainageMaxM)
	residual := clamp01(t.ResidualFactor)

	sum := threat*s.weights.Threat +
		slope*s.weights.Slope +
		history*s.weights.History +
		drainage*s.weights.Drainage +
		residual*s.weights.Residual

	return clamp(math.Round(sum*100), 0, 100), nil
}

// RiskClass buckets a composite score into the operator-facing label.
// Boundaries match the score-driven alert bands: Bajo (<30), Medio (30-60),
// Alto (>60).
func RiskClass(score float64) string {
	switch {
	case score < scoreYellowMin:
		return "Bajo"
	case score <= scoreRedOver:
		return "Medio"
	default:
		return "Alto"
	}
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
