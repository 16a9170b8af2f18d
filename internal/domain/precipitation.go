package domain

import (
	"sort"
	"time"
)

// DefaultAccumulationWindow is the trailing window for rainfall accumulation.
const DefaultAccumulationWindow = 72 * time.Hour

// PrecipitationSample is one hourly precipitation reading for a tower.
type PrecipitationSample struct {
	TowerID     string    `json:"tower_id"`
	Timestamp   time.Time `json:"timestamp"`
	Millimeters float64   `json:"millimeters"`
	IsForecast  bool      `json:"is_forecast"`
}

// Accumulation is the reduction of a sample series over a trailing window.
// It is derived state, recomputed every cycle, never persisted.
type Accumulation struct {
	// Millimeters is the summed rainfall, always >= 0.
	Millimeters float64
	// SampleCount is the number of distinct in-window timestamps.
	SampleCount int
	// ClampedNegatives counts samples clamped to zero. Negative readings are
	// sensor error, not negative rainfall; clamping is a soft warning, not a
	// failure.
	ClampedNegatives int
	// Insufficient is set when zero samples fell inside the window. The sum
	// is then 0.0 and classification proceeds with it, but consumers must
	// present this distinctly from measured zero rainfall.
	Insufficient bool
}

// Accumulate sums sample millimeters within the trailing window
// [asOf-window, asOf], inclusive at both ends. Duplicate timestamps resolve
// last-wins in input order.
func Accumulate(samples []PrecipitationSample, asOf time.Time, window time.Duration) Accumulation {
	from := asOf.Add(-window)

	// Last-wins dedup: later entries for the same instant replace earlier
	// ones, so a corrected reading overrides the original.
	byTime := make(map[time.Time]float64)
	for _, s := range samples {
		if s.Timestamp.Before(from) || s.Timestamp.After(asOf) {
			continue
		}
		byTime[s.Timestamp.UTC()] = s.Millimeters
	}

	acc := Accumulation{SampleCount: len(byTime)}
	if len(byTime) == 0 {
		acc.Insufficient = true
		return acc
	}

	for _, mm := range byTime {
		if mm < 0 {
			acc.ClampedNegatives++
			continue
		}
		acc.Millimeters += mm
	}
	return acc
}

// SortSamples orders samples by timestamp ascending, preserving the relative
// order of duplicates so Accumulate's last-wins rule is stable.
func SortSamples(samples []PrecipitationSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
}
