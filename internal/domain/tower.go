package domain

import "fmt"

// ThreatLevel is the ordered SGC terrain susceptibility category.
// Ordinals run 0 (Muy Baja) through 4 (Muy Alta).
type ThreatLevel int

const (
	ThreatVeryLow ThreatLevel = iota
	ThreatLow
	ThreatMedium
	ThreatHigh
	ThreatVeryHigh

	numThreatLevels = 5
)

// ThreatUnknown marks a label outside the five defined categories. Towers
// carrying it fail classification with unknown_threat_level; they are never
// silently coerced to a valid category.
const ThreatUnknown ThreatLevel = -1

// threatLabels are the SGC labels as they appear in the registry export.
var threatLabels = [numThreatLevels]string{"Muy Baja", "Baja", "Media", "Alta", "Muy Alta"}

// ThreatLevels returns all five categories in ascending order.
func ThreatLevels() []ThreatLevel {
	return []ThreatLevel{ThreatVeryLow, ThreatLow, ThreatMedium, ThreatHigh, ThreatVeryHigh}
}

// String returns the SGC label, or "Desconocida" for out-of-range values.
func (l ThreatLevel) String() string {
	if !l.Valid() {
		return "Desconocida"
	}
	return threatLabels[l]
}

// Valid reports whether l is one of the five defined categories.
func (l ThreatLevel) Valid() bool {
	return l >= ThreatVeryLow && l <= ThreatVeryHigh
}

// Ordinal returns the 0-4 position used for risk normalization.
func (l ThreatLevel) Ordinal() int { return int(l) }

func (l ThreatLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("marshal threat level: %d is out of range", int(l))
	}
	return []byte(threatLabels[l]), nil
}

func (l *ThreatLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseThreatLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseThreatLevel maps an SGC label to its ThreatLevel. Unknown labels
// return ThreatUnknown and an EvalError with code unknown_threat_level.
func ParseThreatLevel(label string) (ThreatLevel, error) {
	for i, name := range threatLabels {
		if name == label {
			return ThreatLevel(i), nil
		}
	}
	return ThreatUnknown, errUnknownThreat(label)
}

// Tower is one monitored transmission tower with its static attributes.
// Immutable during an evaluation cycle; the external registry may update it
// between cycles.
type Tower struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Threat            ThreatLevel `json:"threat_level"`
	SlopeDeg          float64     `json:"slope_deg"`
	EventCount        float64     `json:"event_count"`
	DrainageDistanceM float64     `json:"drainage_distance_m"`

	// ResidualFactor is the pre-normalized [0,1] site-susceptibility factor
	// (soil type and vegetation cover, classed upstream).
	ResidualFactor float64 `json:"residual_factor"`
}

// Validate checks every numeric attribute against its declared domain.
// It does not check the threat level; unknown threat surfaces at threshold
// lookup so the two failure modes stay distinguishable.
func (t Tower) Validate() error {
	switch {
	case t.Latitude < -90 || t.Latitude > 90:
		return errInvalidAttribute("latitude", t.Latitude)
	case t.Longitude < -180 || t.Longitude > 180:
		return errInvalidAttribute("longitude", t.Longitude)
	case t.SlopeDeg < 0:
		return errInvalidAttribute("slope_deg", t.SlopeDeg)
	case t.EventCount < 0:
		return errInvalidAttribute("event_count", t.EventCount)
	case t.DrainageDistanceM < 0:
		return errInvalidAttribute("drainage_distance_m", t.DrainageDistanceM)
	case t.ResidualFactor < 0 || t.ResidualFactor > 1:
		return errInvalidAttribute("residual_factor", t.ResidualFactor)
	}
	return nil
}
