package domain

import (
	"fmt"
	"time"
)

// AlertLevel is the discrete operational alert level. Values are ordered by
// severity so the merge rule is an explicit total-order max, never a pair of
// independent booleans.
type AlertLevel int

const (
	// AlertNone marks a record whose evaluation failed; no level is inferred.
	AlertNone AlertLevel = iota
	AlertGreen
	AlertYellow
	AlertRed
)

var alertLabels = map[AlertLevel]string{
	AlertNone:   "none",
	AlertGreen:  "green",
	AlertYellow: "yellow",
	AlertRed:    "red",
}

func (l AlertLevel) String() string {
	if s, ok := alertLabels[l]; ok {
		return s
	}
	return fmt.Sprintf("AlertLevel(%d)", int(l))
}

func (l AlertLevel) MarshalText() ([]byte, error) {
	s, ok := alertLabels[l]
	if !ok {
		return nil, fmt.Errorf("marshal alert level: %d is out of range", int(l))
	}
	return []byte(s), nil
}

func (l *AlertLevel) UnmarshalText(text []byte) error {
	for level, s := range alertLabels {
		if s == string(text) {
			*l = level
			return nil
		}
	}
	return fmt.Errorf("unmarshal alert level: unknown label %q", text)
}

// MaxAlertLevel returns the more severe of two levels (red > yellow > green).
// It is commutative and idempotent.
func MaxAlertLevel(a, b AlertLevel) AlertLevel {
	if b > a {
		return b
	}
	return a
}

// Score-driven alert bands: > 60 red, 30-60 yellow, < 30 green.
const (
	scoreYellowMin = 30.0
	scoreRedOver   = 60.0
)

// RainAlertLevel maps an accumulation to a level via the threshold row.
// Comparisons are strictly greater-than: an accumulation equal to the
// caution threshold is still green, equal to critical is still yellow.
func RainAlertLevel(accumulatedMM float64, th RainThreshold) AlertLevel {
	switch {
	case accumulatedMM > th.CriticalMM:
		return AlertRed
	case accumulatedMM > th.CautionMM:
		return AlertYellow
	default:
		return AlertGreen
	}
}

// ScoreAlertLevel maps a composite risk score to a level.
func ScoreAlertLevel(score float64) AlertLevel {
	switch {
	case score > scoreRedOver:
		return AlertRed
	case score >= scoreYellowMin:
		return AlertYellow
	default:
		return AlertGreen
	}
}

// Classification holds the two independent signals and their merge.
type Classification struct {
	RainLevel  AlertLevel
	ScoreLevel AlertLevel
	FinalLevel AlertLevel
}

// ClassifyAlert combines the rain-driven and score-driven signals under the
// most-severe-wins rule. Either signal alone can escalate the final level;
// neither can suppress an escalation raised by the other. Pure function;
// the only failure mode is an unknown threat level at table lookup.
func ClassifyAlert(table ThresholdTable, threat ThreatLevel, accumulatedMM, riskScore float64) (Classification, error) {
	th, err := table.Lookup(threat)
	if err != nil {
		return Classification{}, err
	}

	rain := RainAlertLevel(accumulatedMM, th)
	score := ScoreAlertLevel(riskScore)
	return Classification{
		RainLevel:  rain,
		ScoreLevel: score,
		FinalLevel: MaxAlertLevel(rain, score),
	}, nil
}

// AlertRecord is the per-tower outcome of one evaluation cycle. Records are
// immutable once produced; a new cycle produces new records, never updates.
type AlertRecord struct {
	TowerID     string    `json:"tower_id"`
	CycleID     string    `json:"cycle_id"`
	EvaluatedAt time.Time `json:"evaluated_at"`

	AccumulatedMM    float64 `json:"accumulated_rainfall_mm"`
	Accumulated24hMM float64 `json:"accumulated_rainfall_24h_mm"`
	RiskScore        float64 `json:"risk_score"`
	RiskClass        string  `json:"risk_class"`

	RainLevel  AlertLevel `json:"rain_alert_level"`
	ScoreLevel AlertLevel `json:"composite_alert_level"`
	FinalLevel AlertLevel `json:"final_alert_level"`

	DataStatus DataStatus `json:"data_status"`

	// ErrorCode and ErrorMessage are set only on failed evaluations, in
	// which case all three levels are none.
	ErrorCode    ErrorCode `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
}

// Failed reports whether the tower's evaluation failed (no level inferred).
func (r AlertRecord) Failed() bool { return r.ErrorCode != "" }
