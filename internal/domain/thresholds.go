package domain

import "fmt"

// RainThreshold holds the caution and critical accumulations (mm over the
// trailing window) for one threat level.
type RainThreshold struct {
	CautionMM  float64
	CriticalMM float64
}

// ThresholdTable is the static threat-to-threshold matrix. Built once at
// process start, read-only afterward; copies are cheap and safe to share.
type ThresholdTable struct {
	rows [numThreatLevels]RainThreshold
}

// NewThresholdTable builds a table from exactly one threshold per threat
// level. A missing level or a row with caution >= critical is a
// configuration error and is fatal for the whole cycle, not per-tower.
func NewThresholdTable(rows map[ThreatLevel]RainThreshold) (ThresholdTable, error) {
	var t ThresholdTable
	for _, level := range ThreatLevels() {
		row, ok := rows[level]
		if !ok {
			return ThresholdTable{}, fmt.Errorf("threshold table: missing row for threat level %q", level)
		}
		if row.CautionMM <= 0 || row.CriticalMM <= 0 {
			return ThresholdTable{}, fmt.Errorf("threshold table: non-positive threshold for %q", level)
		}
		if row.CautionMM >= row.CriticalMM {
			return ThresholdTable{}, fmt.Errorf("threshold table: caution %.1f >= critical %.1f for %q",
				row.CautionMM, row.CriticalMM, level)
		}
		t.rows[level] = row
	}
	return t, nil
}

// DefaultThresholdTable returns the operational matrix documented in the
// package comment. Values come from the umbrales_lluvia reference data.
func DefaultThresholdTable() ThresholdTable {
	t, err := NewThresholdTable(map[ThreatLevel]RainThreshold{
		ThreatVeryLow:  {CautionMM: 250, CriticalMM: 300},
		ThreatLow:      {CautionMM: 200, CriticalMM: 250},
		ThreatMedium:   {CautionMM: 150, CriticalMM: 200},
		ThreatHigh:     {CautionMM: 100, CriticalMM: 120},
		ThreatVeryHigh: {CautionMM: 80, CriticalMM: 100},
	})
	if err != nil {
		// The built-in matrix satisfies the invariants by construction.
		panic(err)
	}
	return t
}

// Lookup returns the thresholds for a threat level. Levels outside the five
// defined categories fail with unknown_threat_level.
func (t ThresholdTable) Lookup(level ThreatLevel) (RainThreshold, error) {
	if !level.Valid() {
		return RainThreshold{}, errUnknownThreat(level.String())
	}
	return t.rows[level], nil
}
