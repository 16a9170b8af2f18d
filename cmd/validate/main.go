// Command validate performs integrity checks across the engine's CSV inputs:
// tower registry, rainfall threshold matrix, and event history. It verifies
// field domains, cross-file consistency, and that classification of the
// fixtures is deterministic.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -registry data/mock/tower_registry.csv \
//	  -thresholds data/mock/rain_thresholds.csv \
//	  -events data/mock/event_history.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gridwatch/landslide-alert-engine/internal/adapter/csvfile"
	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	registryPath := flag.String("registry", "", "path to tower registry CSV")
	thresholdsPath := flag.String("thresholds", "", "path to rainfall thresholds CSV (empty: built-in matrix)")
	eventsPath := flag.String("events", "", "path to event history CSV (optional)")
	flag.Parse()

	if *registryPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*registryPath, *thresholdsPath, *eventsPath); code != 0 {
		os.Exit(code)
	}
}

func run(registryPath, thresholdsPath, eventsPath string) int {
	fmt.Println("=== Tower Alert Input Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	table := domain.DefaultThresholdTable()
	if thresholdsPath != "" {
		var err error
		table, err = csvfile.LoadThresholdTable(thresholdsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load thresholds: %v\n", err)
			return 1
		}
	}

	towers, err := csvfile.NewRegistry(registryPath, logger).ListTowers(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load registry: %v\n", err)
		return 1
	}

	var eventCounts map[string]int
	if eventsPath != "" {
		eventCounts, err = loadEventCounts(eventsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
			return 1
		}
	}

	phases := []*phase{
		validateThresholds(table),
		validateRegistry(towers),
		validateEventHistory(towers, eventCounts, eventsPath != ""),
		validateClassification(table, towers),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d towers, %d towers with event history\n", len(towers), len(eventCounts))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Threshold Matrix ──
// Higher threat must never have looser limits than lower threat.

func validateThresholds(table domain.ThresholdTable) *phase {
	p := &phase{name: "Phase 1: Threshold Matrix"}

	var prev domain.RainThreshold
	for i, level := range domain.ThreatLevels() {
		th, err := table.Lookup(level)
		if err != nil {
			p.errorf("%s: %v", level, err)
			continue
		}
		if th.CautionMM <= 0 || th.CriticalMM <= 0 {
			p.errorf("%s: non-positive threshold (caution=%.0f, critical=%.0f)", level, th.CautionMM, th.CriticalMM)
		}
		if th.CautionMM >= th.CriticalMM {
			p.errorf("%s: caution %.0f mm is not below critical %.0f mm", level, th.CautionMM, th.CriticalMM)
		}
		if i > 0 {
			if th.CautionMM > prev.CautionMM {
				p.errorf("%s: caution %.0f mm is looser than previous level's %.0f mm", level, th.CautionMM, prev.CautionMM)
			}
			if th.CriticalMM > prev.CriticalMM {
				p.errorf("%s: critical %.0f mm is looser than previous level's %.0f mm", level, th.CriticalMM, prev.CriticalMM)
			}
		}
		prev = th
	}
	return p
}

// ── Phase 2: Tower Registry ──

func validateRegistry(towers []domain.Tower) *phase {
	p := &phase{name: "Phase 2: Tower Registry"}

	if len(towers) == 0 {
		p.errorf("registry is empty")
		return p
	}

	seen := map[string]bool{}
	for i, t := range towers {
		if t.ID == "" {
			p.errorf("tower %d: empty ID", i)
			continue
		}
		if seen[t.ID] {
			p.errorf("tower %s: duplicate ID", t.ID)
		}
		seen[t.ID] = true

		if !t.Threat.Valid() {
			p.errorf("tower %s: unknown threat level", t.ID)
		}
		if err := t.Validate(); err != nil {
			p.errorf("tower %s: %v", t.ID, err)
		}
	}
	return p
}

// ── Phase 3: Event History ──
// The registry's event counts must match the history file.

func validateEventHistory(towers []domain.Tower, counts map[string]int, loaded bool) *phase {
	p := &phase{name: "Phase 3: Event History"}
	if !loaded {
		return p
	}

	byID := map[string]domain.Tower{}
	for _, t := range towers {
		byID[t.ID] = t
	}

	for id := range counts {
		if _, ok := byID[id]; !ok {
			p.errorf("event history references unknown tower %s", id)
		}
	}
	for _, t := range towers {
		if int(t.EventCount) != counts[t.ID] {
			p.errorf("tower %s: registry event_count=%.0f, history has %d events", t.ID, t.EventCount, counts[t.ID])
		}
	}
	return p
}

// ── Phase 4: Classification Determinism ──
// Scoring the same tower twice must yield identical results, scores must be
// in range, and the risk class must agree with the score bands.

func validateClassification(table domain.ThresholdTable, towers []domain.Tower) *phase {
	p := &phase{name: "Phase 4: Classification Determinism"}

	scorer, err := domain.NewRiskScorer(domain.DefaultRiskWeights(), domain.DefaultBounds())
	if err != nil {
		p.errorf("build scorer: %v", err)
		return p
	}

	for _, t := range towers {
		score, err := scorer.Score(t)
		if err != nil {
			p.errorf("tower %s: score: %v", t.ID, err)
			continue
		}
		again, err := scorer.Score(t)
		if err != nil || score != again {
			p.errorf("tower %s: scoring is not deterministic (%.2f vs %.2f)", t.ID, score, again)
		}
		if score < 0 || score > 100 {
			p.errorf("tower %s: score %.2f out of range [0, 100]", t.ID, score)
		}

		class := domain.RiskClass(score)
		switch {
		case score < 30 && class != "Bajo":
			p.errorf("tower %s: score %.2f should be Bajo, got %s", t.ID, score, class)
		case score >= 30 && score <= 60 && class != "Medio":
			p.errorf("tower %s: score %.2f should be Medio, got %s", t.ID, score, class)
		case score > 60 && class != "Alto":
			p.errorf("tower %s: score %.2f should be Alto, got %s", t.ID, score, class)
		}

		if _, err := domain.ClassifyAlert(table, t.Threat, 0, score); err != nil {
			p.errorf("tower %s: classify: %v", t.ID, err)
		}
	}
	return p
}

// ── Helpers ──

func loadEventCounts(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	towerCol := -1
	for i, name := range header {
		if name == "tower_id" {
			towerCol = i
		}
	}
	if towerCol < 0 {
		return nil, fmt.Errorf("event history missing tower_id column")
	}

	counts := make(map[string]int)
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		counts[row[towerCol]]++
	}
	return counts, nil
}
