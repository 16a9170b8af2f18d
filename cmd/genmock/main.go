// Command genmock generates a mock tower registry, threshold matrix, and
// landslide event history as CSV fixtures. It uses the actual domain package
// to classify the generated towers, so the printed stats match engine
// behavior and can be pasted into test assertions.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

// Tower coordinates follow the Arauca-Norte de Santander transmission
// corridor of the monitored line.
var towerCoords = [][2]float64{
	{6.642631, -71.814700}, {6.858107, -71.902591}, {6.841745, -71.391727},
	{6.356094, -70.825931}, {6.710830, -70.666629}, {6.634446, -71.314822},
	{6.214130, -71.946536}, {6.994109, -72.023901}, {7.048910, -72.153202},
	{7.080816, -72.214008}, {7.152109, -72.350767}, {7.186571, -72.429217},
	{7.225404, -72.464010}, {7.271783, -72.456399}, {7.314922, -72.502064},
}

// Slope ranges per threat level, in degrees. Steeper terrain carries higher
// SGC threat, so the simulated slope is drawn from the level's range.
var slopeRange = map[domain.ThreatLevel][2]float64{
	domain.ThreatVeryLow:  {0, 10},
	domain.ThreatLow:      {10, 20},
	domain.ThreatMedium:   {20, 30},
	domain.ThreatHigh:     {30, 40},
	domain.ThreatVeryHigh: {40, 60},
}

// Soil and vegetation classes feed the residual susceptibility factor.
var (
	soilTypes   = []string{"clay", "silt", "sand", "rock", "mixed"}
	soilFactor  = map[string]float64{"clay": 0.9, "silt": 0.7, "sand": 0.6, "rock": 0.2, "mixed": 0.5}
	vegCovers   = []string{"dense_forest", "open_forest", "pasture", "crops", "bare_soil"}
	vegFactor   = map[string]float64{"dense_forest": 0.1, "open_forest": 0.3, "pasture": 0.6, "crops": 0.7, "bare_soil": 1.0}
	eventLabels = []string{"minor", "moderate", "severe"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "output directory for mock CSV fixtures")
	seed := flag.Int64("seed", 42, "random seed for reproducible fixtures")
	events := flag.Int("events", 50, "number of historical landslide events")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))

	towers := generateTowers(rng)
	eventCounts := generateEvents(rng, towers, *events)
	for i := range towers {
		towers[i].EventCount = float64(eventCounts[towers[i].ID])
	}

	if err := writeRegistry(filepath.Join(*outDir, "tower_registry.csv"), towers); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := writeThresholds(filepath.Join(*outDir, "rain_thresholds.csv")); err != nil {
		return fmt.Errorf("writing thresholds: %w", err)
	}
	if err := writeEvents(filepath.Join(*outDir, "event_history.csv"), rng, towers, eventCounts); err != nil {
		return fmt.Errorf("writing events: %w", err)
	}

	log.Printf("wrote fixtures to %s", *outDir)
	printStats(towers)
	return nil
}

// generateTowers builds the 15-tower registry with simulated attributes.
// Threat distribution roughly matches the SGC susceptibility map for the
// corridor: mostly Media, tails at both extremes.
func generateTowers(rng *rand.Rand) []domain.Tower {
	threatCDF := []struct {
		p     float64
		level domain.ThreatLevel
	}{
		{0.15, domain.ThreatVeryLow},
		{0.40, domain.ThreatLow},
		{0.80, domain.ThreatMedium},
		{0.95, domain.ThreatHigh},
		{1.00, domain.ThreatVeryHigh},
	}

	towers := make([]domain.Tower, len(towerCoords))
	for i, coord := range towerCoords {
		roll := rng.Float64()
		level := domain.ThreatVeryHigh
		for _, c := range threatCDF {
			if roll < c.p {
				level = c.level
				break
			}
		}

		slopes := slopeRange[level]
		slope := slopes[0] + rng.Float64()*(slopes[1]-slopes[0])

		soil := soilTypes[rng.Intn(len(soilTypes))]
		veg := vegCovers[rng.Intn(len(vegCovers))]
		residual := 0.5*soilFactor[soil] + 0.5*vegFactor[veg]

		towers[i] = domain.Tower{
			ID:                fmt.Sprintf("TORRE_%03d", i+1),
			Name:              fmt.Sprintf("Torre %d", i+1),
			Latitude:          coord[0],
			Longitude:         coord[1],
			Threat:            level,
			SlopeDeg:          float64(int(slope*100)) / 100,
			DrainageDistanceM: float64(10 + rng.Intn(490)),
			ResidualFactor:    float64(int(residual*100)) / 100,
		}
	}
	return towers
}

// generateEvents assigns historical landslide events to a subset of towers.
func generateEvents(rng *rand.Rand, towers []domain.Tower, n int) map[string]int {
	// Only towers with medium or worse threat accumulate events.
	var candidates []string
	for _, t := range towers {
		if t.Threat >= domain.ThreatMedium {
			candidates = append(candidates, t.ID)
		}
	}
	if len(candidates) == 0 {
		candidates = []string{towers[0].ID}
	}

	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		counts[candidates[rng.Intn(len(candidates))]]++
	}
	return counts
}

func writeRegistry(path string, towers []domain.Tower) error {
	rows := [][]string{{
		"id", "name", "latitude", "longitude", "threat_level",
		"slope_deg", "event_count", "drainage_distance_m", "residual_factor",
	}}
	for _, t := range towers {
		rows = append(rows, []string{
			t.ID, t.Name,
			strconv.FormatFloat(t.Latitude, 'f', 6, 64),
			strconv.FormatFloat(t.Longitude, 'f', 6, 64),
			t.Threat.String(),
			strconv.FormatFloat(t.SlopeDeg, 'f', 2, 64),
			strconv.FormatFloat(t.EventCount, 'f', 0, 64),
			strconv.FormatFloat(t.DrainageDistanceM, 'f', 0, 64),
			strconv.FormatFloat(t.ResidualFactor, 'f', 2, 64),
		})
	}
	return writeCSV(path, rows)
}

func writeThresholds(path string) error {
	table := domain.DefaultThresholdTable()
	rows := [][]string{{"threat_level", "caution_mm", "critical_mm"}}
	for _, level := range domain.ThreatLevels() {
		th, err := table.Lookup(level)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			level.String(),
			strconv.FormatFloat(th.CautionMM, 'f', 0, 64),
			strconv.FormatFloat(th.CriticalMM, 'f', 0, 64),
		})
	}
	return writeCSV(path, rows)
}

func writeEvents(path string, rng *rand.Rand, towers []domain.Tower, counts map[string]int) error {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	span := end.Sub(start)

	rows := [][]string{{
		"event_id", "date", "tower_id", "magnitude",
		"precipitation_72h_mm", "affected_infrastructure",
	}}
	n := 1
	for _, t := range towers {
		for i := 0; i < counts[t.ID]; i++ {
			date := start.Add(time.Duration(rng.Int63n(int64(span))))
			affected := rng.Float64() < 0.3
			rows = append(rows, []string{
				fmt.Sprintf("EVT_%04d", n),
				date.Format("2006-01-02"),
				t.ID,
				eventLabels[rng.Intn(len(eventLabels))],
				strconv.FormatFloat(50+rng.Float64()*200, 'f', 1, 64),
				strconv.FormatBool(affected),
			})
			n++
		}
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

// printStats classifies the generated towers with the real scoring and
// threshold code and prints the distribution for updating test assertions.
func printStats(towers []domain.Tower) {
	scorer, err := domain.NewRiskScorer(domain.DefaultRiskWeights(), domain.DefaultBounds())
	if err != nil {
		log.Fatal(err)
	}
	table := domain.DefaultThresholdTable()

	threatCounts := map[domain.ThreatLevel]int{}
	classCounts := map[string]int{}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total towers: %d\n\n", len(towers))
	for _, t := range towers {
		threatCounts[t.Threat]++

		score, err := scorer.Score(t)
		if err != nil {
			log.Fatal(err)
		}
		class := domain.RiskClass(score)
		classCounts[class]++

		// Dry classification at 0 mm accumulated shows the score band alone.
		cls, err := domain.ClassifyAlert(table, t.Threat, 0, score)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  %s threat=%-8s slope=%5.2f events=%.0f drainage=%3.0fm residual=%.2f score=%5.1f class=%-5s dry_level=%s\n",
			t.ID, t.Threat, t.SlopeDeg, t.EventCount, t.DrainageDistanceM, t.ResidualFactor, score, class, cls.FinalLevel)
	}

	fmt.Println("\nThreat distribution:")
	for _, level := range domain.ThreatLevels() {
		fmt.Printf("  %s: %d\n", level, threatCounts[level])
	}
	fmt.Println("\nRisk class distribution:")
	for _, class := range []string{"Bajo", "Medio", "Alto"} {
		fmt.Printf("  %s: %d\n", class, classCounts[class])
	}
}
