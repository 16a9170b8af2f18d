// Package csvfile reads the tower registry and threshold matrix from flat
// CSV files and exports alert records back to CSV. Flat tabular records are
// the system's only persistence.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

// Registry loads towers from a CSV file on every cycle, so edits to the
// registry file are picked up between cycles without a restart. It
// implements engine.TowerRegistry.
type Registry struct {
	path   string
	logger *slog.Logger
}

// NewRegistry creates a CSV-backed tower registry.
func NewRegistry(path string, logger *slog.Logger) *Registry {
	return &Registry{path: path, logger: logger}
}

// registry CSV header, in order.
var registryHeader = []string{
	"id", "name", "latitude", "longitude", "threat_level",
	"slope_deg", "event_count", "drainage_distance_m", "residual_factor",
}

// ListTowers reads the registry file. Structural problems (missing file,
// bad header) fail the cycle; per-row problems do not. A row with an
// unknown threat label is kept with ThreatUnknown so classification reports
// it per tower, and a row with unparseable numerics is skipped with a
// warning.
func (r *Registry) ListTowers(ctx context.Context) ([]domain.Tower, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open tower registry: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read registry header: %w", err)
	}
	cols, err := columnIndex(header, registryHeader)
	if err != nil {
		return nil, fmt.Errorf("tower registry: %w", err)
	}

	var towers []domain.Tower
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read registry row %d: %w", line, err)
		}

		tower, err := parseTowerRow(row, cols)
		if err != nil {
			r.logger.Warn("skipping malformed registry row", "line", line, "error", err)
			continue
		}
		towers = append(towers, tower)
	}
	return towers, nil
}

func parseTowerRow(row []string, cols map[string]int) (domain.Tower, error) {
	get := func(name string) string { return row[cols[name]] }

	lat, err := strconv.ParseFloat(get("latitude"), 64)
	if err != nil {
		return domain.Tower{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(get("longitude"), 64)
	if err != nil {
		return domain.Tower{}, fmt.Errorf("longitude: %w", err)
	}
	slope, err := strconv.ParseFloat(get("slope_deg"), 64)
	if err != nil {
		return domain.Tower{}, fmt.Errorf("slope_deg: %w", err)
	}
	events, err := strconv.ParseFloat(get("event_count"), 64)
	if err != nil {
		return domain.Tower{}, fmt.Errorf("event_count: %w", err)
	}
	drainage, err := strconv.ParseFloat(get("drainage_distance_m"), 64)
	if err != nil {
		return domain.Tower{}, fmt.Errorf("drainage_distance_m: %w", err)
	}
	residual, err := strconv.ParseFloat(get("residual_factor"), 64)
	if err != nil {
		return domain.Tower{}, fmt.Errorf("residual_factor: %w", err)
	}

	// Unknown labels keep the tower in the cycle; classification fails it
	// individually with unknown_threat_level.
	threat, _ := domain.ParseThreatLevel(get("threat_level"))

	return domain.Tower{
		ID:                get("id"),
		Name:              get("name"),
		Latitude:          lat,
		Longitude:         lon,
		Threat:            threat,
		SlopeDeg:          slope,
		EventCount:        events,
		DrainageDistanceM: drainage,
		ResidualFactor:    residual,
	}, nil
}

// columnIndex maps required column names to their positions in the header.
func columnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return idx, nil
}
