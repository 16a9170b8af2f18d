package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

var thresholdHeader = []string{"threat_level", "caution_mm", "critical_mm"}

// LoadThresholdTable reads the rainfall threshold matrix from a CSV file.
// Unlike the registry, a malformed thresholds file is fatal: thresholds are
// operator policy, and a partially applied matrix would classify some threat
// levels against stale or missing limits.
func LoadThresholdTable(path string) (domain.ThresholdTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ThresholdTable{}, fmt.Errorf("open thresholds file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return domain.ThresholdTable{}, fmt.Errorf("read thresholds header: %w", err)
	}
	cols, err := columnIndex(header, thresholdHeader)
	if err != nil {
		return domain.ThresholdTable{}, fmt.Errorf("thresholds file: %w", err)
	}

	rows := make(map[domain.ThreatLevel]domain.RainThreshold)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.ThresholdTable{}, fmt.Errorf("read thresholds row %d: %w", line, err)
		}

		level, err := domain.ParseThreatLevel(row[cols["threat_level"]])
		if err != nil {
			return domain.ThresholdTable{}, fmt.Errorf("thresholds row %d: %w", line, err)
		}
		caution, err := strconv.ParseFloat(row[cols["caution_mm"]], 64)
		if err != nil {
			return domain.ThresholdTable{}, fmt.Errorf("thresholds row %d: caution_mm: %w", line, err)
		}
		critical, err := strconv.ParseFloat(row[cols["critical_mm"]], 64)
		if err != nil {
			return domain.ThresholdTable{}, fmt.Errorf("thresholds row %d: critical_mm: %w", line, err)
		}
		rows[level] = domain.RainThreshold{CautionMM: caution, CriticalMM: critical}
	}

	return domain.NewThresholdTable(rows)
}
