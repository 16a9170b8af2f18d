package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

// Exporter writes each cycle's alert records to a CSV file, replacing the
// previous cycle's export. It implements engine.RecordSink.
type Exporter struct {
	path   string
	logger *slog.Logger
}

// NewExporter creates a CSV alert export sink.
func NewExporter(path string, logger *slog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

var exportHeader = []string{
	"tower_id", "cycle_id", "evaluated_at",
	"accumulated_rainfall_mm", "accumulated_24h_mm",
	"risk_score", "risk_class",
	"rain_level", "score_level", "final_level",
	"data_status", "error_code", "error_message",
}

// PublishRecords writes the cycle's records. The file is written to a temp
// sibling and renamed so readers never see a half-written export.
func (x *Exporter) PublishRecords(ctx context.Context, records []domain.AlertRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := x.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create alert export: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		f.Close()
		return fmt.Errorf("write export header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(exportRow(rec)); err != nil {
			f.Close()
			return fmt.Errorf("write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush alert export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close alert export: %w", err)
	}
	if err := os.Rename(tmp, x.path); err != nil {
		return fmt.Errorf("replace alert export: %w", err)
	}

	x.logger.Info("alert export written", "path", x.path, "records", len(records))
	return nil
}

func exportRow(rec domain.AlertRecord) []string {
	return []string{
		rec.TowerID,
		rec.CycleID,
		rec.EvaluatedAt.Format(time.RFC3339),
		strconv.FormatFloat(rec.AccumulatedMM, 'f', 2, 64),
		strconv.FormatFloat(rec.Accumulated24hMM, 'f', 2, 64),
		strconv.FormatFloat(rec.RiskScore, 'f', 1, 64),
		rec.RiskClass,
		rec.RainLevel.String(),
		rec.ScoreLevel.String(),
		rec.FinalLevel.String(),
		string(rec.DataStatus),
		string(rec.ErrorCode),
		rec.ErrorMessage,
	}
}
