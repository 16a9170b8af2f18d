// Package engine orchestrates evaluation cycles: one AlertRecord per tower
// per cycle, produced from the tower registry, the precipitation source, and
// the domain classification rules.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
	"github.com/gridwatch/landslide-alert-engine/internal/observability"
)

// TowerRegistry lists the towers to evaluate at cycle start.
type TowerRegistry interface {
	ListTowers(ctx context.Context) ([]domain.Tower, error)
}

// SampleSource fetches the precipitation series for one tower covering at
// least the trailing window. This is the only latency-bound call in a cycle.
type SampleSource interface {
	FetchSamples(ctx context.Context, tower domain.Tower, window time.Duration) ([]domain.PrecipitationSample, error)
}

// RecordSink receives the records of a completed cycle (Kafka topic, CSV
// export). Sink failures are logged, never cycle-fatal: the records remain
// available through LatestRecords.
type RecordSink interface {
	PublishRecords(ctx context.Context, records []domain.AlertRecord) error
}

// Options tune one engine instance. Zero values fall back to defaults.
type Options struct {
	Window              time.Duration // accumulation window, default 72h
	CycleInterval       time.Duration // wall time between cycles, default 1h
	FetchConcurrency    int           // bounded fan-out for sample fetches, default 8
	FetchTimeout        time.Duration // per-tower fetch deadline, default 10s
	UsePopulationBounds bool          // normalize against cycle population maxima
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = domain.DefaultAccumulationWindow
	}
	if o.CycleInterval <= 0 {
		o.CycleInterval = time.Hour
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = 8
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	return o
}

// Engine runs evaluation cycles over the tower registry. Towers are
// independent: per-tower evaluation shares no mutable state, so the fan-out
// order never affects outcomes.
type Engine struct {
	registry TowerRegistry
	source   SampleSource
	sinks    []RecordSink

	table   domain.ThresholdTable
	weights domain.RiskWeights
	opts    Options

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	ready  atomic.Bool
	latest atomic.Pointer[[]domain.AlertRecord]
}

// New creates an Engine. The threshold table and weights are validated by
// their constructors before they reach here; sinks may be empty.
func New(
	registry TowerRegistry,
	source SampleSource,
	sinks []RecordSink,
	table domain.ThresholdTable,
	weights domain.RiskWeights,
	opts Options,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		registry: registry,
		source:   source,
		sinks:    sinks,
		table:    table,
		weights:  weights,
		opts:     opts.withDefaults(),
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the engine has completed at least one
// evaluation cycle.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not completed an evaluation cycle yet")
	}
	return nil
}

// LatestRecords returns a copy of the most recent cycle's records, or nil
// before the first cycle completes.
func (e *Engine) LatestRecords() []domain.AlertRecord {
	p := e.latest.Load()
	if p == nil {
		return nil
	}
	out := make([]domain.AlertRecord, len(*p))
	copy(out, *p)
	return out
}

// Run executes evaluation cycles until the context is cancelled: one
// immediately, then one per cycle interval. Cycle errors are logged and the
// loop continues; only cancellation stops it.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		"cycle_interval", e.opts.CycleInterval,
		"window", e.opts.Window,
		"fetch_concurrency", e.opts.FetchConcurrency,
	)
	e.metrics.EngineRunning.Set(1)
	defer e.metrics.EngineRunning.Set(0)

	ticker := e.clock.NewTicker(e.opts.CycleInterval)
	defer ticker.Stop()

	for {
		if _, err := e.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				e.logger.Info("engine stopping", "reason", ctx.Err())
				return nil
			}
			e.logger.Error("evaluation cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunCycle evaluates every tower once and returns the cycle's records in
// registry order. Only registry access fails the whole cycle; per-tower
// faults become failure records. Normalization bounds are frozen before any
// tower is scored so all towers in the cycle share one scale.
func (e *Engine) RunCycle(ctx context.Context) ([]domain.AlertRecord, error) {
	start := e.clock.Now()

	towers, err := e.registry.ListTowers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list towers: %w", err)
	}
	if len(towers) == 0 {
		e.logger.Warn("tower registry is empty, nothing to evaluate")
		return nil, nil
	}

	bounds := domain.DefaultBounds()
	if e.opts.UsePopulationBounds {
		bounds = domain.PopulationBounds(towers)
	}
	scorer, err := domain.NewRiskScorer(e.weights, bounds)
	if err != nil {
		return nil, fmt.Errorf("build risk scorer: %w", err)
	}

	cycleID := uuid.NewString()
	asOf := start.UTC()
	records := make([]domain.AlertRecord, len(towers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.FetchConcurrency)
	for i, tower := range towers {
		g.Go(func() error {
			records[i] = e.evaluateTower(gctx, scorer, cycleID, asOf, tower)
			return nil
		})
	}
	// Workers never return errors; Wait only reaps them.
	_ = g.Wait()
	if ctx.Err() != nil {
		// A cancelled cycle abandons its partial results.
		return nil, ctx.Err()
	}

	e.observeCycle(records, e.clock.Since(start))
	e.publish(ctx, records)

	stored := records
	e.latest.Store(&stored)
	e.ready.Store(true)

	return records, nil
}

// evaluateTower produces the AlertRecord for one tower. Faults are captured
// on the record, never returned: a malformed tower must not abort the cycle
// for the others.
func (e *Engine) evaluateTower(ctx context.Context, scorer domain.RiskScorer, cycleID string, asOf time.Time, tower domain.Tower) domain.AlertRecord {
	rec := domain.AlertRecord{
		TowerID:     tower.ID,
		CycleID:     cycleID,
		EvaluatedAt: asOf,
		DataStatus:  domain.DataOK,
	}

	samples, status := e.fetchSamples(ctx, tower)
	rec.DataStatus = status

	acc := domain.Accumulate(samples, asOf, e.opts.Window)
	acc24 := domain.Accumulate(samples, asOf, 24*time.Hour)
	if acc.ClampedNegatives > 0 {
		e.logger.Warn("negative precipitation samples clamped to zero",
			"tower_id", tower.ID, "count", acc.ClampedNegatives)
	}
	if acc.Insufficient && rec.DataStatus == domain.DataOK {
		rec.DataStatus = domain.DataInsufficient
	}
	if rec.DataStatus != domain.DataOK {
		e.metrics.InsufficientData.Inc()
	}
	rec.AccumulatedMM = acc.Millimeters
	rec.Accumulated24hMM = acc24.Millimeters

	score, err := scorer.Score(tower)
	if err != nil {
		return e.failRecord(rec, tower, err)
	}
	rec.RiskScore = score
	rec.RiskClass = domain.RiskClass(score)

	cls, err := domain.ClassifyAlert(e.table, tower.Threat, acc.Millimeters, score)
	if err != nil {
		return e.failRecord(rec, tower, err)
	}
	rec.RainLevel = cls.RainLevel
	rec.ScoreLevel = cls.ScoreLevel
	rec.FinalLevel = cls.FinalLevel

	return rec
}

// fetchSamples pulls the tower's precipitation series under the per-tower
// timeout. Source failure degrades to source_unavailable: classification
// proceeds with 0.0 mm rather than blocking the cycle.
func (e *Engine) fetchSamples(ctx context.Context, tower domain.Tower) ([]domain.PrecipitationSample, domain.DataStatus) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	start := e.clock.Now()
	samples, err := e.source.FetchSamples(fetchCtx, tower, e.opts.Window)
	e.metrics.FetchDuration.Observe(e.clock.Since(start).Seconds())
	if err != nil {
		e.metrics.FetchRequests.WithLabelValues("error").Inc()
		e.logger.Warn("precipitation fetch failed, classifying without data",
			"tower_id", tower.ID, "error", err)
		return nil, domain.DataSourceUnavailable
	}
	e.metrics.FetchRequests.WithLabelValues("success").Inc()
	return samples, domain.DataOK
}

// failRecord marks a per-tower failure: error code attached, no alert level
// inferred.
func (e *Engine) failRecord(rec domain.AlertRecord, tower domain.Tower, err error) domain.AlertRecord {
	var evalErr *domain.EvalError
	if errors.As(err, &evalErr) {
		rec.ErrorCode = evalErr.Code
	} else {
		rec.ErrorCode = domain.ErrCodeInvalidAttribute
	}
	rec.ErrorMessage = err.Error()
	rec.RainLevel = domain.AlertNone
	rec.ScoreLevel = domain.AlertNone
	rec.FinalLevel = domain.AlertNone
	rec.RiskScore = 0
	rec.RiskClass = ""

	e.metrics.TowerFailures.WithLabelValues(string(rec.ErrorCode)).Inc()
	e.logger.Warn("tower evaluation failed",
		"tower_id", tower.ID, "code", rec.ErrorCode, "error", err)
	return rec
}

// observeCycle records cycle metrics and resets the per-level gauges to the
// latest cycle's distribution.
func (e *Engine) observeCycle(records []domain.AlertRecord, elapsed time.Duration) {
	counts := map[domain.AlertLevel]int{}
	failed := 0
	for _, rec := range records {
		if rec.Failed() {
			failed++
			continue
		}
		counts[rec.FinalLevel]++
		e.metrics.TowersEvaluated.WithLabelValues(rec.FinalLevel.String()).Inc()
	}
	for _, level := range []domain.AlertLevel{domain.AlertGreen, domain.AlertYellow, domain.AlertRed} {
		e.metrics.AlertLevelTowers.WithLabelValues(level.String()).Set(float64(counts[level]))
	}
	e.metrics.CyclesTotal.Inc()
	e.metrics.CycleDuration.Observe(elapsed.Seconds())

	e.logger.Info("evaluation cycle complete",
		"towers", len(records),
		"green", counts[domain.AlertGreen],
		"yellow", counts[domain.AlertYellow],
		"red", counts[domain.AlertRed],
		"failed", failed,
		"duration", elapsed,
	)
}

func (e *Engine) publish(ctx context.Context, records []domain.AlertRecord) {
	for _, sink := range e.sinks {
		if err := sink.PublishRecords(ctx, records); err != nil {
			e.logger.Error("publish alert records failed", "error", err)
		}
	}
}
