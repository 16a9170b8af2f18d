package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/landslide-alert-engine/internal/adapter/csvfile"
	httpadapter "github.com/gridwatch/landslide-alert-engine/internal/adapter/http"
	kafkaadapter "github.com/gridwatch/landslide-alert-engine/internal/adapter/kafka"
	"github.com/gridwatch/landslide-alert-engine/internal/adapter/openmeteo"
	"github.com/gridwatch/landslide-alert-engine/internal/config"
	"github.com/gridwatch/landslide-alert-engine/internal/domain"
	"github.com/gridwatch/landslide-alert-engine/internal/engine"
	"github.com/gridwatch/landslide-alert-engine/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	table := domain.DefaultThresholdTable()
	if cfg.ThresholdsPath != "" {
		table, err = csvfile.LoadThresholdTable(cfg.ThresholdsPath)
		if err != nil {
			logger.Error("failed to load threshold matrix", "path", cfg.ThresholdsPath, "error", err)
			os.Exit(1)
		}
		logger.Info("threshold matrix loaded", "path", cfg.ThresholdsPath)
	} else {
		logger.Info("using built-in threshold matrix")
	}

	weights := domain.RiskWeights{
		Threat:   cfg.WeightThreat,
		Slope:    cfg.WeightSlope,
		History:  cfg.WeightHistory,
		Drainage: cfg.WeightDrainage,
		Residual: cfg.WeightResidual,
	}

	registry := csvfile.NewRegistry(cfg.RegistryPath, logger)

	client := openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, clock, logger)
	source := openmeteo.NewCachedSource(client, cfg.SampleCacheSize, cfg.SampleCacheTTL, clock, metrics)

	var sinks []engine.RecordSink
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		sinks = append(sinks, publisher)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}
	if cfg.AlertExportPath != "" {
		sinks = append(sinks, csvfile.NewExporter(cfg.AlertExportPath, logger))
		logger.Info("csv alert export enabled", "path", cfg.AlertExportPath)
	}

	eng := engine.New(registry, source, sinks, table, weights, engine.Options{
		Window:              cfg.Window(),
		CycleInterval:       cfg.CycleInterval,
		FetchConcurrency:    cfg.FetchConcurrency,
		FetchTimeout:        cfg.FetchTimeout,
		UsePopulationBounds: cfg.UsePopulationBounds,
	}, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start evaluation loop.
	go func() {
		if err := eng.Run(ctx); err != nil {
			logger.Error("engine error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
