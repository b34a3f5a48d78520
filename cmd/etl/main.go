package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/asciigrid"
	geojsonadapter "github.com/wardscope/flood-vulnerability-etl/internal/adapter/geojson"
	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/httpapi"
	kafkaadapter "github.com/wardscope/flood-vulnerability-etl/internal/adapter/kafka"
	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/render"
	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/tabular"
	"github.com/wardscope/flood-vulnerability-etl/internal/config"
	"github.com/wardscope/flood-vulnerability-etl/internal/observability"
	"github.com/wardscope/flood-vulnerability-etl/internal/pipeline"
)

const sourceCRS = "EPSG:4326"

func main() {
	// A missing .env file is fine; variables may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	physical, socioeconomic, err := config.LoadFactors(cfg.FactorsPath)
	if err != nil {
		logger.Error("failed to load factor declarations", "error", err)
		os.Exit(1)
	}

	sources := pipeline.Sources{
		Surface:  asciigrid.NewSource(cfg.DEMPath, sourceCRS),
		Boundary: geojsonadapter.NewSource(cfg.WardsPath, sourceCRS),
		Census:   tabular.NewSource(cfg.CensusPath),
	}
	sinks := pipeline.Sinks{
		Tables: tabular.NewStore(cfg.OutputDir),
		Geo:    geojsonadapter.NewSink(cfg.OutputDir),
	}
	if cfg.RenderMap {
		sinks.Renderer = render.NewMap(cfg.OutputDir)
	}

	// Publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks.Publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	scoring := pipeline.Scoring{
		Physical:      physical,
		Socioeconomic: socioeconomic,
		Thresholds:    cfg.ElevationThresholds,
	}
	p := pipeline.New(sources, sinks, scoring, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, p, cfg.Scenarios, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the query API.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the scoring pipeline once; the API serves its result until shutdown.
	go func() {
		if _, err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
