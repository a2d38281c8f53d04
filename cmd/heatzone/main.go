package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/climavida/heatzone-service/internal/adapter/http"
	kafkaadapter "github.com/climavida/heatzone-service/internal/adapter/kafka"
	"github.com/climavida/heatzone-service/internal/adapter/source"
	"github.com/climavida/heatzone-service/internal/config"
	"github.com/climavida/heatzone-service/internal/observability"
	"github.com/climavida/heatzone-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	classifier, err := cfg.Classifier()
	if err != nil {
		logger.Error("failed to build classifier", "error", err)
		os.Exit(1)
	}

	var src pipeline.Source
	if cfg.IsRemoteSource() {
		src = source.NewHTTPSource(cfg.DataSource, cfg.SourceTimeout, logger)
	} else {
		src = source.NewFileSource(cfg.DataSource)
	}

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	p := pipeline.New(src, classifier, cfg.DefaultRegion, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failed first load leaves the service up but not ready; /admin/reload
	// or the refresher can recover it.
	if _, err := p.Reload(ctx); err != nil {
		logger.Error("initial load failed", "error", err, "source", src.Name())
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, cfg.CORSOrigins, logger, metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if cfg.ReloadInterval > 0 {
		refresher := pipeline.NewRefresher(p, cfg.ReloadInterval, nil, logger)
		go func() {
			if err := refresher.Run(ctx); err != nil {
				logger.Error("refresher error", "error", err)
			}
		}()
	}

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
