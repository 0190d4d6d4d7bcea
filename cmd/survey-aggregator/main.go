package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"eldercare-survey/internal/aggregator"
	logpkg "eldercare-survey/internal/common/logger"
	"eldercare-survey/internal/config"
	"eldercare-survey/internal/consumer"
	"eldercare-survey/internal/metrics"
	"eldercare-survey/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "survey-aggregator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting survey-aggregator service",
		zap.String("trigger_mode", cfg.Survey.TriggerMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	rt, err := service.NewRuntime(ctx, cfg, m, log, true)
	if err != nil {
		log.Fatal("Failed to initialize survey service", zap.Error(err))
	}
	defer rt.Close()

	cache := aggregator.NewSnapshotCache(aggregator.NewRedisKVStore(rt.Redis), cfg.Survey.SnapshotTTL, log)
	recomputer := service.NewRecomputer(rt.Service, cache, m, log)

	var eventConsumer *consumer.EventConsumer
	if cfg.Survey.TriggerMode == service.TriggerEvents {
		eventConsumer = consumer.NewEventConsumer(
			rt.Redis,
			recomputer,
			log,
			cfg.Survey.EventStream,
			cfg.Survey.ConsumerGroup,
			cfg.Survey.ConsumerName,
			int64(cfg.Survey.BatchSize),
		)
	}
	worker := service.NewWorker(recomputer, eventConsumer, cfg.Survey.TriggerMode, cfg.Survey.PollInterval, log)

	// metrics only; the aggregator serves no API
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := service.NewServer(cfg.HTTP.Addr, mux, log)
	go func() {
		if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := worker.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Worker error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping metrics server", zap.Error(err))
	}

	log.Info("Service stopped")
}
