package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "eldercare-survey/internal/common/logger"
	"eldercare-survey/internal/config"
	httpapi "eldercare-survey/internal/http"
	"eldercare-survey/internal/metrics"
	"eldercare-survey/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "survey-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting survey-api service", zap.String("addr", cfg.HTTP.Addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := service.NewRuntime(ctx, cfg, metrics.New(), log, false)
	if err != nil {
		log.Fatal("Failed to initialize survey service", zap.Error(err))
	}
	defer rt.Close()

	handler := httpapi.NewRouter(httpapi.NewSurveyHandler(rt.Service, log), promhttp.Handler(), log)
	server := service.NewServer(cfg.HTTP.Addr, handler, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("HTTP server error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", zap.Error(err))
	}

	log.Info("Service stopped")
}
