package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eldercare-survey/internal/aggregator"
	"eldercare-survey/internal/careburden"
	"eldercare-survey/internal/metrics"
)

// Trigger modes of the aggregation worker.
const (
	TriggerPolling = "polling"
	TriggerEvents  = "events"
)

// eventSource blocks consuming change events until ctx is done.
type eventSource interface {
	Start(ctx context.Context) error
}

// Recomputer rebuilds the rollup snapshot of a month from scratch and
// stores it in the snapshot cache. It never patches an earlier rollup.
type Recomputer struct {
	svc     *SurveyService
	cache   *aggregator.SnapshotCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRecomputer(svc *SurveyService, cache *aggregator.SnapshotCache, m *metrics.Metrics, logger *zap.Logger) *Recomputer {
	return &Recomputer{svc: svc, cache: cache, metrics: m, logger: logger}
}

func (r *Recomputer) RecomputeMonth(ctx context.Context, month string) error {
	return r.recompute(ctx, month, "event")
}

func (r *Recomputer) recompute(ctx context.Context, month, trigger string) (err error) {
	defer func() { r.metrics.IncrementRecompute(trigger, err) }()

	result, err := r.svc.Rollup(ctx, month)
	if err != nil {
		return fmt.Errorf("failed to aggregate %s: %w", month, err)
	}
	statuses := careburden.EstimateAll(result, r.svc.estimates(ctx), nil)
	r.metrics.SetOverloadedRegions(result.Month, len(careburden.Overloaded(statuses)))

	if r.cache != nil {
		if err := r.cache.Store(ctx, result); err != nil {
			return err
		}
	}
	r.logger.Info("Recomputed month rollup",
		zap.String("month", result.Month),
		zap.Int("submitted", result.SubmittedCount),
		zap.Int("expected", result.ExpectedCount),
		zap.Int("submission_rate", result.SubmissionRate),
		zap.Int("unmatched", len(result.Unmatched)),
	)
	return nil
}

// RecomputeLatest recomputes the most recent month. Having no month yet is
// not an error.
func (r *Recomputer) RecomputeLatest(ctx context.Context) error {
	return r.recomputeLatest(ctx, "event")
}

func (r *Recomputer) recomputeLatest(ctx context.Context, trigger string) error {
	res, err := r.svc.Months(ctx)
	if err != nil {
		return err
	}
	if res.Default == "" {
		r.logger.Debug("No reporting month to recompute")
		return nil
	}
	return r.recompute(ctx, res.Default, trigger)
}

// Worker keeps the rollup snapshots current, either on a timer or driven
// by stream events.
type Worker struct {
	recomputer *Recomputer
	events     eventSource
	mode       string
	interval   time.Duration
	logger     *zap.Logger
}

// NewWorker events is required in TriggerEvents mode only.
func NewWorker(recomputer *Recomputer, events eventSource, mode string, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{recomputer: recomputer, events: events, mode: mode, interval: interval, logger: logger}
}

// Start blocks until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting survey aggregation worker",
		zap.String("trigger_mode", w.mode),
		zap.Duration("interval", w.interval),
	)

	switch w.mode {
	case TriggerPolling:
		return w.startPollingMode(ctx)
	case TriggerEvents:
		if w.events == nil {
			return errors.New("event consumer not initialized")
		}
		w.recomputeLatest(ctx, "startup")
		return w.events.Start(ctx)
	default:
		return fmt.Errorf("unsupported trigger mode: %s", w.mode)
	}
}

func (w *Worker) startPollingMode(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.recomputeLatest(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.recomputeLatest(ctx, "poll")
		}
	}
}

func (w *Worker) recomputeLatest(ctx context.Context, trigger string) {
	if err := w.recomputer.recomputeLatest(ctx, trigger); err != nil && ctx.Err() == nil {
		w.logger.Error("Failed to recompute latest month", zap.String("trigger", trigger), zap.Error(err))
	}
}
