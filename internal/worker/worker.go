package worker

import (
	"context"
	"log/slog"
	"time"

	"bullshark-strava-sync/internal/ingest"
	"bullshark-strava-sync/internal/metrics"
)

// Runner performs one ingestion cycle
type Runner interface {
	Run(ctx context.Context, trigger string) (ingest.Result, error)
}

// Worker runs ingestion on a fixed interval. Failed runs are logged and
// retried on the next tick.
type Worker struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a new ingestion worker
func NewWorker(runner Runner, interval time.Duration) *Worker {
	return &Worker{
		runner:   runner,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Serve runs one cycle immediately, then one per interval until ctx is done
func (w *Worker) Serve(ctx context.Context) error {
	w.logger.Info("Starting ingestion worker", "interval", w.interval)
	metrics.WorkerActive.Set(1)
	defer metrics.WorkerActive.Set(0)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping ingestion worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) String() string {
	return "ingest-worker"
}

// tick runs one scheduled cycle. Errors never stop the worker.
func (w *Worker) tick(ctx context.Context) {
	result, err := w.runner.Run(ctx, metrics.TriggerScheduled)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("Scheduled ingestion failed, will retry next tick", "error", err)
		return
	}
	w.logger.Debug("Scheduled ingestion finished", "inserted", result.Inserted, "skipped", result.Skipped)
}
