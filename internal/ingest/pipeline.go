// Package ingest runs the fetch-convert-persist cycle that copies the club
// feed into the activity store.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bullshark-strava-sync/internal/activity"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/metrics"
	"bullshark-strava-sync/internal/strava"
)

// FetchLimit is how many of the most recent club activities one run reads
const FetchLimit = 100

// Source returns the most recent club activities
type Source interface {
	FetchRecent(ctx context.Context, limit int) ([]strava.ClubActivity, error)
}

// Store persists converted activities, skipping ids it already holds
type Store interface {
	InsertActivities(ctx context.Context, activities []database.Activity) (int64, error)
}

// History keeps a record of finished runs
type History interface {
	RecordIngestRun(ctx context.Context, run *database.IngestRun) error
}

// Result summarises one run
type Result struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Pipeline copies new club activities into the store
type Pipeline struct {
	source  Source
	store   Store
	history History
	now     func() time.Time
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline
func NewPipeline(source Source, store Store) *Pipeline {
	return &Pipeline{
		source: source,
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// WithHistory makes the pipeline record every run in h
func (p *Pipeline) WithHistory(h History) *Pipeline {
	p.history = h
	return p
}

// PopulateNewActivities runs one manually triggered cycle
func (p *Pipeline) PopulateNewActivities(ctx context.Context) (Result, error) {
	return p.Run(ctx, metrics.TriggerManual)
}

// Run fetches the latest page of the club feed, converts it and inserts it
// in one statement. A single unconvertible activity fails the run before
// anything is written. Re-running over an overlapping page is harmless.
func (p *Pipeline) Run(ctx context.Context, trigger string) (Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "trigger", trigger)
	start := time.Now()

	result, err := p.run(ctx, logger)

	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultFailure
	}
	metrics.IngestRunsTotal.WithLabelValues(trigger, outcome).Inc()
	metrics.IngestRunDuration.WithLabelValues(trigger, outcome).Observe(time.Since(start).Seconds())
	p.record(ctx, logger, runID, trigger, start, result, err)

	if err != nil {
		logger.Error("Ingestion run failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Result{}, err
	}

	logger.Info("Ingestion run completed",
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger) (Result, error) {
	logger.Debug("Fetching club activities", "limit", FetchLimit)

	clubActivities, err := p.source.FetchRecent(ctx, FetchLimit)
	if err != nil {
		return Result{}, err
	}
	metrics.IngestActivitiesFetched.Add(float64(len(clubActivities)))

	batch, err := activity.ConvertBatch(clubActivities, p.now())
	if err != nil {
		return Result{}, err
	}

	inserted, err := p.store.InsertActivities(ctx, batch)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Fetched:  len(clubActivities),
		Inserted: int(inserted),
		Skipped:  len(batch) - int(inserted),
	}
	metrics.IngestActivitiesInserted.Add(float64(result.Inserted))
	metrics.IngestActivitiesSkipped.Add(float64(result.Skipped))

	return result, nil
}

// record stores the run outcome. Failing to record never fails the run.
func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, id, trigger string, start time.Time, result Result, runErr error) {
	if p.history == nil {
		return
	}

	entry := &database.IngestRun{
		ID:         id,
		Trigger:    trigger,
		StartedAt:  start,
		FinishedAt: time.Now(),
		Fetched:    result.Fetched,
		Inserted:   result.Inserted,
		Skipped:    result.Skipped,
	}
	if runErr != nil {
		msg := runErr.Error()
		entry.Error = &msg
	}

	if err := p.history.RecordIngestRun(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("Failed to record ingestion run", "error", err)
	}
}
