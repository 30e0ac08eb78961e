package database

import (
	"context"
	"database/sql"
	"time"

	"bullshark-strava-sync/internal/metrics"
)

// IngestRun records the outcome of one ingestion run
type IngestRun struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Error      *string   `json:"error,omitempty"`
}

// RecordIngestRun stores a finished run
func (db *DB) RecordIngestRun(ctx context.Context, run *IngestRun) error {
	return observe(metrics.DBOpRecordIngestRun, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO ingest_runs (id, trigger_source, started_at, finished_at, fetched, inserted, skipped, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.Trigger, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
			run.Fetched, run.Inserted, run.Skipped, run.Error)
		return err
	})
}

// ListIngestRuns returns up to limit runs, most recent first
func (db *DB) ListIngestRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	runs := []IngestRun{}
	err := observe(metrics.DBOpListIngestRuns, func() error {
		rows, err := db.conn.QueryContext(ctx, `
			SELECT id, trigger_source, started_at, finished_at, fetched, inserted, skipped, error
			FROM ingest_runs
			ORDER BY started_at DESC
			LIMIT ?
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				run               IngestRun
				started, finished int64
				errMsg            sql.NullString
			)
			if err := rows.Scan(&run.ID, &run.Trigger, &started, &finished,
				&run.Fetched, &run.Inserted, &run.Skipped, &errMsg); err != nil {
				return err
			}
			run.StartedAt = time.UnixMilli(started)
			run.FinishedAt = time.UnixMilli(finished)
			if errMsg.Valid {
				run.Error = &errMsg.String
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
