package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/metrics"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open opens a connection to the SQLite database at the specified path
// and makes sure the schema exists
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.Init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Init initializes the database schema by creating all tables and indexes
func (db *DB) Init() error {
	if _, err := db.conn.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Health checks if the database connection is healthy
func (db *DB) Health(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return apierr.Wrap(apierr.KindDatabase, err, "database ping failed")
	}
	return nil
}

// observe times a database operation and counts its failures
func observe(op string, fn func() error) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	if err := fn(); err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(op).Inc()
		return apierr.Wrap(apierr.KindDatabase, err, "%s failed", op)
	}
	return nil
}
