package database

// Schema contains all SQL statements for creating tables and indexes
const Schema = `
-- OAuth credentials, one row per identity
CREATE TABLE IF NOT EXISTS strava_auth_tokens (
    id TEXT PRIMARY KEY,

    token_type TEXT NOT NULL,
    access_token TEXT NOT NULL,
    expires_at INTEGER NOT NULL,  -- Unix timestamp
    expires_in INTEGER NOT NULL,
    refresh_token TEXT NOT NULL,

    updated_at INTEGER NOT NULL
);

-- Club activities keyed by their content-derived identifier
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    date INTEGER NOT NULL,  -- Unix timestamp of the ingest batch

    resource_state INTEGER,
    name TEXT,
    distance REAL,  -- meters
    moving_time INTEGER,  -- seconds
    elapsed_time INTEGER,  -- seconds
    total_elevation_gain REAL,
    sport_type TEXT,  -- e.g., "Run", "Ride"
    workout_type INTEGER,
    device_name TEXT,
    athlete_name TEXT
);

-- Competition roster
CREATE TABLE IF NOT EXISTS athletes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    team TEXT NOT NULL,
    event TEXT NOT NULL DEFAULT ''
);

-- Ingestion run history
CREATE TABLE IF NOT EXISTS ingest_runs (
    id TEXT PRIMARY KEY,
    trigger_source TEXT NOT NULL,  -- scheduled or manual
    started_at INTEGER NOT NULL,  -- Unix milliseconds
    finished_at INTEGER NOT NULL,
    fetched INTEGER NOT NULL DEFAULT 0,
    inserted INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_activities_date ON activities(date DESC);
CREATE INDEX IF NOT EXISTS idx_activities_athlete_name ON activities(athlete_name);
CREATE INDEX IF NOT EXISTS idx_athletes_name ON athletes(name);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at DESC);
`
