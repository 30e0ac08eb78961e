package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"STRAVA_CLIENT_ID":     "test_client_id",
		"STRAVA_CLIENT_SECRET": "test_client_secret",
		"STRAVA_CLUB_ID":       "1234",
	}
}

func TestLoadConfigWithDefaults(t *testing.T) {
	setTestEnv(t, requiredEnv())

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Host)
	}
	if config.Port != 4101 {
		t.Errorf("Expected default port 4101, got %d", config.Port)
	}
	if config.DatabasePath != "./data.db" {
		t.Errorf("Expected default database path './data.db', got %s", config.DatabasePath)
	}
	if config.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %s", config.LogLevel)
	}
	if config.AdminIdentity != "admin" {
		t.Errorf("Expected default admin identity 'admin', got %s", config.AdminIdentity)
	}
	if config.IngestInterval != time.Hour {
		t.Errorf("Expected default ingest interval 1h, got %s", config.IngestInterval)
	}
	if config.CronSecret != "" {
		t.Errorf("Expected empty cron secret, got %s", config.CronSecret)
	}

	if config.StravaClientID != "test_client_id" {
		t.Errorf("Expected STRAVA_CLIENT_ID 'test_client_id', got %s", config.StravaClientID)
	}
	if config.StravaClubID != "1234" {
		t.Errorf("Expected STRAVA_CLUB_ID '1234', got %s", config.StravaClubID)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	vars := requiredEnv()
	vars["HOST"] = "0.0.0.0"
	vars["PORT"] = "8080"
	vars["DATABASE_PATH"] = "/tmp/test.db"
	vars["LOG_LEVEL"] = "debug"
	vars["CRON_SECRET"] = "s3cret"
	vars["INGEST_INTERVAL"] = "15m"
	vars["METRICS_ENABLED"] = "false"
	setTestEnv(t, vars)

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got %s", config.Host)
	}
	if config.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", config.Port)
	}
	if config.DatabasePath != "/tmp/test.db" {
		t.Errorf("Expected database path '/tmp/test.db', got %s", config.DatabasePath)
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %s", config.LogLevel)
	}
	if config.CronSecret != "s3cret" {
		t.Errorf("Expected cron secret 's3cret', got %s", config.CronSecret)
	}
	if config.IngestInterval != 15*time.Minute {
		t.Errorf("Expected ingest interval 15m, got %s", config.IngestInterval)
	}
	if config.MetricsEnabled {
		t.Error("Expected metrics to be disabled")
	}
}

func TestLoadConfigFromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	content := `host: 192.168.1.1
port: 9000
database_path: /custom/path/data.db
strava_client_id: file_client_id
strava_client_secret: file_client_secret
strava_club_id: "42"
log_level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	setTestEnv(t, map[string]string{ConfigPathEnvVar: path})

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Host != "192.168.1.1" {
		t.Errorf("Expected host '192.168.1.1' from file, got %s", config.Host)
	}
	if config.Port != 9000 {
		t.Errorf("Expected port 9000 from file, got %d", config.Port)
	}
	if config.LogLevel != "warn" {
		t.Errorf("Expected log level 'warn' from file, got %s", config.LogLevel)
	}
	if config.StravaClubID != "42" {
		t.Errorf("Expected club id '42' from file, got %s", config.StravaClubID)
	}
}

func TestEnvVarsPrecedenceOverFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	content := `host: from_file
port: 9000
strava_client_id: file_client_id
strava_client_secret: file_client_secret
strava_club_id: "42"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	setTestEnv(t, map[string]string{
		ConfigPathEnvVar:   path,
		"HOST":             "from_env_var",
		"STRAVA_CLIENT_ID": "env_client_id",
	})

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Host != "from_env_var" {
		t.Errorf("Expected host 'from_env_var' from env var, got %s", config.Host)
	}
	if config.StravaClientID != "env_client_id" {
		t.Errorf("Expected client ID 'env_client_id' from env var, got %s", config.StravaClientID)
	}
	if config.Port != 9000 {
		t.Errorf("Expected port 9000 from file, got %d", config.Port)
	}
	if config.StravaClientSecret != "file_client_secret" {
		t.Errorf("Expected client secret 'file_client_secret' from file, got %s", config.StravaClientSecret)
	}
}

func TestValidationMissingRequired(t *testing.T) {
	for _, key := range []string{"STRAVA_CLIENT_ID", "STRAVA_CLIENT_SECRET", "STRAVA_CLUB_ID"} {
		t.Run(key, func(t *testing.T) {
			vars := requiredEnv()
			delete(vars, key)
			setTestEnv(t, vars)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected validation error for missing %s", key)
			}
			if err.Error() != key+" is required" {
				t.Errorf("Expected '%s is required' error, got: %v", key, err)
			}
		})
	}
}

func TestValidationInvalidPort(t *testing.T) {
	tests := []struct {
		port    string
		wantErr bool
	}{
		{"0", true},
		{"1", false},
		{"80", false},
		{"4101", false},
		{"65535", false},
		{"65536", true},
		{"99999", true},
	}

	for _, tt := range tests {
		t.Run("port_"+tt.port, func(t *testing.T) {
			vars := requiredEnv()
			vars["PORT"] = tt.port
			setTestEnv(t, vars)

			_, err := Load()
			if tt.wantErr && err == nil {
				t.Errorf("Expected error for port %s, but got none", tt.port)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error for port %s, but got: %v", tt.port, err)
			}
		})
	}
}

func TestValidationInvalidLogLevel(t *testing.T) {
	vars := requiredEnv()
	vars["LOG_LEVEL"] = "invalid"
	setTestEnv(t, vars)

	_, err := Load()
	if err == nil {
		t.Fatal("Expected validation error for invalid LOG_LEVEL")
	}
	if err.Error() != "LOG_LEVEL must be one of: debug, info, warn, error" {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestValidationValidLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run("log_level_"+level, func(t *testing.T) {
			vars := requiredEnv()
			vars["LOG_LEVEL"] = level
			setTestEnv(t, vars)

			config, err := Load()
			if err != nil {
				t.Fatalf("Expected no error for log level %s, but got: %v", level, err)
			}
			if config.LogLevel != level {
				t.Errorf("Expected log level %s, got %s", level, config.LogLevel)
			}
		})
	}
}

func TestValidationInvalidTimezone(t *testing.T) {
	vars := requiredEnv()
	vars["REPORTING_TIMEZONE"] = "Mars/Olympus_Mons"
	setTestEnv(t, vars)

	_, err := Load()
	if err == nil {
		t.Fatal("Expected validation error for invalid REPORTING_TIMEZONE")
	}
	if err.Error() != "REPORTING_TIMEZONE must be a valid IANA timezone" {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestValidationInvalidCompetitionStart(t *testing.T) {
	vars := requiredEnv()
	vars["COMPETITION_START"] = "12/15/2025"
	setTestEnv(t, vars)

	_, err := Load()
	if err == nil {
		t.Fatal("Expected validation error for invalid COMPETITION_START")
	}
	if err.Error() != "COMPETITION_START must be a date in YYYY-MM-DD format" {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestCompetitionStartTime(t *testing.T) {
	config := &Config{
		CompetitionStart:  "2025-12-15",
		ReportingTimezone: "America/Los_Angeles",
	}

	start, err := config.CompetitionStartTime()
	if err != nil {
		t.Fatalf("Failed to compute competition start: %v", err)
	}

	// Pacific standard time is UTC-8 in December
	want := time.Date(2025, 12, 15, 8, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("Expected competition start %s, got %s", want, start.UTC())
	}
	if start.Location().String() != "America/Los_Angeles" {
		t.Errorf("Expected start in America/Los_Angeles, got %s", start.Location())
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "DEBUG",
		"info":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
		"":      "INFO",
	}
	for level, want := range tests {
		config := &Config{LogLevel: level}
		if got := config.SlogLevel().String(); got != want {
			t.Errorf("SlogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}

// Helper function to set test environment variables
func setTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	clearTestEnv(t)

	for key, value := range vars {
		t.Setenv(key, value)
	}
}

// Helper function to clear all config-related environment variables
func clearTestEnv(t *testing.T) {
	t.Helper()

	keys := []string{ConfigPathEnvVar}
	for name := range envKeys {
		keys = append(keys, name)
	}

	for _, key := range keys {
		if old, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() {
				os.Setenv(key, old)
			})
		}
	}
}
