package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the location of the optional YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	Host string `koanf:"host" env:"HOST" validate:"required"`
	Port int    `koanf:"port" env:"PORT" validate:"min=1,max=65535"`

	// Database configuration
	DatabasePath string `koanf:"database_path" env:"DATABASE_PATH" validate:"required"`

	// Strava API configuration
	StravaClientID     string `koanf:"strava_client_id" env:"STRAVA_CLIENT_ID" validate:"required"`
	StravaClientSecret string `koanf:"strava_client_secret" env:"STRAVA_CLIENT_SECRET" validate:"required"`
	StravaClubID       string `koanf:"strava_club_id" env:"STRAVA_CLUB_ID" validate:"required"`
	StravaAPIURL       string `koanf:"strava_api_url" env:"STRAVA_API_URL" validate:"required,url"`
	StravaTokenURL     string `koanf:"strava_token_url" env:"STRAVA_TOKEN_URL" validate:"required,url"`
	StravaAuthURL      string `koanf:"strava_auth_url" env:"STRAVA_AUTH_URL" validate:"required,url"`

	// Identity whose credential is used for club feed requests
	AdminIdentity string `koanf:"admin_identity" env:"ADMIN_IDENTITY" validate:"required"`

	// Shared secret for the manual populate trigger. Empty disables the check.
	CronSecret string `koanf:"cron_secret" env:"CRON_SECRET"`

	// Ingestion scheduling
	IngestInterval    time.Duration `koanf:"ingest_interval" env:"INGEST_INTERVAL" validate:"gt=0"`
	PopulateRateLimit int           `koanf:"populate_rate_limit" env:"POPULATE_RATE_LIMIT" validate:"min=1"`

	// Competition
	CompetitionStart  string `koanf:"competition_start" env:"COMPETITION_START" validate:"required,datetime=2006-01-02"`
	ReportingTimezone string `koanf:"reporting_timezone" env:"REPORTING_TIMEZONE" validate:"required,timezone"`

	// Logging configuration
	LogLevel string `koanf:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	// Metrics configuration
	MetricsEnabled bool   `koanf:"metrics_enabled" env:"METRICS_ENABLED"`
	MetricsHost    string `koanf:"metrics_host" env:"METRICS_HOST"`
	MetricsPort    int    `koanf:"metrics_port" env:"METRICS_PORT" validate:"min=1,max=65535"`
}

func defaultConfig() *Config {
	return &Config{
		Host:              "localhost",
		Port:              4101,
		DatabasePath:      "./data.db",
		StravaAPIURL:      "https://www.strava.com/api/v3",
		StravaTokenURL:    "https://www.strava.com/oauth/token",
		StravaAuthURL:     "https://www.strava.com/oauth/authorize",
		AdminIdentity:     "admin",
		IngestInterval:    time.Hour,
		PopulateRateLimit: 10,
		CompetitionStart:  "2025-12-15",
		ReportingTimezone: "America/Los_Angeles",
		LogLevel:          "info",
		MetricsEnabled:    true,
		MetricsHost:       "localhost",
		MetricsPort:       9090,
	}
}

// envKeys maps environment variable names to koanf keys, read from struct tags.
var envKeys = func() map[string]string {
	keys := make(map[string]string)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if name := f.Tag.Get("env"); name != "" {
			keys[name] = f.Tag.Get("koanf")
		}
	}
	return keys
}()

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}()

// Load layers defaults, an optional YAML file and environment variables.
// It fails fast if required values are missing.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks the configuration and reports the first problem found
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return errors.New(describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fe.Field() + " must be positive"
	case "url":
		return fe.Field() + " must be a valid URL"
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case "timezone":
		return fe.Field() + " must be a valid IANA timezone"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Location returns the reporting timezone used for competition weeks
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReportingTimezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.ReportingTimezone, err)
	}
	return loc, nil
}

// CompetitionStartTime returns local midnight of the competition start date
func (c *Config) CompetitionStartTime() (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	start, err := time.ParseInLocation("2006-01-02", c.CompetitionStart, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse competition start %q: %w", c.CompetitionStart, err)
	}
	return start, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Addr is the listen address of the API server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddr is the listen address of the metrics server
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}
