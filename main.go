package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bullshark-strava-sync/internal/config"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/handlers"
	"bullshark-strava-sync/internal/ingest"
	"bullshark-strava-sync/internal/metrics"
	"bullshark-strava-sync/internal/oauth"
	"bullshark-strava-sync/internal/stats"
	"bullshark-strava-sync/internal/strava"
	"bullshark-strava-sync/internal/supervisor"
	"bullshark-strava-sync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting bullshark-strava-sync server",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DatabasePath,
		"club_id", cfg.StravaClubID,
		"competition_start", cfg.CompetitionStart,
		"timezone", cfg.ReportingTimezone,
		"log_level", cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid reporting timezone", "error", err)
		os.Exit(1)
	}
	start, err := cfg.CompetitionStartTime()
	if err != nil {
		logger.Error("Invalid competition start", "error", err)
		os.Exit(1)
	}

	// Open database
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("Database opened successfully")

	stravaClient := strava.NewClient(cfg)
	tokens := oauth.NewTokenCache(db, stravaClient)
	oauthManager := oauth.NewManager(stravaClient, tokens, cfg.AdminIdentity)

	source := strava.NewClubSource(stravaClient, tokens, cfg.AdminIdentity)
	pipeline := ingest.NewPipeline(source, db).WithHistory(db)
	engine := stats.NewEngine(db, start, loc)

	router := handlers.NewRouter(handlers.Routes{
		Health:            handlers.NewHealthHandler(db, tokens, cfg.AdminIdentity),
		Activities:        handlers.NewActivitiesHandler(db, loc),
		Stats:             handlers.NewStatsHandler(engine),
		Athletes:          handlers.NewAthletesHandler(db),
		Populate:          handlers.NewPopulateHandler(pipeline, cfg.CronSecret),
		OAuth:             handlers.NewOAuthHandler(oauthManager, cfg.CronSecret),
		PopulateRateLimit: cfg.PopulateRateLimit,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // populate waits on the club feed
		IdleTimeout:  120 * time.Second,
	}

	tree := supervisor.NewTree(logger, supervisor.TreeConfig{})
	tree.AddJob(worker.NewWorker(pipeline, cfg.IngestInterval))
	tree.AddJob(oauthManager)
	tree.AddAPI(supervisor.NewHTTPService("api-http", server, 10*time.Second))

	if cfg.MetricsEnabled {
		tree.AddJob(metrics.NewStoreCollector(db, 15*time.Second))

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		tree.AddAPI(supervisor.NewHTTPService("metrics-http", &http.Server{
			Addr:    cfg.MetricsAddr(),
			Handler: metricsMux,
		}, 5*time.Second))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Supervisor stopped", "error", err)
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logger.Warn("Service did not stop in time", "service", svc.Name)
		}
	}

	logger.Info("Server stopped")
}
