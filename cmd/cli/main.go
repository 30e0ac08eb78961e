package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"bullshark-strava-sync/internal/config"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/oauth"
	"bullshark-strava-sync/internal/strava"
)

// app is everything a command needs, opened once in PersistentPreRunE
type app struct {
	cfg    *config.Config
	db     *database.DB
	client *strava.Client
	tokens *oauth.TokenCache
}

var (
	current app

	rootCmd = &cobra.Command{
		Use:   "cli",
		Short: "Operator commands for bullshark-strava-sync",
		Long: `Runs ingestion and reporting against the configured database without
starting the server, and manages the stored Strava credential and team roster.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return current.open()
		},
	}
)

func init() {
	rootCmd.AddCommand(populateCmd, teamStatsCmd, tokenCmd, seedTokenCmd, runsCmd, importRosterCmd)
}

func main() {
	// Only show errors; command output goes to stdout
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs one command. The database is closed whether or not the
// command succeeds.
func execute(ctx context.Context, args []string) error {
	defer func() {
		if err := current.close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	a.cfg = cfg
	a.db = db
	a.client = strava.NewClient(cfg)
	a.tokens = oauth.NewTokenCache(db, a.client)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
