package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"bullshark-strava-sync/internal/ingest"
	"bullshark-strava-sync/internal/metrics"
	"bullshark-strava-sync/internal/stats"
	"bullshark-strava-sync/internal/strava"
)

var (
	tokenIdentity string

	seedAccess    string
	seedRefresh   string
	seedExpiresAt int64
	seedIdentity  string

	populateCmd = &cobra.Command{
		Use:   "populate",
		Short: "Fetch recent club activities and store the new ones",
		Args:  cobra.NoArgs,
		RunE:  runPopulate,
	}

	teamStatsCmd = &cobra.Command{
		Use:   "team-stats",
		Short: "Print the current team standings as JSON",
		Args:  cobra.NoArgs,
		RunE:  runTeamStats,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Resolve a valid access token, refreshing it if needed",
		Args:  cobra.NoArgs,
		RunE:  runToken,
	}

	seedTokenCmd = &cobra.Command{
		Use:   "seed-token",
		Short: "Store an initial credential for an identity",
		Long: `Stores token material obtained out of band, for example from the Strava
API settings page, so the server can refresh it from then on.`,
		Args: cobra.NoArgs,
		RunE: runSeedToken,
	}

	runsLimit int

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}

	importRosterCmd = &cobra.Command{
		Use:   "import-roster <file.yaml>",
		Short: "Add athletes from a YAML roster file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportRoster,
	}
)

func init() {
	tokenCmd.Flags().StringVar(&tokenIdentity, "identity", "", "credential identity (defaults to the admin identity)")

	seedTokenCmd.Flags().StringVar(&seedAccess, "access-token", "", "access token")
	seedTokenCmd.Flags().StringVar(&seedRefresh, "refresh-token", "", "refresh token")
	seedTokenCmd.Flags().Int64Var(&seedExpiresAt, "expires-at", 0, "access token expiry as a unix timestamp (0 forces a refresh on first use)")
	seedTokenCmd.Flags().StringVar(&seedIdentity, "identity", "", "credential identity (defaults to the admin identity)")
	seedTokenCmd.MarkFlagRequired("access-token")
	seedTokenCmd.MarkFlagRequired("refresh-token")

	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
}

func runPopulate(cmd *cobra.Command, args []string) error {
	source := strava.NewClubSource(current.client, current.tokens, current.cfg.AdminIdentity)
	pipeline := ingest.NewPipeline(source, current.db).WithHistory(current.db)

	result, err := pipeline.Run(cmd.Context(), metrics.TriggerManual)
	if err != nil {
		return fmt.Errorf("populate failed: %w", err)
	}

	fmt.Printf("Fetched %d, inserted %d, skipped %d\n", result.Fetched, result.Inserted, result.Skipped)
	return nil
}

func runTeamStats(cmd *cobra.Command, args []string) error {
	loc, err := current.cfg.Location()
	if err != nil {
		return err
	}
	start, err := current.cfg.CompetitionStartTime()
	if err != nil {
		return err
	}

	result, err := stats.NewEngine(current.db, start, loc).TeamStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute team stats: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runToken(cmd *cobra.Command, args []string) error {
	identity := tokenIdentity
	if identity == "" {
		identity = current.cfg.AdminIdentity
	}

	if _, err := current.tokens.ValidToken(cmd.Context(), identity); err != nil {
		return err
	}

	cred, _ := current.tokens.Cached(identity)
	expires := time.Unix(cred.ExpiresAt, 0)
	fmt.Printf("Identity: %s\n", identity)
	fmt.Printf("Expires:  %s (in %s)\n", expires.Format(time.RFC3339), time.Until(expires).Round(time.Second))
	return nil
}

func runSeedToken(cmd *cobra.Command, args []string) error {
	identity := seedIdentity
	if identity == "" {
		identity = current.cfg.AdminIdentity
	}

	var expiresIn int64
	if seedExpiresAt > 0 {
		expiresIn = max(seedExpiresAt-time.Now().Unix(), 0)
	}

	err := current.tokens.Seed(cmd.Context(), identity, &strava.TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  seedAccess,
		RefreshToken: seedRefresh,
		ExpiresAt:    seedExpiresAt,
		ExpiresIn:    expiresIn,
	})
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	fmt.Printf("✓ Credential stored for %s\n", identity)
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	runs, err := current.db.ListIngestRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No ingestion runs recorded.")
		return nil
	}

	for _, r := range runs {
		status := "ok"
		if r.Error != nil {
			status = "failed: " + *r.Error
		}
		fmt.Printf("%s  %-9s  fetched=%d inserted=%d skipped=%d  %s  (%s)\n",
			r.StartedAt.Format(time.RFC3339), r.Trigger, r.Fetched, r.Inserted, r.Skipped,
			status, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return nil
}

func runImportRoster(cmd *cobra.Command, args []string) error {
	athletes, err := readRoster(args[0])
	if err != nil {
		return err
	}

	inserted, err := current.db.InsertAthletes(cmd.Context(), athletes)
	if err != nil {
		return fmt.Errorf("failed to import roster: %w", err)
	}

	fmt.Printf("✓ Imported %d of %d athletes (%d already present)\n",
		inserted, len(athletes), int64(len(athletes))-inserted)
	return nil
}
