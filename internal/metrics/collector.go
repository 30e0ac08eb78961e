package metrics

import (
	"context"
	"log/slog"
	"time"
)

// StoreReader is the part of the database the store collector reads
type StoreReader interface {
	CountActivities(ctx context.Context) (int, error)
	CountAthletesByTeam(ctx context.Context) (map[string]int, error)
}

// StoreCollector periodically publishes stored activity and roster sizes
type StoreCollector struct {
	db       StoreReader
	interval time.Duration
	logger   *slog.Logger
}

// NewStoreCollector creates a StoreCollector
func NewStoreCollector(db StoreReader, interval time.Duration) *StoreCollector {
	return &StoreCollector{db: db, interval: interval, logger: slog.Default()}
}

// Serve collects once immediately, then every interval until ctx is done
func (c *StoreCollector) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Store collector stopping")
			return ctx.Err()
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

func (c *StoreCollector) String() string {
	return "store-collector"
}

// Collect refreshes the gauges once
func (c *StoreCollector) Collect(ctx context.Context) {
	if count, err := c.db.CountActivities(ctx); err != nil {
		c.logger.Error("Failed to count activities", "error", err)
	} else {
		StoredActivities.Set(float64(count))
	}

	perTeam, err := c.db.CountAthletesByTeam(ctx)
	if err != nil {
		c.logger.Error("Failed to count roster", "error", err)
		return
	}

	RosterAthletes.Reset()
	for team, n := range perTeam {
		RosterAthletes.WithLabelValues(team).Set(float64(n))
	}
}
