package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"bullshark-strava-sync/internal/stats"
)

// TeamStatsProvider computes the competition standings
type TeamStatsProvider interface {
	TeamStats(ctx context.Context) (*stats.TeamStats, error)
}

// StatsHandler serves team standings
type StatsHandler struct {
	engine TeamStatsProvider
	logger *slog.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(engine TeamStatsProvider) *StatsHandler {
	return &StatsHandler{engine: engine, logger: slog.Default()}
}

// HandleTeamStats returns per-team athlete and weekly kilometers
func (h *StatsHandler) HandleTeamStats(w http.ResponseWriter, r *http.Request) {
	teamStats, err := h.engine.TeamStats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, teamStats)
}
