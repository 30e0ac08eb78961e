package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"bullshark-strava-sync/internal/database"
)

// RosterReader reads the athlete roster
type RosterReader interface {
	ListAthletes(ctx context.Context) ([]database.Athlete, error)
}

// AthletesHandler serves the roster
type AthletesHandler struct {
	store  RosterReader
	logger *slog.Logger
}

// NewAthletesHandler creates a new athletes handler
func NewAthletesHandler(store RosterReader) *AthletesHandler {
	return &AthletesHandler{store: store, logger: slog.Default()}
}

// HandleAthletes returns every roster entry
func (h *AthletesHandler) HandleAthletes(w http.ResponseWriter, r *http.Request) {
	athletes, err := h.store.ListAthletes(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, athletes)
}
