package handlers

import (
	"context"
	"log/slog"
	"net/http"
)

const statusHealthy = "healthy"

// Pinger reports whether the database is reachable
type Pinger interface {
	Health(ctx context.Context) error
}

// TokenChecker resolves a valid access token
type TokenChecker interface {
	ValidToken(ctx context.Context, identity string) (string, error)
}

// HealthStatus is the body of the health endpoint
type HealthStatus struct {
	Database string `json:"database"`
	Strava   string `json:"strava"`
	Overall  string `json:"overall"`
}

// HealthHandler checks the database and the Strava credential
type HealthHandler struct {
	db       Pinger
	tokens   TokenChecker
	identity string
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, tokens TokenChecker, identity string) *HealthHandler {
	return &HealthHandler{db: db, tokens: tokens, identity: identity, logger: slog.Default()}
}

// HandleHealth always answers 200; the body says which dependency is down
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Database: statusHealthy,
		Strava:   statusHealthy,
		Overall:  statusHealthy,
	}

	if err := h.db.Health(r.Context()); err != nil {
		status.Database = "unhealthy: " + err.Error()
	}
	if _, err := h.tokens.ValidToken(r.Context(), h.identity); err != nil {
		status.Strava = "unhealthy: " + err.Error()
	}
	if status.Database != statusHealthy || status.Strava != statusHealthy {
		status.Overall = "unhealthy"
		h.logger.Warn("Health check failed", "database", status.Database, "strava", status.Strava)
	}

	writeJSON(w, http.StatusOK, status)
}
