package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/ingest"
)

// CronSecretHeader carries the shared secret on manual triggers
const CronSecretHeader = "X-CloudScheduler-Token"

// Populator runs one ingestion cycle
type Populator interface {
	PopulateNewActivities(ctx context.Context) (ingest.Result, error)
}

// PopulateHandler triggers ingestion on demand
type PopulateHandler struct {
	pipeline Populator
	secret   string
	logger   *slog.Logger
}

// NewPopulateHandler creates a new populate handler. An empty secret lets
// every caller through.
func NewPopulateHandler(pipeline Populator, secret string) *PopulateHandler {
	return &PopulateHandler{pipeline: pipeline, secret: secret, logger: slog.Default()}
}

// HandlePopulate runs ingestion and reports how many activities were added
func (h *PopulateHandler) HandlePopulate(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(h.secret, r.Header.Get(CronSecretHeader)) {
		writeError(w, h.logger, apierr.New(apierr.KindUnauthorized, "invalid token"))
		return
	}

	h.logger.Info("Manual populate triggered")

	result, err := h.pipeline.PopulateNewActivities(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func secretMatches(secret, provided string) bool {
	if secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) == 1
}
