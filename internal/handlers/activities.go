package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/stats"
)

// ActivityReader reads stored activities
type ActivityReader interface {
	ListActivities(ctx context.Context) ([]database.Activity, error)
	ListActivitiesInWindow(ctx context.Context, start, end time.Time) ([]database.Activity, error)
}

// ActivitiesHandler serves stored activities
type ActivitiesHandler struct {
	store  ActivityReader
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewActivitiesHandler creates a new activities handler. Week and month
// windows are computed in loc.
func NewActivitiesHandler(store ActivityReader, loc *time.Location) *ActivitiesHandler {
	return &ActivitiesHandler{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// HandleRead returns every stored activity, newest first
func (h *ActivitiesHandler) HandleRead(w http.ResponseWriter, r *http.Request) {
	activities, err := h.store.ListActivities(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// HandleWeek returns activities observed during the current week
func (h *ActivitiesHandler) HandleWeek(w http.ResponseWriter, r *http.Request) {
	start, end, err := stats.WeekWindow(h.now(), h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.serveWindow(w, r, start, end)
}

// HandleMonth returns activities observed during the current calendar month
func (h *ActivitiesHandler) HandleMonth(w http.ResponseWriter, r *http.Request) {
	start, end, err := stats.MonthWindow(h.now(), h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.serveWindow(w, r, start, end)
}

// HandleWindow returns activities between the RFC 3339 start and end query
// parameters, inclusive
func (h *ActivitiesHandler) HandleWindow(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	start, err := time.Parse(time.RFC3339, query.Get("start"))
	if err != nil {
		writeError(w, h.logger, apierr.Wrap(apierr.KindBadRequest, err,
			"invalid start datetime, expected RFC 3339 (e.g. 2024-01-01T00:00:00Z)"))
		return
	}
	end, err := time.Parse(time.RFC3339, query.Get("end"))
	if err != nil {
		writeError(w, h.logger, apierr.Wrap(apierr.KindBadRequest, err,
			"invalid end datetime, expected RFC 3339 (e.g. 2024-01-31T23:59:59Z)"))
		return
	}

	h.serveWindow(w, r, start, end)
}

func (h *ActivitiesHandler) serveWindow(w http.ResponseWriter, r *http.Request, start, end time.Time) {
	h.logger.Debug("Reading activity window", "start", start, "end", end)

	activities, err := h.store.ListActivitiesInWindow(r.Context(), start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}
