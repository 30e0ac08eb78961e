package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"bullshark-strava-sync/internal/metrics"
	"bullshark-strava-sync/internal/middleware"
)

// Routes groups the handlers served by the API
type Routes struct {
	Health     *HealthHandler
	Activities *ActivitiesHandler
	Stats      *StatsHandler
	Athletes   *AthletesHandler
	Populate   *PopulateHandler
	OAuth      *OAuthHandler

	// PopulateRateLimit is the number of manual triggers allowed per
	// client IP per minute
	PopulateRateLimit int
}

// NewRouter builds the HTTP routing tree
func NewRouter(routes Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/health", middleware.WrapHandler(metrics.EndpointHealth, routes.Health.HandleHealth))

	r.Method(http.MethodGet, "/read", middleware.WrapHandler(metrics.EndpointRead, routes.Activities.HandleRead))
	r.Route("/activities", func(r chi.Router) {
		r.Method(http.MethodGet, "/week", middleware.WrapHandler(metrics.EndpointReadWeek, routes.Activities.HandleWeek))
		r.Method(http.MethodGet, "/month", middleware.WrapHandler(metrics.EndpointReadMonth, routes.Activities.HandleMonth))
		r.Method(http.MethodGet, "/window", middleware.WrapHandler(metrics.EndpointReadWindow, routes.Activities.HandleWindow))
	})
	r.Method(http.MethodGet, "/team-stats", middleware.WrapHandler(metrics.EndpointTeamStats, routes.Stats.HandleTeamStats))
	r.Method(http.MethodGet, "/athletes", middleware.WrapHandler(metrics.EndpointAthletes, routes.Athletes.HandleAthletes))

	r.Group(func(r chi.Router) {
		if routes.PopulateRateLimit > 0 {
			r.Use(httprate.Limit(routes.PopulateRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Method(http.MethodPost, "/populate", middleware.WrapHandler(metrics.EndpointPopulate, routes.Populate.HandlePopulate))
	})

	if routes.OAuth != nil {
		r.Method(http.MethodGet, "/oauth-start", middleware.WrapHandler(metrics.EndpointOAuthStart, routes.OAuth.HandleAuthStart))
		r.Method(http.MethodGet, "/oauth-callback", middleware.WrapHandler(metrics.EndpointOAuthCallback, routes.OAuth.HandleCallback))
	}

	return r
}
