package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// Ingestion results
	ResultSuccess = "success"
	ResultFailure = "failure"

	// Ingestion triggers
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"

	// Token cache outcomes
	CacheHit           = "hit"
	CacheExpired       = "expired"
	CacheMiss          = "miss"
	CacheRefresh       = "refresh"
	CacheNoCredential  = "no_credential"
	CacheRefreshFailed = "refresh_failed"

	// HTTP endpoints
	EndpointHealth        = "health"
	EndpointRead          = "read"
	EndpointReadWeek      = "read_week"
	EndpointReadMonth     = "read_month"
	EndpointReadWindow    = "read_window"
	EndpointTeamStats     = "team_stats"
	EndpointPopulate      = "populate"
	EndpointAthletes      = "athletes"
	EndpointOAuthStart    = "oauth_start"
	EndpointOAuthCallback = "oauth_callback"

	// Strava API operations
	OpExchangeCode       = "exchange_code"
	OpRefreshToken       = "refresh_token"
	OpListClubActivities = "list_club_activities"

	// Rate limit types
	RateLimitOverall15Min = "overall_15min"
	RateLimitOverallDaily = "overall_daily"

	// Rate limit buckets
	BucketLimit = "limit"
	BucketUsage = "usage"

	// Database operations
	DBOpUpsertCredential       = "upsert_credential"
	DBOpGetCredential          = "get_credential"
	DBOpInsertActivities       = "insert_activities"
	DBOpListActivities         = "list_activities"
	DBOpListActivitiesInWindow = "list_activities_in_window"
	DBOpCountActivities        = "count_activities"
	DBOpInsertAthletes         = "insert_athletes"
	DBOpListAthletes           = "list_athletes"
	DBOpCountAthletesByTeam    = "count_athletes_by_team"
	DBOpRecordIngestRun        = "record_ingest_run"
	DBOpListIngestRuns         = "list_ingest_runs"

	// Circuit breakers
	BreakerStravaAPI = "strava-api"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "status_code"},
	)
)

// Ingestion Metrics
var (
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	IngestRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Time spent on one fetch-convert-persist cycle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"trigger", "result"},
	)

	IngestActivitiesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_activities_fetched_total",
			Help: "Total number of club activities fetched from Strava",
		},
	)

	IngestActivitiesInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_activities_inserted_total",
			Help: "Total number of new activities persisted",
		},
	)

	IngestActivitiesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_activities_skipped_total",
			Help: "Total number of fetched activities already present",
		},
	)

	WorkerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_active",
			Help: "Whether the ingestion worker is currently active (1) or not (0)",
		},
	)
)

// Token Cache Metrics
var (
	TokenCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_cache_lookups_total",
			Help: "Total number of token lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// Strava API Metrics
var (
	StravaAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_api_requests_total",
			Help: "Total number of Strava API requests",
		},
		[]string{"operation", "status_code"},
	)

	StravaAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strava_api_request_duration_seconds",
			Help:    "Strava API request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation", "status_code"},
	)

	StravaRateLimitUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strava_rate_limit_usage",
			Help: "Strava API rate limit usage",
		},
		[]string{"limit_type", "bucket"},
	)
)

// Database Metrics
var (
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Database operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBOperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)
)

// Business Metrics
var (
	StoredActivities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stored_activities",
			Help: "Number of activities in the activity store",
		},
	)

	RosterAthletes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roster_athletes",
			Help: "Number of roster athletes per team",
		},
		[]string{"team"},
	)
)

// Circuit Breaker Metrics
var (
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half_open, 2=open)",
		},
		[]string{"breaker"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"breaker", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests passing through a circuit breaker by result",
		},
		[]string{"breaker", "result"},
	)
)
