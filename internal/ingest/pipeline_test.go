package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/config"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/metrics"
	"bullshark-strava-sync/internal/strava"
)

func ptr[T any](v T) *T { return &v }

type fakeSource struct {
	activities []strava.ClubActivity
	err        error
	limits     []int
}

func (f *fakeSource) FetchRecent(ctx context.Context, limit int) ([]strava.ClubActivity, error) {
	f.limits = append(f.limits, limit)
	return f.activities, f.err
}

func run(first, last string, distance float64, moving, elapsed int64) strava.ClubActivity {
	return strava.ClubActivity{
		Athlete:     &strava.ClubAthlete{FirstName: ptr(first), LastName: ptr(last)},
		Name:        ptr("Run"),
		Distance:    ptr(distance),
		MovingTime:  ptr(moving),
		ElapsedTime: ptr(elapsed),
		SportType:   ptr("Run"),
	}
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *database.DB) int {
	t.Helper()
	n, err := db.CountActivities(context.Background())
	require.NoError(t, err)
	return n
}

func TestPopulateInsertsBatch(t *testing.T) {
	db := openTestDB(t)
	source := &fakeSource{activities: []strava.ClubActivity{
		run("Jane", "D.", 5000, 1500, 1600),
		run("Sam", "L.", 10000, 3000, 3100),
	}}
	p := NewPipeline(source, db)
	batchTime := time.Date(2026, 1, 7, 18, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return batchTime }

	result, err := p.PopulateNewActivities(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Fetched: 2, Inserted: 2, Skipped: 0}, result)
	assert.Equal(t, []int{FetchLimit}, source.limits)

	stored, err := db.ListActivities(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, a := range stored {
		assert.True(t, a.Date.Equal(batchTime), "all rows share the batch time")
	}
}

func TestPopulateTwiceIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	source := &fakeSource{activities: []strava.ClubActivity{
		run("Jane", "D.", 5000, 1500, 1600),
		run("Sam", "L.", 10000, 3000, 3100),
	}}
	p := NewPipeline(source, db)

	_, err := p.PopulateNewActivities(context.Background())
	require.NoError(t, err)

	// Overlapping page with one new activity
	source.activities = append(source.activities, run("Jane", "D.", 8000, 2400, 2500))
	result, err := p.PopulateNewActivities(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Fetched: 3, Inserted: 1, Skipped: 2}, result)
	assert.Equal(t, 3, countRows(t, db))
}

func TestPopulateDuplicateWithinBatch(t *testing.T) {
	db := openTestDB(t)
	source := &fakeSource{activities: []strava.ClubActivity{
		run("Jane", "D.", 5000, 1500, 1600),
		run("Jane", "D.", 5000, 1500, 1600),
	}}

	result, err := NewPipeline(source, db).PopulateNewActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, countRows(t, db))
}

func TestPopulateRejectsBatchWithUnconvertibleActivity(t *testing.T) {
	db := openTestDB(t)
	bad := run("Sam", "L.", 10000, 3000, 3100)
	bad.Distance = nil
	source := &fakeSource{activities: []strava.ClubActivity{
		run("Jane", "D.", 5000, 1500, 1600),
		bad,
	}}

	_, err := NewPipeline(source, db).PopulateNewActivities(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.IsConversion(err))
	assert.Equal(t, 0, countRows(t, db))
}

func TestPopulatePropagatesSourceError(t *testing.T) {
	db := openTestDB(t)
	source := &fakeSource{err: apierr.NoCredential("admin")}

	_, err := NewPipeline(source, db).PopulateNewActivities(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.IsNoCredential(err))
}

func TestPopulateEmptyFeed(t *testing.T) {
	db := openTestDB(t)

	result, err := NewPipeline(&fakeSource{}, db).PopulateNewActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
}

func TestRunRecordsMetrics(t *testing.T) {
	db := openTestDB(t)
	source := &fakeSource{activities: []strava.ClubActivity{run("Jane", "D.", 5000, 1500, 1600)}}
	p := NewPipeline(source, db)

	successes := metrics.IngestRunsTotal.WithLabelValues(metrics.TriggerScheduled, metrics.ResultSuccess)
	failures := metrics.IngestRunsTotal.WithLabelValues(metrics.TriggerScheduled, metrics.ResultFailure)
	okBefore := testutil.ToFloat64(successes)
	failBefore := testutil.ToFloat64(failures)
	insertedBefore := testutil.ToFloat64(metrics.IngestActivitiesInserted)

	_, err := p.Run(context.Background(), metrics.TriggerScheduled)
	require.NoError(t, err)

	source.err = errors.New("boom")
	_, err = p.Run(context.Background(), metrics.TriggerScheduled)
	require.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(successes))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(failures))
	assert.Equal(t, insertedBefore+1, testutil.ToFloat64(metrics.IngestActivitiesInserted))
}

func TestRunRecordsHistory(t *testing.T) {
	db := openTestDB(t)
	source := &fakeSource{activities: []strava.ClubActivity{
		run("Jane", "D.", 5000, 1500, 1600),
		run("Sam", "L.", 10000, 3000, 3100),
	}}
	p := NewPipeline(source, db).WithHistory(db)

	_, err := p.Run(context.Background(), metrics.TriggerScheduled)
	require.NoError(t, err)

	source.err = errors.New("club feed unavailable")
	_, err = p.PopulateNewActivities(context.Background())
	require.Error(t, err)

	runs, err := db.ListIngestRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byTrigger := map[string]database.IngestRun{}
	for _, r := range runs {
		byTrigger[r.Trigger] = r
	}

	scheduled := byTrigger[metrics.TriggerScheduled]
	assert.Equal(t, 2, scheduled.Fetched)
	assert.Equal(t, 2, scheduled.Inserted)
	assert.Nil(t, scheduled.Error)

	manual := byTrigger[metrics.TriggerManual]
	require.NotNil(t, manual.Error)
	assert.Contains(t, *manual.Error, "club feed unavailable")
	assert.NotEqual(t, scheduled.ID, manual.ID)
}

type staticTokens string

func (s staticTokens) ValidToken(ctx context.Context, identity string) (string, error) {
	return string(s), nil
}

func TestPopulateFromClubFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/clubs/1234/activities" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("access_token") != "feed_token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("per_page") != fmt.Sprint(FetchLimit) {
			t.Errorf("Expected per_page=%d, got %s", FetchLimit, r.URL.Query().Get("per_page"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"resource_state":2,"athlete":{"resource_state":2,"firstname":"Jane","lastname":"D."},
			 "name":"Lunch Run","distance":5000.0,"moving_time":1500,"elapsed_time":1600,
			 "total_elevation_gain":10.2,"type":"Run","sport_type":"Run","workout_type":null},
			{"resource_state":2,"athlete":{"resource_state":2,"firstname":"Sam","lastname":"L."},
			 "name":"Evening Ride","distance":20000.0,"moving_time":3600,"elapsed_time":3700,
			 "total_elevation_gain":120,"sport_type":"Ride"}
		]`)
	}))
	defer server.Close()

	cfg := &config.Config{
		StravaClientID:     "id",
		StravaClientSecret: "secret",
		StravaClubID:       "1234",
		StravaAPIURL:       server.URL + "/api/v3",
		StravaTokenURL:     server.URL + "/oauth/token",
		StravaAuthURL:      server.URL + "/oauth/authorize",
	}
	source := strava.NewClubSource(strava.NewClient(cfg), staticTokens("feed_token"), "admin")
	db := openTestDB(t)

	result, err := NewPipeline(source, db).PopulateNewActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	stored, err := db.ListActivities(context.Background())
	require.NoError(t, err)
	names := map[string]string{}
	for _, a := range stored {
		names[*a.AthleteName] = *a.SportType
	}
	assert.Equal(t, map[string]string{"Jane D.": "Run", "Sam L.": "Ride"}, names)
}
