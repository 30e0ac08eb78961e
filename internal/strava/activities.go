package strava

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/metrics"
)

// MaxPerPage is the largest page size the club activities endpoint accepts
const MaxPerPage = 200

// ClubAthlete is the abbreviated athlete attached to a club activity
type ClubAthlete struct {
	ResourceState *int64  `json:"resource_state"`
	FirstName     *string `json:"firstname"`
	LastName      *string `json:"lastname"`
}

// ClubActivity is one entry of a club's activity feed. Strava omits ids and
// start dates from this endpoint.
type ClubActivity struct {
	ResourceState      *int64       `json:"resource_state"`
	Athlete            *ClubAthlete `json:"athlete"`
	Name               *string      `json:"name"`
	Distance           *float64     `json:"distance"`
	MovingTime         *int64       `json:"moving_time"`
	ElapsedTime        *int64       `json:"elapsed_time"`
	TotalElevationGain *float64     `json:"total_elevation_gain"`
	SportType          *string      `json:"sport_type"`
	WorkoutType        *int64       `json:"workout_type"`
	DeviceName         *string      `json:"device_name"`
}

// ListClubActivities fetches the first page of the configured club's feed,
// most recent first. Failures are ExternalAPI errors.
func (c *Client) ListClubActivities(ctx context.Context, accessToken string, perPage int) ([]ClubActivity, error) {
	if perPage < 1 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	params := url.Values{
		"page":         {"1"},
		"per_page":     {strconv.Itoa(perPage)},
		"access_token": {accessToken},
	}
	path := fmt.Sprintf("/clubs/%s/activities?%s", url.PathEscape(c.clubID), params.Encode())

	if c.rateLimiter.Exhausted(time.Now()) {
		status := c.rateLimiter.Status()
		c.logger.Warn("Skipping club feed request, rate limit exhausted",
			"usage_15min_pct", status.Usage15MinPct(),
			"usage_daily_pct", status.UsageDailyPct())
		return nil, apierr.Wrap(apierr.KindExternalAPI, ErrRateLimitExhausted, "failed to list club %s activities", c.clubID)
	}

	activities, err := castResult[[]ClubActivity](c.breaker.execute(func() (any, error) {
		body, err := c.doRequest(ctx, metrics.OpListClubActivities, path)
		if err != nil {
			return nil, err
		}

		var activities []ClubActivity
		if err := json.Unmarshal(body, &activities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal club activities: %w", err)
		}
		return activities, nil
	}))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindExternalAPI, err, "failed to list club %s activities", c.clubID)
	}

	return activities, nil
}

// TokenProvider supplies a valid access token for an identity
type TokenProvider interface {
	ValidToken(ctx context.Context, identity string) (string, error)
}

// ClubSource reads the club feed on behalf of one identity, resolving its
// token before every fetch
type ClubSource struct {
	client   *Client
	tokens   TokenProvider
	identity string
}

// NewClubSource creates a ClubSource
func NewClubSource(client *Client, tokens TokenProvider, identity string) *ClubSource {
	return &ClubSource{client: client, tokens: tokens, identity: identity}
}

// FetchRecent returns up to limit of the most recent club activities
func (s *ClubSource) FetchRecent(ctx context.Context, limit int) ([]ClubActivity, error) {
	token, err := s.tokens.ValidToken(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.ListClubActivities(ctx, token, limit)
}
