package strava

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/config"
	"bullshark-strava-sync/internal/metrics"
)

// Strava expects a comma separated scope list in a single parameter
const scope = "read,activity:read"

// Client is a Strava API client
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	clubID       string
	apiURL       string
	tokenURL     string
	authURL      string
	logger       *slog.Logger
	rateLimiter  *RateLimiter
	breaker      *breaker
}

// HTTPError is returned for non-2xx responses from Strava
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("strava returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err wraps a 404 from Strava
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err wraps a 401 from Strava
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsRateLimited reports whether err wraps a 429 from Strava
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

func hasStatus(err error, code int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == code
}

// TokenResponse represents the response from a token exchange or refresh
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewClient creates a new Strava API client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clientID:     cfg.StravaClientID,
		clientSecret: cfg.StravaClientSecret,
		clubID:       cfg.StravaClubID,
		apiURL:       strings.TrimSuffix(cfg.StravaAPIURL, "/"),
		tokenURL:     cfg.StravaTokenURL,
		authURL:      cfg.StravaAuthURL,
		logger:       slog.Default(),
		rateLimiter:  NewRateLimiter(),
		breaker:      newBreaker(metrics.BreakerStravaAPI),
	}
}

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.authURL,
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      []string{scope},
	}
}

// AuthCodeURL builds the Strava authorization URL for the connect flow
func (c *Client) AuthCodeURL(redirectURI, state string) string {
	return c.oauthConfig(redirectURI).AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// ExchangeCode exchanges an authorization code for access and refresh tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := c.oauthConfig("").Exchange(ctx, code)
	if err != nil {
		c.observe(metrics.OpExchangeCode, tokenErrorStatus(err), start)
		c.logger.Error("token exchange failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, apierr.Wrap(apierr.KindExternalAPI, tokenError(err), "token exchange failed")
	}
	c.observe(metrics.OpExchangeCode, http.StatusOK, start)
	c.logger.Info("token_exchange", "duration_ms", time.Since(start).Milliseconds())

	return tokenResponse(tok, start), nil
}

// RefreshToken obtains a fresh access token using a refresh token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := c.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		c.observe(metrics.OpRefreshToken, tokenErrorStatus(err), start)
		c.logger.Error("token refresh failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, apierr.Wrap(apierr.KindExternalAPI, tokenError(err), "token refresh failed")
	}
	c.observe(metrics.OpRefreshToken, http.StatusOK, start)
	c.logger.Info("token_refresh", "duration_ms", time.Since(start).Milliseconds())

	return tokenResponse(tok, start), nil
}

// tokenResponse reads Strava's expires_at/expires_in from the raw token
// payload, falling back to the expiry computed by oauth2.
func tokenResponse(tok *oauth2.Token, requested time.Time) *TokenResponse {
	resp := &TokenResponse{
		TokenType:    tok.TokenType,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    extraInt(tok, "expires_at"),
		ExpiresIn:    extraInt(tok, "expires_in"),
	}
	if resp.ExpiresAt == 0 && !tok.Expiry.IsZero() {
		resp.ExpiresAt = tok.Expiry.Unix()
	}
	if resp.ExpiresIn == 0 && resp.ExpiresAt > 0 {
		resp.ExpiresIn = resp.ExpiresAt - requested.Unix()
	}
	return resp
}

func extraInt(tok *oauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case interface{ Int64() (int64, error) }:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// tokenError converts an oauth2 retrieve failure into an HTTPError
func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &HTTPError{StatusCode: retrieveErr.Response.StatusCode, Body: string(retrieveErr.Body)}
	}
	return err
}

func tokenErrorStatus(err error) int {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode
	}
	return 0
}

// doRequest performs a GET against the API and returns the body of a 200 response
func (c *Client) doRequest(ctx context.Context, op, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		c.logger.Error("request failed", "operation", op, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	c.observe(op, resp.StatusCode, start)
	c.parseRateLimitHeaders(resp.Header)

	c.logger.Info("strava_api_request", "operation", op, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	statusStr := strconv.Itoa(status)
	metrics.StravaAPIRequestsTotal.WithLabelValues(op, statusStr).Inc()
	metrics.StravaAPIRequestDuration.WithLabelValues(op, statusStr).Observe(time.Since(start).Seconds())
}

// parseRateLimitHeaders records the "15min, daily" pairs Strava sends with
// every API response. Incomplete or malformed headers are ignored.
func (c *Client) parseRateLimitHeaders(headers http.Header) {
	limit15, limitDaily, ok := parsePair(headers.Get("X-RateLimit-Limit"))
	if !ok {
		return
	}
	usage15, usageDaily, ok := parsePair(headers.Get("X-RateLimit-Usage"))
	if !ok {
		return
	}

	c.rateLimiter.Update(limit15, usage15, limitDaily, usageDaily)

	c.logger.Debug("rate_limit",
		"limit_15min", limit15,
		"usage_15min", usage15,
		"limit_daily", limitDaily,
		"usage_daily", usageDaily,
	)
}

func parsePair(header string) (int, int, bool) {
	first, second, found := strings.Cut(header, ",")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// GetRateLimitStatus returns the current rate limit status
func (c *Client) GetRateLimitStatus() RateLimitStatus {
	return c.rateLimiter.Status()
}
