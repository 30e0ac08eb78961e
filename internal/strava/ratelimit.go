package strava

import (
	"errors"
	"sync"
	"time"

	"bullshark-strava-sync/internal/metrics"
)

// ErrRateLimitExhausted is returned without calling Strava when the last
// reported usage already fills the current window
var ErrRateLimitExhausted = errors.New("strava rate limit exhausted")

// Strava's application defaults, used until a response reports otherwise
const (
	defaultLimit15Min = 200
	defaultLimitDaily = 2000
)

// RateLimitStatus is the usage last reported by Strava
type RateLimitStatus struct {
	Limit15Min  int
	Usage15Min  int
	LimitDaily  int
	UsageDaily  int
	LastUpdated time.Time
}

// Usage15MinPct is 15 minute usage as a percentage of the limit
func (s RateLimitStatus) Usage15MinPct() float64 {
	return pct(s.Usage15Min, s.Limit15Min)
}

// UsageDailyPct is daily usage as a percentage of the limit
func (s RateLimitStatus) UsageDailyPct() float64 {
	return pct(s.UsageDaily, s.LimitDaily)
}

func pct(usage, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(usage) / float64(limit) * 100
}

// RateLimiter tracks the usage reported in X-RateLimit headers.
//
// Strava's short window resets on quarter hours and the daily window at
// midnight UTC, so a reading only counts while its window is still current.
type RateLimiter struct {
	mu     sync.RWMutex
	status RateLimitStatus
}

// NewRateLimiter starts from Strava's default limits and no usage
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{status: RateLimitStatus{
		Limit15Min: defaultLimit15Min,
		LimitDaily: defaultLimitDaily,
	}}
}

// Update records the latest reading and publishes it as metrics
func (rl *RateLimiter) Update(limit15Min, usage15Min, limitDaily, usageDaily int) {
	rl.mu.Lock()
	rl.status = RateLimitStatus{
		Limit15Min:  limit15Min,
		Usage15Min:  usage15Min,
		LimitDaily:  limitDaily,
		UsageDaily:  usageDaily,
		LastUpdated: time.Now(),
	}
	rl.mu.Unlock()

	metrics.StravaRateLimitUsage.WithLabelValues(metrics.RateLimitOverall15Min, metrics.BucketLimit).Set(float64(limit15Min))
	metrics.StravaRateLimitUsage.WithLabelValues(metrics.RateLimitOverall15Min, metrics.BucketUsage).Set(float64(usage15Min))
	metrics.StravaRateLimitUsage.WithLabelValues(metrics.RateLimitOverallDaily, metrics.BucketLimit).Set(float64(limitDaily))
	metrics.StravaRateLimitUsage.WithLabelValues(metrics.RateLimitOverallDaily, metrics.BucketUsage).Set(float64(usageDaily))
}

// Status returns the last reading
func (rl *RateLimiter) Status() RateLimitStatus {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.status
}

// Exhausted reports whether a request made at now would certainly be
// rejected, based on the last reading
func (rl *RateLimiter) Exhausted(now time.Time) bool {
	s := rl.Status()
	if s.LastUpdated.IsZero() {
		return false
	}

	updated := s.LastUpdated.UTC()
	now = now.UTC()

	if s.Limit15Min > 0 && s.Usage15Min >= s.Limit15Min &&
		updated.Truncate(15*time.Minute).Equal(now.Truncate(15*time.Minute)) {
		return true
	}

	return s.LimitDaily > 0 && s.UsageDaily >= s.LimitDaily &&
		updated.Format(time.DateOnly) == now.Format(time.DateOnly)
}
