package oauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/metrics"
	"bullshark-strava-sync/internal/strava"
)

// RefreshMargin is how close to expiry a stored credential may get before
// it is refreshed instead of cached
const RefreshMargin = 5 * time.Minute

// CredentialStore persists one credential per identity
type CredentialStore interface {
	GetCredential(ctx context.Context, identity string) (*database.Credential, error)
	UpsertCredential(ctx context.Context, c *database.Credential) error
}

// Refresher exchanges a refresh token for new token material
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error)
}

// TokenCache hands out valid access tokens, refreshing stored credentials
// that are expired or about to expire.
//
// Entries are held in a sync.Map so lookups for different identities never
// contend. Two concurrent misses for the same identity may both refresh; the
// last write wins in both the cache and the store.
type TokenCache struct {
	store     CredentialStore
	refresher Refresher
	entries   sync.Map // identity -> database.Credential
	now       func() time.Time
	logger    *slog.Logger
}

// NewTokenCache creates an empty TokenCache
func NewTokenCache(store CredentialStore, refresher Refresher) *TokenCache {
	return &TokenCache{
		store:     store,
		refresher: refresher,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// ValidToken returns an access token for identity that was not expired when
// it was handed out.
//
// A cached, unexpired credential is returned without I/O. Otherwise the
// stored credential is read; if it is missing the result is a NoCredential
// error, if it expires within RefreshMargin it is refreshed and persisted,
// and in every successful case the credential ends up cached.
func (c *TokenCache) ValidToken(ctx context.Context, identity string) (string, error) {
	now := c.now()

	if v, ok := c.entries.Load(identity); ok {
		cred := v.(database.Credential)
		if !isExpired(&cred, now) {
			metrics.TokenCacheLookupsTotal.WithLabelValues(metrics.CacheHit).Inc()
			return cred.AccessToken, nil
		}
		metrics.TokenCacheLookupsTotal.WithLabelValues(metrics.CacheExpired).Inc()
		c.entries.CompareAndDelete(identity, v)
	} else {
		metrics.TokenCacheLookupsTotal.WithLabelValues(metrics.CacheMiss).Inc()
	}

	stored, err := c.store.GetCredential(ctx, identity)
	if err != nil {
		return "", err
	}
	if stored == nil {
		metrics.TokenCacheLookupsTotal.WithLabelValues(metrics.CacheNoCredential).Inc()
		return "", apierr.NoCredential(identity)
	}

	if !expiresWithin(stored, now, RefreshMargin) {
		c.entries.Store(identity, *stored)
		return stored.AccessToken, nil
	}

	c.logger.Info("Refreshing credential", "identity", identity, "expires_at", stored.ExpiresAt)

	resp, err := c.refresher.RefreshToken(ctx, stored.RefreshToken)
	if err != nil {
		metrics.TokenCacheLookupsTotal.WithLabelValues(metrics.CacheRefreshFailed).Inc()
		if _, typed := apierr.KindOf(err); typed {
			return "", err
		}
		return "", apierr.Wrap(apierr.KindExternalAPI, err, "token refresh for %q failed", identity)
	}
	metrics.TokenCacheLookupsTotal.WithLabelValues(metrics.CacheRefresh).Inc()

	fresh := credentialFromToken(identity, resp)
	if err := c.store.UpsertCredential(ctx, &fresh); err != nil {
		return "", err
	}
	c.entries.Store(identity, fresh)

	return fresh.AccessToken, nil
}

// Seed persists token material obtained outside the refresh path, such as an
// authorization code exchange, and caches it
func (c *TokenCache) Seed(ctx context.Context, identity string, tok *strava.TokenResponse) error {
	cred := credentialFromToken(identity, tok)
	if err := c.store.UpsertCredential(ctx, &cred); err != nil {
		return err
	}
	c.entries.Store(identity, cred)
	return nil
}

// Forget drops the cached credential for identity
func (c *TokenCache) Forget(identity string) {
	c.entries.Delete(identity)
}

// Cached returns the cached credential for identity, if any
func (c *TokenCache) Cached(identity string) (database.Credential, bool) {
	v, ok := c.entries.Load(identity)
	if !ok {
		return database.Credential{}, false
	}
	return v.(database.Credential), true
}

func credentialFromToken(identity string, tok *strava.TokenResponse) database.Credential {
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return database.Credential{
		Identity:     identity,
		TokenType:    tokenType,
		AccessToken:  tok.AccessToken,
		ExpiresAt:    tok.ExpiresAt,
		ExpiresIn:    tok.ExpiresIn,
		RefreshToken: tok.RefreshToken,
	}
}

func isExpired(c *database.Credential, now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}

func expiresWithin(c *database.Credential, now time.Time, margin time.Duration) bool {
	return c.ExpiresAt-now.Unix() < int64(margin/time.Second)
}
