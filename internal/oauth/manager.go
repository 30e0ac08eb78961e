package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bullshark-strava-sync/internal/strava"
)

// ErrInvalidState is returned when a callback carries an unknown or expired state
var ErrInvalidState = errors.New("invalid or expired state")

const stateTTL = 10 * time.Minute

// CodeExchanger is the part of the Strava client used by the connect flow
type CodeExchanger interface {
	AuthCodeURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code string) (*strava.TokenResponse, error)
}

// Manager runs the browser connect flow that stores the credential used for
// club feed requests
type Manager struct {
	client   CodeExchanger
	tokens   *TokenCache
	identity string
	logger   *slog.Logger
	states   *stateStore // CSRF protection
}

// stateStore tracks valid OAuth states for CSRF protection
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

// NewManager creates a new OAuth manager. Exchanged credentials are stored
// under identity.
func NewManager(client CodeExchanger, tokens *TokenCache, identity string) *Manager {
	return &Manager{
		client:   client,
		tokens:   tokens,
		identity: identity,
		logger:   slog.Default(),
		states: &stateStore{
			states: make(map[string]time.Time),
		},
	}
}

// GenerateAuthURL generates a Strava authorization URL with CSRF protection
func (m *Manager) GenerateAuthURL(redirectURI string) (string, string, error) {
	state, err := generateRandomState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	m.states.mu.Lock()
	m.states.states[state] = time.Now().Add(stateTTL)
	m.states.mu.Unlock()

	return m.client.AuthCodeURL(redirectURI, state), state, nil
}

// HandleCallback validates state, exchanges code and stores the resulting
// credential. Returns the identity it was stored under.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if !m.validateState(state) {
		return "", ErrInvalidState
	}

	tok, err := m.client.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}

	if err := m.tokens.Seed(ctx, m.identity, tok); err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}

	m.logger.Info("Stored credential from authorization", "identity", m.identity, "expires_at", tok.ExpiresAt)

	return m.identity, nil
}

// validateState checks if a state is valid and removes it (one-time use)
func (m *Manager) validateState(state string) bool {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()

	expiry, exists := m.states.states[state]
	if !exists {
		return false
	}
	delete(m.states.states, state)

	return time.Now().Before(expiry)
}

// Serve removes expired states every minute until ctx is done
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.pruneStates(time.Now())
		}
	}
}

func (m *Manager) String() string {
	return "oauth-state-pruner"
}

func (m *Manager) pruneStates(now time.Time) {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()

	for state, expiry := range m.states.states {
		if now.After(expiry) {
			delete(m.states.states, state)
		}
	}
}

// generateRandomState generates a cryptographically secure random state
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
