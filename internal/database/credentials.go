package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bullshark-strava-sync/internal/metrics"
)

// Credential is the OAuth token material stored for one identity
type Credential struct {
	Identity     string `json:"id"`
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresAt    int64  `json:"expires_at"` // Unix timestamp
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// UpsertCredential stores c, replacing any credential held for the same identity
func (db *DB) UpsertCredential(ctx context.Context, c *Credential) error {
	return observe(metrics.DBOpUpsertCredential, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO strava_auth_tokens (
				id, token_type, access_token, expires_at, expires_in, refresh_token, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				token_type = excluded.token_type,
				access_token = excluded.access_token,
				expires_at = excluded.expires_at,
				expires_in = excluded.expires_in,
				refresh_token = excluded.refresh_token,
				updated_at = excluded.updated_at
		`, c.Identity, c.TokenType, c.AccessToken, c.ExpiresAt, c.ExpiresIn, c.RefreshToken, time.Now().Unix())
		return err
	})
}

// GetCredential retrieves the credential for identity.
// Returns nil without error when none is stored.
func (db *DB) GetCredential(ctx context.Context, identity string) (*Credential, error) {
	var c *Credential
	err := observe(metrics.DBOpGetCredential, func() error {
		var row Credential
		err := db.conn.QueryRowContext(ctx, `
			SELECT id, token_type, access_token, expires_at, expires_in, refresh_token
			FROM strava_auth_tokens WHERE id = ?
		`, identity).Scan(
			&row.Identity, &row.TokenType, &row.AccessToken, &row.ExpiresAt, &row.ExpiresIn, &row.RefreshToken,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		c = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
