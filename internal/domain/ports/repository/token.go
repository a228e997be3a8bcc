package repository

import (
	"context"
	"time"
)

// TokenRecord maps an opaque bearer token to the session it proves.
// The store is a fast-revocation cache; the session row stays the durable
// source of truth and verifiers fall back to it on a cache miss.
type TokenRecord struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore is the port for the token index.
type TokenStore interface {
	// Save stores the record under its token with the given TTL.
	Save(ctx context.Context, rec *TokenRecord, ttl time.Duration) error
	// Find returns the record, domain.ErrTokenNotFound when absent or
	// revoked, or domain.ErrTokenExpired (purging the entry) when stale.
	Find(ctx context.Context, token string) (*TokenRecord, error)
	// Delete removes the mappings; unknown tokens are ignored.
	Delete(ctx context.Context, tokens ...string) error
}
