package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"time"

	"media-suite-accounts/internal/domain/ports/repository"
)

// Compile-time check
var _ TokenIssuer = (*tokenIssuer)(nil)

// TokenIssuer hands out opaque, server-tracked bearer credentials. Opacity
// buys instant, unconditional revocability: under single-device login an old
// credential must be provably dead the moment a new one is issued, which a
// self-verifying signed token cannot deliver.
type TokenIssuer interface {
	Issue(ctx context.Context, userID, sessionID string) (token string, expiresAt time.Time, err error)
	Verify(ctx context.Context, token string) (*repository.TokenRecord, error)
	Revoke(ctx context.Context, tokens ...string) error
	// Prime re-installs a record for an already-issued token, used when the
	// store lost the entry but the durable session is still live.
	Prime(ctx context.Context, rec *repository.TokenRecord, ttl time.Duration) error
}

type tokenIssuer struct {
	store repository.TokenStore
	ttl   time.Duration
	now   func() time.Time
}

func NewTokenIssuer(store repository.TokenStore, ttl time.Duration) *tokenIssuer {
	return &tokenIssuer{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue generates a fresh random token bound to the user and session and
// stores the mapping with the configured TTL.
func (i *tokenIssuer) Issue(ctx context.Context, userID, sessionID string) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	expiresAt := i.now().Add(i.ttl)

	rec := &repository.TokenRecord{
		Token:     token,
		UserID:    userID,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	}
	if err := i.store.Save(ctx, rec, i.ttl); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (i *tokenIssuer) Verify(ctx context.Context, token string) (*repository.TokenRecord, error) {
	return i.store.Find(ctx, token)
}

// Revoke is idempotent: revoking an unknown or already-revoked token is fine.
func (i *tokenIssuer) Revoke(ctx context.Context, tokens ...string) error {
	return i.store.Delete(ctx, tokens...)
}

func (i *tokenIssuer) Prime(ctx context.Context, rec *repository.TokenRecord, ttl time.Duration) error {
	return i.store.Save(ctx, rec, ttl)
}
