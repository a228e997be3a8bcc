package repository

import (
	"context"
	"time"

	"media-suite-accounts/internal/domain/model"
)

// SessionRepository is the port for session persistence.
//
// The storage layer owns the single-active-session-per-user invariant: a
// partial unique index on (user_id) WHERE is_active makes a second active
// insert impossible regardless of application-code interleaving.
type SessionRepository interface {
	// Insert stores a new session row. Inserting a second active session for
	// the same user surfaces as domain.ErrConflict.
	Insert(ctx context.Context, tx Tx, s *model.Session) error
	// FindActiveByUser returns the user's active session or domain.ErrNotFound.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Session, error)
	// FindByToken returns the session holding the token or domain.ErrNotFound.
	FindByToken(ctx context.Context, tx Tx, token string) (*model.Session, error)
	// DeactivateByToken flips is_active off only if it is currently on.
	// The returned bool reports whether this caller won the flip; concurrent
	// callers for the same token see false. This is the single-use gate for
	// token rotation.
	DeactivateByToken(ctx context.Context, tx Tx, token string, at time.Time) (bool, error)
	// DeactivateAllForUser deactivates every active session of the user
	// except the one holding exceptToken (empty = all) and returns the
	// tokens that were deactivated.
	DeactivateAllForUser(ctx context.Context, tx Tx, userID, exceptToken string, at time.Time) ([]string, error)
	// Delete removes a session row; deleting an absent row is not an error.
	Delete(ctx context.Context, tx Tx, sessionID string) error
	// TouchLastAccessed bumps last_accessed_at.
	TouchLastAccessed(ctx context.Context, tx Tx, sessionID string, at time.Time) error
	// ExtendExpiry pushes expires_at.
	ExtendExpiry(ctx context.Context, tx Tx, sessionID string, until time.Time) error
	// DeleteExpired removes rows whose expiry has passed; returns the count.
	DeleteExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
	// DeleteInactiveBefore removes inactive rows created before the
	// retention threshold; returns the count.
	DeleteInactiveBefore(ctx context.Context, tx Tx, threshold time.Time) (int, error)
}
