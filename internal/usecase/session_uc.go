package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"media-suite-accounts/internal/domain"
	"media-suite-accounts/internal/domain/model"
	"media-suite-accounts/internal/domain/ports/repository"
	"media-suite-accounts/internal/infra/logging"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// SessionUseCase manages the durable session records. Lookups return
// (nil, nil) for "no usable session" so callers can treat absence as an
// ordinary unauthenticated result rather than a fault.
type SessionUseCase interface {
	// Create enforces single-device login: any session the user already has
	// is deactivated in the same transaction that inserts the new one. The
	// returned slice holds the tokens of the superseded sessions so the
	// caller can purge them from the token index.
	Create(ctx context.Context, s *model.Session) ([]string, error)
	GetActiveByUser(ctx context.Context, userID string) (*model.Session, error)
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	RevokeByToken(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID, exceptToken string) ([]string, error)
	Extend(ctx context.Context, sessionID string, d time.Duration) error
	CleanupExpired(ctx context.Context) (int, error)
}

type sessionUC struct {
	sessions          repository.SessionRepository
	tm                repository.TransactionManager
	inactiveRetention time.Duration
	now               func() time.Time
	log               *zerolog.Logger
}

func NewSessionUseCase(sessions repository.SessionRepository, tm repository.TransactionManager, inactiveRetention time.Duration, logger *zerolog.Logger) *sessionUC {
	return &sessionUC{
		sessions:          sessions,
		tm:                tm,
		inactiveRetention: inactiveRetention,
		now:               time.Now,
		log:               logger,
	}
}

func (u *sessionUC) Create(ctx context.Context, s *model.Session) ([]string, error) {
	defer logging.TraceDuration(u.log, "SessionUC.Create")()

	var superseded []string
	// Serializable plus the partial unique index on (user_id, is_active)
	// guarantees two racing logins cannot both keep a session.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := runTx(ctx, u.tm, txOpts, func(ctx context.Context, tx repository.Tx) error {
		tokens, err := u.sessions.DeactivateAllForUser(ctx, tx, s.UserID, "", u.now())
		if err != nil {
			return err
		}
		if err := u.sessions.Insert(ctx, tx, s); err != nil {
			return err
		}
		superseded = tokens
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Debug().Str("user_id", s.UserID).Str("device", s.DeviceName).
		Int("superseded", len(superseded)).Msg("session created")
	return superseded, nil
}

func (u *sessionUC) GetActiveByUser(ctx context.Context, userID string) (*model.Session, error) {
	s, err := u.sessions.FindActiveByUser(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.IsExpired(u.now()) {
		// lazy cleanup; a concurrent reader doing the same is harmless
		if _, err := u.sessions.DeactivateByToken(ctx, repository.NoTX, s.Token, u.now()); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s, nil
}

func (u *sessionUC) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	s, err := u.sessions.FindByToken(ctx, repository.NoTX, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := u.now()
	if s.ShouldCleanup(now) {
		if err := u.sessions.Delete(ctx, repository.NoTX, s.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := u.sessions.TouchLastAccessed(ctx, repository.NoTX, s.ID, now); err != nil {
		return nil, err
	}
	s.LastAccessedAt = now
	return s, nil
}

func (u *sessionUC) RevokeByToken(ctx context.Context, token string) (bool, error) {
	return u.sessions.DeactivateByToken(ctx, repository.NoTX, token, u.now())
}

func (u *sessionUC) RevokeAllForUser(ctx context.Context, userID, exceptToken string) ([]string, error) {
	return u.sessions.DeactivateAllForUser(ctx, repository.NoTX, userID, exceptToken, u.now())
}

func (u *sessionUC) Extend(ctx context.Context, sessionID string, d time.Duration) error {
	return u.sessions.ExtendExpiry(ctx, repository.NoTX, sessionID, u.now().Add(d))
}

// CleanupExpired removes sessions past their expiry plus deactivated rows
// older than the retention window. Run from the periodic sweep.
func (u *sessionUC) CleanupExpired(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SessionUC.CleanupExpired")()

	now := u.now()
	expired, err := u.sessions.DeleteExpired(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}
	stale, err := u.sessions.DeleteInactiveBefore(ctx, repository.NoTX, now.Add(-u.inactiveRetention))
	if err != nil {
		return expired, err
	}

	total := expired + stale
	if total > 0 {
		u.log.Info().Int("expired", expired).Int("stale", stale).Msg("sessions swept")
	}
	return total, nil
}
