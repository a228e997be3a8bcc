package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"media-suite-accounts/internal/domain"
	"media-suite-accounts/internal/domain/model"
	"media-suite-accounts/internal/domain/ports/adapter"
	"media-suite-accounts/internal/domain/ports/repository"
	"media-suite-accounts/internal/infra/logging"
	"media-suite-accounts/internal/infra/metrics"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// AuthResult is what a successful login, registration or refresh hands back
// to the boundary layer.
type AuthResult struct {
	User      *model.User
	Session   *model.Session
	Token     string
	ExpiresAt time.Time
}

// Identity is the outcome of verifying a bearer token.
type Identity struct {
	UserID    string
	SessionID string
	Session   *model.Session
}

// AuthUseCase coordinates users, activation codes, sessions and tokens.
// Credential failures are reported uniformly as domain.ErrUnauthorized so
// callers cannot distinguish a missing account from a wrong password.
type AuthUseCase interface {
	Register(ctx context.Context, username, password, code string, device model.DeviceInfo) (*AuthResult, error)
	Login(ctx context.Context, username, password string, device model.DeviceInfo) (*AuthResult, error)
	Authenticate(ctx context.Context, token string) (*Identity, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) error
	Refresh(ctx context.Context, token string, device model.DeviceInfo) (*AuthResult, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type authUC struct {
	users    repository.UserRepository
	codes    repository.ActivationCodeRepository
	sessions repository.SessionRepository
	tm       repository.TransactionManager

	sessionUC SessionUseCase
	issuer    TokenIssuer
	hasher    adapter.PasswordHasher

	graceHours int
	now        func() time.Time
	log        *zerolog.Logger
}

func NewAuthUseCase(
	users repository.UserRepository,
	codes repository.ActivationCodeRepository,
	sessions repository.SessionRepository,
	tm repository.TransactionManager,
	sessionUC SessionUseCase,
	issuer TokenIssuer,
	hasher adapter.PasswordHasher,
	graceHours int,
	logger *zerolog.Logger,
) *authUC {
	return &authUC{
		users:      users,
		codes:      codes,
		sessions:   sessions,
		tm:         tm,
		sessionUC:  sessionUC,
		issuer:     issuer,
		hasher:     hasher,
		graceHours: graceHours,
		now:        time.Now,
		log:        logger,
	}
}

// Register creates the account and redeems the activation code in one
// transaction, then logs the new user in. A code can be redeemed exactly
// once: the serializable transaction plus the state check on the locked row
// guarantee two racing registrations cannot both consume it.
func (u *authUC) Register(ctx context.Context, username, password, code string, device model.DeviceInfo) (*AuthResult, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Register")()

	if username == "" || password == "" || code == "" {
		metrics.IncRegistration("invalid")
		return nil, domain.ErrInvalidArgument
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err = runTx(ctx, u.tm, txOpts, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.codes.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if c.Status == model.CodeStatusInvalid || c.IsExpired(u.now()) {
			return domain.ErrUnauthorized
		}
		if c.Status != model.CodeStatusDistributed {
			return domain.ErrInvalidState
		}

		taken, err := u.users.UsernameExists(ctx, tx, username)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrConflict
		}

		usr, err := model.NewUser(username, hash, code, u.now())
		if err != nil {
			return err
		}
		if err := u.users.Insert(ctx, tx, usr); err != nil {
			return err
		}
		if err := c.Activate(u.now(), u.graceHours); err != nil {
			return err
		}
		if err := u.codes.Save(ctx, tx, c); err != nil {
			return err
		}
		user = usr
		return nil
	})
	if err != nil {
		metrics.IncRegistration("failure")
		return nil, err
	}

	metrics.IncRegistration("success")
	metrics.IncCodeTransition(model.CodeStatusActivated.Desc())
	u.log.Info().Str("user_id", user.ID).Str("username", username).Msg("user registered")

	return u.openSession(ctx, user, device)
}

// Login authenticates the credentials and, when the account's activation
// code still grants access, replaces any existing session with a fresh one.
func (u *authUC) Login(ctx context.Context, username, password string, device model.DeviceInfo) (*AuthResult, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Login")()

	user, err := u.users.FindByUsername(ctx, repository.NoTX, username)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncLogin("failure")
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !u.hasher.Verify(password, user.PasswordHash) {
		metrics.IncLogin("failure")
		return nil, domain.ErrUnauthorized
	}

	if err := u.checkEntitlement(ctx, user); err != nil {
		metrics.IncLogin("failure")
		return nil, err
	}

	res, err := u.openSession(ctx, user, device)
	if err != nil {
		metrics.IncLogin("failure")
		return nil, err
	}

	metrics.IncLogin("success")
	u.log.Info().Str("user_id", user.ID).Str("device", device.DeviceName).Msg("user logged in")
	return res, nil
}

// checkEntitlement rejects the login when the account's activation code has
// been invalidated or its entitlement window has elapsed.
func (u *authUC) checkEntitlement(ctx context.Context, user *model.User) error {
	c, err := u.codes.FindByCode(ctx, repository.NoTX, user.ActivationCode)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if c.Status == model.CodeStatusInvalid || c.IsExpired(u.now()) {
		return domain.ErrUnauthorized
	}
	return nil
}

// openSession issues a token, installs the session as the user's single
// active one and purges the tokens of whatever it displaced. The session row
// is the durable truth; if installing it fails the just-issued token is
// revoked so no orphan credential survives.
func (u *authUC) openSession(ctx context.Context, user *model.User, device model.DeviceInfo) (*AuthResult, error) {
	sessionID := uuid.NewString()
	token, expiresAt, err := u.issuer.Issue(ctx, user.ID, sessionID)
	if err != nil {
		return nil, err
	}

	session := model.NewSession(user.ID, token, device, u.now(), expiresAt)
	session.ID = sessionID
	superseded, err := u.sessionUC.Create(ctx, session)
	if err != nil {
		if rerr := u.issuer.Revoke(ctx, token); rerr != nil {
			u.log.Warn().Err(rerr).Msg("failed to revoke orphan token")
		}
		return nil, err
	}

	if len(superseded) > 0 {
		if err := u.issuer.Revoke(ctx, superseded...); err != nil {
			// the durable rows are already inactive; the cached records
			// expire on their own TTL
			u.log.Warn().Err(err).Int("count", len(superseded)).Msg("failed to revoke superseded tokens")
		}
	}

	return &AuthResult{User: user, Session: session, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to an identity. The token cache is
// consulted first; on a miss the durable session row decides, and a hit there
// re-primes the cache.
func (u *authUC) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		metrics.IncTokenVerify("failure")
		return nil, domain.ErrUnauthorized
	}

	rec, err := u.issuer.Verify(ctx, token)
	switch {
	case err == nil:
		session, err := u.sessionUC.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if session == nil || !session.IsActive {
			// durable truth wins over a stale cache entry
			if rerr := u.issuer.Revoke(ctx, token); rerr != nil {
				u.log.Warn().Err(rerr).Msg("failed to drop stale token record")
			}
			metrics.IncTokenVerify("failure")
			return nil, domain.ErrUnauthorized
		}
		metrics.IncTokenVerify("success")
		return &Identity{UserID: rec.UserID, SessionID: session.ID, Session: session}, nil

	case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrTokenExpired):
		session, serr := u.sessionUC.GetByToken(ctx, token)
		if serr != nil {
			return nil, serr
		}
		if session == nil || !session.IsActive || session.IsExpired(u.now()) {
			metrics.IncTokenVerify("failure")
			return nil, domain.ErrUnauthorized
		}
		// cache miss with a live session: re-prime the cache
		ttl := session.ExpiresAt.Sub(u.now())
		if ttl > 0 {
			rec := &repository.TokenRecord{
				Token:     token,
				UserID:    session.UserID,
				SessionID: session.ID,
				ExpiresAt: session.ExpiresAt,
			}
			if perr := u.issuer.Prime(ctx, rec, ttl); perr != nil {
				u.log.Warn().Err(perr).Msg("failed to re-prime token cache")
			}
		}
		metrics.IncTokenVerify("success")
		return &Identity{UserID: session.UserID, SessionID: session.ID, Session: session}, nil

	default:
		return nil, err
	}
}

// Logout revokes the token and deactivates its session. An unknown token is
// an unauthorized call, not a silent no-op.
func (u *authUC) Logout(ctx context.Context, token string) error {
	defer logging.TraceDuration(u.log, "AuthUC.Logout")()

	revoked, err := u.sessionUC.RevokeByToken(ctx, token)
	if err != nil {
		return err
	}
	if !revoked {
		return domain.ErrUnauthorized
	}
	return u.issuer.Revoke(ctx, token)
}

// LogoutAll deactivates every session the user has and purges their tokens.
func (u *authUC) LogoutAll(ctx context.Context, userID string) error {
	defer logging.TraceDuration(u.log, "AuthUC.LogoutAll")()

	tokens, err := u.sessionUC.RevokeAllForUser(ctx, userID, "")
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	return u.issuer.Revoke(ctx, tokens...)
}

// Refresh rotates the credential: exactly one of any number of concurrent
// refreshes of the same token wins, decided by the conditional deactivation
// of the old session row.
func (u *authUC) Refresh(ctx context.Context, token string, device model.DeviceInfo) (*AuthResult, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Refresh")()

	var (
		result *AuthResult
		issued []string
	)
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := runTx(ctx, u.tm, txOpts, func(ctx context.Context, tx repository.Tx) error {
		old, err := u.sessions.FindByToken(ctx, tx, token)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		if err != nil {
			return err
		}
		if !old.IsActive || old.IsExpired(u.now()) {
			return domain.ErrUnauthorized
		}

		// single-use gate: only the transaction that flips the row refreshes
		ok, err := u.sessions.DeactivateByToken(ctx, tx, token, u.now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnauthorized
		}

		user, err := u.users.FindByID(ctx, tx, old.UserID)
		if err != nil {
			return err
		}

		sessionID := uuid.NewString()
		tok, expiresAt, err := u.issuer.Issue(ctx, user.ID, sessionID)
		if err != nil {
			return err
		}
		issued = append(issued, tok)

		s := model.NewSession(user.ID, tok, device, u.now(), expiresAt)
		s.ID = sessionID
		if err := u.sessions.Insert(ctx, tx, s); err != nil {
			return err
		}

		result = &AuthResult{User: user, Session: s, Token: tok, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		if len(issued) > 0 {
			// token records that outlived their rolled-back sessions
			if rerr := u.issuer.Revoke(ctx, issued...); rerr != nil {
				u.log.Warn().Err(rerr).Msg("failed to revoke orphan tokens after rollback")
			}
		}
		return nil, err
	}

	// drop the spent token plus anything issued by aborted attempts; the
	// winning token is the last one issued
	stale := make([]string, 0, len(issued))
	stale = append(stale, issued[:len(issued)-1]...)
	stale = append(stale, token)
	if rerr := u.issuer.Revoke(ctx, stale...); rerr != nil {
		u.log.Warn().Err(rerr).Msg("failed to revoke refreshed token")
	}

	u.log.Info().Str("user_id", result.User.ID).Msg("token refreshed")
	return result, nil
}

// ChangePassword verifies the current password, stores the new hash and
// forces re-authentication everywhere.
func (u *authUC) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	defer logging.TraceDuration(u.log, "AuthUC.ChangePassword")()

	if newPassword == "" {
		return domain.ErrInvalidArgument
	}

	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return err
	}
	if !u.hasher.Verify(oldPassword, user.PasswordHash) {
		return domain.ErrUnauthorized
	}

	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = u.now()
	if err := u.users.Update(ctx, repository.NoTX, user); err != nil {
		return err
	}

	u.log.Info().Str("user_id", userID).Msg("password changed")
	return u.LogoutAll(ctx, userID)
}
