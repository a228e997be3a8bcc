package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"media-suite-accounts/internal/domain"
	"media-suite-accounts/internal/domain/model"
	"media-suite-accounts/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) repository.SessionRepository {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, token, device_id, device_name, user_agent, ip_address, is_active, created_at, last_accessed_at, expires_at`

func (r *sessionRepo) Insert(ctx context.Context, tx repository.Tx, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, token, device_id, device_name, user_agent, ip_address, is_active, created_at, last_accessed_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.Token, s.DeviceID, s.DeviceName, s.UserAgent, s.IPAddress,
		s.IsActive, s.CreatedAt, s.LastAccessedAt, s.ExpiresAt)
	if isUniqueViolation(err) {
		// token collision or a second active session for the user
		return domain.ErrConflict
	}
	return err
}

func (r *sessionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 AND is_active`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", userID)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE token = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", token)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

// DeactivateByToken is a conditional flip: only the caller that observes the
// row still active wins. Concurrent refreshers lose here.
func (r *sessionRepo) DeactivateByToken(ctx context.Context, tx repository.Tx, token string, at time.Time) (bool, error) {
	const q = `UPDATE sessions SET is_active = FALSE, last_accessed_at = $2 WHERE token = $1 AND is_active;`
	tag, err := execSQL(ctx, r.pool, tx, q, token, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *sessionRepo) DeactivateAllForUser(ctx context.Context, tx repository.Tx, userID, exceptToken string, at time.Time) ([]string, error) {
	const q = `
UPDATE sessions
   SET is_active = FALSE, last_accessed_at = $3
 WHERE user_id = $1 AND is_active AND ($2 = '' OR token <> $2)
RETURNING token;
`
	rows, err := pickRows(ctx, r.pool, tx, q, userID, exceptToken, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *sessionRepo) Delete(ctx context.Context, tx repository.Tx, sessionID string) error {
	const q = `DELETE FROM sessions WHERE id = $1;`
	// delete-if-exists: concurrent cleaners must not error
	_, err := execSQL(ctx, r.pool, tx, q, sessionID)
	return err
}

func (r *sessionRepo) TouchLastAccessed(ctx context.Context, tx repository.Tx, sessionID string, at time.Time) error {
	const q = `UPDATE sessions SET last_accessed_at = $2 WHERE id = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, sessionID, at)
	return err
}

func (r *sessionRepo) ExtendExpiry(ctx context.Context, tx repository.Tx, sessionID string, until time.Time) error {
	const q = `UPDATE sessions SET expires_at = $2 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, sessionID, until)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `DELETE FROM sessions WHERE expires_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) DeleteInactiveBefore(ctx context.Context, tx repository.Tx, threshold time.Time) (int, error) {
	const q = `DELETE FROM sessions WHERE NOT is_active AND created_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, threshold)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.DeviceID, &s.DeviceName, &s.UserAgent,
		&s.IPAddress, &s.IsActive, &s.CreatedAt, &s.LastAccessedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
