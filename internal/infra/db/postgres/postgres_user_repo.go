package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"media-suite-accounts/internal/domain"
	"media-suite-accounts/internal/domain/model"
	"media-suite-accounts/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepo{pool: pool}
}

const userColumns = `id, username, password_hash, phone, email, activation_code, created_at, updated_at`

func (r *userRepo) Insert(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, username, password_hash, phone, email, activation_code, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.Username, u.PasswordHash, u.Phone, u.Email, u.ActivationCode, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *userRepo) Update(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
UPDATE users
   SET username = $2, password_hash = $3, phone = $4, email = $5, updated_at = $6
 WHERE id = $1;
`
	tag, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Username, u.PasswordHash, u.Phone, u.Email, u.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", username)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) UsernameExists(ctx context.Context, tx repository.Tx, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1);`
	row, err := pickRow(ctx, r.pool, tx, q, username)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Phone, &u.Email, &u.ActivationCode, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
