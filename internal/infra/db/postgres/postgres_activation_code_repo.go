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

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

type activationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewActivationCodeRepo(pool *pgxpool.Pool) repository.ActivationCodeRepository {
	return &activationCodeRepo{pool: pool}
}

const activationCodeColumns = `id, code, type, status, distributed_at, activated_at, expire_time, created_at, updated_at`

func (r *activationCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	const q = `
INSERT INTO activation_codes (id, code, type, status, distributed_at, activated_at, expire_time, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  distributed_at = EXCLUDED.distributed_at,
  activated_at = EXCLUDED.activated_at,
  expire_time = EXCLUDED.expire_time,
  updated_at = EXCLUDED.updated_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, int(code.Type), int(code.Status),
		code.DistributedAt, code.ActivatedAt, code.ExpireTime, code.CreatedAt, code.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *activationCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	q := `SELECT ` + activationCodeColumns + ` FROM activation_codes WHERE code = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", code)
	if err != nil {
		return nil, err
	}
	return scanActivationCode(row)
}

func (r *activationCodeRepo) CodeExists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM activation_codes WHERE code = $1);`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindUnused selects the newest unused codes of a type. Inside a transaction
// the rows are locked, so two concurrent distributions cannot hand out the
// same code.
func (r *activationCodeRepo) FindUnused(ctx context.Context, tx repository.Tx, t model.CodeType, limit int) ([]*model.ActivationCode, error) {
	q := `SELECT ` + activationCodeColumns + `
  FROM activation_codes
 WHERE type = $1 AND status = $2
 ORDER BY created_at DESC
 LIMIT $3`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	rows, err := pickRows(ctx, r.pool, tx, q+";", int(t), int(model.CodeStatusUnused), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivationCodes(rows)
}

func (r *activationCodeRepo) CountUnused(ctx context.Context, tx repository.Tx, t model.CodeType) (int, error) {
	const q = `SELECT COUNT(*) FROM activation_codes WHERE type = $1 AND status = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, int(t), int(model.CodeStatusUnused))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *activationCodeRepo) List(ctx context.Context, tx repository.Tx, filter repository.ActivationCodeFilter, offset, limit int) ([]*model.ActivationCode, error) {
	q := `SELECT ` + activationCodeColumns + `
  FROM activation_codes
 WHERE ($1::int IS NULL OR type = $1)
   AND ($2::int IS NULL OR status = $2)
 ORDER BY created_at DESC
 OFFSET $3 LIMIT $4;`

	var typeArg, statusArg *int
	if filter.Type != nil {
		v := int(*filter.Type)
		typeArg = &v
	}
	if filter.Status != nil {
		v := int(*filter.Status)
		statusArg = &v
	}
	rows, err := pickRows(ctx, r.pool, tx, q, typeArg, statusArg, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivationCodes(rows)
}

func scanActivationCode(row pgx.Row) (*model.ActivationCode, error) {
	var (
		ac         model.ActivationCode
		typeCode   int
		statusCode int
	)
	err := row.Scan(&ac.ID, &ac.Code, &typeCode, &statusCode,
		&ac.DistributedAt, &ac.ActivatedAt, &ac.ExpireTime, &ac.CreatedAt, &ac.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if ac.Type, err = model.CodeTypeFromCode(typeCode); err != nil {
		return nil, err
	}
	if ac.Status, err = model.CodeStatusFromCode(statusCode); err != nil {
		return nil, err
	}
	return &ac, nil
}

func collectActivationCodes(rows pgx.Rows) ([]*model.ActivationCode, error) {
	var out []*model.ActivationCode
	for rows.Next() {
		ac, err := scanActivationCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}
