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
	"media-suite-accounts/internal/infra/metrics"
)

// Compile-time check
var _ ActivationCodeUseCase = (*activationCodeUC)(nil)

// ActivationCodeUseCase owns the activation code state machine: batches are
// created Unused, handed out as Distributed, redeemed as Activated, retired
// as Invalid. Codes are never deleted.
type ActivationCodeUseCase interface {
	BatchInit(ctx context.Context, t model.CodeType, count int) ([]*model.ActivationCode, error)
	Distribute(ctx context.Context, t model.CodeType, count int) ([]string, error)
	Activate(ctx context.Context, code string) (*model.ActivationCode, error)
	Invalidate(ctx context.Context, code string) error
	GetDistributed(ctx context.Context, code string) (*model.ActivationCode, error)
	GetByCode(ctx context.Context, code string) (*model.ActivationCode, error)
	List(ctx context.Context, filter repository.ActivationCodeFilter, offset, limit int) ([]*model.ActivationCode, error)
	CountUnused(ctx context.Context, t model.CodeType) (int, error)
}

type activationCodeUC struct {
	codes      repository.ActivationCodeRepository
	tm         repository.TransactionManager
	graceHours int
	now        func() time.Time
	log        *zerolog.Logger
}

func NewActivationCodeUseCase(codes repository.ActivationCodeRepository, tm repository.TransactionManager, graceHours int, logger *zerolog.Logger) *activationCodeUC {
	return &activationCodeUC{
		codes:      codes,
		tm:         tm,
		graceHours: graceHours,
		now:        time.Now,
		log:        logger,
	}
}

// generateUniqueCode retries generation until the code string is unclaimed.
func (u *activationCodeUC) generateUniqueCode(ctx context.Context, tx repository.Tx) (string, error) {
	const maxAttempts = 5
	for i := 0; i < maxAttempts; i++ {
		code, err := generateActivationCode()
		if err != nil {
			return "", err
		}
		exists, err := u.codes.CodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.ErrConflict
}

func (u *activationCodeUC) BatchInit(ctx context.Context, t model.CodeType, count int) ([]*model.ActivationCode, error) {
	defer logging.TraceDuration(u.log, "ActivationCodeUC.BatchInit")()

	if count <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	var created []*model.ActivationCode
	err := runTx(ctx, u.tm, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		created = created[:0]
		for i := 0; i < count; i++ {
			str, err := u.generateUniqueCode(ctx, tx)
			if err != nil {
				return err
			}
			code, err := model.NewActivationCode(str, t, u.now())
			if err != nil {
				return err
			}
			if err := u.codes.Save(ctx, tx, code); err != nil {
				return err
			}
			created = append(created, code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().Int("count", len(created)).Str("type", t.Desc()).Msg("activation codes created")
	return created, nil
}

// Distribute atomically moves count unused codes of the type to Distributed,
// newest first. If the inventory is short, nothing is mutated.
func (u *activationCodeUC) Distribute(ctx context.Context, t model.CodeType, count int) ([]string, error) {
	defer logging.TraceDuration(u.log, "ActivationCodeUC.Distribute")()

	if count <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	var out []string
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := runTx(ctx, u.tm, txOpts, func(ctx context.Context, tx repository.Tx) error {
		out = out[:0]
		codes, err := u.codes.FindUnused(ctx, tx, t, count)
		if err != nil {
			return err
		}
		if len(codes) < count {
			return &domain.InsufficientInventoryError{
				TypeDesc:  t.Desc(),
				Requested: count,
				Available: len(codes),
			}
		}
		now := u.now()
		for _, c := range codes {
			if err := c.Distribute(now); err != nil {
				return err
			}
			if err := u.codes.Save(ctx, tx, c); err != nil {
				return err
			}
			out = append(out, c.Code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncCodeTransition(model.CodeStatusDistributed.Desc())
	u.log.Info().Int("count", len(out)).Str("type", t.Desc()).Msg("activation codes distributed")
	return out, nil
}

func (u *activationCodeUC) Activate(ctx context.Context, code string) (*model.ActivationCode, error) {
	defer logging.TraceDuration(u.log, "ActivationCodeUC.Activate")()

	var activated *model.ActivationCode
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := runTx(ctx, u.tm, txOpts, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.codes.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := c.Activate(u.now(), u.graceHours); err != nil {
			return err
		}
		if err := u.codes.Save(ctx, tx, c); err != nil {
			return err
		}
		activated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncCodeTransition(model.CodeStatusActivated.Desc())
	u.log.Info().Str("code", code).Time("expire_time", *activated.ExpireTime).Msg("activation code activated")
	return activated, nil
}

func (u *activationCodeUC) Invalidate(ctx context.Context, code string) error {
	defer logging.TraceDuration(u.log, "ActivationCodeUC.Invalidate")()

	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := runTx(ctx, u.tm, txOpts, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.codes.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := c.Invalidate(u.now()); err != nil {
			return err
		}
		return u.codes.Save(ctx, tx, c)
	})
	if err != nil {
		return err
	}

	metrics.IncCodeTransition(model.CodeStatusInvalid.Desc())
	u.log.Info().Str("code", code).Msg("activation code invalidated")
	return nil
}

// GetDistributed returns the code only when it is redeemable.
func (u *activationCodeUC) GetDistributed(ctx context.Context, code string) (*model.ActivationCode, error) {
	c, err := u.codes.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CodeStatusDistributed {
		return nil, domain.ErrInvalidState
	}
	return c, nil
}

func (u *activationCodeUC) GetByCode(ctx context.Context, code string) (*model.ActivationCode, error) {
	return u.codes.FindByCode(ctx, repository.NoTX, code)
}

func (u *activationCodeUC) List(ctx context.Context, filter repository.ActivationCodeFilter, offset, limit int) ([]*model.ActivationCode, error) {
	return u.codes.List(ctx, repository.NoTX, filter, offset, limit)
}

func (u *activationCodeUC) CountUnused(ctx context.Context, t model.CodeType) (int, error) {
	return u.codes.CountUnused(ctx, repository.NoTX, t)
}

// IsInsufficientInventory is a convenience for boundary layers.
func IsInsufficientInventory(err error) bool {
	var iie *domain.InsufficientInventoryError
	return errors.As(err, &iie)
}
