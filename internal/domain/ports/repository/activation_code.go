package repository

import (
	"context"

	"media-suite-accounts/internal/domain/model"
)

// ActivationCodeFilter narrows administrative listings. Nil fields match all.
type ActivationCodeFilter struct {
	Type   *model.CodeType
	Status *model.CodeStatus
}

// ActivationCodeRepository is the port for activation code persistence.
// Implementations running inside a transaction lock selected rows so that
// concurrent redemption of the same code or pool is serialized.
type ActivationCodeRepository interface {
	// Save inserts the code or updates its mutable fields (status, stamps).
	Save(ctx context.Context, tx Tx, code *model.ActivationCode) error
	// FindByCode returns the code or domain.ErrNotFound.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)
	// CodeExists reports whether the opaque code string is already taken.
	CodeExists(ctx context.Context, tx Tx, code string) (bool, error)
	// FindUnused returns up to limit Unused codes of the given type,
	// most-recently-created first.
	FindUnused(ctx context.Context, tx Tx, t model.CodeType, limit int) ([]*model.ActivationCode, error)
	// CountUnused reports the unused inventory for a type.
	CountUnused(ctx context.Context, tx Tx, t model.CodeType) (int, error)
	// List returns codes matching the filter, newest first.
	List(ctx context.Context, tx Tx, filter ActivationCodeFilter, offset, limit int) ([]*model.ActivationCode, error)
}
