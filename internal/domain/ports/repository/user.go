package repository

import (
	"context"

	"media-suite-accounts/internal/domain/model"
)

// UserRepository is the port for user persistence.
type UserRepository interface {
	// Insert creates the user. A duplicate username/phone/email surfaces as
	// domain.ErrConflict.
	Insert(ctx context.Context, tx Tx, u *model.User) error
	// Update persists mutable fields of an existing user.
	Update(ctx context.Context, tx Tx, u *model.User) error
	// FindByID returns the user or domain.ErrNotFound.
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// FindByUsername returns the user or domain.ErrNotFound.
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
	// UsernameExists reports whether the username is taken.
	UsernameExists(ctx context.Context, tx Tx, username string) (bool, error)
}
