package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidState       = errors.New("lifecycle transition not permitted")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("entity already exists")
	ErrTokenNotFound      = errors.New("token not found or revoked")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
)

// InsufficientInventoryError reports a distribute request that exceeds the
// unused-code inventory for a type. The pool is left untouched when this is
// returned.
type InsufficientInventoryError struct {
	TypeDesc  string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("not enough unused %s codes: requested %d, available %d", e.TypeDesc, e.Requested, e.Available)
}
