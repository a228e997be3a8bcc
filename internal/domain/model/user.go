package model

import (
	"time"

	"github.com/google/uuid"

	"media-suite-accounts/internal/domain"
)

// User is an account created by redeeming exactly one activation code.
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	Phone          *string
	Email          *string
	ActivationCode string // the code consumed at registration
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewUser(username, passwordHash, activationCode string, now time.Time) (*User, error) {
	if username == "" || passwordHash == "" || activationCode == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:             uuid.NewString(),
		Username:       username,
		PasswordHash:   passwordHash,
		ActivationCode: activationCode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
