package model

import (
	"time"

	"github.com/google/uuid"

	"media-suite-accounts/internal/domain"
)

// CodeType classifies an activation code by the validity window it grants
// once activated.
type CodeType int

const (
	CodeTypeDay CodeType = iota
	CodeTypeMonth
	CodeTypeYear
	CodeTypePermanent
)

type codeTypeMeta struct {
	Desc      string
	ValidDays int
}

// Static code -> metadata table. A century stands in for "permanent".
var codeTypes = map[CodeType]codeTypeMeta{
	CodeTypeDay:       {Desc: "day pass", ValidDays: 1},
	CodeTypeMonth:     {Desc: "month pass", ValidDays: 30},
	CodeTypeYear:      {Desc: "year pass", ValidDays: 365},
	CodeTypePermanent: {Desc: "lifetime pass", ValidDays: 365 * 100},
}

// CodeTypeFromCode converts a stored integer into a CodeType.
func CodeTypeFromCode(code int) (CodeType, error) {
	t := CodeType(code)
	if _, ok := codeTypes[t]; !ok {
		return 0, domain.ErrInvalidArgument
	}
	return t, nil
}

func (t CodeType) Desc() string   { return codeTypes[t].Desc }
func (t CodeType) ValidDays() int { return codeTypes[t].ValidDays }
func (t CodeType) String() string { return codeTypes[t].Desc }

// CodeStatus is the lifecycle state of an activation code.
// Allowed transitions: Unused -> Distributed -> Activated -> Invalid,
// or Distributed -> Invalid. A status never reverts.
type CodeStatus int

const (
	CodeStatusUnused CodeStatus = iota
	CodeStatusDistributed
	CodeStatusActivated
	CodeStatusInvalid
)

var codeStatusDesc = map[CodeStatus]string{
	CodeStatusUnused:      "unused",
	CodeStatusDistributed: "distributed",
	CodeStatusActivated:   "activated",
	CodeStatusInvalid:     "invalid",
}

// CodeStatusFromCode converts a stored integer into a CodeStatus.
func CodeStatusFromCode(code int) (CodeStatus, error) {
	s := CodeStatus(code)
	if _, ok := codeStatusDesc[s]; !ok {
		return 0, domain.ErrInvalidArgument
	}
	return s, nil
}

func (s CodeStatus) Desc() string   { return codeStatusDesc[s] }
func (s CodeStatus) String() string { return codeStatusDesc[s] }

// ActivationCode is a single-use entitlement that gates registration.
// Rows are created in administrative batches and never deleted; the record
// doubles as an audit trail.
type ActivationCode struct {
	ID            string
	Code          string
	Type          CodeType
	Status        CodeStatus
	DistributedAt *time.Time
	ActivatedAt   *time.Time
	ExpireTime    *time.Time // set exactly once, at activation
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewActivationCode returns a fresh Unused code record.
func NewActivationCode(code string, t CodeType, now time.Time) (*ActivationCode, error) {
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, ok := codeTypes[t]; !ok {
		return nil, domain.ErrInvalidArgument
	}
	return &ActivationCode{
		ID:        uuid.NewString(),
		Code:      code,
		Type:      t,
		Status:    CodeStatusUnused,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Distribute moves an Unused code to Distributed and stamps the hand-out time.
func (c *ActivationCode) Distribute(now time.Time) error {
	if c.Status != CodeStatusUnused {
		return domain.ErrInvalidState
	}
	c.Status = CodeStatusDistributed
	at := now
	c.DistributedAt = &at
	c.UpdatedAt = now
	return nil
}

// Activate moves a Distributed code to Activated and computes the expiry:
// activation time + the type's validity window + the configured grace hours.
func (c *ActivationCode) Activate(now time.Time, graceHours int) error {
	if c.Status != CodeStatusDistributed {
		return domain.ErrInvalidState
	}
	c.Status = CodeStatusActivated
	at := now
	c.ActivatedAt = &at
	exp := now.Add(time.Duration(c.Type.ValidDays())*24*time.Hour + time.Duration(graceHours)*time.Hour)
	c.ExpireTime = &exp
	c.UpdatedAt = now
	return nil
}

// Invalidate retires a Distributed or Activated code. Invalid is terminal.
func (c *ActivationCode) Invalidate(now time.Time) error {
	if c.Status != CodeStatusDistributed && c.Status != CodeStatusActivated {
		return domain.ErrInvalidState
	}
	c.Status = CodeStatusInvalid
	c.UpdatedAt = now
	return nil
}

// IsExpired reports whether the validity window has passed. A code that was
// never activated has no expiry and is never expired.
func (c *ActivationCode) IsExpired(now time.Time) bool {
	return c.ExpireTime != nil && now.After(*c.ExpireTime)
}
