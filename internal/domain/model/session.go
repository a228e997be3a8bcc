package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceInfo captures the request attributes a session is labeled with.
// The fingerprint is auditing metadata, never an authentication factor.
type DeviceInfo struct {
	DeviceID   string // one-way fingerprint of normalized UA + IP
	DeviceName string
	UserAgent  string
	IPAddress  string
}

// Session is the durable record of one authenticated device login.
// At most one session per user is active at any instant.
type Session struct {
	ID             string
	UserID         string
	Token          string
	DeviceID       string
	DeviceName     string
	UserAgent      string
	IPAddress      string
	IsActive       bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

func NewSession(userID, token string, device DeviceInfo, now, expiresAt time.Time) *Session {
	ip := device.IPAddress
	if ip == "" {
		ip = "unknown"
	}
	return &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Token:          token,
		DeviceID:       device.DeviceID,
		DeviceName:     device.DeviceName,
		UserAgent:      device.UserAgent,
		IPAddress:      ip,
		IsActive:       true,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      expiresAt,
	}
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ShouldCleanup reports whether a reader finding this row may remove it.
func (s *Session) ShouldCleanup(now time.Time) bool {
	return !s.IsActive || s.IsExpired(now)
}
