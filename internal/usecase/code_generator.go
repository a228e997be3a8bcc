package usecase

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

const (
	seedChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	suffixChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789abcdefghijklmnopqrstuvwxyz"
)

func randomString(chars string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = chars[int(buf[i])%len(chars)]
	}
	return string(buf), nil
}

// generateActivationCode produces a 48-character opaque code: a random
// 32-character seed is hashed with SHA-256, the hex digest hashed again with
// MD5 (32 hex chars), and a 16-character random suffix appended. Uniqueness
// is the caller's problem; it retries on a collision.
func generateActivationCode() (string, error) {
	seed, err := randomString(seedChars, 32)
	if err != nil {
		return "", err
	}

	first := sha256.Sum256([]byte(seed))
	second := md5.Sum([]byte(hex.EncodeToString(first[:])))

	suffix, err := randomString(suffixChars, 16)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(second[:]) + suffix, nil
}
