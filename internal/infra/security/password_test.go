package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Passw0rd1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "Passw0rd1" || hash == "" {
		t.Fatal("hash looks like the plaintext")
	}

	if !h.Verify("Passw0rd1", hash) {
		t.Error("correct password rejected")
	}
	if h.Verify("passw0rd1", hash) {
		t.Error("wrong password accepted")
	}

	// two hashes of the same password differ (random salt)
	hash2, err := h.Hash("Passw0rd1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == hash2 {
		t.Error("expected salted hashes to differ")
	}
}

func TestBcryptHasher_CostClamped(t *testing.T) {
	h := NewBcryptHasher(999)
	if h.cost != bcrypt.DefaultCost {
		t.Errorf("out-of-range cost = %d, want default %d", h.cost, bcrypt.DefaultCost)
	}
}
