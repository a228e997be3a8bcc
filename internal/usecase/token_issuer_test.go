package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"media-suite-accounts/internal/domain"
	"media-suite-accounts/internal/domain/ports/repository"
)

func TestTokenIssuer_IssueVerify(t *testing.T) {
	ctx := context.Background()
	store := newMemTokenStore()
	issuer := NewTokenIssuer(store, time.Hour)

	token, expiresAt, err := issuer.Issue(ctx, "user-1", "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(token) != 43 { // 32 bytes, base64url, no padding
		t.Errorf("token length = %d, want 43", len(token))
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("expiry %v not ~1h out", remaining)
	}

	rec, err := issuer.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rec.UserID != "user-1" || rec.SessionID != "sess-1" {
		t.Errorf("record = %+v, want user-1/sess-1", rec)
	}
	if !rec.ExpiresAt.Equal(expiresAt) {
		t.Errorf("record expiry %v, issued expiry %v", rec.ExpiresAt, expiresAt)
	}
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	issuer := NewTokenIssuer(newMemTokenStore(), time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, _, err := issuer.Issue(ctx, "user-1", "sess-1")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if seen[token] {
			t.Fatal("duplicate token issued")
		}
		seen[token] = true
	}
}

func TestTokenIssuer_Revoke(t *testing.T) {
	ctx := context.Background()
	issuer := NewTokenIssuer(newMemTokenStore(), time.Hour)

	token, _, err := issuer.Issue(ctx, "user-1", "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := issuer.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := issuer.Verify(ctx, token); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("Verify after revoke err = %v, want ErrTokenNotFound", err)
	}

	// idempotent, including unknown tokens and the empty set
	if err := issuer.Revoke(ctx, token, "never-issued"); err != nil {
		t.Errorf("re-Revoke: %v", err)
	}
	if err := issuer.Revoke(ctx); err != nil {
		t.Errorf("Revoke with no tokens: %v", err)
	}
}

func TestTokenIssuer_Prime(t *testing.T) {
	ctx := context.Background()
	store := newMemTokenStore()
	issuer := NewTokenIssuer(store, time.Hour)

	rec := &repository.TokenRecord{
		Token:     "recovered-token",
		UserID:    "user-1",
		SessionID: "sess-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := issuer.Prime(ctx, rec, time.Hour); err != nil {
		t.Fatalf("Prime: %v", err)
	}

	got, err := issuer.Verify(ctx, "recovered-token")
	if err != nil {
		t.Fatalf("Verify after prime: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", got.SessionID)
	}
}
