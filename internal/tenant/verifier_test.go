package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier("test-secret", "kitabu")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	token, err := v.Mint("tenant-7", time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "tenant-7" {
		t.Fatalf("unexpected tenant id: %s", id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	mint, _ := NewVerifier("secret-a", "")
	check, _ := NewVerifier("secret-b", "")
	token, err := mint.Mint("tenant-7", time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := check.Verify(token); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v, _ := NewVerifier("test-secret", "")
	token, err := v.Mint("tenant-7", -time.Minute)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := v.Verify(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestVerifyRejectsMissingTenant(t *testing.T) {
	v, _ := NewVerifier("test-secret", "")
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(raw); err == nil {
		t.Fatal("expected token without tenant id to fail")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := IDFromContext(ctx); ok {
		t.Fatal("empty context should carry no tenant")
	}
	ctx = ContextWithID(ctx, "tenant-9")
	id, ok := IDFromContext(ctx)
	if !ok || id != "tenant-9" {
		t.Fatalf("unexpected tenant id: %q ok=%v", id, ok)
	}
}
