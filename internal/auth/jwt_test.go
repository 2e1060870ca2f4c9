package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService("short", 0); err == nil {
		t.Error("NewTokenService() should reject secrets shorter than 16 chars")
	}

	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want default %v", ts.ttl, DefaultTokenTTL)
	}
}

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Generate() token doesn't look like a JWT: %q", token)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-abc-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != "user-abc-123" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-abc-123")
	}
	if claims.TokenID == "" {
		t.Error("TokenID is empty")
	}
	if until := time.Until(claims.ExpiresAt); until <= 0 || until > time.Hour {
		t.Errorf("ExpiresAt %v is not about an hour away", claims.ExpiresAt)
	}
}

func TestGenerate_EveryTokenHasItsOwnID(t *testing.T) {
	ts := newTestTokenService(t)

	t1, _ := ts.Generate("user-1")
	t2, _ := ts.Generate("user-1")
	c1, err := ts.Validate(t1)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := ts.Validate(t2)
	if err != nil {
		t.Fatal(err)
	}

	if c1.TokenID == c2.TokenID {
		t.Error("two tokens share a jti; revoking one would revoke both")
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)

	expired, _ := ts.GenerateWithDuration("user-123", -time.Second)
	valid, _ := ts.Generate("user-123")
	foreign, _ := other.Generate("user-123")

	tests := map[string]string{
		"expired":      expired,
		"tampered":     valid[:len(valid)-3] + "xxx",
		"wrong secret": foreign,
		"empty":        "",
		"garbage":      "not.a.jwt.token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ts.Validate(token); err == nil {
				t.Errorf("Validate() accepted a %s token", name)
			}
		})
	}
}
