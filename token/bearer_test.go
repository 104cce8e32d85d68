package token

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestBearer(t *testing.T) *Bearer {
	t.Helper()
	b, err := NewBearer(BearerConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewBearer failed: %v", err)
	}
	return b
}

func TestBearer_IssueParseRoundtrip(t *testing.T) {
	b := newTestBearer(t)

	signed, ttl, err := b.Issue("USER", "acct-1", "a@b.c", "sess-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if ttl != DefaultTTL {
		t.Fatalf("expected default TTL, got %v", ttl)
	}

	claims, err := b.Parse(signed)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Role != "USER" || claims.Subject != "acct-1" || claims.SessionID != "sess-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestBearer_RequiresSecret(t *testing.T) {
	if _, err := NewBearer(BearerConfig{}); err == nil {
		t.Fatal("expected construction error without secret")
	}
}

func TestBearer_EphemeralSecretOptIn(t *testing.T) {
	b, err := NewBearer(BearerConfig{AllowEphemeralSecret: true})
	if err != nil {
		t.Fatalf("ephemeral construction failed: %v", err)
	}

	signed, _, err := b.Issue("USER", "acct-1", "", "sess-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := b.Parse(signed); err != nil {
		t.Fatalf("self-parse failed: %v", err)
	}
}

func TestBearer_ExpiredToken(t *testing.T) {
	b := newTestBearer(t)
	b.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, _, err := b.Issue("USER", "acct-1", "", "sess-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	b.now = time.Now
	if _, err := b.Parse(signed); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestBearer_IssuedAtCeiling(t *testing.T) {
	b, err := NewBearer(BearerConfig{Secret: testSecret, TTL: 48 * time.Hour, MaxAge: 48 * time.Hour})
	if err != nil {
		t.Fatalf("NewBearer failed: %v", err)
	}
	b.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	signed, _, err := b.Issue("USER", "acct-1", "", "sess-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	parser := newTestBearer(t)
	if _, err := parser.Parse(signed); !errors.Is(err, ErrTooOld) {
		t.Fatalf("expected ErrTooOld, got %v", err)
	}
}

func TestBearer_WrongSecret(t *testing.T) {
	b := newTestBearer(t)
	other, err := NewBearer(BearerConfig{Secret: []byte("ffffffffffffffffffffffffffffffff")})
	if err != nil {
		t.Fatalf("NewBearer failed: %v", err)
	}

	signed, _, err := other.Issue("USER", "acct-1", "", "sess-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := b.Parse(signed); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for wrong signature, got %v", err)
	}
}

func TestBearer_MissingSessionIDRejected(t *testing.T) {
	b := newTestBearer(t)

	signed, _, err := b.Issue("USER", "acct-1", "", "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := b.Parse(signed); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed without sid, got %v", err)
	}
}

func TestBearer_GarbageRejected(t *testing.T) {
	b := newTestBearer(t)
	if _, err := b.Parse("garbage"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
