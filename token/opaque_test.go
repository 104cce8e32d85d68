package token

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestNewOpaque_UniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewOpaque()
		if err != nil {
			t.Fatalf("NewOpaque failed: %v", err)
		}
		if len(tok) != 43 { // 32 bytes, base64url, no padding
			t.Fatalf("unexpected length %d", len(tok))
		}
		if seen[tok] {
			t.Fatal("duplicate opaque token")
		}
		seen[tok] = true
	}
}

func TestResetToken_Roundtrip(t *testing.T) {
	accountID := uuid.NewString()
	secret, err := NewResetSecret()
	if err != nil {
		t.Fatalf("NewResetSecret failed: %v", err)
	}

	encoded, err := EncodeResetToken(accountID, secret)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	gotID, gotSecret, err := DecodeResetToken(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if gotID != accountID {
		t.Fatalf("account id mismatch: %s != %s", gotID, accountID)
	}
	if !bytes.Equal(gotSecret[:], secret[:]) {
		t.Fatal("secret mismatch")
	}
}

func TestEncodeResetToken_RejectsNonUUID(t *testing.T) {
	var secret [32]byte
	if _, err := EncodeResetToken("not-a-uuid", secret); err == nil {
		t.Fatal("expected error for non-uuid account id")
	}
}

func TestDecodeResetToken_RejectsMalformed(t *testing.T) {
	for _, tok := range []string{"", "!!!", "dG9vLXNob3J0"} {
		if _, _, err := DecodeResetToken(tok); err == nil {
			t.Fatalf("expected error for %q", tok)
		}
	}
}

func TestHashResetSecret_Deterministic(t *testing.T) {
	secret, _ := NewResetSecret()
	if !bytes.Equal(HashResetSecret(secret), HashResetSecret(secret)) {
		t.Fatal("hash must be deterministic")
	}

	other, _ := NewResetSecret()
	if bytes.Equal(HashResetSecret(secret), HashResetSecret(other)) {
		t.Fatal("different secrets must hash differently")
	}
}
