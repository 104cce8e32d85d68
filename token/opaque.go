// Package token provides the two token kinds used by the engine:
// opaque random identifiers (session ids, reset-token secrets) and
// signed bearer session tokens with embedded claims.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const (
	opaqueSize      = 32
	resetSecretSize = 32
	resetTokenSize  = 16 + resetSecretSize // uuid bytes + secret
)

// NewOpaque returns a 256-bit random identifier, base64url encoded
// without padding. Opaque tokens carry no meaning and are used purely
// as comparison keys.
func NewOpaque() (string, error) {
	var buf [opaqueSize]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

// NewResetSecret returns the random half of a password-reset token.
func NewResetSecret() ([resetSecretSize]byte, error) {
	var secret [resetSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashResetSecret derives the value stored server-side; the raw secret
// only ever travels inside the emailed token.
func HashResetSecret(secret [resetSecretSize]byte) []byte {
	sum := sha256.Sum256(secret[:])
	return sum[:]
}

// EncodeResetToken packs the account id (a UUID) and the reset secret
// into one base64url blob, so consumption can address the account
// record directly without a secondary token index.
func EncodeResetToken(accountID string, secret [resetSecretSize]byte) (string, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return "", err
	}

	var raw [resetTokenSize]byte
	copy(raw[:16], id[:])
	copy(raw[16:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DecodeResetToken splits a reset token back into account id and
// secret. Any structural defect yields a single generic error.
func DecodeResetToken(tok string) (string, [resetSecretSize]byte, error) {
	var secret [resetSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return "", secret, errors.New("invalid reset token")
	}
	if len(raw) != resetTokenSize {
		return "", secret, errors.New("invalid reset token size")
	}

	var id uuid.UUID
	copy(id[:], raw[:16])
	copy(secret[:], raw[16:])
	return id.String(), secret, nil
}
