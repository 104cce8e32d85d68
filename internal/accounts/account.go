package accounts

import (
	"strings"
	"time"
)

// Role tags an account collection. The set is closed: every role maps to
// exactly one store, and tokens carrying any other value are rejected
// upstream.
type Role string

const (
	// RoleAdmin is the super-administrator collection.
	RoleAdmin Role = "ADMIN"
	// RoleUser is the end-user collection.
	RoleUser Role = "USER"
)

// ValidRole reports whether r is one of the known account roles.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// Account is the credential-side view of an account record. Profile
// fields owned by other subsystems are not modeled here.
type Account struct {
	ID           string
	Role         Role
	Email        string
	Username     string
	PasswordHash string
	AvatarURL    string

	// Lockout state. LockedUntil is zero when no lock has been placed;
	// a non-zero value in the past means the lock has expired but has
	// not yet been cleared.
	FailedAttempts int64
	LockedUntil    time.Time

	// SessionID is the active opaque session id. Rotated on every
	// successful login and on logout, never reused.
	SessionID string

	// Reset state. Hash and expiry are set and cleared together.
	ResetTokenHash []byte
	ResetExpiresAt time.Time

	LastLoginAt time.Time
	Active      bool
	CreatedAt   time.Time
}

// Locked reports whether the account is under an unexpired lock at now.
func (a *Account) Locked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && a.LockedUntil.After(now)
}

// LockExpired reports whether a previously placed lock has passed.
func (a *Account) LockExpired(now time.Time) bool {
	return !a.LockedUntil.IsZero() && !a.LockedUntil.After(now)
}

// HasResetToken reports whether an unconsumed reset token is stored.
func (a *Account) HasResetToken() bool {
	return len(a.ResetTokenHash) > 0
}

// NormalizeEmail canonicalizes an email address for lookup and
// uniqueness purposes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
