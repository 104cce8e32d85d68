package authcore

import (
	"errors"
	"fmt"
	"time"
)

// Category sentinels. Every error returned by the Engine matches
// exactly one of these with errors.Is; hosts map them onto HTTP status
// codes without inspecting messages.
var (
	// ErrValidation covers structurally unusable input: empty fields,
	// unknown roles, undersized passwords. No store access happened.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is the single answer for both unknown
	// identifier and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked means the lockout window is active.
	ErrAccountLocked = errors.New("account locked")

	// ErrUnauthorized is the base for every authorization-gate
	// rejection. Specific reasons below all match it with errors.Is.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the identity is valid but its role does not
	// grant the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means a referenced account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAccount means the email or username is taken.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrStoreUnavailable means the account store could not be
	// reached; the operation had no authoritative outcome.
	ErrStoreUnavailable = errors.New("account store unavailable")

	// ErrMailDelivery means outbound email could not be handed off.
	ErrMailDelivery = errors.New("mail delivery failed")

	// ErrLoginRateLimited means the boundary throttle rejected the
	// attempt before any credential work.
	ErrLoginRateLimited = errors.New("login rate limited")
)

// Unauthorized reasons. Each wraps ErrUnauthorized, so callers can
// branch on the category or, when they need to, the precise cause.
var (
	ErrTokenMissing       = fmt.Errorf("%w: token missing", ErrUnauthorized)
	ErrTokenMalformed     = fmt.Errorf("%w: token malformed", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrTokenTooOld        = fmt.Errorf("%w: token issued too long ago", ErrUnauthorized)
	ErrSessionRevoked     = fmt.Errorf("%w: session revoked", ErrUnauthorized)
	ErrAccountDeactivated = fmt.Errorf("%w: account deactivated", ErrUnauthorized)

	// ErrResetTokenInvalid is the single answer for a reset token that
	// is malformed, unknown, expired, or already consumed.
	ErrResetTokenInvalid = fmt.Errorf("%w: reset token invalid", ErrUnauthorized)
)

// Validation reasons.
var (
	ErrRoleInvalid   = fmt.Errorf("%w: unknown role", ErrValidation)
	ErrPasswordShort = fmt.Errorf("%w: password below minimum length", ErrValidation)
	ErrPasswordReuse = fmt.Errorf("%w: new password must differ from the current one", ErrValidation)
)

// LockedError carries how long the active lock still holds. It matches
// ErrAccountLocked with errors.Is.
type LockedError struct {
	Retry time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.Retry)
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// CredentialsError is the failed-login answer for an existing account.
// Attempts is the consecutive failure count after this attempt, for
// hosts that surface it. It matches ErrInvalidCredentials.
type CredentialsError struct {
	Attempts int64
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (attempt %d)", e.Attempts)
}

func (e *CredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
