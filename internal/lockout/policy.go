// Package lockout implements the per-account failed-attempt policy:
// a fixed threshold of consecutive failures places a timed lock on the
// account, and an expired lock is explicitly cleared before any further
// counting. Lockout is strictly per account; per-origin throttling is a
// separate concern handled at the boundary.
package lockout

import (
	"context"
	"time"
)

// Default policy constants. Fixed, no backoff.
const (
	DefaultThreshold    = 3
	DefaultLockDuration = 30 * time.Minute
)

// Counters is the subset of the account store the policy mutates. The
// increment must be the store's native atomic increment-and-return; the
// policy bases the lock decision on its returned value.
type Counters interface {
	IncrementFailedAttempts(ctx context.Context, id string) (int64, error)
	LockUntil(ctx context.Context, id string, until time.Time) error
	ClearLockout(ctx context.Context, id string) error
}

// State is the lockout-relevant slice of an account record.
type State struct {
	FailedAttempts int64
	LockedUntil    time.Time
}

// Decision is the outcome of a pre-credential lock check.
type Decision struct {
	Allowed bool
	// Remaining is how long the active lock still holds, rounded up to
	// the nearest minute. Zero when Allowed.
	Remaining time.Duration
}

// Policy evaluates and advances lockout state for one account at a
// time. Zero-value fields fall back to the defaults.
type Policy struct {
	Threshold    int64
	LockDuration time.Duration
}

// New returns a Policy with the given threshold and lock duration,
// substituting defaults for non-positive values.
func New(threshold int64, lockDuration time.Duration) *Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockDuration
	}
	return &Policy{Threshold: threshold, LockDuration: lockDuration}
}

// Check runs before any credential comparison. An active lock denies
// immediately. An expired lock is cleared (counter and lock together)
// so the attempt starts a fresh window.
func (p *Policy) Check(ctx context.Context, c Counters, id string, s State, now time.Time) (Decision, error) {
	if s.LockedUntil.IsZero() {
		return Decision{Allowed: true}, nil
	}
	if s.LockedUntil.After(now) {
		return Decision{Remaining: RoundUpMinute(s.LockedUntil.Sub(now))}, nil
	}
	if err := c.ClearLockout(ctx, id); err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true}, nil
}

// Fail records a failed credential comparison. The counter is advanced
// with a single atomic increment; when the post-increment value reaches
// the threshold the lock is placed before returning, so concurrent
// failures cannot both observe a pre-lock state. Returns the new
// attempt count and, when the threshold was reached, the lock expiry.
func (p *Policy) Fail(ctx context.Context, c Counters, id string, now time.Time) (attempts int64, lockedUntil time.Time, err error) {
	attempts, err = c.IncrementFailedAttempts(ctx, id)
	if err != nil {
		return 0, time.Time{}, err
	}
	if attempts < p.Threshold {
		return attempts, time.Time{}, nil
	}

	until := now.Add(p.LockDuration)
	if err := c.LockUntil(ctx, id, until); err != nil {
		return attempts, time.Time{}, err
	}
	return attempts, until, nil
}

// Succeed clears the counter and any lock after a successful
// credential comparison. Callers that persist the full login outcome in
// one combined update (session id, last-login, cleared lockout) do not
// need to call this separately.
func (p *Policy) Succeed(ctx context.Context, c Counters, id string) error {
	return c.ClearLockout(ctx, id)
}

// RoundUpMinute rounds a remaining lock duration up to the whole
// minute, the granularity every surface reports lock time in.
func RoundUpMinute(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	m := d / time.Minute
	if d%time.Minute != 0 {
		m++
	}
	return m * time.Minute
}
