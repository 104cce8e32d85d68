package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocalia/authcore/internal/accounts"
	"github.com/vocalia/authcore/internal/lockout"
	"github.com/vocalia/authcore/internal/rate"
	"github.com/vocalia/authcore/mail"
	"github.com/vocalia/authcore/media"
	"github.com/vocalia/authcore/password"
	"github.com/vocalia/authcore/token"
)

// Engine is the authentication core. It owns one account store per
// role and exposes the login, logout, signup, password-reset, and
// authorization operations. Construct it with the Builder; the zero
// value is not usable.
type Engine struct {
	cfg     Config
	stores  map[Role]*accounts.Store
	hasher  *password.Hasher
	bearer  *token.Bearer
	policy  *lockout.Policy
	limiter *rate.Limiter
	mailer  mail.Mailer
	media   media.Storage
	audit   *auditDispatcher
	metrics *Metrics

	now func() time.Time
}

// Metrics exposes the engine's counter set.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// MetricsSnapshot copies every counter, for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot { return e.metrics.Snapshot() }

// AuditDropped reports audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 { return e.audit.Dropped() }

// Close shuts down the audit dispatcher after draining its buffer.
func (e *Engine) Close() {
	e.audit.Close()
}

// storeFor dispatches a role to its account store.
func (e *Engine) storeFor(role Role) (*accounts.Store, bool) {
	s, ok := e.stores[role]
	return s, ok
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// storeErr translates store failures into the public taxonomy while
// keeping the cause in the message.
func storeErr(err error) error {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// Login verifies credentials for one role's collection and issues a
// bearer token bound to a freshly rotated session id.
//
// The answer for an unknown identifier and for a wrong password is the
// same ErrInvalidCredentials. Lockout is evaluated before the
// credential comparison and advanced after a mismatch; a store outage
// never counts against the caller's attempt budget.
//
// A deactivated account presenting the correct password is rejected
// with ErrAccountDeactivated and nothing on the record changes: the
// failure counter, any lock, and the session id all stay as they are
// until the account is reactivated.
func (e *Engine) Login(ctx context.Context, role Role, email, pass string) (*LoginResult, error) {
	if !accounts.ValidRole(role) {
		return nil, ErrRoleInvalid
	}
	if email == "" || pass == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	normalized := accounts.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if err := e.limiter.Allow(ctx, string(role), normalized, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", role, "", ErrLoginRateLimited, nil)
			return nil, ErrLoginRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	store, _ := e.storeFor(role)
	acct, err := store.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			// Unknown identifier: no record to count against, same
			// outward answer as a wrong password.
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", role, "", ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err)
	}

	now := e.now()
	decision, err := e.policy.Check(ctx, store, acct.ID, lockout.State{
		FailedAttempts: acct.FailedAttempts,
		LockedUntil:    acct.LockedUntil,
	}, now)
	if err != nil {
		return nil, storeErr(err)
	}
	if !decision.Allowed {
		e.metricInc(MetricLoginLocked)
		lockErr := &LockedError{Retry: decision.Remaining}
		e.emitAudit(ctx, auditEventLoginLocked, false, acct.ID, role, "", lockErr, nil)
		return nil, lockErr
	}

	ok, err := e.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: stored hash unusable: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, e.failLogin(ctx, store, role, acct.ID, normalized, ip, now)
	}

	if !acct.Active {
		e.metricInc(MetricAccountDeactivated)
		e.emitAudit(ctx, auditEventLoginFailure, false, acct.ID, role, "", ErrAccountDeactivated, nil)
		return nil, ErrAccountDeactivated
	}

	sessionID, err := token.NewOpaque()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	if err := store.RecordLogin(ctx, acct.ID, sessionID, now); err != nil {
		return nil, storeErr(err)
	}
	// Throttle state is advisory; a failed reset must not undo a
	// completed login.
	_ = e.limiter.Reset(ctx, string(role), normalized, ip)

	signed, ttl, err := e.bearer.Issue(string(role), acct.ID, acct.Email, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.ID, role, sessionID, nil, nil)

	return &LoginResult{
		Token:     signed,
		ExpiresIn: ttl,
		Identity: Identity{
			ID:        acct.ID,
			Role:      role,
			Email:     acct.Email,
			Username:  acct.Username,
			SessionID: sessionID,
		},
	}, nil
}

// failLogin advances the lockout state for a confirmed mismatch and
// shapes the outward error.
func (e *Engine) failLogin(ctx context.Context, store *accounts.Store, role Role, id, identifier, ip string, now time.Time) error {
	_ = e.limiter.RecordFailure(ctx, string(role), identifier, ip)

	attempts, until, err := e.policy.Fail(ctx, store, id, now)
	if err != nil {
		return storeErr(err)
	}

	if !until.IsZero() {
		e.metricInc(MetricLoginLocked)
		lockErr := &LockedError{Retry: until.Sub(now)}
		e.emitAudit(ctx, auditEventLoginLocked, false, id, role, "", lockErr, func() map[string]string {
			return map[string]string{"attempts": fmt.Sprint(attempts)}
		})
		return lockErr
	}

	e.metricInc(MetricLoginFailure)
	credErr := &CredentialsError{Attempts: attempts}
	e.emitAudit(ctx, auditEventLoginFailure, false, id, role, "", credErr, func() map[string]string {
		return map[string]string{"attempts": fmt.Sprint(attempts)}
	})
	return credErr
}

// Logout rotates the account's session id. Every outstanding bearer
// token bound to the old id fails the gate from this point on.
func (e *Engine) Logout(ctx context.Context, role Role, accountID string) error {
	if !accounts.ValidRole(role) {
		return ErrRoleInvalid
	}
	if accountID == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}

	store, _ := e.storeFor(role)
	fresh, err := token.NewOpaque()
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	if err := store.RotateSession(ctx, accountID, fresh); err != nil {
		return storeErr(err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, accountID, role, "", nil, nil)
	return nil
}
