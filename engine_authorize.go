package authcore

import (
	"context"
	"errors"

	"github.com/vocalia/authcore/token"
)

// Authorize validates a bearer token and returns the identity it
// proves. The token must verify, be within both its expiry and the
// issued-at ceiling, name a known role, and carry the session id
// currently on the account; the account must exist and be active.
// When allowed roles are given, the identity's role must be among
// them or the result is ErrForbidden.
func (e *Engine) Authorize(ctx context.Context, raw string, allowed ...Role) (*Identity, error) {
	if raw == "" {
		return nil, e.rejectAuthorize(ctx, "", "", ErrTokenMissing)
	}

	claims, err := e.bearer.Parse(raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return nil, e.rejectAuthorize(ctx, "", "", ErrTokenExpired)
		case errors.Is(err, token.ErrTooOld):
			return nil, e.rejectAuthorize(ctx, "", "", ErrTokenTooOld)
		default:
			return nil, e.rejectAuthorize(ctx, "", "", ErrTokenMalformed)
		}
	}

	role := Role(claims.Role)
	store, ok := e.storeFor(role)
	if !ok {
		return nil, e.rejectAuthorize(ctx, claims.Subject, role, ErrTokenMalformed)
	}

	acct, err := store.FindByID(ctx, claims.Subject)
	if err != nil {
		mapped := storeErr(err)
		if errors.Is(mapped, ErrNotFound) {
			return nil, e.rejectAuthorize(ctx, claims.Subject, role, ErrNotFound)
		}
		return nil, mapped
	}

	if !acct.Active {
		return nil, e.rejectAuthorize(ctx, acct.ID, role, ErrAccountDeactivated)
	}
	if acct.SessionID == "" || acct.SessionID != claims.SessionID {
		return nil, e.rejectAuthorize(ctx, acct.ID, role, ErrSessionRevoked)
	}

	if len(allowed) > 0 && !roleAllowed(role, allowed) {
		return nil, e.rejectAuthorize(ctx, acct.ID, role, ErrForbidden)
	}

	e.metricInc(MetricAuthorizeSuccess)
	return &Identity{
		ID:        acct.ID,
		Role:      role,
		Email:     acct.Email,
		Username:  acct.Username,
		SessionID: acct.SessionID,
	}, nil
}

func (e *Engine) rejectAuthorize(ctx context.Context, accountID string, role Role, reason error) error {
	e.metricInc(MetricAuthorizeRejected)
	e.emitAudit(ctx, auditEventAuthorizeRejected, false, accountID, role, "", reason, nil)
	return reason
}

func roleAllowed(role Role, allowed []Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
