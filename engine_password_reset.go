package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/vocalia/authcore/internal/accounts"
	"github.com/vocalia/authcore/internal/lockout"
	"github.com/vocalia/authcore/mail"
	"github.com/vocalia/authcore/token"
)

// RequestPasswordReset mints a single-use reset token, stores its hash
// with the configured TTL, and emails the raw token. The outcome for
// an unknown email is indistinguishable from success; only the caller
// of the audit sink learns the difference.
//
// Requesting again before the previous token is used replaces it.
func (e *Engine) RequestPasswordReset(ctx context.Context, role Role, email string) error {
	if !accounts.ValidRole(role) {
		return ErrRoleInvalid
	}
	if email == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}

	store, _ := e.storeFor(role)
	acct, err := store.FindByEmail(ctx, accounts.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			e.metricInc(MetricPasswordResetRequest)
			e.emitAudit(ctx, auditEventResetRequest, true, "", role, "", nil, func() map[string]string {
				return map[string]string{"known_account": "false"}
			})
			return nil
		}
		return storeErr(err)
	}

	secret, err := token.NewResetSecret()
	if err != nil {
		return fmt.Errorf("reset secret: %w", err)
	}
	encoded, err := token.EncodeResetToken(acct.ID, secret)
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}

	expires := e.now().Add(e.cfg.Reset.TokenTTL)
	if err := store.SetResetToken(ctx, acct.ID, token.HashResetSecret(secret), expires); err != nil {
		return storeErr(err)
	}

	if err := e.mailer.SendPasswordReset(ctx, mail.ResetMessage{
		To:       acct.Email,
		Username: acct.Username,
		Token:    encoded,
	}); err != nil {
		e.emitAudit(ctx, auditEventResetRequest, false, acct.ID, role, "", ErrMailDelivery, nil)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, acct.ID, role, "", nil, nil)
	return nil
}

// VerifyResetToken checks a reset token without consuming it, so a
// host can validate the link before showing the new-password form.
func (e *Engine) VerifyResetToken(ctx context.Context, role Role, raw string) error {
	if !accounts.ValidRole(role) {
		return ErrRoleInvalid
	}

	acct, secret, err := e.resolveResetToken(ctx, role, raw)
	if err != nil {
		return err
	}

	now := e.now()
	if !acct.HasResetToken() || !acct.ResetExpiresAt.After(now) {
		return ErrResetTokenInvalid
	}
	if subtle.ConstantTimeCompare(acct.ResetTokenHash, token.HashResetSecret(secret)) != 1 {
		return ErrResetTokenInvalid
	}
	return nil
}

// ConfirmPasswordReset consumes the token and installs the new
// password in one atomic step, rotating the session id so tokens
// issued before the reset stop passing the gate. Expired, unknown,
// and already-consumed tokens all fail identically.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, role Role, raw, newPassword string) error {
	if !accounts.ValidRole(role) {
		return ErrRoleInvalid
	}
	if len(newPassword) < e.cfg.Password.MinLength {
		return ErrPasswordShort
	}

	acct, secret, err := e.resolveResetToken(ctx, role, raw)
	if err != nil {
		return err
	}

	now := e.now()
	if acct.Locked(now) {
		return &LockedError{Retry: lockout.RoundUpMinute(acct.LockedUntil.Sub(now))}
	}

	// Same-password confirmation is rejected before the token is
	// spent, so the caller can retry with a different password.
	same, err := e.hasher.Verify(newPassword, acct.PasswordHash)
	if err == nil && same {
		return ErrPasswordReuse
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	freshSession, err := token.NewOpaque()
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}

	store, _ := e.storeFor(role)
	err = store.ConsumeResetToken(ctx, acct.ID, token.HashResetSecret(secret), newHash, freshSession, now)
	if err != nil {
		if errors.Is(err, accounts.ErrResetMismatch) || errors.Is(err, accounts.ErrNotFound) {
			e.metricInc(MetricPasswordResetConfirmFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, acct.ID, role, "", ErrResetTokenInvalid, nil)
			return ErrResetTokenInvalid
		}
		return storeErr(err)
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, acct.ID, role, "", nil, nil)
	return nil
}

// resolveResetToken decodes the composite token and loads the account
// half. Structural and lookup failures collapse into the same error.
func (e *Engine) resolveResetToken(ctx context.Context, role Role, raw string) (*accounts.Account, [32]byte, error) {
	var zero [32]byte
	if raw == "" {
		return nil, zero, ErrResetTokenInvalid
	}

	accountID, secret, err := token.DecodeResetToken(raw)
	if err != nil {
		return nil, zero, ErrResetTokenInvalid
	}

	store, _ := e.storeFor(role)
	acct, err := store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, zero, ErrResetTokenInvalid
		}
		return nil, zero, storeErr(err)
	}
	return acct, secret, nil
}
