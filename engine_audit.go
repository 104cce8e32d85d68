package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginLocked         = "login_locked"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventLogout              = "logout"
	auditEventSignupSuccess       = "signup_success"
	auditEventSignupDuplicate     = "signup_duplicate"
	auditEventSignupFailure       = "signup_failure"
	auditEventResetRequest        = "password_reset_request"
	auditEventResetConfirm        = "password_reset_confirm"
	auditEventAuthorizeRejected   = "authorize_rejected"
	auditEventAccountStatusChange = "account_status_change"
)

type auditErrorCode string

const (
	auditErrValidation         auditErrorCode = "validation"
	auditErrInvalidCredentials auditErrorCode = "invalid_credentials"
	auditErrAccountLocked      auditErrorCode = "account_locked"
	auditErrUnauthorized       auditErrorCode = "unauthorized"
	auditErrForbidden          auditErrorCode = "forbidden"
	auditErrNotFound           auditErrorCode = "not_found"
	auditErrDuplicate          auditErrorCode = "duplicate"
	auditErrRateLimited        auditErrorCode = "rate_limited"
	auditErrUnavailable        auditErrorCode = "backend_unavailable"
	auditErrMailDelivery       auditErrorCode = "mail_delivery"
	auditErrInternal           auditErrorCode = "internal_error"
)

// emitAudit builds and enqueues one event. metadataBuilder is a
// closure so disabled audit costs no map allocation.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	role Role,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Role:      string(role),
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := classifyAuditError(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func classifyAuditError(err error) auditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrDuplicateAccount):
		return auditErrDuplicate
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrMailDelivery):
		return auditErrMailDelivery
	default:
		return auditErrInternal
	}
}
