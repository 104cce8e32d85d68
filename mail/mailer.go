// Package mail delivers outbound account email. The engine depends on
// the Mailer interface only; deployments bring SMTP or their own
// implementation.
package mail

import "context"

// ResetMessage carries everything a mailer needs to send a
// password-reset email. Token is the full encoded reset token; the
// mailer embeds it in ResetURL when one is configured.
type ResetMessage struct {
	To       string
	Username string
	Token    string
}

// Mailer sends account email. A delivery failure must be returned as
// an error so callers can surface an infrastructure failure distinct
// from credential or validation outcomes.
type Mailer interface {
	SendPasswordReset(ctx context.Context, msg ResetMessage) error
}

// NoOp discards all mail. Useful in tests and in deployments that
// dispatch email through an external pipeline fed by audit events.
type NoOp struct{}

func (NoOp) SendPasswordReset(context.Context, ResetMessage) error { return nil }
