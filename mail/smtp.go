package mail

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig configures the SMTP mailer. ResetURL, when set, is the
// template the token is substituted into via the {token} placeholder;
// otherwise the raw token is included in the body.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ResetURL string
}

// SMTP sends account email over an authenticated SMTP connection.
type SMTP struct {
	cfg    SMTPConfig
	client *gomail.Client
}

// NewSMTP validates the config and prepares a client. The connection
// is dialed per send, not held open.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("mail: host and from address required")
	}

	opts := []gomail.Option{
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
	}
	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: smtp client: %w", err)
	}
	return &SMTP{cfg: cfg, client: client}, nil
}

// SendPasswordReset delivers the reset email. Errors are returned
// verbatim for the caller to classify as infrastructure failures.
func (s *SMTP) SendPasswordReset(ctx context.Context, msg ResetMessage) error {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("mail: to: %w", err)
	}
	m.Subject("Reset your password")
	m.SetBodyString(gomail.TypeTextPlain, s.resetBody(msg))

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}

func (s *SMTP) resetBody(msg ResetMessage) string {
	var b strings.Builder
	name := msg.Username
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("We received a request to reset your password.\n\n")
	if s.cfg.ResetURL != "" {
		fmt.Fprintf(&b, "Reset it here: %s\n\n",
			strings.ReplaceAll(s.cfg.ResetURL, "{token}", msg.Token))
	} else {
		fmt.Fprintf(&b, "Your reset token: %s\n\n", msg.Token)
	}
	b.WriteString("The link expires in one hour. If you did not request this, you can ignore this email.\n")
	return b.String()
}
