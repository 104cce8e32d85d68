package authcore

import (
	"errors"
	"time"

	"github.com/vocalia/authcore/password"
)

// Config is the full engine configuration. Zero values fall back to
// the defaults below; Validate catches combinations that would only
// fail at request time.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	Reset    ResetConfig
	Store    StoreConfig
	Rate     RateConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig configures bearer token issuance. Secret is required
// unless AllowEphemeralSecret is set; an ephemeral secret invalidates
// every outstanding token on restart, which is acceptable only in
// tests and single-instance development.
type JWTConfig struct {
	Secret               []byte
	TTL                  time.Duration
	MaxTokenAge          time.Duration
	Issuer               string
	AllowEphemeralSecret bool
}

// PasswordConfig carries the argon2id cost profile and the minimum
// accepted password length.
type PasswordConfig struct {
	Params    password.Params
	MinLength int
}

// LockoutConfig tunes the per-account failed-login policy.
type LockoutConfig struct {
	Threshold    int64
	LockDuration time.Duration
}

// ResetConfig tunes the password-reset token lifecycle.
type ResetConfig struct {
	TokenTTL time.Duration
}

// StoreConfig tunes the account store.
type StoreConfig struct {
	KeyPrefix string
	OpTimeout time.Duration
}

// RateConfig tunes the optional boundary login throttle. Off by
// default; the per-account lockout works regardless.
type RateConfig struct {
	Enabled     bool
	PerIP       bool
	MaxAttempts int
	Window      time.Duration
}

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the caller when the
	// buffer is saturated.
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: one-hour tokens
// with a 24-hour issuance ceiling, three attempts then a 30-minute
// lock, one-hour reset tokens.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:         time.Hour,
			MaxTokenAge: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Params:    password.DefaultParams(),
			MinLength: 8,
		},
		Lockout: LockoutConfig{
			Threshold:    3,
			LockDuration: 30 * time.Minute,
		},
		Reset: ResetConfig{
			TokenTTL: time.Hour,
		},
		Store: StoreConfig{
			OpTimeout: 3 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations that would misbehave at request
// time rather than at startup.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) == 0 && !c.JWT.AllowEphemeralSecret {
		return errors.New("authcore: JWT.Secret required (or set AllowEphemeralSecret for non-production use)")
	}
	if len(c.JWT.Secret) > 0 && len(c.JWT.Secret) < 32 {
		return errors.New("authcore: JWT.Secret must be at least 32 bytes")
	}
	if c.JWT.TTL < 0 || c.JWT.MaxTokenAge < 0 {
		return errors.New("authcore: JWT durations must not be negative")
	}
	if c.JWT.MaxTokenAge > 0 && c.JWT.TTL > c.JWT.MaxTokenAge {
		return errors.New("authcore: JWT.TTL must not exceed JWT.MaxTokenAge")
	}
	if c.Password.MinLength < 0 {
		return errors.New("authcore: Password.MinLength must not be negative")
	}
	if c.Lockout.Threshold < 0 || c.Lockout.LockDuration < 0 {
		return errors.New("authcore: Lockout values must not be negative")
	}
	if c.Reset.TokenTTL < 0 {
		return errors.New("authcore: Reset.TokenTTL must not be negative")
	}
	if c.Rate.Enabled && c.Rate.MaxAttempts < 0 {
		return errors.New("authcore: Rate.MaxAttempts must not be negative")
	}
	return nil
}
