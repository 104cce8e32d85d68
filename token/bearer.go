package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Bearer token defaults.
const (
	DefaultTTL    = time.Hour
	DefaultMaxAge = 24 * time.Hour
)

// Structural and temporal rejection reasons for bearer tokens. Callers
// match with errors.Is and translate into their own taxonomy.
var (
	ErrMalformed = errors.New("token malformed")
	ErrExpired   = errors.New("token expired")
	ErrTooOld    = errors.New("token issued too long ago")
)

// Claims is the payload carried by a bearer session token. SessionID
// binds the token to the account's current opaque session id.
type Claims struct {
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// BearerConfig configures the bearer token manager. Secret must be set
// unless AllowEphemeralSecret is true, in which case a random secret is
// generated at construction and every token dies with the process.
type BearerConfig struct {
	Secret []byte
	TTL    time.Duration
	// MaxAge is the issued-at ceiling: tokens whose iat is further in
	// the past are rejected even when their expiry would still hold.
	MaxAge               time.Duration
	Issuer               string
	AllowEphemeralSecret bool
}

// Bearer issues and parses HS256-signed session tokens.
type Bearer struct {
	secret []byte
	ttl    time.Duration
	maxAge time.Duration
	issuer string

	now func() time.Time
}

// NewBearer validates the config and returns a manager. Missing secret
// is a hard construction error so a misconfigured deployment fails at
// startup rather than after issuing unverifiable tokens.
func NewBearer(cfg BearerConfig) (*Bearer, error) {
	secret := cfg.Secret
	if len(secret) == 0 {
		if !cfg.AllowEphemeralSecret {
			return nil, errors.New("token: signing secret required")
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("token: ephemeral secret: %w", err)
		}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	return &Bearer{
		secret: secret,
		ttl:    ttl,
		maxAge: maxAge,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (b *Bearer) TTL() time.Duration { return b.ttl }

// Issue signs a bearer token for the given account. The returned
// duration is the token lifetime, for surfacing to clients.
func (b *Bearer) Issue(role, subjectID, email, sessionID string) (string, time.Duration, error) {
	now := b.now()
	claims := Claims{
		Role:      role,
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    b.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, b.ttl, nil
}

// Parse verifies signature and structure and returns the claims.
// Rejections map onto ErrExpired, ErrTooOld, or ErrMalformed; the
// caller never learns more than the category.
func (b *Bearer) Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	if claims.Subject == "" || claims.Role == "" || claims.SessionID == "" || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}
	if b.now().Sub(claims.IssuedAt.Time) > b.maxAge {
		return nil, ErrTooOld
	}
	return &claims, nil
}
