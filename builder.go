package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vocalia/authcore/internal/accounts"
	"github.com/vocalia/authcore/internal/lockout"
	"github.com/vocalia/authcore/internal/rate"
	"github.com/vocalia/authcore/mail"
	"github.com/vocalia/authcore/media"
	"github.com/vocalia/authcore/password"
	"github.com/vocalia/authcore/token"
)

// Builder assembles an Engine. Collaborators without a With call fall
// back to safe defaults (no-op mailer and media storage, no audit
// sink); the Redis client is the only hard requirement.
type Builder struct {
	cfg     Config
	redis   redis.UniversalClient
	mailer  mail.Mailer
	storage media.Storage
	sink    AuditSink
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithRedis sets the client backing the account stores and the
// boundary throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMailer sets the outbound email implementation.
func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

// WithMediaStorage sets the avatar object store.
func (b *Builder) WithMediaStorage(s media.Storage) *Builder {
	b.storage = s
	return b
}

// WithAuditSink sets where audit events are delivered.
func (b *Builder) WithAuditSink(s AuditSink) *Builder {
	b.sink = s
	return b
}

// Build validates the configuration and wires the Engine. Misconfig
// fails here, at startup, never at request time.
func (b *Builder) Build() (*Engine, error) {
	if b.redis == nil {
		return nil, errors.New("authcore: redis client required")
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.cfg.Password.Params)
	if err != nil {
		return nil, err
	}

	bearer, err := token.NewBearer(token.BearerConfig{
		Secret:               b.cfg.JWT.Secret,
		TTL:                  b.cfg.JWT.TTL,
		MaxAge:               b.cfg.JWT.MaxTokenAge,
		Issuer:               b.cfg.JWT.Issuer,
		AllowEphemeralSecret: b.cfg.JWT.AllowEphemeralSecret,
	})
	if err != nil {
		return nil, err
	}

	stores := make(map[Role]*accounts.Store, 2)
	for _, role := range []Role{RoleAdmin, RoleUser} {
		stores[role] = accounts.NewStore(b.redis, role, b.cfg.Store.KeyPrefix, b.cfg.Store.OpTimeout)
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = mail.NoOp{}
	}
	storage := b.storage
	if storage == nil {
		storage = media.NoOp{}
	}

	return &Engine{
		cfg:    b.cfg,
		stores: stores,
		hasher: hasher,
		bearer: bearer,
		policy: lockout.New(b.cfg.Lockout.Threshold, b.cfg.Lockout.LockDuration),
		limiter: rate.New(b.redis, rate.Config{
			Enabled:     b.cfg.Rate.Enabled,
			PerIP:       b.cfg.Rate.PerIP,
			MaxAttempts: b.cfg.Rate.MaxAttempts,
			Window:      b.cfg.Rate.Window,
		}),
		mailer:  mailer,
		media:   storage,
		audit:   newAuditDispatcher(b.cfg.Audit, b.sink),
		metrics: NewMetrics(b.cfg.Metrics),
		now:     time.Now,
	}, nil
}
