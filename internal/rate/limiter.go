// Package rate implements the optional boundary throttle in front of
// login. It is origin-oriented (identifier and client IP over a fixed
// window) and fully separate from the per-account lockout policy.
package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("rate store unavailable")
)

// Config tunes the login throttle. Disabled by default.
type Config struct {
	Enabled     bool
	PerIP       bool
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts login attempts in Redis with fixed-window semantics.
type Limiter struct {
	redis redis.UniversalClient
	cfg   Config
}

// New returns a Limiter. A nil return means the throttle is disabled
// and all calls pass.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if !cfg.Enabled {
		return nil
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{redis: redisClient, cfg: cfg}
}

// Allow reports whether another attempt for the identifier (and IP,
// when per-IP throttling is on) fits in the current window.
func (l *Limiter) Allow(ctx context.Context, role, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.checkCounter(ctx, identifierKey(role, identifier)); err != nil {
		return err
	}
	if l.cfg.PerIP && ip != "" {
		return l.checkCounter(ctx, ipKey(ip))
	}
	return nil
}

// RecordFailure counts a failed attempt against the window.
func (l *Limiter) RecordFailure(ctx context.Context, role, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if _, err := l.incrementWithTTL(ctx, identifierKey(role, identifier)); err != nil {
		return err
	}
	if l.cfg.PerIP && ip != "" {
		if _, err := l.incrementWithTTL(ctx, ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the window after a successful login.
func (l *Limiter) Reset(ctx context.Context, role, identifier, ip string) error {
	if l == nil {
		return nil
	}
	keys := []string{identifierKey(role, identifier)}
	if l.cfg.PerIP && ip != "" {
		keys = append(keys, ipKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed window: the TTL is set only by the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return count, nil
}

func identifierKey(role, identifier string) string {
	return "rl:login:" + strings.ToLower(role) + ":" + strings.ToLower(identifier)
}

func ipKey(ip string) string {
	return "rl:login:ip:" + ip
}
