package authcore

import (
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBuilder_RequiresRedis(t *testing.T) {
	cfg := testConfig()
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("Build must fail without a redis client")
	}
}

func TestBuilder_DefaultsCollaborators(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	engine, err := New().WithConfig(testConfig()).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if engine.mailer == nil || engine.media == nil {
		t.Fatal("mailer and media storage must default to no-ops")
	}
	if engine.Metrics() == nil || !engine.Metrics().Enabled() {
		t.Fatal("metrics must be on with the test config")
	}
}

func TestBuilder_RejectsInvalidConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	cfg.JWT.Secret = []byte("short")
	if _, err := New().WithConfig(cfg).WithRedis(client).Build(); err == nil {
		t.Fatal("Build must reject a short JWT secret")
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.JWT.Secret = nil },
			wantErr: "JWT.Secret required",
		},
		{
			name: "ephemeral secret opt-in",
			mutate: func(c *Config) {
				c.JWT.Secret = nil
				c.JWT.AllowEphemeralSecret = true
			},
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.JWT.Secret = []byte("tooshort") },
			wantErr: "at least 32 bytes",
		},
		{
			name: "ttl beyond issuance ceiling",
			mutate: func(c *Config) {
				c.JWT.TTL = 48 * time.Hour
				c.JWT.MaxTokenAge = 24 * time.Hour
			},
			wantErr: "must not exceed",
		},
		{
			name:    "negative lock duration",
			mutate:  func(c *Config) { c.Lockout.LockDuration = -time.Minute },
			wantErr: "Lockout",
		},
		{
			name:    "negative reset ttl",
			mutate:  func(c *Config) { c.Reset.TokenTTL = -time.Hour },
			wantErr: "Reset.TokenTTL",
		},
		{
			name:   "defaults with secret are valid",
			mutate: func(c *Config) {},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JWT.Secret = testSecret
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
