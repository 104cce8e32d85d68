package authcore

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newAuditedEngine(t *testing.T, sink AuditSink) *Engine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	engine, err := New().WithConfig(cfg).WithRedis(client).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

func TestAudit_LoginFailureEmitsEvent(t *testing.T) {
	sink := NewAuditChannelSink(16)
	engine := newAuditedEngine(t, sink)
	ctx := context.Background()

	if _, err := engine.CreateAccount(ctx, SignupInput{
		Role: RoleUser, Email: "alice@example.com", Username: "alice", Password: "correct-horse-9",
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	engine.Login(WithClientIP(ctx, "10.0.0.9"), RoleUser, "alice@example.com", "wrong")
	engine.Close() // drain the dispatcher

	var failure *AuditEvent
	for done := false; !done; {
		select {
		case ev := <-sink.Events():
			if ev.EventType == auditEventLoginFailure {
				failure = &ev
				done = true
			}
		default:
			done = true
		}
	}
	if failure == nil {
		t.Fatal("expected a login_failure event")
	}
	if failure.Error != string(auditErrInvalidCredentials) || failure.Role != string(RoleUser) {
		t.Fatalf("unexpected event: %+v", failure)
	}
	if failure.IP != "10.0.0.9" {
		t.Fatalf("client IP not propagated: %q", failure.IP)
	}
}

func TestAudit_JSONWriterSinkEmitsLines(t *testing.T) {
	var buf bytes.Buffer
	engine := newAuditedEngine(t, NewAuditJSONWriterSink(&buf))
	ctx := context.Background()

	engine.CreateAccount(ctx, SignupInput{
		Role: RoleUser, Email: "alice@example.com", Username: "alice", Password: "correct-horse-9",
	})
	engine.Close()

	line, err := buf.ReadBytes('\n')
	if err != nil {
		t.Fatalf("expected at least one JSON line: %v", err)
	}
	var ev AuditEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		t.Fatalf("invalid JSON event: %v", err)
	}
	if ev.EventType != auditEventSignupSuccess || !ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestAudit_DisabledEmitsNothing(t *testing.T) {
	env := newTestEngine(t, func(cfg *Config) {
		cfg.Audit.Enabled = false
	})
	env.signup(t, RoleUser, "alice@example.com", "alice", "correct-horse-9")

	if got := env.engine.AuditDropped(); got != 0 {
		t.Fatalf("disabled audit must drop nothing, got %d", got)
	}
	// Close is safe with a nil dispatcher.
	env.engine.Close()
}
