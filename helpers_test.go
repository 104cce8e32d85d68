package authcore

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vocalia/authcore/mail"
	"github.com/vocalia/authcore/password"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// cheapParams keeps argon2id fast in tests while staying above the
// hasher floors.
func cheapParams() password.Params {
	return password.Params{
		MemoryKB:    8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Params = cheapParams()
	return cfg
}

// recordingMailer captures outbound reset messages.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.ResetMessage
	fail error
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, msg mail.ResetMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no reset mail sent")
	}
	return m.sent[len(m.sent)-1].Token
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeStorage fakes the avatar store and tracks compensation.
type fakeStorage struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func newFakeStorage() *fakeStorage { return &fakeStorage{} }

func (s *fakeStorage) Upload(_ context.Context, key, _ string, _ io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, key)
	return "https://media.test/" + key, nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

type testEnv struct {
	engine  *Engine
	redis   *miniredis.Miniredis
	mailer  *recordingMailer
	storage *fakeStorage
}

// newTestEngine builds an engine on miniredis with a recording mailer
// and fake media storage. mutate adjusts the config before Build.
func newTestEngine(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mailer := &recordingMailer{}
	storage := newFakeStorage()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithMailer(mailer).
		WithMediaStorage(storage).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, redis: mr, mailer: mailer, storage: storage}
}

// advance shifts the engine clock without touching the wall clock.
func (env *testEnv) advance(d time.Duration) {
	prev := env.engine.now
	env.engine.now = func() time.Time { return prev().Add(d) }
}

func (env *testEnv) signup(t *testing.T, role Role, email, username, pass string) string {
	t.Helper()
	res, err := env.engine.CreateAccount(context.Background(), SignupInput{
		Role:     role,
		Email:    email,
		Username: username,
		Password: pass,
	})
	if err != nil {
		t.Fatalf("CreateAccount(%s/%s) failed: %v", role, email, err)
	}
	return res.ID
}
