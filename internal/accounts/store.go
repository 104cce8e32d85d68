package accounts

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound indicates no account matched the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate indicates an email or username uniqueness violation.
	ErrDuplicate = errors.New("duplicate account")
	// ErrResetMismatch indicates a reset token that is absent, expired,
	// or does not match the stored secret. The three cases are
	// deliberately indistinguishable.
	ErrResetMismatch = errors.New("reset token mismatch")
	// ErrUnavailable indicates the store backend is unreachable or the
	// bounded operation timeout elapsed.
	ErrUnavailable = errors.New("account store unavailable")
)

const defaultOpTimeout = 3 * time.Second

// Hash field names of the account record.
const (
	fieldID          = "id"
	fieldRole        = "role"
	fieldEmail       = "email"
	fieldUsername    = "username"
	fieldPassword    = "pwhash"
	fieldAvatar      = "avatar"
	fieldAttempts    = "attempts"
	fieldLockedUntil = "locked_until"
	fieldSession     = "session_id"
	fieldResetHash   = "reset_hash"
	fieldResetExp    = "reset_expires"
	fieldLastLogin   = "last_login"
	fieldActive      = "active"
	fieldCreatedAt   = "created_at"
)

// Store persists one role's account collection in Redis hashes. Each
// mutation is a single command (or one WATCH transaction), so lockout
// counters and combined field updates are atomic at the store level.
// Email and username uniqueness is enforced through SETNX index keys.
type Store struct {
	redis   redis.UniversalClient
	role    Role
	prefix  string
	timeout time.Duration
}

// NewStore creates a Store for one role collection. prefix namespaces
// all keys (e.g. "acct"); timeout bounds each round-trip and falls back
// to 3s when non-positive.
func NewStore(redisClient redis.UniversalClient, role Role, prefix string, timeout time.Duration) *Store {
	if prefix == "" {
		prefix = "acct"
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &Store{
		redis:   redisClient,
		role:    role,
		prefix:  prefix + ":" + strings.ToLower(string(role)),
		timeout: timeout,
	}
}

// Role returns the collection's role tag.
func (s *Store) Role() Role {
	return s.role
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + NormalizeEmail(email)
}

func (s *Store) usernameKey(username string) string {
	return s.prefix + ":uname:" + strings.ToLower(username)
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Create inserts a new account, enforcing email and username
// uniqueness. A zero ID is replaced with a fresh UUID. Returns
// ErrDuplicate when either index key already exists.
func (s *Store) Create(ctx context.Context, a *Account) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Role = s.role
	a.Email = NormalizeEmail(a.Email)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	ok, err := s.redis.SetNX(ctx, s.emailKey(a.Email), a.ID, 0).Result()
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return ErrDuplicate
	}

	ok, err = s.redis.SetNX(ctx, s.usernameKey(a.Username), a.ID, 0).Result()
	if err != nil || !ok {
		_ = s.redis.Del(ctx, s.emailKey(a.Email)).Err()
		if err != nil {
			return unavailable(err)
		}
		return ErrDuplicate
	}

	if err := s.redis.HSet(ctx, s.key(a.ID), encodeAccount(a)).Err(); err != nil {
		_ = s.redis.Del(ctx, s.emailKey(a.Email), s.usernameKey(a.Username)).Err()
		return unavailable(err)
	}
	return nil
}

// FindByEmail resolves the normalized email through the index key and
// loads the account record.
func (s *Store) FindByEmail(ctx context.Context, email string) (*Account, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return s.load(ctx, id)
}

// FindByID loads the account record by its opaque id.
func (s *Store) FindByID(ctx context.Context, id string) (*Account, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.load(ctx, id)
}

func (s *Store) load(ctx context.Context, id string) (*Account, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeAccount(fields)
}

// IncrementFailedAttempts atomically bumps the failed-attempt counter
// and returns the post-increment value. Lock decisions must be made on
// this returned value, never on a separately re-read one.
func (s *Store) IncrementFailedAttempts(ctx context.Context, id string) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.redis.HIncrBy(ctx, s.key(id), fieldAttempts, 1).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// LockUntil places a timed lock on the account.
func (s *Store) LockUntil(ctx context.Context, id string, until time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.HSet(ctx, s.key(id), fieldLockedUntil, until.Unix()).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// ClearLockout resets the failed-attempt counter and removes any lock
// in one command.
func (s *Store) ClearLockout(ctx context.Context, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.HSet(ctx, s.key(id), fieldAttempts, 0, fieldLockedUntil, 0).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// RecordLogin persists the outcome of a successful login: fresh session
// id, last-login timestamp, and cleared lockout state, all in a single
// atomic update.
func (s *Store) RecordLogin(ctx context.Context, id, sessionID string, at time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.redis.HSet(ctx, s.key(id),
		fieldSession, sessionID,
		fieldLastLogin, at.Unix(),
		fieldAttempts, 0,
		fieldLockedUntil, 0,
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// RotateSession replaces the active session id, invalidating any bearer
// token bound to the previous one.
func (s *Store) RotateSession(ctx context.Context, id, sessionID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.requireExists(ctx, id); err != nil {
		return err
	}
	if err := s.redis.HSet(ctx, s.key(id), fieldSession, sessionID).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// SetResetToken stores the reset secret hash and its expiry together.
func (s *Store) SetResetToken(ctx context.Context, id string, hash []byte, expires time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.redis.HSet(ctx, s.key(id),
		fieldResetHash, hex.EncodeToString(hash),
		fieldResetExp, expires.Unix(),
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// ConsumeResetToken validates the provided secret hash against the
// stored one and, in the same transaction, replaces the password hash,
// clears both reset fields, and rotates the session id. A token that is
// absent, expired, or mismatched fails with ErrResetMismatch without
// distinguishing the cases. Concurrent consumption of the same token is
// resolved by the WATCH transaction: exactly one caller wins.
func (s *Store) ConsumeResetToken(ctx context.Context, id string, providedHash []byte, newPasswordHash, newSessionID string, now time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	const maxRetries = 4
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			fields, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				return ErrNotFound
			}
			acct, err := decodeAccount(fields)
			if err != nil {
				return err
			}

			if !acct.HasResetToken() || !acct.ResetExpiresAt.After(now) {
				return ErrResetMismatch
			}
			if subtle.ConstantTimeCompare(acct.ResetTokenHash, providedHash) != 1 {
				return ErrResetMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key,
					fieldPassword, newPasswordHash,
					fieldResetHash, "",
					fieldResetExp, 0,
					fieldSession, newSessionID,
				)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrResetMismatch):
				return err
			default:
				return unavailable(err)
			}
		}
		return nil
	}
	return ErrResetMismatch
}

// SetActive flips the moderation activity flag. Deactivated accounts
// are rejected at the authorization gate even with a valid token.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.requireExists(ctx, id); err != nil {
		return err
	}
	if err := s.redis.HSet(ctx, s.key(id), fieldActive, boolField(active)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// requireExists guards partial HSet updates from materializing a hash
// for an id that was never created.
func (s *Store) requireExists(ctx context.Context, id string) error {
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func encodeAccount(a *Account) map[string]interface{} {
	return map[string]interface{}{
		fieldID:          a.ID,
		fieldRole:        string(a.Role),
		fieldEmail:       a.Email,
		fieldUsername:    a.Username,
		fieldPassword:    a.PasswordHash,
		fieldAvatar:      a.AvatarURL,
		fieldAttempts:    a.FailedAttempts,
		fieldLockedUntil: unixField(a.LockedUntil),
		fieldSession:     a.SessionID,
		fieldResetHash:   hex.EncodeToString(a.ResetTokenHash),
		fieldResetExp:    unixField(a.ResetExpiresAt),
		fieldLastLogin:   unixField(a.LastLoginAt),
		fieldActive:      boolField(a.Active),
		fieldCreatedAt:   unixField(a.CreatedAt),
	}
}

func decodeAccount(fields map[string]string) (*Account, error) {
	a := &Account{
		ID:           fields[fieldID],
		Role:         Role(fields[fieldRole]),
		Email:        fields[fieldEmail],
		Username:     fields[fieldUsername],
		PasswordHash: fields[fieldPassword],
		AvatarURL:    fields[fieldAvatar],
		SessionID:    fields[fieldSession],
		Active:       fields[fieldActive] == "1",
	}

	var err error
	if a.FailedAttempts, err = intField(fields[fieldAttempts]); err != nil {
		return nil, fmt.Errorf("corrupt attempts field: %w", err)
	}
	if a.LockedUntil, err = timeField(fields[fieldLockedUntil]); err != nil {
		return nil, fmt.Errorf("corrupt locked_until field: %w", err)
	}
	if a.ResetExpiresAt, err = timeField(fields[fieldResetExp]); err != nil {
		return nil, fmt.Errorf("corrupt reset_expires field: %w", err)
	}
	if a.LastLoginAt, err = timeField(fields[fieldLastLogin]); err != nil {
		return nil, fmt.Errorf("corrupt last_login field: %w", err)
	}
	if a.CreatedAt, err = timeField(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("corrupt created_at field: %w", err)
	}

	if raw := fields[fieldResetHash]; raw != "" {
		if a.ResetTokenHash, err = hex.DecodeString(raw); err != nil {
			return nil, fmt.Errorf("corrupt reset_hash field: %w", err)
		}
	}
	return a, nil
}

func unixField(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func intField(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func timeField(raw string) (time.Time, error) {
	n, err := intField(raw)
	if err != nil {
		return time.Time{}, err
	}
	if n == 0 {
		return time.Time{}, nil
	}
	return time.Unix(n, 0), nil
}
