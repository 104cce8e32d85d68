package authcore

import (
	"io"
	"time"

	"github.com/vocalia/authcore/internal/accounts"
	internalaudit "github.com/vocalia/authcore/internal/audit"
)

// Role is the account collection tag. The set is closed.
type Role = accounts.Role

const (
	RoleAdmin = accounts.RoleAdmin
	RoleUser  = accounts.RoleUser
)

// Audit aliases so hosts implement sinks without importing internal
// packages.
type (
	AuditEvent = internalaudit.Event
	AuditSink  = internalaudit.Sink
)

// Re-exported sink constructors.
var (
	NewAuditChannelSink    = internalaudit.NewChannelSink
	NewAuditJSONWriterSink = internalaudit.NewJSONWriterSink
)

// NoOpAuditSink drops audit events.
type NoOpAuditSink = internalaudit.NoOpSink

// Identity is the authenticated principal attached to a request after
// the authorization gate accepts its token.
type Identity struct {
	ID        string
	Role      Role
	Email     string
	Username  string
	SessionID string
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	Identity  Identity
}

// SignupInput is the account-creation request. Avatar is optional;
// when set it is uploaded before the record is created and deleted
// again if creation fails.
type SignupInput struct {
	Role     Role
	Email    string
	Username string
	Password string
	Avatar   *AvatarUpload
}

// AvatarUpload is an avatar object to store during signup.
type AvatarUpload struct {
	Key         string
	ContentType string
	Body        io.Reader
}

// SignupResult reports the created account.
type SignupResult struct {
	ID        string
	Role      Role
	Email     string
	Username  string
	AvatarURL string
}
