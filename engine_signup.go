package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vocalia/authcore/internal/accounts"
)

// CreateAccount registers a new account in the role's collection. Any
// avatar is uploaded before the record is written; if the write then
// fails for any reason, including a duplicate email or username, the
// uploaded object is deleted again so no orphan survives the failed
// signup.
func (e *Engine) CreateAccount(ctx context.Context, in SignupInput) (*SignupResult, error) {
	if !accounts.ValidRole(in.Role) {
		return nil, ErrRoleInvalid
	}
	if in.Email == "" || in.Username == "" {
		return nil, fmt.Errorf("%w: email and username required", ErrValidation)
	}
	if len(in.Password) < e.cfg.Password.MinLength {
		return nil, ErrPasswordShort
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var avatarURL, avatarKey string
	if in.Avatar != nil {
		avatarKey = in.Avatar.Key
		if avatarKey == "" {
			avatarKey = "avatars/" + uuid.NewString()
		}
		avatarURL, err = e.media.Upload(ctx, avatarKey, in.Avatar.ContentType, in.Avatar.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: avatar upload: %v", ErrStoreUnavailable, err)
		}
	}

	acct := &accounts.Account{
		Role:         in.Role,
		Email:        accounts.NormalizeEmail(in.Email),
		Username:     in.Username,
		PasswordHash: hash,
		AvatarURL:    avatarURL,
		Active:       true,
		CreatedAt:    e.now(),
	}

	store, _ := e.storeFor(in.Role)
	if err := store.Create(ctx, acct); err != nil {
		e.compensateAvatar(ctx, avatarKey)
		if errors.Is(err, accounts.ErrDuplicate) {
			e.metricInc(MetricSignupDuplicate)
			e.emitAudit(ctx, auditEventSignupDuplicate, false, "", in.Role, "", ErrDuplicateAccount, nil)
			return nil, ErrDuplicateAccount
		}
		e.emitAudit(ctx, auditEventSignupFailure, false, "", in.Role, "", ErrStoreUnavailable, nil)
		return nil, storeErr(err)
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, acct.ID, in.Role, "", nil, nil)

	return &SignupResult{
		ID:        acct.ID,
		Role:      acct.Role,
		Email:     acct.Email,
		Username:  acct.Username,
		AvatarURL: acct.AvatarURL,
	}, nil
}

// compensateAvatar best-effort deletes an uploaded avatar after a
// failed signup. The primary error wins; a failed delete is only
// audited.
func (e *Engine) compensateAvatar(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := e.media.Delete(ctx, key); err != nil {
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", "", err, func() map[string]string {
			return map[string]string{"orphaned_avatar": key}
		})
	}
}

// SetAccountActive flips the moderation flag. Deactivated accounts
// fail both login and the authorization gate until reactivated.
func (e *Engine) SetAccountActive(ctx context.Context, role Role, accountID string, active bool) error {
	if !accounts.ValidRole(role) {
		return ErrRoleInvalid
	}
	if accountID == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}

	store, _ := e.storeFor(role)
	if err := store.SetActive(ctx, accountID, active); err != nil {
		return storeErr(err)
	}

	e.emitAudit(ctx, auditEventAccountStatusChange, true, accountID, role, "", nil, func() map[string]string {
		return map[string]string{"active": fmt.Sprint(active)}
	})
	return nil
}
