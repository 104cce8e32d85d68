package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateAccount_Success(t *testing.T) {
	env := newTestEngine(t, nil)

	res, err := env.engine.CreateAccount(context.Background(), SignupInput{
		Role:     RoleUser,
		Email:    "Alice@Example.com",
		Username: "alice",
		Password: "correct-horse-9",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if res.ID == "" {
		t.Fatal("expected generated account id")
	}
	if res.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", res.Email)
	}
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()
	env.signup(t, RoleUser, "alice@example.com", "alice", "correct-horse-9")

	_, err := env.engine.CreateAccount(ctx, SignupInput{
		Role:     RoleUser,
		Email:    "ALICE@example.com",
		Username: "alice2",
		Password: "correct-horse-9",
	})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestCreateAccount_DuplicateUsername(t *testing.T) {
	env := newTestEngine(t, nil)
	env.signup(t, RoleUser, "alice@example.com", "alice", "correct-horse-9")

	_, err := env.engine.CreateAccount(context.Background(), SignupInput{
		Role:     RoleUser,
		Email:    "other@example.com",
		Username: "alice",
		Password: "correct-horse-9",
	})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestCreateAccount_ValidationErrors(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SignupInput
		want error
	}{
		{"unknown role", SignupInput{Role: "GUEST", Email: "a@b.c", Username: "a", Password: "long-enough-1"}, ErrRoleInvalid},
		{"missing email", SignupInput{Role: RoleUser, Username: "a", Password: "long-enough-1"}, ErrValidation},
		{"missing username", SignupInput{Role: RoleUser, Email: "a@b.c", Password: "long-enough-1"}, ErrValidation},
		{"short password", SignupInput{Role: RoleUser, Email: "a@b.c", Username: "a", Password: "short"}, ErrPasswordShort},
	}
	for _, tc := range cases {
		if _, err := env.engine.CreateAccount(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateAccount_AvatarUploadedAndRecorded(t *testing.T) {
	env := newTestEngine(t, nil)

	res, err := env.engine.CreateAccount(context.Background(), SignupInput{
		Role:     RoleUser,
		Email:    "alice@example.com",
		Username: "alice",
		Password: "correct-horse-9",
		Avatar:   &AvatarUpload{ContentType: "image/png", Body: strings.NewReader("png-bytes")},
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if res.AvatarURL == "" {
		t.Fatal("expected avatar URL on the created account")
	}
	if len(env.storage.uploaded) != 1 {
		t.Fatalf("expected one upload, got %d", len(env.storage.uploaded))
	}
	if len(env.storage.deleted) != 0 {
		t.Fatal("successful signup must not delete the avatar")
	}
}

func TestCreateAccount_DuplicateCompensatesAvatar(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()
	env.signup(t, RoleUser, "alice@example.com", "alice", "correct-horse-9")

	_, err := env.engine.CreateAccount(ctx, SignupInput{
		Role:     RoleUser,
		Email:    "alice@example.com",
		Username: "alice-two",
		Password: "correct-horse-9",
		Avatar:   &AvatarUpload{Key: "avatars/dupe", ContentType: "image/png", Body: strings.NewReader("png-bytes")},
	})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}

	if len(env.storage.deleted) != 1 || env.storage.deleted[0] != "avatars/dupe" {
		t.Fatalf("uploaded avatar must be deleted on conflict, deleted=%v", env.storage.deleted)
	}
}

func TestCreateAccount_SameEmailAcrossRoles(t *testing.T) {
	env := newTestEngine(t, nil)
	env.signup(t, RoleUser, "root@example.com", "user-root", "correct-horse-9")
	env.signup(t, RoleAdmin, "root@example.com", "admin-root", "correct-horse-9")
}

func TestSetAccountActive_Roundtrip(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()
	id := env.signup(t, RoleUser, "alice@example.com", "alice", "correct-horse-9")

	if err := env.engine.SetAccountActive(ctx, RoleUser, id, false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := env.engine.Login(ctx, RoleUser, "alice@example.com", "correct-horse-9"); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}

	if err := env.engine.SetAccountActive(ctx, RoleUser, id, true); err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if _, err := env.engine.Login(ctx, RoleUser, "alice@example.com", "correct-horse-9"); err != nil {
		t.Fatalf("login after reactivation failed: %v", err)
	}
}

func TestSetAccountActive_UnknownAccount(t *testing.T) {
	env := newTestEngine(t, nil)

	err := env.engine.SetAccountActive(context.Background(), RoleUser, "missing-id", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
