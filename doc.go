// Package authcore is the authentication and account-lockout core for
// a role-partitioned REST backend: credential verification with a
// fixed lockout policy, opaque session ids carried inside signed
// bearer tokens, a single-use password-reset flow, signup with
// compensating avatar cleanup, and the authorization gate the HTTP
// layer mounts in front of protected routes.
//
// Engine methods are safe for concurrent use after [Builder.Build].
// Every error the Engine returns matches exactly one category
// sentinel (ErrValidation, ErrInvalidCredentials, ErrAccountLocked,
// ErrUnauthorized, ErrForbidden, ErrNotFound, ErrDuplicateAccount,
// ErrStoreUnavailable) under errors.Is, so hosts map outcomes to
// status codes without parsing messages.
package authcore
