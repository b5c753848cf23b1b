package authcore

import "errors"

var (
	// ErrUnauthorized is the uniform boundary failure for every credential
	// or token check. Callers never learn which check failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned when a password login fails for any
	// reason other than password login being disabled.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordLoginDisabled is returned when a principal has no stored
	// password form. Deliberately distinct from ErrInvalidCredentials so
	// operators can tell the two failure classes apart.
	ErrPasswordLoginDisabled = errors.New("password login disabled for principal")
	// ErrArtifactInvalid is the uniform boundary failure for malformed,
	// tampered, or expired key artifacts.
	ErrArtifactInvalid = errors.New("invalid key artifact")
	// ErrArtifactRevoked is returned when admission is attempted with a
	// revoked key artifact.
	ErrArtifactRevoked = errors.New("key artifact revoked")
	// ErrPrincipalNotFound is returned by operations addressing a missing
	// principal record.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrPrincipalDisabled is returned when a deactivated principal attempts
	// any authenticated operation.
	ErrPrincipalDisabled = errors.New("principal disabled")
	// ErrSessionNotFound is the stateful check failure: the token may be
	// cryptographically valid but has no live session record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the session record behind a token
	// has passed its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrPasswordPolicy is returned when a new password fails policy checks.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned when a password change supplies the
	// current password as the new one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrSessionInvalidationFailed is returned when a revocation or password
	// change cascade could not terminate the principal's sessions.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrStoreUnavailable is returned when the session store cannot be
	// reached. Validation fails closed in that case.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called before
	// the Builder assembled all dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)
