package authcore

import (
	"context"
	"time"

	"github.com/ledgersec/authcore/internal"
)

// Role describes a public type used by authcore APIs. Roles decide token
// lifetime and session expiry handling: superadmin sessions never expire.
type Role = string

const (
	RoleUser       Role = internal.RoleUser
	RoleAdmin      Role = internal.RoleAdmin
	RoleSuperadmin Role = internal.RoleSuperadmin
)

// Principal describes a public type used by authcore APIs. It is the
// provider-owned identity record the engine reads during admission and
// mutates through the narrow PrincipalProvider update methods.
type Principal struct {
	ID          string
	Name        string
	Email       string
	Role        Role
	Permissions []string

	// DeviceLimit bounds concurrent active sessions. Values outside
	// [1, MaxDeviceLimit] are clamped during admission.
	DeviceLimit int

	// PasswordHash holds the vault stored form. Empty means password
	// login is disabled for this principal.
	PasswordHash string

	// ArtifactID identifies the currently valid key artifact. Artifacts
	// carrying any other ID are rejected at admission.
	ArtifactID        string
	ArtifactIssuedAt  int64
	ArtifactExpiresAt int64
	ArtifactRevoked   bool
	ArtifactRevokedAt int64

	Active      bool
	LoginCount  int64
	LastLoginAt int64
}

// DeviceInfo describes a public type used by authcore APIs. It carries the
// client-reported device signals that feed the fingerprint.
type DeviceInfo struct {
	UserAgent  string
	Platform   string
	Locale     string
	Resolution string
	Timezone   string
	IPAddress  string
}

// CredentialKind describes a public type used by authcore APIs. It records
// which credential path produced an admission, for audit metadata only.
type CredentialKind string

const (
	CredentialKeyFile  CredentialKind = "keyfile"
	CredentialPassword CredentialKind = "password"
)

// Admission describes a public type used by authcore APIs. It is the result
// of a successful login: the bearer token plus its session coordinates.
type Admission struct {
	Token        string
	SessionID    string
	PrincipalID  string
	Role         Role
	ExpiresAt    time.Time
	NeverExpires bool
}

// AuthResult describes a public type used by authcore APIs. It is returned
// by ValidateBearer after both the stateless and stateful checks pass.
type AuthResult struct {
	PrincipalID string
	Name        string
	Role        Role
	Permissions []string
	Fingerprint string
	SessionID   string
}

// PrincipalProvider defines the persistence surface authcore requires from
// the host application. Implementations own the principal records; the
// engine only reads them and applies the narrow mutations below.
//
// All methods must be safe for concurrent use. Lookup methods return
// ErrPrincipalNotFound (or an error wrapping it) for unknown principals.
type PrincipalProvider interface {
	// GetByID returns the principal record for an internal identifier.
	GetByID(ctx context.Context, id string) (Principal, error)

	// GetByName returns the principal record for a login name.
	GetByName(ctx context.Context, name string) (Principal, error)

	// UpdatePasswordHash replaces the stored password form. An empty hash
	// disables password login.
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// UpdateArtifact records a freshly issued key artifact and clears any
	// revocation flag. The previous artifact ID stops matching and is
	// thereby invalidated.
	UpdateArtifact(ctx context.Context, id, artifactID string, issuedAt, expiresAt int64) error

	// RevokeArtifact flags the current artifact as revoked at the given
	// time. The record is flagged, never deleted.
	RevokeArtifact(ctx context.Context, id string, at int64) error

	// RecordLogin updates the principal's activity counters after a
	// successful admission. Failures are logged, not surfaced.
	RecordLogin(ctx context.Context, id string, at int64) error
}
