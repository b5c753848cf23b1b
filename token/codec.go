package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/ledgersec/authcore/internal"
	"github.com/ledgersec/authcore/seal"
)

// DefaultTTL is the token lifetime for every role below superadmin.
const DefaultTTL = 30 * 24 * time.Hour

// foreverTTL stands in for "never expires" on superadmin tokens. The
// never-expires marker is what Validate actually honors; the timestamp just
// keeps the claim set uniform.
const foreverTTL = 100 * 365 * 24 * time.Hour

const tokenKeySalt = "authcore/session-token/v1"

const minSecretBytes = 32

// Claims is the decrypted content of a bearer token. Anyone holding valid,
// unexpired token bytes is treated as this principal for stateless purposes;
// the Engine additionally requires a live session record before honoring it.
type Claims struct {
	PrincipalID  string   `json:"pid"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Permissions  []string `json:"perms,omitempty"`
	Fingerprint  string   `json:"fp,omitempty"`
	IssuedAt     int64    `json:"iat"`
	ExpiresAt    int64    `json:"exp"`
	NeverExpires bool     `json:"ne,omitempty"`
	TokenID      string   `json:"jti"`
}

// MintInput carries the session-scoped fields for a new token.
type MintInput struct {
	PrincipalID string
	Name        string
	Role        string
	Permissions []string
	Fingerprint string
}

// Codec mints and validates bearer tokens under a key derived from the
// module master secret. Derivation runs once at construction; Mint and
// Validate are cheap after that.
//
// Codec instances are intended to be configured during initialization and
// then treated as immutable.
type Codec struct {
	key []byte
	ttl time.Duration
}

// NewCodec validates the master secret and derives the token key. ttl <= 0
// selects [DefaultTTL].
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) < minSecretBytes {
		return nil, errors.New("token: master secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Codec{
		key: seal.DeriveKey(secret, []byte(tokenKeySalt)),
		ttl: ttl,
	}, nil
}

// Mint serializes the claims with a fresh token ID and role-dependent
// expiry, seals them, and returns the transport-encoded token alongside the
// claims it embedded.
func (c *Codec) Mint(in MintInput) (string, *Claims, error) {
	if in.PrincipalID == "" {
		return "", nil, errors.New("token: principal id required")
	}

	id, err := internal.NewSessionID()
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := &Claims{
		PrincipalID: in.PrincipalID,
		Name:        in.Name,
		Role:        in.Role,
		Permissions: in.Permissions,
		Fingerprint: in.Fingerprint,
		IssuedAt:    now.Unix(),
		TokenID:     id.String(),
	}
	if internal.NeverExpires(in.Role) {
		claims.ExpiresAt = now.Add(foreverTTL).Unix()
		claims.NeverExpires = true
	} else {
		claims.ExpiresAt = now.Add(c.ttl).Unix()
	}

	plaintext, err := json.Marshal(claims)
	if err != nil {
		return "", nil, err
	}

	iv, ciphertext, tag, err := seal.Seal(plaintext, c.key)
	if err != nil {
		return "", nil, err
	}

	raw := make([]byte, 0, seal.IVSize+seal.TagSize+len(ciphertext))
	raw = append(raw, iv...)
	raw = append(raw, tag...)
	raw = append(raw, ciphertext...)

	return base64.RawURLEncoding.EncodeToString(raw), claims, nil
}

// Validate opens the token envelope and checks expiry. It returns nil on
// any failure (malformed encoding, tamper, elapsed expiry) and never
// distinguishes between them. Claims carrying the never-expires marker are
// returned unconditionally.
func (c *Codec) Validate(tokenStr string) *Claims {
	raw, err := base64.RawURLEncoding.DecodeString(tokenStr)
	if err != nil {
		return nil
	}
	if len(raw) <= seal.IVSize+seal.TagSize {
		return nil
	}

	iv := raw[:seal.IVSize]
	tag := raw[seal.IVSize : seal.IVSize+seal.TagSize]
	ciphertext := raw[seal.IVSize+seal.TagSize:]

	plaintext, err := seal.Open(iv, ciphertext, tag, c.key)
	if err != nil {
		return nil
	}

	var claims Claims
	if err := json.Unmarshal(plaintext, &claims); err != nil {
		return nil
	}

	// Every minted token carries a well-formed session ID; claims without
	// one did not come from Mint.
	if _, err := internal.ParseSessionID(claims.TokenID); err != nil {
		return nil
	}

	if claims.NeverExpires {
		return &claims
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return nil
	}

	return &claims
}
