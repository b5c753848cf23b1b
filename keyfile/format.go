package keyfile

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ledgersec/authcore/internal"
	"github.com/ledgersec/authcore/seal"
)

// FormatVersion is the only artifact version this codec produces or accepts.
const FormatVersion uint16 = 1

const (
	magicSize   = 8
	versionSize = 2
	hmacSize    = 32

	headerSize = magicSize + versionSize + seal.SaltSize + seal.IVSize + seal.TagSize + hmacSize

	// MinArtifactSize is the header plus at least one ciphertext byte.
	MinArtifactSize = headerSize + 1
)

var magic = [magicSize]byte{'A', 'C', 'O', 'R', 'E', 'K', 'E', 'Y'}

const minSecretBytes = 32

var (
	// ErrMalformed is returned for size, magic, or version failures,
	// meaning the input is not a key artifact at all.
	ErrMalformed = errors.New("malformed key artifact")
	// ErrIntegrity is returned when the HMAC or the AEAD tag does not
	// verify. The artifact is structurally valid but has been altered.
	ErrIntegrity = errors.New("key artifact integrity check failed")
	// ErrExpired is returned when an otherwise valid artifact carries an
	// elapsed expiry and a role that does not bypass expiry.
	ErrExpired = errors.New("key artifact expired")
)

// Codec generates and parses key artifacts under a module master secret.
//
// Codec instances are intended to be configured during initialization and
// then treated as immutable.
type Codec struct {
	secret []byte
}

// NewCodec validates the master secret and returns a [Codec].
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < minSecretBytes {
		return nil, errors.New("keyfile: master secret must be at least 32 bytes")
	}

	owned := make([]byte, len(secret))
	copy(owned, secret)
	return &Codec{secret: owned}, nil
}

// Generate builds a key artifact for the given payload. The embedded
// artifact identifier is freshly generated on every call, so regenerating a
// file for the same principal always invalidates the previous one once the
// principal record is updated. Returns the artifact bytes and the new
// artifact identifier.
func (c *Codec) Generate(p Payload) ([]byte, string, error) {
	if p.PrincipalID == "" {
		return nil, "", errors.New("keyfile: principal id required")
	}
	if !internal.ValidRole(p.Role) {
		return nil, "", errors.New("keyfile: invalid role")
	}

	var exp int64
	if !p.ExpiresAt.IsZero() {
		exp = p.ExpiresAt.Unix()
	}

	artifactID := uuid.NewString()
	claims := Claims{
		PrincipalID: p.PrincipalID,
		Name:        p.Name,
		Email:       p.Email,
		Role:        p.Role,
		DeviceLimit: p.DeviceLimit,
		Permissions: p.Permissions,
		ArtifactID:  artifactID,
		IssuedAt:    time.Now().Unix(),
		ExpiresAt:   exp,
		Version:     FormatVersion,
	}

	plaintext, err := json.Marshal(&claims)
	if err != nil {
		return nil, "", err
	}

	salt := make([]byte, seal.SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, "", err
	}

	encKey := seal.DeriveKey(c.secret, salt)
	iv, ciphertext, tag, err := seal.Seal(plaintext, encKey)
	if err != nil {
		return nil, "", err
	}

	mac := hmac.New(sha256.New, seal.DeriveHMACKey(c.secret, salt))
	mac.Write(ciphertext)

	out := make([]byte, 0, headerSize+len(ciphertext))
	out = append(out, magic[:]...)
	out = binary.BigEndian.AppendUint16(out, FormatVersion)
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, mac.Sum(nil)...)
	out = append(out, ciphertext...)

	return out, artifactID, nil
}

// Parse verifies and decodes a key artifact. Failure modes are distinct for
// logging ([ErrMalformed], [ErrIntegrity], [ErrExpired]) but carry no
// positional detail; the Engine collapses them further at its boundary.
func (c *Codec) Parse(data []byte) (*Claims, error) {
	if len(data) < MinArtifactSize {
		return nil, ErrMalformed
	}

	off := 0
	if !hmac.Equal(data[off:off+magicSize], magic[:]) {
		return nil, ErrMalformed
	}
	off += magicSize

	version := binary.BigEndian.Uint16(data[off : off+versionSize])
	if version != FormatVersion {
		return nil, ErrMalformed
	}
	off += versionSize

	salt := data[off : off+seal.SaltSize]
	off += seal.SaltSize
	iv := data[off : off+seal.IVSize]
	off += seal.IVSize
	tag := data[off : off+seal.TagSize]
	off += seal.TagSize
	storedMAC := data[off : off+hmacSize]
	off += hmacSize
	ciphertext := data[off:]

	mac := hmac.New(sha256.New, seal.DeriveHMACKey(c.secret, salt))
	mac.Write(ciphertext)
	if !hmac.Equal(mac.Sum(nil), storedMAC) {
		return nil, ErrIntegrity
	}

	plaintext, err := seal.Open(iv, ciphertext, tag, seal.DeriveKey(c.secret, salt))
	if err != nil {
		return nil, ErrIntegrity
	}

	var claims Claims
	if err := json.Unmarshal(plaintext, &claims); err != nil {
		return nil, ErrIntegrity
	}
	if claims.Version != FormatVersion {
		return nil, ErrMalformed
	}

	if !internal.NeverExpires(claims.Role) && time.Now().Unix() > claims.ExpiresAt {
		return nil, ErrExpired
	}

	return &claims, nil
}
