package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/ledgersec/authcore/seal"
)

const (
	saltLength   = 16
	digestLength = 64
	minPassBytes = 8
)

// ErrMalformedStoredForm is returned when a stored form does not follow the
// salt:digest layout. It never indicates anything about the password itself.
var ErrMalformedStoredForm = errors.New("malformed stored password form")

// Vault hashes and verifies passwords with PBKDF2-SHA512 at the same round
// count used for artifact key derivation.
//
// Vault instances are intended to be configured during initialization and
// then treated as immutable.
type Vault struct {
	iterations int
}

// NewVault returns a [Vault] with the module-wide stretching cost.
func NewVault() *Vault {
	return &Vault{iterations: seal.Iterations}
}

// Hash produces the stored form for a plaintext password. The plaintext is
// used exactly as provided (no Unicode normalization).
func (v *Vault) Hash(plain string) (string, error) {
	if len(plain) < minPassBytes {
		return "", errors.New("password must be at least 8 bytes")
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	digest := pbkdf2.Key([]byte(plain), salt, v.iterations, digestLength, sha512.New)

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(digest), nil
}

// Verify recomputes the digest with the stored salt and compares in constant
// time. A malformed stored form is an error, not a false result, so callers
// can tell corruption apart from a wrong password.
func (v *Vault) Verify(plain, storedForm string) (bool, error) {
	saltHex, digestHex, ok := strings.Cut(storedForm, ":")
	if !ok {
		return false, ErrMalformedStoredForm
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) < saltLength {
		return false, ErrMalformedStoredForm
	}

	stored, err := hex.DecodeString(digestHex)
	if err != nil || len(stored) != digestLength {
		return false, ErrMalformedStoredForm
	}

	computed := pbkdf2.Key([]byte(plain), salt, v.iterations, digestLength, sha512.New)

	return subtle.ConstantTimeCompare(computed, stored) == 1, nil
}
