package seal

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 round count used for every derived key.
	Iterations = 100_000

	// KeySize is the width of every derived key in bytes (AES-256).
	KeySize = 32

	// SaltSize is the width of the random per-artifact salt in bytes.
	SaltSize = 32
)

// hmacDomain is appended to the salt when deriving the integrity sub-key so
// the encryption key and the HMAC key are never equal for the same salt.
const hmacDomain = "hmac"

// DeriveKey stretches secret with salt into a 32-byte encryption key.
// The derivation is deterministic: the same (secret, salt) pair always
// yields the same key, and independent salts yield independent keys.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, Iterations, KeySize, sha256.New)
}

// DeriveHMACKey derives the integrity sub-key for the same (secret, salt)
// pair. It is domain-separated from DeriveKey by a suffix on the salt.
func DeriveHMACKey(secret, salt []byte) []byte {
	domainSalt := make([]byte, 0, len(salt)+len(hmacDomain))
	domainSalt = append(domainSalt, salt...)
	domainSalt = append(domainSalt, hmacDomain...)
	return pbkdf2.Key(secret, domainSalt, Iterations, KeySize, sha256.New)
}
