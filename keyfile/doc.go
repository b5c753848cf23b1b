// Package keyfile implements the binary key-artifact format: an offline,
// self-contained credential a principal presents instead of a password.
//
// # Binary layout
//
// Big-endian, fixed header followed by variable ciphertext:
//
//	MAGIC(8) | VERSION(2) | SALT(32) | IV(16) | TAG(16) | HMAC(32) | CIPHERTEXT
//
// Minimum total size is 107 bytes (header plus at least one ciphertext
// byte). The payload is a JSON claim describing a principal, sealed with
// AES-256-GCM under a key derived from the module master secret and the
// per-artifact salt. A second HMAC-SHA256 over the ciphertext, keyed with a
// domain-separated sub-key, covers the whole credential.
//
// # Architecture boundaries
//
// This package owns the wire format only. Principal lookup, revocation
// checks, and admission policy belong to the Engine.
//
// # What this package must NOT do
//
//   - Import authcore, token, or session (no upward imports).
//   - Trust any payload field before the HMAC and AEAD checks pass.
//   - Accept a caller-supplied artifact identifier.
package keyfile
