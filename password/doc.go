// Package password implements salted password hashing and constant-time
// verification for the password login path.
//
// # Output format
//
// Stored forms are two hex fields joined by a colon:
//
//	<salt-hex>:<pbkdf2-sha512-digest-hex>
//
// The salt is 16 random bytes, the digest is 64 bytes, and the round count
// matches the key-derivation cost used for key artifacts.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. The "no password set"
// failure class is distinguished by the Engine, not here.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive
//     stored forms.
//   - Import any other authcore package except seal.
//   - Log plaintext passwords at runtime.
package password
