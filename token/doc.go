// Package token implements the stateless, self-verifying bearer token: an
// encrypted claim set that authorizes requests as a principal until the
// owning session record is terminated.
//
// # Wire format
//
// base64url, no padding, over the binary envelope:
//
//	IV(16) | TAG(16) | CIPHERTEXT
//
// The claim set is JSON, sealed with AES-256-GCM under a token-specific key
// derived once from the module master secret.
//
// # TTL policy
//
// Superadmin tokens receive a multi-decade TTL and a never-expires marker;
// every other role receives the configured default (30 days). The session
// record imposes its own, shorter expiry; the token's expiry is only a
// looser upper bound, and the record is authoritative.
//
// # What this package must NOT do
//
//   - Consult session records; Validate is purely stateless.
//   - Import authcore, keyfile, or session (no upward imports).
package token
