// Package authcore provides a credential and session security engine with
// encrypted key-file artifacts, a password vault, sealed bearer tokens, and
// device-bound session management over a Redis-backed store.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (MetricsSnapshot, SessionInfo, etc.). The cryptographic primitives live in seal/,
// the artifact and token formats in keyfile/ and token/, the vault in password/,
// and the session store in session/.
//
// # What this package must NOT do
//
//   - Expose key material, session encodings, or store internals in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports authcore (no import cycles).
//
// # Failure contract
//
// Credential checks fail closed and collapse into uniform boundary errors;
// the distinct failure mode is visible only in the audit stream. Session
// state checks (not found, expired) stay distinct because the caller needs
// them to drive re-authentication.
package authcore
