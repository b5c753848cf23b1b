// Package session provides the authoritative session records behind bearer
// tokens: persistence, lazy expiry, idempotent termination with reasons, and
// the per-principal active listing that device-limit admission consults.
//
// # Stores
//
// [Store] is the injected persistence abstraction. [RedisStore] is the
// production implementation, storing records in a compact versioned binary
// format with a per-principal active index set. [MemoryStore] is a
// process-local implementation for tests and single-node deployments.
//
// # Lifecycle
//
// A record is Active until terminated with a [Reason]. Termination is
// idempotent: terminating an already-terminated session is a no-op, and the
// first reason wins. A record whose expiry has passed is treated as inactive
// by every read path without a background sweep; stores may additionally
// reap expired records for storage hygiene.
//
// # Architecture boundaries
//
// This package owns records and stores. It does NOT decrypt bearer tokens,
// verify credentials, or decide eviction. Those belong to the Engine.
//
// # What this package must NOT do
//
//   - Import authcore, keyfile, or token (no upward imports).
//   - Store bearer token plaintext or any credential material.
package session
