// Package seal provides the key derivation and authenticated encryption
// primitives shared by the key-file format and the bearer token codec.
//
// Keys are stretched with PBKDF2-SHA256 and payloads are sealed with
// AES-256-GCM using a random 16-byte IV per call. Opening is fail-closed:
// any truncated, malformed, or tampered input returns an error before any
// plaintext is surfaced.
package seal
