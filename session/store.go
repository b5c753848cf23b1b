package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a session ID.
var ErrNotFound = errors.New("session not found")

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("session store unavailable")

// Store is the injected persistence abstraction for session records.
// Implementations must make Terminate idempotent and must treat expired
// records as inactive on every read path. They are NOT required to
// serialize admission; the Engine holds a per-principal lock around the
// count/evict/insert sequence.
type Store interface {
	// Save persists a new record. ttl bounds the record's physical
	// lifetime in the store; ttl <= 0 means the record never expires
	// physically (superadmin sessions).
	Save(ctx context.Context, s *Session, ttl time.Duration) error

	// Get returns the record for a session ID, flipping it to the
	// expired terminal state first when its expiry has lapsed.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// ActiveForPrincipal returns the principal's live records.
	ActiveForPrincipal(ctx context.Context, principalID string) ([]*Session, error)

	// Touch refreshes the last-activity timestamp. Best-effort:
	// last-writer-wins, and a missing record is not an error.
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// Terminate moves a record to a terminal state. Terminating an
	// already-terminated or missing session is a no-op.
	Terminate(ctx context.Context, sessionID string, reason Reason) error

	// TerminateAllForPrincipal terminates every live record for the
	// principal and reports how many transitions it performed.
	TerminateAllForPrincipal(ctx context.Context, principalID string, reason Reason) (int, error)
}
