package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local [Store] for tests and single-node
// deployments. It mirrors [RedisStore] semantics, including lazy expiry and
// physical reaping of records past their TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*memoryRecord
	byOwner map[string]map[string]struct{}
}

type memoryRecord struct {
	sess    Session
	reapsAt time.Time // zero means never physically reaped
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*memoryRecord),
		byOwner: make(map[string]map[string]struct{}),
	}
}

// Save persists a copy of the record.
func (s *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &memoryRecord{sess: *sess}
	if ttl > 0 {
		rec.reapsAt = time.Now().Add(ttl)
	}
	s.byID[sess.ID] = rec

	owned, ok := s.byOwner[sess.PrincipalID]
	if !ok {
		owned = make(map[string]struct{})
		s.byOwner[sess.PrincipalID] = owned
	}
	owned[sess.ID] = struct{}{}

	return nil
}

// Get returns a copy of the record, lazily flipping it to the expired
// terminal state when its expiry has lapsed.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(sessionID)
	if !ok {
		return nil, ErrNotFound
	}

	s.expireLocked(rec)

	out := rec.sess
	return &out, nil
}

// ActiveForPrincipal returns copies of the principal's live records.
func (s *MemoryStore) ActiveForPrincipal(_ context.Context, principalID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	live := make([]*Session, 0, len(s.byOwner[principalID]))
	for id := range s.byOwner[principalID] {
		rec, ok := s.lookup(id)
		if !ok {
			delete(s.byOwner[principalID], id)
			continue
		}

		s.expireLocked(rec)
		if !rec.sess.Live(now) {
			continue
		}

		out := rec.sess
		live = append(live, &out)
	}

	return live, nil
}

// Touch refreshes the last-activity timestamp. Missing records are ignored.
func (s *MemoryStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(sessionID)
	if !ok || !rec.sess.Active {
		return nil
	}
	rec.sess.LastActivityAt = at.Unix()

	return nil
}

// Terminate flips a record to a terminal state. Idempotent.
func (s *MemoryStore) Terminate(_ context.Context, sessionID string, reason Reason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(sessionID)
	if !ok || !rec.sess.Active {
		return nil
	}

	s.transitionLocked(rec, reason)
	return nil
}

// TerminateAllForPrincipal terminates every live record owned by the
// principal and reports how many transitions it performed.
func (s *MemoryStore) TerminateAllForPrincipal(_ context.Context, principalID string, reason Reason) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	terminated := 0
	for id := range s.byOwner[principalID] {
		rec, ok := s.lookup(id)
		if !ok {
			delete(s.byOwner[principalID], id)
			continue
		}
		if !rec.sess.Active {
			continue
		}

		s.transitionLocked(rec, reason)
		terminated++
	}

	return terminated, nil
}

// lookup reaps a record past its physical TTL, then returns it if present.
// Callers must hold the write lock.
func (s *MemoryStore) lookup(sessionID string) (*memoryRecord, bool) {
	rec, ok := s.byID[sessionID]
	if !ok {
		return nil, false
	}
	if !rec.reapsAt.IsZero() && time.Now().After(rec.reapsAt) {
		delete(s.byID, sessionID)
		if owned, ok := s.byOwner[rec.sess.PrincipalID]; ok {
			delete(owned, sessionID)
		}
		return nil, false
	}
	return rec, true
}

func (s *MemoryStore) expireLocked(rec *memoryRecord) {
	if rec.sess.Active && !rec.sess.NeverExpires && time.Now().Unix() > rec.sess.ExpiresAt {
		s.transitionLocked(rec, ReasonExpired)
	}
}

func (s *MemoryStore) transitionLocked(rec *memoryRecord, reason Reason) {
	rec.sess.Active = false
	rec.sess.Reason = reason
	if owned, ok := s.byOwner[rec.sess.PrincipalID]; ok {
		delete(owned, rec.sess.ID)
	}
}
