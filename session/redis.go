package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production [Store]: records live under a key prefix with
// a physical TTL, and a per-principal set indexes the sessions admission and
// introspection need to enumerate.
//
//	Performance: Save 2 commands, Get 1–3, Terminate 1–3.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] backed by the given client. prefix
// sets the key namespace.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "acs"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisStore) principalKey(principalID string) string {
	return s.prefix + ":p:" + principalID
}

// Save persists a record and adds it to the principal index.
func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if ttl < 0 {
		ttl = 0
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.principalKey(sess.PrincipalID), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Get fetches and decodes a record. An Active record whose expiry has
// lapsed is flipped to the expired terminal state before being returned, so
// no read path ever observes an expired session as live.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if sess.Active && !sess.NeverExpires && time.Now().Unix() > sess.ExpiresAt {
		if err := s.transition(ctx, sess, ReasonExpired); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

// ActiveForPrincipal enumerates the principal index and returns the records
// that are still live, lazily flipping and unindexing any that expired.
func (s *RedisStore) ActiveForPrincipal(ctx context.Context, principalID string) ([]*Session, error) {
	ids, err := s.redis.SMembers(ctx, s.principalKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := time.Now()
	live := make([]*Session, 0, len(ids))
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				// Record physically reaped; drop the stale index entry.
				_ = s.redis.SRem(ctx, s.principalKey(principalID), ids[i]).Err()
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, cmdErr)
		}

		sess, decErr := Decode(data)
		if decErr != nil {
			return nil, decErr
		}

		if sess.Active && !sess.NeverExpires && now.Unix() > sess.ExpiresAt {
			if err := s.transition(ctx, sess, ReasonExpired); err != nil {
				return nil, err
			}
			continue
		}
		if !sess.Live(now) {
			continue
		}

		live = append(live, sess)
	}

	return live, nil
}

// Touch refreshes the last-activity timestamp in place, preserving the
// record's remaining physical TTL. Best-effort: a record that changes under
// the touch loses the timestamp update, never its state.
//
// The write is conditional on the record not changing between read and
// write (WATCH). A plain read-modify-write here could re-encode a record
// that a concurrent Terminate just flipped, resurrecting a terminated
// session; timestamp refreshes must never be able to undo a termination.
func (s *RedisStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	key := s.key(sessionID)

	var decodeErr error
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}

		sess, err := Decode(data)
		if err != nil {
			decodeErr = err
			return err
		}
		if !sess.Active {
			return nil
		}
		sess.LastActivityAt = at.Unix()

		out, err := Encode(sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil), errors.Is(err, redis.TxFailedErr):
		// Record gone or changed mid-touch; drop the update.
		return nil
	case decodeErr != nil:
		return decodeErr
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// Terminate flips a record to a terminal state and removes it from the
// principal index. Idempotent: a missing or already-terminated record is a
// no-op, and the first reason wins.
func (s *RedisStore) Terminate(ctx context.Context, sessionID string, reason Reason) error {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return err
	}
	if !sess.Active {
		return nil
	}

	return s.transition(ctx, sess, reason)
}

// TerminateAllForPrincipal terminates every live session in the principal
// index.
//
// ATOMICITY NOTE: not fully atomic. A session admitted between the index
// read and the per-record writes is not captured by this call. The Engine
// serializes admission per principal, which closes that window for the
// revocation and logout-all cascades that matter here.
func (s *RedisStore) TerminateAllForPrincipal(ctx context.Context, principalID string, reason Reason) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.principalKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	terminated := 0
	for _, id := range ids {
		data, getErr := s.redis.Get(ctx, s.key(id)).Bytes()
		if getErr != nil {
			if errors.Is(getErr, redis.Nil) {
				continue
			}
			return terminated, fmt.Errorf("%w: %v", ErrUnavailable, getErr)
		}

		sess, decErr := Decode(data)
		if decErr != nil {
			return terminated, decErr
		}
		if !sess.Active {
			continue
		}

		if err := s.transition(ctx, sess, reason); err != nil {
			return terminated, err
		}
		terminated++
	}

	if err := s.redis.Del(ctx, s.principalKey(principalID)).Err(); err != nil {
		return terminated, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return terminated, nil
}

// Ping returns a point-in-time store availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *RedisStore) transition(ctx context.Context, sess *Session, reason Reason) error {
	sess.Active = false
	sess.Reason = reason

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	pttl, err := s.redis.PTTL(ctx, s.key(sess.ID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if pttl == -2 {
		// Physically reaped between read and write; nothing to keep.
		return nil
	}
	if pttl < 0 {
		pttl = 0
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, pttl)
		pipe.SRem(ctx, s.principalKey(sess.PrincipalID), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func (s *RedisStore) writePreservingTTL(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	key := s.key(sess.ID)
	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if pttl == -2 {
		return nil
	}
	if pttl < 0 {
		pttl = 0
	}

	if err := s.redis.Set(ctx, key, data, pttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
