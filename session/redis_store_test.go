package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "acs"), mr
}

func storedSession(id, principalID, fingerprint string, createdAt time.Time) *Session {
	return &Session{
		ID:             id,
		PrincipalID:    principalID,
		Fingerprint:    fingerprint,
		UserAgent:      "test-agent",
		Platform:       "linux",
		IPAddress:      "203.0.113.9",
		Active:         true,
		CreatedAt:      createdAt.Unix(),
		LastActivityAt: createdAt.Unix(),
		ExpiresAt:      createdAt.Add(24 * time.Hour).Unix(),
	}
}

func TestRedisSaveGet(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	sess := storedSession("sid-1", "p-1", "fp-1", time.Now())
	if err := store.Save(ctx, sess, 25*time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got != *sess {
		t.Fatalf("record mismatch:\n got %+v\nwant %+v", got, sess)
	}
}

func TestRedisGetMissing(t *testing.T) {
	store, _ := newRedisStoreTest(t)

	if _, err := store.Get(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisLazyExpiryOnGet(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	sess := storedSession("sid-exp", "p-1", "fp-1", time.Now())
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "sid-exp")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("expired session must be flipped inactive on read")
	}
	if got.Reason != ReasonExpired {
		t.Fatalf("expected reason expired, got %q", got.Reason)
	}

	live, err := store.ActiveForPrincipal(ctx, "p-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected no live sessions, got %d", len(live))
	}
}

func TestRedisActiveForPrincipal(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"sid-a", "sid-b", "sid-c"} {
		sess := storedSession(id, "p-1", "fp", now.Add(time.Duration(i)*time.Second))
		if err := store.Save(ctx, sess, 25*time.Hour); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	other := storedSession("sid-other", "p-2", "fp", now)
	if err := store.Save(ctx, other, 25*time.Hour); err != nil {
		t.Fatalf("save other: %v", err)
	}

	live, err := store.ActiveForPrincipal(ctx, "p-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(live) != 3 {
		t.Fatalf("expected 3 live sessions, got %d", len(live))
	}
	for _, sess := range live {
		if sess.PrincipalID != "p-1" {
			t.Fatalf("foreign session leaked: %+v", sess)
		}
	}
}

func TestRedisTerminateIdempotent(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	sess := storedSession("sid-1", "p-1", "fp", time.Now())
	if err := store.Save(ctx, sess, 25*time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Terminate(ctx, "sid-1", ReasonLogout); err != nil {
		t.Fatalf("first terminate: %v", err)
	}
	if err := store.Terminate(ctx, "sid-1", ReasonAdminAction); err != nil {
		t.Fatalf("second terminate: %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("session still active after terminate")
	}
	if got.Reason != ReasonLogout {
		t.Fatalf("first reason must win, got %q", got.Reason)
	}

	// Terminating a missing session is a no-op, not an error.
	if err := store.Terminate(ctx, "absent", ReasonLogout); err != nil {
		t.Fatalf("terminate missing: %v", err)
	}
}

func TestRedisTerminateAllForPrincipal(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"sid-a", "sid-b"} {
		if err := store.Save(ctx, storedSession(id, "p-1", "fp", now), 25*time.Hour); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	n, err := store.TerminateAllForPrincipal(ctx, "p-1", ReasonRevoked)
	if err != nil {
		t.Fatalf("terminate all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 terminations, got %d", n)
	}

	for _, id := range []string{"sid-a", "sid-b"} {
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Active || got.Reason != ReasonRevoked {
			t.Fatalf("%s: got active=%v reason=%q", id, got.Active, got.Reason)
		}
	}

	n, err = store.TerminateAllForPrincipal(ctx, "p-1", ReasonRevoked)
	if err != nil {
		t.Fatalf("second terminate all: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 repeat terminations, got %d", n)
	}
}

func TestRedisTouch(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	created := time.Now().Add(-time.Hour)
	sess := storedSession("sid-1", "p-1", "fp", created)
	sess.ExpiresAt = time.Now().Add(time.Hour).Unix()
	if err := store.Save(ctx, sess, 25*time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	at := time.Now()
	if err := store.Touch(ctx, "sid-1", at); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastActivityAt != at.Unix() {
		t.Fatalf("expected last activity %d, got %d", at.Unix(), got.LastActivityAt)
	}

	// Touching a missing session is best-effort, not an error.
	if err := store.Touch(ctx, "absent", at); err != nil {
		t.Fatalf("touch missing: %v", err)
	}
}

func TestRedisPhysicalReap(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	sess := storedSession("sid-1", "p-1", "fp", time.Now())
	if err := store.Save(ctx, sess, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reap, got %v", err)
	}

	// Stale index entries are dropped on enumeration.
	live, err := store.ActiveForPrincipal(ctx, "p-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected no live sessions, got %d", len(live))
	}
}

// terminateInterceptor fires one Terminate through a separate client right
// before another client's queued transaction is sent, landing it between
// Touch's read and its conditional write.
type terminateInterceptor struct {
	store *RedisStore
	sid   string
	fired atomic.Bool
}

func (h *terminateInterceptor) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *terminateInterceptor) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *terminateInterceptor) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if !h.fired.Swap(true) {
			if err := h.store.Terminate(context.Background(), h.sid, ReasonRevoked); err != nil {
				return err
			}
		}
		return next(ctx, cmds)
	}
}

func TestRedisTouchYieldsToConcurrentTerminate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	plain := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	hooked := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = plain.Close()
		_ = hooked.Close()
	})

	plainStore := NewRedisStore(plain, "acs")
	hooked.AddHook(&terminateInterceptor{store: plainStore, sid: "sid-race"})
	store := NewRedisStore(hooked, "acs")

	ctx := context.Background()
	created := time.Now().Add(-time.Minute)
	sess := storedSession("sid-race", "p-race", "fp-race", created)
	if err := plainStore.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The interceptor revokes the session between Touch's read and its
	// write; the touch must yield, not resurrect the record.
	if err := store.Touch(ctx, "sid-race", time.Now()); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := plainStore.Get(ctx, "sid-race")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("terminated session came back active after a concurrent touch")
	}
	if got.Reason != ReasonRevoked {
		t.Fatalf("reason = %q, want %q", got.Reason, ReasonRevoked)
	}
	if got.LastActivityAt != created.Unix() {
		t.Fatalf("last activity = %d, want untouched %d", got.LastActivityAt, created.Unix())
	}
}

func TestRedisTouchAfterTerminateIsNoOp(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	created := time.Now().Add(-time.Minute)
	if err := store.Save(ctx, storedSession("sid-t", "p-t", "fp-t", created), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Terminate(ctx, "sid-t", ReasonLogout); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	if err := store.Touch(ctx, "sid-t", time.Now()); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := store.Get(ctx, "sid-t")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active || got.Reason != ReasonLogout {
		t.Fatalf("expected terminated record untouched, got active=%v reason=%q", got.Active, got.Reason)
	}
	if got.LastActivityAt != created.Unix() {
		t.Fatalf("last activity = %d, want untouched %d", got.LastActivityAt, created.Unix())
	}
}
