//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgersec/authcore/session"
)

// cmdCounter is a go-redis Hook that counts the number of Redis round-trips
// (individual commands and pipeline calls).
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		// Each pipeline call is one network round-trip regardless of command count.
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

// newCountedStore creates a RedisStore backed by miniredis with a cmdCounter
// hook installed. Reset the counter before each measured operation.
func newCountedStore(t *testing.T) (*session.RedisStore, *cmdCounter, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	counter := &cmdCounter{}
	rdb.AddHook(counter)

	store := session.NewRedisStore(rdb, "acs")
	return store, counter, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// Validation is the hot path: reading a session record must stay a single
// Redis command.
func TestRedisBudgetGetIsOneCommand(t *testing.T) {
	ctx := context.Background()
	store, counter, cleanup := newCountedStore(t)
	defer cleanup()

	if err := store.Save(ctx, makeSession("p1", "sid-b1", "fp"), time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	counter.Reset()
	if _, err := store.Get(ctx, "sid-b1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("Get issued %d commands, want 1", got)
	}
}

func TestRedisBudgetSaveStaysBounded(t *testing.T) {
	ctx := context.Background()
	store, counter, cleanup := newCountedStore(t)
	defer cleanup()

	counter.Reset()
	if err := store.Save(ctx, makeSession("p2", "sid-b2", "fp"), time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Record write and index add travel in a single transaction pipeline.
	if got := counter.Pipelines(); got != 1 {
		t.Fatalf("Save used %d round-trips, want 1", got)
	}
}

func TestRedisBudgetTouchStaysBounded(t *testing.T) {
	ctx := context.Background()
	store, counter, cleanup := newCountedStore(t)
	defer cleanup()

	if err := store.Save(ctx, makeSession("p3", "sid-b3", "fp"), time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	counter.Reset()
	if err := store.Touch(ctx, "sid-b3", time.Now()); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	// Watch, read, transactional rewrite (MULTI/SET/EXEC), unwatch.
	if got := counter.Commands(); got > 6 {
		t.Fatalf("Touch issued %d commands, want <= 6", got)
	}
}
