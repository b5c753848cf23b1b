//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgersec/authcore/session"
)

func newIntegrationStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewRedisStore(rdb, "acs")

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func makeSession(principalID, sessionID, fingerprint string) *session.Session {
	now := time.Now()
	return &session.Session{
		ID:             sessionID,
		PrincipalID:    principalID,
		Fingerprint:    fingerprint,
		UserAgent:      "integration/1.0",
		Platform:       "linux",
		Active:         true,
		CreatedAt:      now.Unix(),
		LastActivityAt: now.Unix(),
		ExpiresAt:      now.Add(time.Hour).Unix(),
	}
}
