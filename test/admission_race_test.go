//go:build integration
// +build integration

package test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgersec/authcore"
)

type raceProvider struct {
	mu   sync.Mutex
	recs map[string]authcore.Principal
}

func newRaceProvider() *raceProvider {
	return &raceProvider{recs: make(map[string]authcore.Principal)}
}

func (p *raceProvider) put(rec authcore.Principal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs[rec.ID] = rec
}

func (p *raceProvider) GetByID(_ context.Context, id string) (authcore.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.recs[id]
	if !ok {
		return authcore.Principal{}, authcore.ErrPrincipalNotFound
	}
	return rec, nil
}

func (p *raceProvider) GetByName(ctx context.Context, name string) (authcore.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.recs {
		if rec.Name == name {
			return rec, nil
		}
	}
	return authcore.Principal{}, authcore.ErrPrincipalNotFound
}

func (p *raceProvider) UpdatePasswordHash(_ context.Context, id, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec := p.recs[id]
	rec.PasswordHash = hash
	p.recs[id] = rec
	return nil
}

func (p *raceProvider) UpdateArtifact(_ context.Context, id, artifactID string, issuedAt, expiresAt int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec := p.recs[id]
	rec.ArtifactID = artifactID
	rec.ArtifactIssuedAt = issuedAt
	rec.ArtifactExpiresAt = expiresAt
	rec.ArtifactRevoked = false
	p.recs[id] = rec
	return nil
}

func (p *raceProvider) RevokeArtifact(_ context.Context, id string, at int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec := p.recs[id]
	rec.ArtifactRevoked = true
	rec.ArtifactRevokedAt = at
	p.recs[id] = rec
	return nil
}

func (p *raceProvider) RecordLogin(_ context.Context, id string, at int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec := p.recs[id]
	rec.LoginCount++
	rec.LastLoginAt = at
	p.recs[id] = rec
	return nil
}

// Concurrent logins against the Redis-backed store must never leave a
// principal with more live sessions than its device limit.
func TestAdmissionRaceHoldsDeviceLimitOverRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	provider := newRaceProvider()
	provider.put(authcore.Principal{
		ID:          "p-race",
		Name:        "race",
		Role:        authcore.RoleUser,
		DeviceLimit: 2,
		Active:      true,
	})

	engine, err := authcore.New().
		WithConfig(authcore.Config{
			MasterSecret: []byte("0123456789abcdef0123456789abcdef"),
			Audit:        authcore.AuditConfig{Enabled: false},
		}).
		WithRedis(rdb).
		WithPrincipalProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	artifact, err := engine.IssueKeyArtifact(ctx, "p-race", 0)
	if err != nil {
		t.Fatalf("IssueKeyArtifact failed: %v", err)
	}

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(n int) {
			defer wg.Done()
			device := authcore.DeviceInfo{
				UserAgent:  "racer",
				Platform:   "linux",
				Locale:     "en-US",
				Resolution: "800x600",
				Timezone:   "UTC",
			}
			device.UserAgent = device.UserAgent + string(rune('a'+n))
			if _, err := engine.LoginWithKeyFile(ctx, artifact, device); err != nil {
				t.Errorf("login %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	count, err := engine.ActiveSessionCount(ctx, "p-race")
	if err != nil {
		t.Fatalf("ActiveSessionCount failed: %v", err)
	}
	if count > 2 {
		t.Fatalf("live sessions = %d, device limit 2 overshot", count)
	}
	if count == 0 {
		t.Fatal("expected at least one surviving session")
	}
}
