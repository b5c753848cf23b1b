package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ledgersec/authcore/session"
)

// memoryProvider is a map-backed PrincipalProvider for engine tests.
type memoryProvider struct {
	mu     sync.Mutex
	byID   map[string]Principal
	byName map[string]string
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{
		byID:   make(map[string]Principal),
		byName: make(map[string]string),
	}
}

func (p *memoryProvider) put(rec Principal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[rec.ID] = rec
	p.byName[rec.Name] = rec.ID
}

func (p *memoryProvider) get(id string) Principal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[id]
}

func (p *memoryProvider) GetByID(_ context.Context, id string) (Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[id]
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	return rec, nil
}

func (p *memoryProvider) GetByName(ctx context.Context, name string) (Principal, error) {
	p.mu.Lock()
	id, ok := p.byName[name]
	p.mu.Unlock()
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	return p.GetByID(ctx, id)
}

func (p *memoryProvider) UpdatePasswordHash(_ context.Context, id, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	rec.PasswordHash = hash
	p.byID[id] = rec
	return nil
}

func (p *memoryProvider) UpdateArtifact(_ context.Context, id, artifactID string, issuedAt, expiresAt int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	rec.ArtifactID = artifactID
	rec.ArtifactIssuedAt = issuedAt
	rec.ArtifactExpiresAt = expiresAt
	rec.ArtifactRevoked = false
	rec.ArtifactRevokedAt = 0
	p.byID[id] = rec
	return nil
}

func (p *memoryProvider) RevokeArtifact(_ context.Context, id string, at int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	rec.ArtifactRevoked = true
	rec.ArtifactRevokedAt = at
	p.byID[id] = rec
	return nil
}

func (p *memoryProvider) RecordLogin(_ context.Context, id string, at int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	rec.LoginCount++
	rec.LastLoginAt = at
	p.byID[id] = rec
	return nil
}

func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.MasterSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, provider *memoryProvider) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithStore(session.NewMemoryStore()).
		WithPrincipalProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// seedPrincipal creates an active principal and issues a key artifact so the
// provider record carries a matching artifact ID.
func seedPrincipal(t *testing.T, engine *Engine, provider *memoryProvider, rec Principal) []byte {
	t.Helper()

	if rec.Role == "" {
		rec.Role = RoleUser
	}
	if rec.DeviceLimit == 0 {
		rec.DeviceLimit = 3
	}
	rec.Active = true
	provider.put(rec)

	artifact, err := engine.IssueKeyArtifact(context.Background(), rec.ID, 0)
	if err != nil {
		t.Fatalf("IssueKeyArtifact failed: %v", err)
	}
	return artifact
}

func testDevice(ua string) DeviceInfo {
	return DeviceInfo{
		UserAgent:  ua,
		Platform:   "linux",
		Locale:     "en-US",
		Resolution: "1920x1080",
		Timezone:   "UTC",
		IPAddress:  "198.51.100.7",
	}
}

func waitUnixTick() {
	// Expiry math runs on unix seconds; crossing a second boundary makes
	// "already expired" observable.
	time.Sleep(1100 * time.Millisecond)
}
