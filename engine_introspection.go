package authcore

import (
	"context"
	"time"

	"github.com/ledgersec/authcore/session"
)

// SessionInfo is the safe introspection view for a session.
// It intentionally excludes token material.
type SessionInfo struct {
	SessionID      string
	Fingerprint    string
	UserAgent      string
	Platform       string
	IPAddress      string
	NeverExpires   bool
	CreatedAt      int64
	LastActivityAt int64
	ExpiresAt      int64
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	StoreAvailable bool
	StoreLatency   time.Duration
}

// ActiveSessionCount reports how many live sessions a principal holds.
func (e *Engine) ActiveSessionCount(ctx context.Context, principalID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if principalID == "" {
		return 0, ErrPrincipalNotFound
	}

	active, err := e.store.ActiveForPrincipal(ctx, principalID)
	if err != nil {
		return 0, ErrStoreUnavailable
	}
	return len(active), nil
}

// ListActiveSessions returns the introspection view of every live session
// for a principal, suitable for a "your devices" surface.
func (e *Engine) ListActiveSessions(ctx context.Context, principalID string) ([]SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}

	active, err := e.store.ActiveForPrincipal(ctx, principalID)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	out := make([]SessionInfo, 0, len(active))
	for _, sess := range active {
		out = append(out, toSessionInfo(sess))
	}
	return out, nil
}

// Health pings the session store and reports availability with latency.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.store == nil {
		return HealthStatus{}
	}

	type pinger interface {
		Ping(ctx context.Context) (time.Duration, error)
	}

	if p, ok := e.store.(pinger); ok {
		latency, err := p.Ping(ctx)
		return HealthStatus{StoreAvailable: err == nil, StoreLatency: latency}
	}
	return HealthStatus{StoreAvailable: true}
}

func toSessionInfo(s *session.Session) SessionInfo {
	return SessionInfo{
		SessionID:      s.ID,
		Fingerprint:    s.Fingerprint,
		UserAgent:      s.UserAgent,
		Platform:       s.Platform,
		IPAddress:      s.IPAddress,
		NeverExpires:   s.NeverExpires,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
	}
}
