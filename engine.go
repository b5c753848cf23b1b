package authcore

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/ledgersec/authcore/internal"
	"github.com/ledgersec/authcore/keyfile"
	"github.com/ledgersec/authcore/password"
	"github.com/ledgersec/authcore/session"
	"github.com/ledgersec/authcore/token"
)

// Engine is the credential and session front door. Construct one with
// [New] and treat it as immutable after Build.
type Engine struct {
	config     Config
	store      session.Store
	tokens     *token.Codec
	artifacts  *keyfile.Codec
	vault      *password.Vault
	provider   PrincipalProvider
	audit      *auditDispatcher
	metrics    *Metrics
	admitLocks *internal.KeyMutex
}

// Close stops the audit dispatcher after draining queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under backpressure.
// Unlike MetricAuditDropped this counts even when metrics are disabled.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters
// and histograms. Exporters read through this.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.tokens != nil && e.artifacts != nil && e.provider != nil
}

// LoginWithKeyFile authenticates a key-file artifact and admits a session.
//
// Every credential failure surfaces as ErrUnauthorized. The distinct failure
// mode (malformed, tampered, expired, revoked, stale artifact ID) is recorded
// in the audit stream, never in the returned error.
func (e *Engine) LoginWithKeyFile(ctx context.Context, artifact []byte, device DeviceInfo) (*Admission, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.artifacts.Parse(artifact)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricArtifactRejected)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrArtifactInvalid, func() map[string]string {
			return map[string]string{
				"credential": string(CredentialKeyFile),
				"mode":       artifactParseMode(err),
			}
		})
		return nil, ErrUnauthorized
	}

	p, err := e.provider.GetByID(ctx, claims.PrincipalID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, claims.PrincipalID, "", ErrPrincipalNotFound, func() map[string]string {
			return map[string]string{"credential": string(CredentialKeyFile)}
		})
		return nil, ErrUnauthorized
	}

	if reason := e.admissionBlock(p, claims.ArtifactID); reason != nil {
		e.metricInc(MetricLoginFailure)
		if errors.Is(reason, ErrArtifactRevoked) {
			e.metricInc(MetricArtifactRejected)
		}
		e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", reason, func() map[string]string {
			return map[string]string{"credential": string(CredentialKeyFile)}
		})
		return nil, ErrUnauthorized
	}

	return e.AdmitSession(ctx, p, device, CredentialKeyFile)
}

// LoginWithPassword authenticates a name and passphrase and admits a
// session.
//
// A principal with no stored password form fails with the distinct
// ErrPasswordLoginDisabled. All other credential failures collapse into
// ErrInvalidCredentials.
func (e *Engine) LoginWithPassword(ctx context.Context, name, passphrase string, device DeviceInfo) (*Admission, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	p, err := e.provider.GetByName(ctx, name)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrPrincipalNotFound, func() map[string]string {
			return map[string]string{"credential": string(CredentialPassword), "name": name}
		})
		return nil, ErrInvalidCredentials
	}

	if p.PasswordHash == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", ErrPasswordLoginDisabled, func() map[string]string {
			return map[string]string{"credential": string(CredentialPassword)}
		})
		return nil, ErrPasswordLoginDisabled
	}

	ok, err := e.vault.Verify(passphrase, p.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"credential": string(CredentialPassword)}
		})
		return nil, ErrInvalidCredentials
	}

	if reason := e.admissionBlock(p, p.ArtifactID); reason != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", reason, func() map[string]string {
			return map[string]string{"credential": string(CredentialPassword)}
		})
		return nil, ErrInvalidCredentials
	}

	return e.AdmitSession(ctx, p, device, CredentialPassword)
}

// admissionBlock reports why a verified credential still may not be admitted.
// artifactID is the ID carried by the presented credential; for password
// logins it is the principal's own current artifact ID, so only the revoked
// and disabled checks bite.
func (e *Engine) admissionBlock(p Principal, artifactID string) error {
	if !p.Active {
		return ErrPrincipalDisabled
	}
	if p.ArtifactRevoked {
		return ErrArtifactRevoked
	}
	if artifactID != p.ArtifactID {
		return ErrArtifactInvalid
	}
	return nil
}

// AdmitSession mints a sealed token and persists the session record for an
// already verified principal, evicting at the device limit first.
//
// Admissions for one principal are serialized on a per-principal lock so the
// count-evict-insert sequence cannot interleave and overshoot the device
// limit.
func (e *Engine) AdmitSession(ctx context.Context, p Principal, device DeviceInfo, kind CredentialKind) (*Admission, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	e.admitLocks.Lock(p.ID)
	defer e.admitLocks.Unlock(p.ID)

	fp := Fingerprint(device)
	now := time.Now().UTC()

	active, err := e.store.ActiveForPrincipal(ctx, p.ID)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	limit := clampDeviceLimit(p.DeviceLimit)
	if len(active) >= limit {
		victim := evictionVictim(active, fp)
		if err := e.store.Terminate(ctx, victim.ID, session.ReasonDeviceLimit); err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, ErrStoreUnavailable
		}
		e.metricInc(MetricSessionEvicted)
		e.emitAudit(ctx, auditEventSessionEvicted, true, p.ID, victim.ID, nil, func() map[string]string {
			return map[string]string{
				"device_limit": strconv.Itoa(limit),
				"fingerprint":  victim.Fingerprint,
			}
		})
	}

	minted, claims, err := e.tokens.Mint(token.MintInput{
		PrincipalID: p.ID,
		Name:        p.Name,
		Role:        p.Role,
		Permissions: p.Permissions,
		Fingerprint: fp,
	})
	if err != nil {
		return nil, err
	}

	sess := session.Session{
		ID:             claims.TokenID,
		PrincipalID:    p.ID,
		Fingerprint:    fp,
		UserAgent:      device.UserAgent,
		Platform:       device.Platform,
		IPAddress:      device.IPAddress,
		Active:         true,
		NeverExpires:   claims.NeverExpires,
		CreatedAt:      now.Unix(),
		LastActivityAt: now.Unix(),
		ExpiresAt:      now.Add(e.config.Session.RecordTTL).Unix(),
	}
	ttl := e.config.Session.RecordTTL + e.config.Session.Retention
	if sess.NeverExpires {
		sess.ExpiresAt = 0
		ttl = 0
	}

	if err := e.store.Save(ctx, &sess, ttl); err != nil {
		return nil, ErrStoreUnavailable
	}

	if err := e.provider.RecordLogin(ctx, p.ID, now.Unix()); err != nil {
		log.Printf("authcore: record login for %s: %v", p.ID, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, p.ID, sess.ID, nil, func() map[string]string {
		return map[string]string{
			"credential":  string(kind),
			"fingerprint": fp,
			"role":        p.Role,
		}
	})

	adm := &Admission{
		Token:        minted,
		SessionID:    sess.ID,
		PrincipalID:  p.ID,
		Role:         p.Role,
		NeverExpires: claims.NeverExpires,
	}
	if !claims.NeverExpires {
		adm.ExpiresAt = time.Unix(claims.ExpiresAt, 0).UTC()
	}
	return adm, nil
}

// ValidateBearer checks a presented bearer token and refreshes the session
// activity timestamp on success.
//
// Validation is two checks in sequence: the stateless token check (decrypt,
// integrity, expiry) and the stateful session check (record exists, active,
// not past expiry). Both must pass.
func (e *Engine) ValidateBearer(ctx context.Context, bearer string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}
	}()

	claims := e.tokens.Validate(bearer)
	if claims == nil {
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventBearerRejected, false, "", "", ErrUnauthorized, func() map[string]string {
			return map[string]string{"check": "token"}
		})
		return nil, ErrUnauthorized
	}

	sess, err := e.store.Get(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricValidateFailure)
			e.emitAudit(ctx, auditEventBearerRejected, false, claims.PrincipalID, claims.TokenID, ErrSessionNotFound, nil)
			return nil, ErrSessionNotFound
		}
		return nil, ErrStoreUnavailable
	}

	if !sess.Active || !sess.Live(time.Now()) {
		e.metricInc(MetricValidateFailure)
		failure := ErrSessionNotFound
		if sess.Reason == session.ReasonExpired || (sess.Active && !sess.Live(time.Now())) {
			failure = ErrSessionExpired
			e.metricInc(MetricSessionExpired)
		}
		e.emitAudit(ctx, auditEventBearerRejected, false, claims.PrincipalID, sess.ID, failure, func() map[string]string {
			return map[string]string{"reason": string(sess.Reason)}
		})
		return nil, failure
	}

	if err := e.store.Touch(ctx, sess.ID, time.Now()); err != nil {
		log.Printf("authcore: touch session %s: %v", sess.ID, err)
	}

	e.metricInc(MetricValidateSuccess)
	return &AuthResult{
		PrincipalID: claims.PrincipalID,
		Name:        claims.Name,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Fingerprint: sess.Fingerprint,
		SessionID:   sess.ID,
	}, nil
}

// Logout terminates the session named by the bearer token.
func (e *Engine) Logout(ctx context.Context, bearer string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	claims := e.tokens.Validate(bearer)
	if claims == nil {
		return ErrUnauthorized
	}

	err := e.terminate(ctx, claims.PrincipalID, claims.TokenID, session.ReasonLogout)
	if err == nil {
		e.metricInc(MetricLogout)
	}
	return err
}

// TerminateSession ends one session by ID, for administrative paths that
// hold no bearer token.
//
// Termination is idempotent: a session already terminated keeps its original
// reason and the call still succeeds.
func (e *Engine) TerminateSession(ctx context.Context, sessionID string, reason session.Reason) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.terminate(ctx, "", sessionID, reason)
}

func (e *Engine) terminate(ctx context.Context, principalID, sessionID string, reason session.Reason) error {
	err := e.store.Terminate(ctx, sessionID, reason)
	switch {
	case err == nil:
		e.metricInc(MetricSessionTerminated)
		e.emitAudit(ctx, auditEventLogoutSession, true, principalID, sessionID, nil, func() map[string]string {
			return map[string]string{"reason": string(reason)}
		})
		return nil
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	default:
		return ErrStoreUnavailable
	}
}

// TerminateAll ends every session belonging to a principal.
//
// It returns the number of sessions terminated. Zero active sessions is not
// an error.
func (e *Engine) TerminateAll(ctx context.Context, principalID string, reason session.Reason) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	n, err := e.store.TerminateAllForPrincipal(ctx, principalID, reason)
	if err != nil {
		return n, ErrStoreUnavailable
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, principalID, "", nil, func() map[string]string {
		return map[string]string{
			"reason": string(reason),
			"count":  strconv.Itoa(n),
		}
	})
	return n, nil
}

func clampDeviceLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxDeviceLimit {
		return MaxDeviceLimit
	}
	return limit
}

// evictionVictim picks the session to terminate when the device limit is
// reached. A session matching the incoming fingerprint is replaced in
// preference to evicting another device; otherwise the oldest session by
// creation time loses its slot.
func evictionVictim(active []*session.Session, fp string) *session.Session {
	victim := active[0]
	matched := false
	for _, s := range active {
		if s.Fingerprint == fp {
			if !matched || s.CreatedAt < victim.CreatedAt {
				victim = s
			}
			matched = true
			continue
		}
		if !matched && s.CreatedAt < victim.CreatedAt {
			victim = s
		}
	}
	return victim
}
