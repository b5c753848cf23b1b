package authcore

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/ledgersec/authcore/internal"
	"github.com/ledgersec/authcore/keyfile"
	"github.com/ledgersec/authcore/session"
)

// IssueKeyArtifact generates an encrypted key-file artifact for a
// principal.
//
// Issuing records the fresh artifact ID on the principal, so any previously
// issued artifact stops matching and is thereby invalidated. validity <= 0
// uses the configured default. Superadmin artifacts never expire regardless
// of validity.
func (e *Engine) IssueKeyArtifact(ctx context.Context, principalID string, validity time.Duration) ([]byte, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	p, err := e.provider.GetByID(ctx, principalID)
	if err != nil {
		return nil, ErrPrincipalNotFound
	}
	if validity <= 0 {
		validity = e.config.Artifact.Validity
	}

	now := time.Now().UTC()
	var expiresAt time.Time
	if !internal.NeverExpires(p.Role) {
		expiresAt = now.Add(validity)
	}

	artifact, artifactID, err := e.artifacts.Generate(keyfile.Payload{
		PrincipalID: p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Role:        p.Role,
		DeviceLimit: clampDeviceLimit(p.DeviceLimit),
		Permissions: p.Permissions,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, err
	}

	var expiresUnix int64
	if !expiresAt.IsZero() {
		expiresUnix = expiresAt.Unix()
	}
	if err := e.provider.UpdateArtifact(ctx, p.ID, artifactID, now.Unix(), expiresUnix); err != nil {
		return nil, err
	}

	e.metricInc(MetricArtifactIssued)
	e.emitAudit(ctx, auditEventArtifactIssued, true, p.ID, "", nil, func() map[string]string {
		return map[string]string{
			"artifact_id": artifactID,
			"role":        p.Role,
		}
	})
	return artifact, nil
}

// ParseKeyArtifact decrypts and validates an artifact without admitting a
// session, for inspection paths.
//
// Malformed, tampered, and expired artifacts all surface as
// ErrArtifactInvalid; the distinct mode goes to the audit stream only.
func (e *Engine) ParseKeyArtifact(ctx context.Context, artifact []byte) (*keyfile.Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.artifacts.Parse(artifact)
	if err != nil {
		e.metricInc(MetricArtifactRejected)
		e.emitAudit(ctx, auditEventArtifactParse, false, "", "", ErrArtifactInvalid, func() map[string]string {
			return map[string]string{"mode": artifactParseMode(err)}
		})
		return nil, ErrArtifactInvalid
	}
	return claims, nil
}

// RevokeArtifact invalidates a principal's current artifact.
//
// Revocation flags the principal's record (never deletes it) and cascades:
// every active session is terminated with the revoked reason, so existing
// tokens fail the stateful check immediately.
func (e *Engine) RevokeArtifact(ctx context.Context, principalID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if _, err := e.provider.GetByID(ctx, principalID); err != nil {
		return ErrPrincipalNotFound
	}

	now := time.Now().UTC()
	if err := e.provider.RevokeArtifact(ctx, principalID, now.Unix()); err != nil {
		return err
	}

	n, err := e.store.TerminateAllForPrincipal(ctx, principalID, session.ReasonRevoked)
	if err != nil {
		e.emitAudit(ctx, auditEventArtifactRevoked, false, principalID, "", ErrSessionInvalidationFailed, nil)
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	e.metricInc(MetricArtifactRevoked)
	e.emitAudit(ctx, auditEventArtifactRevoked, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"sessions_terminated": strconv.Itoa(n)}
	})
	return nil
}

// EncodeArtifactText renders a binary artifact as base64 for transports
// that cannot carry raw bytes.
func EncodeArtifactText(artifact []byte) string {
	return base64.StdEncoding.EncodeToString(artifact)
}

// DecodeArtifactText reverses EncodeArtifactText.
func DecodeArtifactText(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, ErrArtifactInvalid
	}
	return data, nil
}

func artifactParseMode(err error) string {
	switch {
	case errors.Is(err, keyfile.ErrExpired):
		return "expired"
	case errors.Is(err, keyfile.ErrIntegrity):
		return "integrity"
	case errors.Is(err, keyfile.ErrMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
