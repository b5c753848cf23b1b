package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/ledgersec/authcore/session"
)

const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventArtifactIssued  = "artifact_issued"
	auditEventArtifactParse   = "artifact_parse_rejected"
	auditEventArtifactRevoked = "artifact_revoked"
	auditEventSessionEvicted  = "session_evicted"
	auditEventBearerRejected  = "bearer_rejected"
	auditEventLogoutSession   = "logout_session"
	auditEventLogoutAll       = "logout_all"
	auditEventPasswordChange  = "password_change"
	auditEventPasswordSet     = "password_set"
)

// AuditErrorCode is the stable failure vocabulary recorded on audit
// events. Sinks match on these instead of error strings.
type AuditErrorCode string

const (
	auditErrUnauthorized        AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrPasswordDisabled    AuditErrorCode = "password_login_disabled"
	auditErrArtifactInvalid     AuditErrorCode = "artifact_invalid"
	auditErrArtifactRevoked     AuditErrorCode = "artifact_revoked"
	auditErrPrincipalNotFound   AuditErrorCode = "principal_not_found"
	auditErrPrincipalDisabled   AuditErrorCode = "principal_disabled"
	auditErrSessionNotFound     AuditErrorCode = "session_not_found"
	auditErrSessionExpired      AuditErrorCode = "session_expired"
	auditErrPasswordPolicy      AuditErrorCode = "password_policy"
	auditErrPasswordReuse       AuditErrorCode = "password_reuse"
	auditErrSessionInvalidation AuditErrorCode = "session_invalidation_failed"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		SessionID:   sessionID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrPasswordLoginDisabled):
		return auditErrPasswordDisabled
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrArtifactRevoked):
		return auditErrArtifactRevoked
	case errors.Is(err, ErrArtifactInvalid):
		return auditErrArtifactInvalid
	case errors.Is(err, ErrPrincipalNotFound):
		return auditErrPrincipalNotFound
	case errors.Is(err, ErrPrincipalDisabled):
		return auditErrPrincipalDisabled
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, session.ErrNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, session.ErrUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	default:
		return auditErrInternal
	}
}
