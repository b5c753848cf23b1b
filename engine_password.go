package authcore

import (
	"context"

	"github.com/ledgersec/authcore/session"
)

// SetPassword installs a stored password form for the principal, enabling
// password login. It is an administrative operation: no current password is
// required.
func (e *Engine) SetPassword(ctx context.Context, principalID, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if _, err := e.provider.GetByID(ctx, principalID); err != nil {
		return ErrPrincipalNotFound
	}

	stored, err := e.vault.Hash(newPassword)
	if err != nil {
		return ErrPasswordPolicy
	}
	if err := e.provider.UpdatePasswordHash(ctx, principalID, stored); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventPasswordSet, true, principalID, "", nil, nil)
	return nil
}

// A successful change terminates every active session for the principal so
// tokens minted under the old credential stop working.
func (e *Engine) ChangePassword(ctx context.Context, principalID, oldPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	p, err := e.provider.GetByID(ctx, principalID)
	if err != nil {
		return ErrPrincipalNotFound
	}
	if p.PasswordHash == "" {
		return ErrPasswordLoginDisabled
	}

	ok, err := e.vault.Verify(oldPassword, p.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChange, false, principalID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}
	if newPassword == oldPassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChange, false, principalID, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	stored, err := e.vault.Hash(newPassword)
	if err != nil {
		return ErrPasswordPolicy
	}
	if err := e.provider.UpdatePasswordHash(ctx, principalID, stored); err != nil {
		return err
	}

	if _, err := e.store.TerminateAllForPrincipal(ctx, principalID, session.ReasonAdminAction); err != nil {
		e.emitAudit(ctx, auditEventPasswordChange, false, principalID, "", ErrSessionInvalidationFailed, nil)
		return ErrSessionInvalidationFailed
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, principalID, "", nil, nil)
	return nil
}

// Clearing the stored form leaves the principal key-file only. Existing
// sessions are untouched.
func (e *Engine) DisablePasswordLogin(ctx context.Context, principalID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if _, err := e.provider.GetByID(ctx, principalID); err != nil {
		return ErrPrincipalNotFound
	}
	if err := e.provider.UpdatePasswordHash(ctx, principalID, ""); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventPasswordSet, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"disabled": "true"}
	})
	return nil
}
