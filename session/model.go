package session

import "time"

// Reason records why a session left the Active state.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonLogout      Reason = "logout"
	ReasonExpired     Reason = "expired"
	ReasonRevoked     Reason = "revoked"
	ReasonDeviceLimit Reason = "device_limit"
	ReasonAdminAction Reason = "admin_action"
)

// Session is the authoritative record behind a bearer token. It is keyed by
// the token's unique ID, so a stateless token maps to exactly one record.
type Session struct {
	ID          string
	PrincipalID string

	Fingerprint string

	// Best-effort device metadata, informational only.
	UserAgent string
	Platform  string
	IPAddress string

	Active       bool
	NeverExpires bool
	Reason       Reason

	CreatedAt      int64
	LastActivityAt int64
	ExpiresAt      int64
}

// Live reports whether the record authorizes requests at the given instant:
// still Active and either never-expiring or unexpired. Expiry is observed
// lazily here rather than by a background sweep.
func (s *Session) Live(now time.Time) bool {
	if s == nil || !s.Active {
		return false
	}
	if s.NeverExpires {
		return true
	}
	return now.Unix() <= s.ExpiresAt
}
