package keyfile

import "time"

// Payload is the caller-supplied half of a key artifact. The artifact
// identifier, issue timestamp, and format version are filled in by
// [Codec.Generate] and never accepted from outside.
type Payload struct {
	PrincipalID string
	Name        string
	Email       string
	Role        string
	DeviceLimit int
	Permissions []string
	ExpiresAt   time.Time
}

// Claims is the verified content of a parsed key artifact. None of these
// fields are surfaced unless the artifact's integrity checks passed.
type Claims struct {
	PrincipalID string   `json:"pid"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	DeviceLimit int      `json:"device_limit"`
	Permissions []string `json:"perms,omitempty"`
	ArtifactID  string   `json:"kid"`
	IssuedAt    int64    `json:"iat"`
	ExpiresAt   int64    `json:"exp"`
	Version     uint16   `json:"v"`
}
