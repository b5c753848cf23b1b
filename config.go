package authcore

import (
	"errors"
	"time"

	"github.com/ledgersec/authcore/seal"
)

// MaxDeviceLimit is the hard ceiling on concurrent sessions per principal.
// Per-principal limits above it are clamped down during admission.
const MaxDeviceLimit = 10

// ArtifactConfig defines key artifact issuance settings.
type ArtifactConfig struct {
	// Validity is the lifetime of newly issued artifacts. Superadmin
	// artifacts ignore it and never expire.
	Validity time.Duration
}

// TokenConfig defines session token settings.
type TokenConfig struct {
	// TTL is the lifetime stamped into minted tokens. Superadmin tokens
	// ignore it and carry the never-expires marker instead.
	TTL time.Duration
}

// SessionConfig defines session record settings.
type SessionConfig struct {
	// RecordTTL is the logical lifetime of a session record.
	RecordTTL time.Duration

	// Retention is how long a terminated or expired record stays readable
	// past its logical expiry, for audit of the termination reason.
	Retention time.Duration

	// KeyPrefix namespaces session keys in the store.
	KeyPrefix string
}

// AuditConfig defines audit dispatch settings.
type AuditConfig struct {
	Enabled bool

	// BufferSize bounds the dispatch queue between engine and sink.
	BufferSize int

	// DropIfFull drops events when the queue is full instead of blocking
	// the calling operation.
	DropIfFull bool
}

// MetricsConfig defines metrics collection settings.
type MetricsConfig struct {
	Enabled bool

	// EnableLatencyHistograms additionally tracks bearer validation
	// latency buckets.
	EnableLatencyHistograms bool
}

// Config aggregates all tunable engine settings. Zero fields are filled
// from defaults during Build; MasterSecret has no default and is required.
type Config struct {
	// MasterSecret is the single root secret. Artifact, token, and vault
	// keys are all derived from it with independent salts. Minimum 32
	// bytes.
	MasterSecret []byte

	Artifact ArtifactConfig
	Token    TokenConfig
	Session  SessionConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

func defaultConfig() Config {
	return Config{
		Artifact: ArtifactConfig{
			Validity: 365 * 24 * time.Hour,
		},
		Token: TokenConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Session: SessionConfig{
			RecordTTL: 24 * time.Hour,
			Retention: 24 * time.Hour,
			KeyPrefix: "acs",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func (c *Config) applyDefaults() {
	d := defaultConfig()
	if c.Artifact.Validity <= 0 {
		c.Artifact.Validity = d.Artifact.Validity
	}
	if c.Token.TTL <= 0 {
		c.Token.TTL = d.Token.TTL
	}
	if c.Session.RecordTTL <= 0 {
		c.Session.RecordTTL = d.Session.RecordTTL
	}
	if c.Session.Retention <= 0 {
		c.Session.Retention = d.Session.Retention
	}
	if c.Session.KeyPrefix == "" {
		c.Session.KeyPrefix = d.Session.KeyPrefix
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = d.Audit.BufferSize
	}
}

func (c *Config) validate() error {
	if len(c.MasterSecret) < seal.KeySize {
		return errors.New("authcore: master secret must be at least 32 bytes")
	}
	if c.Token.TTL <= 0 {
		return errors.New("authcore: token TTL must be positive")
	}
	if c.Session.RecordTTL <= 0 {
		return errors.New("authcore: session record TTL must be positive")
	}
	if c.Session.Retention < 0 {
		return errors.New("authcore: session retention must not be negative")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.MasterSecret = make([]byte, len(c.MasterSecret))
	copy(out.MasterSecret, c.MasterSecret)
	return out
}
