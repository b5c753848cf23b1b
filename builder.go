package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ledgersec/authcore/internal"
	"github.com/ledgersec/authcore/keyfile"
	"github.com/ledgersec/authcore/password"
	"github.com/ledgersec/authcore/session"
	"github.com/ledgersec/authcore/token"
)

// Builder assembles an Engine. Chain With options and call Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	provider  PrincipalProvider
	auditSink AuditSink

	built bool
}

// New starts a Builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The Builder keeps its own
// copy, so later mutations of cfg do not leak in.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client backing the default session store. Any
// UniversalClient works: single node, cluster, or sentinel failover.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore overrides the Redis-backed default with any Store implementation,
// such as session.NewMemoryStore for single-process deployments.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithPrincipalProvider supplies the principal lookup backend. Required.
func (b *Builder) WithPrincipalProvider(p PrincipalProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink sets where audit events are delivered when auditing is
// enabled. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the Engine. A Builder
// is single use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("principal provider is required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("either a redis client or an explicit store is required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.KeyPrefix)
	}

	artifacts, err := keyfile.NewCodec(cfg.MasterSecret)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewCodec(cfg.MasterSecret, cfg.Token.TTL)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)

	e := &Engine{
		config:     cfg,
		store:      store,
		tokens:     tokens,
		artifacts:  artifacts,
		vault:      password.NewVault(),
		provider:   b.provider,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink, metrics),
		metrics:    metrics,
		admitLocks: internal.NewKeyMutex(),
	}

	b.built = true
	return e, nil
}
