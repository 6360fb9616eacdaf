package tenantAuth

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/tenantAuth/internal"
	"github.com/MrEthical07/tenantAuth/internal/audit"
	"github.com/MrEthical07/tenantAuth/internal/metrics"
	"github.com/MrEthical07/tenantAuth/internal/rate"
	"github.com/MrEthical07/tenantAuth/internal/revocation"
	"github.com/MrEthical07/tenantAuth/internal/stores"
	"github.com/MrEthical07/tenantAuth/jwt"
	"github.com/MrEthical07/tenantAuth/kv"
	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/password"
	"github.com/MrEthical07/tenantAuth/session"
	"github.com/MrEthical07/tenantAuth/store"
)

// DefaultRedisPrefix namespaces keys written through WithRedis.
const DefaultRedisPrefix = "tenantauth"

// Builder defines a public type used by tenantAuth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	repos    store.Repositories
	kvStore  kv.Store
	mailer   mail.Dispatcher
	logger   *zap.Logger
	sink     AuditSink
	registry prometheus.Registerer
	now      func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepositories sets the durable tenant, user and token repositories.
func (b *Builder) WithRepositories(repos store.Repositories) *Builder {
	b.repos = repos
	return b
}

// WithBackend wires one store into every repository port.
func (b *Builder) WithBackend(backend store.Backend) *Builder {
	b.repos = store.From(backend)
	return b
}

// WithKVStore sets the TTL store behind rate limiting and the blacklist.
// Without one the Engine uses a process-local store.
func (b *Builder) WithKVStore(s kv.Store) *Builder {
	b.kvStore = s
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis backs rate limiting and the access-token blacklist with Redis,
// under DefaultRedisPrefix, so every instance shares counters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	if client == nil {
		b.kvStore = nil
		return b
	}
	b.kvStore = kv.NewRedis(client, DefaultRedisPrefix)
	return b
}

// WithMailer sets the email dispatcher. Without one, emails are logged.
func (b *Builder) WithMailer(d mail.Dispatcher) *Builder {
	b.mailer = d
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsRegisterer enables Prometheus counters on reg.
func (b *Builder) WithMetricsRegisterer(reg prometheus.Registerer) *Builder {
	b.registry = reg
	b.config.Metrics.Enabled = reg != nil
	return b
}

// WithClock overrides time.Now for every component. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := b.repos.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config: cfg,
		logger: logger,
		now:    now,
		repos:  b.repos,
		tally:  metrics.NewTally(),
	}

	// -------- TTL STORE --------
	kvStore := b.kvStore
	if kvStore == nil {
		mem := kv.NewMemory(kv.WithClock(now), kv.WithSweepInterval(time.Minute))
		engine.ownedKV = mem
		kvStore = mem
	}
	engine.limiter = rate.New(kvStore)
	engine.blacklist = revocation.New(kvStore)

	// -------- METRICS --------
	if cfg.Metrics.Enabled {
		reg := b.registry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		rec, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		engine.metrics = rec
	}

	// -------- PASSWORDS --------
	hasher, err := newHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher
	filler, err := internal.NewOpaqueToken(internal.OpaqueTokenBytes)
	if err != nil {
		return nil, err
	}
	if engine.dummyHash, err = hasher.Hash(filler); err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Secret:        cloneBytes(cfg.JWT.Secret),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = jm

	engine.sessions = session.NewStore(b.repos.RefreshTokens, session.Config{
		TTL:        cfg.Session.RefreshTTL,
		TokenBytes: cfg.Session.TokenBytes,
		Now:        now,
	})
	engine.oneTime = stores.NewOneTimeTokens(b.repos.OneTimeTokens, stores.OneTimeConfig{
		VerificationTTL: cfg.OneTime.VerificationTTL,
		ResetTTL:        cfg.OneTime.ResetTTL,
		Now:             now,
	})
	engine.ledger = stores.NewLoginLedger(b.repos.LoginAttempts, logger, now)

	// -------- MAIL --------
	mailer := b.mailer
	if mailer == nil {
		mailer = mail.NewLogDispatcher(logger)
	}
	if cfg.Mail.Async {
		engine.asyncMail = mail.NewAsync(mailer, mail.AsyncConfig{
			QueueSize: cfg.Mail.QueueSize,
			Workers:   cfg.Mail.Workers,
			OnDrop: func(mail.Message) {
				engine.metrics.MailDropped()
				engine.tally.MailDropped()
			},
		}, logger)
		mailer = engine.asyncMail
	}
	engine.mailer = mailer

	// -------- AUDIT --------
	sink := b.sink
	if sink == nil && cfg.Audit.Enabled {
		sink = audit.NewZapSink(logger)
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(audit.Event) {
			engine.metrics.AuditDropped()
			engine.tally.AuditDropped()
		},
	}, sink)

	b.built = true

	return engine, nil
}

func newHasher(cfg PasswordConfig) (password.Hasher, error) {
	argon, err := password.NewArgon2(password.Config{
		Memory:           cfg.Memory,
		Time:             cfg.Time,
		Parallelism:      cfg.Parallelism,
		SaltLength:       cfg.SaltLength,
		KeyLength:        cfg.KeyLength,
		MaxPasswordBytes: cfg.MaxPasswordBytes,
	})
	if err != nil && cfg.Algorithm == "argon2id" {
		return nil, err
	}
	bc, bcErr := password.NewBCrypt(cfg.BCryptCost)
	if bcErr != nil && cfg.Algorithm == "bcrypt" {
		return nil, bcErr
	}

	if cfg.Algorithm == "bcrypt" {
		if argon == nil {
			return password.NewChain(bc)
		}
		return password.NewChain(bc, argon)
	}
	if bc == nil {
		return password.NewChain(argon)
	}
	return password.NewChain(argon, bc)
}
