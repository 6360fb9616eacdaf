package tenantAuth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tenantAuth/kv"
	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/mail/mailtest"
	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testConfig keeps hashing cheap and mail synchronous.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Mail.Async = false
	return cfg
}

type testEnv struct {
	engine *Engine
	repo   *memory.Store
	mailer *mailtest.Recorder
	clock  *testClock
}

type envSetup struct {
	cfg      Config
	kv       kv.Store
	clock    *testClock
	sink     AuditSink
	registry prometheus.Registerer
}

type envOption func(*envSetup)

func withConfig(mutate func(*Config)) envOption {
	return func(s *envSetup) { mutate(&s.cfg) }
}

func withKV(store kv.Store) envOption {
	return func(s *envSetup) { s.kv = store }
}

func withClock(c *testClock) envOption {
	return func(s *envSetup) { s.clock = c }
}

func withAuditSink(sink AuditSink) envOption {
	return func(s *envSetup) { s.sink = sink }
}

func withRegistry(reg prometheus.Registerer) envOption {
	return func(s *envSetup) { s.registry = reg }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	setup := &envSetup{cfg: testConfig()}
	for _, opt := range opts {
		opt(setup)
	}
	if setup.clock == nil {
		setup.clock = newTestClock()
	}

	env := &testEnv{
		repo:   memory.New(),
		mailer: &mailtest.Recorder{},
		clock:  setup.clock,
	}
	b := New().
		WithConfig(setup.cfg).
		WithBackend(env.repo).
		WithMailer(env.mailer).
		WithClock(env.clock.Now)
	if setup.kv != nil {
		b.WithKVStore(setup.kv)
	}
	if setup.sink != nil {
		b.WithAuditSink(setup.sink)
	}
	if setup.registry != nil {
		b.WithMetricsRegisterer(setup.registry)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) createTenant(t *testing.T, slug string) *TenantInfo {
	t.Helper()

	info, err := env.engine.CreateTenant(context.Background(), "Tenant "+slug, slug)
	if err != nil {
		t.Fatalf("CreateTenant(%s) failed: %v", slug, err)
	}
	return info
}

func (env *testEnv) register(t *testing.T, slug, email, pw string) *UserProfile {
	t.Helper()

	p, err := env.engine.Register(context.Background(), RegisterRequest{
		TenantSlug: slug,
		Email:      email,
		Password:   pw,
		FirstName:  "Ann",
		LastName:   "Lee",
	})
	if err != nil {
		t.Fatalf("Register(%s/%s) failed: %v", slug, email, err)
	}
	return p
}

// verify redeems the most recent verification email sent to email.
func (env *testEnv) verify(t *testing.T, email string) {
	t.Helper()

	for _, m := range reverse(env.mailer.Messages()) {
		if m.Kind == mail.KindVerification && m.To == model.NormalizeEmail(email) {
			if err := env.engine.VerifyEmail(context.Background(), m.Token); err != nil {
				t.Fatalf("VerifyEmail failed: %v", err)
			}
			return
		}
	}
	t.Fatalf("no verification email for %s", email)
}

// activeUser creates tenant (if needed), registers and verifies a user.
func (env *testEnv) activeUser(t *testing.T, slug, email, pw string) *UserProfile {
	t.Helper()

	if _, err := env.engine.GetTenant(context.Background(), slug); err != nil {
		env.createTenant(t, slug)
	}
	p := env.register(t, slug, email, pw)
	env.verify(t, email)
	return p
}

func (env *testEnv) login(t *testing.T, slug, email, pw string) *AuthResult {
	t.Helper()

	res, err := env.engine.Login(context.Background(), LoginRequest{
		TenantSlug: slug,
		Email:      email,
		Password:   pw,
		IP:         "192.0.2.10",
		UserAgent:  "test-agent",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res
}

func reverse(msgs []mail.Message) []mail.Message {
	out := make([]mail.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, msgs[i])
	}
	return out
}
