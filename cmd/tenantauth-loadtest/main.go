// Command tenantauth-loadtest measures introspection and refresh throughput
// of an Engine backed by the in-memory store and either the process-local
// or a Redis TTL store.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/internal/logging"
	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/mail/mailtest"
	"github.com/MrEthical07/tenantAuth/store/memory"
)

type credentials struct {
	access  string
	refresh string
}

func main() {
	var (
		users       = flag.Int("users", 200, "number of users to seed and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (introspect + refresh)")
		backend     = flag.String("kv", "memory", "TTL store: memory or redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		logLevel    = flag.String("log-level", "warn", "zap log level")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	logger, err := logging.New(false, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := tenantAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("loadtest-secret-loadtest-secret-!")
	cfg.RateLimit.Enabled = false
	cfg.Mail.Async = false
	// Seeding hashes one password per user; keep it cheap.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	mailer := &mailtest.Recorder{}
	builder := tenantAuth.New().
		WithConfig(cfg).
		WithBackend(memory.New()).
		WithMailer(mailer).
		WithLogger(logger)

	var cleanup func()
	switch *backend {
	case "memory":
		cleanup = func() {}
		fmt.Println("using process-local TTL store")
	case "redis":
		client, closeFn, err := redisClient(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		builder.WithRedis(client)
		cleanup = closeFn
	default:
		fmt.Fprintf(os.Stderr, "unknown -kv %q\n", *backend)
		os.Exit(2)
	}
	defer cleanup()

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	creds, err := seed(ctx, engine, mailer, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	introspectStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		c := creds[r.Intn(len(creds))]
		if !engine.Introspect(ctx, c.access).Active {
			return tenantAuth.ErrInvalidToken
		}
		return nil
	})
	refreshStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		c := creds[r.Intn(len(creds))]
		_, err := engine.Refresh(ctx, c.refresh)
		return err
	})

	fmt.Println("---- results ----")
	printStats("introspect", introspectStats)
	printStats("refresh", refreshStats)
	logger.Info("load test finished", zap.Int("users", *users), zap.Int("ops", *ops))
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seed(ctx context.Context, engine *tenantAuth.Engine, mailer *mailtest.Recorder, n int) ([]credentials, error) {
	if _, err := engine.CreateTenant(ctx, "Load Test", "loadtest"); err != nil {
		return nil, err
	}

	out := make([]credentials, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user-%d@loadtest.local", i)
		if _, err := engine.Register(ctx, tenantAuth.RegisterRequest{
			TenantSlug: "loadtest",
			Email:      email,
			Password:   "Load-test-1",
		}); err != nil {
			return nil, err
		}
		msg, ok := mailer.Last(mail.KindVerification)
		if !ok || msg.To != email {
			return nil, fmt.Errorf("no verification token for %s", email)
		}
		if err := engine.VerifyEmail(ctx, msg.Token); err != nil {
			return nil, err
		}
		res, err := engine.Login(ctx, tenantAuth.LoginRequest{
			TenantSlug: "loadtest",
			Email:      email,
			Password:   "Load-test-1",
			IP:         "127.0.0.1",
		})
		if err != nil {
			return nil, err
		}
		out = append(out, credentials{access: res.AccessToken, refresh: res.RefreshToken})
	}
	return out, nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
