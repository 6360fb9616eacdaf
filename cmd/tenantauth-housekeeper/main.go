// Command tenantauth-housekeeper purges expired refresh tokens on a fixed
// interval and serves Prometheus metrics.
//
// Configuration comes from the environment (or a .env file):
//
//	JWT_SECRET       required, at least 32 bytes
//	DATABASE_DSN     postgres://... or a SQLite DSN
//	STORE_BACKEND    memory | redis
//	REDIS_ADDR       used when STORE_BACKEND=redis
//	PURGE_INTERVAL   e.g. 1h
//	METRICS_ADDR     e.g. :9090
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/internal/envconfig"
	"github.com/MrEthical07/tenantAuth/internal/logging"
	"github.com/MrEthical07/tenantAuth/kv"
	"github.com/MrEthical07/tenantAuth/store/sqlstore"
)

func main() {
	settings, err := envconfig.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logging.New(settings.Production(), settings.LogLevel)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(settings, log); err != nil {
		log.Error("housekeeper stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(settings *envconfig.Settings, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(settings.DatabaseDSN, sqlstore.WithQueryDebug(settings.DatabaseDebug))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlstore.CreateSchema(ctx, db); err != nil {
		return err
	}
	log.Info("database ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	builder := tenantAuth.New().
		WithConfig(settings.EngineConfig()).
		WithBackend(sqlstore.New(db)).
		WithLogger(log).
		WithMetricsRegisterer(reg)

	if settings.StoreBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		builder.WithKVStore(kv.NewRedis(client, settings.RedisPrefix))
		log.Info("using redis TTL store", zap.String("addr", settings.RedisAddr))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{
		Addr:              settings.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics", zap.String("addr", settings.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
			stop()
		}
	}()

	if n, err := engine.PurgeExpiredSessions(ctx); err != nil {
		log.Warn("initial purge failed", zap.Error(err))
	} else {
		log.Info("initial purge done", zap.Int("count", n))
	}

	log.Info("housekeeping started", zap.Duration("interval", settings.PurgeInterval))
	err = engine.RunHousekeeping(ctx, settings.PurgeInterval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return err
}
