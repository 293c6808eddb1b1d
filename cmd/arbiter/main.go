// Command arbiter runs the AI decision oversight server.
//
// The server accepts AI-generated decisions over HTTP, classifies them into
// review levels, auto-approves the safe ones, and routes the rest to human
// reviewers with matching authority. Resolutions flow back out through NATS
// JetStream, WebSocket broadcasts, and configured notification providers.
//
// Run with no arguments to start the server, or `arbiter admin <command>`
// for reviewer management (see admin.go).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arbiterhq/arbiter/internal/adapter/cacheddir"
	arbhttp "github.com/arbiterhq/arbiter/internal/adapter/http"
	arbnats "github.com/arbiterhq/arbiter/internal/adapter/nats"
	"github.com/arbiterhq/arbiter/internal/adapter/natskv"
	arbotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/postgres"
	"github.com/arbiterhq/arbiter/internal/adapter/ristretto"
	"github.com/arbiterhq/arbiter/internal/adapter/tiered"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/logger"
	"github.com/arbiterhq/arbiter/internal/middleware"
	"github.com/arbiterhq/arbiter/internal/port/cache"
	"github.com/arbiterhq/arbiter/internal/port/directory"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
	"github.com/arbiterhq/arbiter/internal/secrets"
	"github.com/arbiterhq/arbiter/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "admin: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Bootstrap logger so failures before config loads are still structured.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("starting arbiter",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auth_enabled", cfg.Auth.Enabled,
		"telemetry_enabled", cfg.Telemetry.Enabled,
	)

	ctx := context.Background()

	// --- Telemetry ---

	shutdownOTel, err := arbotel.Setup(ctx, cfg.Telemetry, "arbiter")
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := arbotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("postgres ready")

	queue, err := arbnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer func() {
		if err := queue.Drain(); err != nil {
			slog.Warn("nats drain failed", "error", err)
		}
	}()
	slog.Info("nats connected", "url", cfg.NATS.URL)

	store := postgres.NewStore(pool)

	dir, l1, err := buildDirectory(ctx, store, queue, cfg.Cache)
	if err != nil {
		return fmt.Errorf("build reviewer directory: %w", err)
	}
	defer l1.Close()

	// --- Services ---

	hub := ws.NewHub()
	defer hub.Close()

	authSvc := service.NewAuthService(store, &cfg.Auth)
	if err := authSvc.SeedDefaultDirector(ctx, middleware.DefaultReviewerID); err != nil {
		return fmt.Errorf("seed default director: %w", err)
	}

	oversightSvc := service.NewOversightService(store, dir, queue, cfg.Oversight, metrics)

	vault, err := secrets.NewVault(secrets.EnvLoader(providerSecretKeys()...))
	if err != nil {
		return fmt.Errorf("load provider secrets: %w", err)
	}
	for _, k := range vault.Keys() {
		slog.Debug("provider secret loaded", "key", k, "value", vault.Redacted(k))
	}

	notifySvc := service.NewNotificationService(buildNotifiers(cfg.Notify, vault), cfg.Notify, cfg.Breaker)
	slog.Info("notifiers configured", "count", notifySvc.NotifierCount())

	dispatchSvc := service.NewDispatchService(queue, notifySvc, hub)
	if err := dispatchSvc.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer dispatchSvc.Stop()

	// --- HTTP server ---

	handlers := &arbhttp.Handlers{
		Oversight: oversightSvc,
		Auth:      authSvc,
		Hub:       hub,
	}

	r := chi.NewRouter()

	// RequestID must run before Logger so access logs carry the id.
	r.Use(arbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(arbhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(arbhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	if cfg.Server.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		defer rl.StartCleanup(5*time.Minute, 10*time.Minute)()
		r.Use(rl.Handler)
	}
	if cfg.Server.IdempotencyBucket != "" {
		kv, err := queue.KeyValue(ctx, cfg.Server.IdempotencyBucket, cfg.Server.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("create idempotency bucket %s: %w", cfg.Server.IdempotencyBucket, err)
		}
		r.Use(middleware.Idempotency(kv))
	}

	r.Use(arbotel.HTTPMiddleware("arbiter"))
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))

	r.Get("/health", healthHandler(pool, queue, l1))

	arbhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// SIGHUP re-reads provider secrets and rebuilds the notifiers, so a
	// rotated webhook URL or SMTP password takes effect without a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)
	go func() {
		for range reload {
			changed, err := vault.Reload()
			if err != nil {
				slog.Warn("secret reload failed", "error", err)
				continue
			}
			if changed == 0 {
				slog.Info("secrets unchanged, keeping existing notifiers")
				continue
			}
			notifySvc.ReplaceProviders(buildNotifiers(cfg.Notify, vault))
			slog.Info("secrets reloaded", "changed", changed, "notifiers", notifySvc.NotifierCount())
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			done <- syscall.SIGTERM
		}
	}()

	<-done
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// buildDirectory wraps the store-backed reviewer directory in a cache so the
// per-review authority lookup does not hit Postgres on every request. The L1
// tier is in-process ristretto; when an L2 bucket is configured the lookups
// are shared across instances through NATS KV. The L1 cache is returned so
// the caller can close it and surface its hit ratio in /health.
func buildDirectory(ctx context.Context, store *postgres.Store, queue *arbnats.Queue, cfg config.Cache) (directory.Directory, *ristretto.Cache, error) {
	l1, err := ristretto.New(cfg.L1MaxSizeMB << 20)
	if err != nil {
		return nil, nil, fmt.Errorf("create l1 cache: %w", err)
	}

	var c cache.Cache = l1
	if cfg.L2Bucket != "" {
		kv, err := queue.KeyValue(ctx, cfg.L2Bucket, cfg.L2TTL)
		if err != nil {
			l1.Close()
			return nil, nil, fmt.Errorf("create l2 bucket %s: %w", cfg.L2Bucket, err)
		}
		c = tiered.New(l1, natskv.New(kv), cfg.DirectoryTTL)
	}

	return cacheddir.New(store, c, cfg.DirectoryTTL), l1, nil
}

// providerSecretEnv maps each provider to the settings key that holds its
// secret and the environment variable the vault resolves it from. The
// variables also accept the docker-style *_FILE indirection.
var providerSecretEnv = map[string]struct{ setting, env string }{
	"slack":   {"webhook_url", "SLACK_WEBHOOK_URL"},
	"discord": {"webhook_url", "DISCORD_WEBHOOK_URL"},
	"email":   {"password", "SMTP_PASSWORD"},
}

func providerSecretKeys() []string {
	keys := make([]string, 0, len(providerSecretEnv))
	for _, s := range providerSecretEnv {
		keys = append(keys, s.env)
	}
	return keys
}

// buildNotifiers instantiates every configured provider from the registry,
// overlaying secrets from the vault so webhook URLs and passwords never
// need to appear in the YAML config. A provider that fails to construct
// (bad config, unknown name) is skipped with a warning rather than failing
// startup.
func buildNotifiers(cfg config.Notify, vault *secrets.Vault) []notifier.Notifier {
	out := make([]notifier.Notifier, 0, len(cfg.Providers))
	for name, settings := range cfg.Providers {
		if sec, ok := providerSecretEnv[name]; ok && settings[sec.setting] == "" {
			if v := vault.Get(sec.env); v != "" {
				merged := make(map[string]string, len(settings)+1)
				for k, val := range settings {
					merged[k] = val
				}
				merged[sec.setting] = v
				settings = merged
			}
		}
		n, err := notifier.New(name, settings)
		if err != nil {
			slog.Warn("skipping notifier", "provider", name, "error", err)
			continue
		}
		out = append(out, n)
	}
	return out
}

// healthHandler reports liveness plus the status of the two hard
// dependencies. The response never includes connection strings.
func healthHandler(pool *pgxpool.Pool, queue *arbnats.Queue, l1 *ristretto.Cache) http.HandlerFunc {
	type health struct {
		Status     string  `json:"status"`
		Postgres   string  `json:"postgres"`
		NATS       string  `json:"nats"`
		L1HitRatio float64 `json:"l1_hit_ratio"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		h := health{Status: "ok", Postgres: "ok", NATS: "ok", L1HitRatio: l1.HitRatio()}
		if err := pool.Ping(r.Context()); err != nil {
			h.Status = "degraded"
			h.Postgres = "unreachable"
		}
		if !queue.IsConnected() {
			h.Status = "degraded"
			h.NATS = "disconnected"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(h)
	}
}
