package main

import (
	"context"
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
	cli "github.com/urfave/cli/v3"

	"github.com/Strob0t/hookrelay/internal/adapter/cachedstore"
	"github.com/Strob0t/hookrelay/internal/adapter/discord"
	hrhttp "github.com/Strob0t/hookrelay/internal/adapter/http"
	hrnats "github.com/Strob0t/hookrelay/internal/adapter/nats"
	"github.com/Strob0t/hookrelay/internal/adapter/natskv"
	hrotel "github.com/Strob0t/hookrelay/internal/adapter/otel"
	"github.com/Strob0t/hookrelay/internal/adapter/postgres"
	"github.com/Strob0t/hookrelay/internal/adapter/ristretto"
	"github.com/Strob0t/hookrelay/internal/adapter/tiered"
	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/logger"
	"github.com/Strob0t/hookrelay/internal/middleware"
	"github.com/Strob0t/hookrelay/internal/port/cache"
	"github.com/Strob0t/hookrelay/internal/port/database"
	"github.com/Strob0t/hookrelay/internal/resilience"
	"github.com/Strob0t/hookrelay/internal/secrets"
	"github.com/Strob0t/hookrelay/internal/service"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the webhook relay HTTP server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply pending database migrations before serving",
				Value: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, cmd.Bool("migrate"))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	log, closer := logger.New(cfg.Logging)
	defer closer.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"nats", cfg.NATS.URL != "",
		"cache", cfg.Cache.Enabled,
		"otel", cfg.OTEL.Enabled,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	if cfg.OTEL.Enabled {
		shutdown, err := hrotel.Init(ctx, cfg.OTEL)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Error("otel shutdown", "error", err)
			}
		}()
	}
	metrics, err := hrotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if migrate {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	key, err := masterKey(cfg.Secrets)
	if err != nil {
		return err
	}
	var store database.Store = postgres.NewStore(pool, key)

	var queue *hrnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = hrnats.Connect(ctx, cfg.NATS)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				slog.Error("nats drain", "error", err)
			}
		}()
	} else {
		slog.Info("nats not configured, audit events and L2 cache disabled")
	}

	if cfg.Cache.Enabled {
		c, closeCache, err := buildCache(ctx, cfg.Cache, queue)
		if err != nil {
			return err
		}
		defer closeCache()
		store = cachedstore.New(store, c, cfg.Cache.TTL)
	}

	// --- Services ---

	dispatcher := discord.NewDispatcher(cfg.Delivery.Timeout,
		discord.WithBreakers(resilience.NewSet(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)),
		discord.WithLimiter(resilience.NewLimiter(cfg.Delivery.MaxConcurrent)),
	)

	var audit *service.AuditPublisher
	if queue != nil {
		audit = service.NewAuditPublisher(queue, cfg.NATS.AuditSubject)
	}

	relay := service.NewRelayService(
		service.NewSignatureVerifier(store),
		service.NewMentionResolver(store, store),
		dispatcher,
		audit,
		metrics,
	)

	vault, err := secrets.NewVault(secrets.EnvLoader(
		map[string]string{secrets.KeyAdminToken: cfg.Server.AdminToken},
		secrets.KeyAdminToken,
	))
	if err != nil {
		return err
	}
	if vault.Get(secrets.KeyAdminToken) == "" {
		slog.Warn("admin token not set, POST /webhooks/test is disabled")
	}
	go reloadOnHangup(ctx, vault)

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst,
		middleware.WithKey(middleware.ByIPAndParam("destinationId")))
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	handlers := &hrhttp.Handlers{
		Relay:        relay,
		Preview:      service.NewPreviewService(dispatcher, cfg.Delivery.AllowedPrefix),
		Store:        store,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(hrotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(hrhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(hrhttp.SecurityHeaders)

	hrhttp.MountRoutes(r, handlers, hrhttp.RouteOptions{
		AdminToken: vault.Getter(secrets.KeyAdminToken),
		Limiter:    limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "webhook_base", cfg.Server.PublicURL+"/webhook/github/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func masterKey(cfg config.Secrets) ([]byte, error) {
	if cfg.MasterKey == "" {
		slog.Warn("master key not set, destination secrets are stored in plaintext")
		return nil, nil
	}
	key, err := destination.DeriveKey(cfg.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	return key, nil
}

// buildCache returns the L1 cache, backed by a NATS KV bucket when a queue
// is available.
func buildCache(ctx context.Context, cfg config.Cache, queue *hrnats.Queue) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cfg.L1MaxSizeMB << 20)
	if err != nil {
		return nil, nil, fmt.Errorf("l1 cache: %w", err)
	}

	var l2 cache.Cache
	if queue != nil && cfg.L2Bucket != "" {
		kv, err := queue.KeyValue(ctx, cfg.L2Bucket, cfg.TTL)
		if err != nil {
			l1.Close()
			return nil, nil, fmt.Errorf("l2 cache: %w", err)
		}
		l2 = natskv.New(kv)
		slog.Info("l2 cache enabled", "bucket", cfg.L2Bucket)
	}

	return tiered.New(l1, l2, cfg.TTL), l1.Close, nil
}

// reloadOnHangup re-reads operator secrets on SIGHUP.
func reloadOnHangup(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "keys", vault.Keys(), "admin_token", vault.Redacted(secrets.KeyAdminToken))
		}
	}
}
