package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assettrack/internal/asset/cache"
	"assettrack/internal/asset/handler"
	"assettrack/internal/asset/service"
	"assettrack/internal/asset/store"
	"assettrack/internal/identity"
	"assettrack/internal/permission"
	"assettrack/internal/platform/config"
	"assettrack/internal/platform/httpserver"
	"assettrack/internal/platform/logger"
	"assettrack/internal/platform/metrics"
	"assettrack/internal/platform/middleware"
	platformredis "assettrack/internal/platform/redis"
	"assettrack/pkg/platform/tx"
)

// main wires dependencies and owns the process lifecycle: HTTP server, the
// retention purge ticker, and graceful shutdown. Business logic lives in the
// internal service packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}

	stores := store.Stores{
		Assets:  store.NewPostgresAssets(db),
		History: store.NewPostgresHistory(db),
		Custody: store.NewPostgresCustody(db),
		Leases:  store.NewPostgresLeases(db),
		Moves:   store.NewPostgresMoves(db),
	}

	m := metrics.New()
	runner := tx.NewSQLRunner(db, tx.WithRetryObserver(m.ObserveStoreRetry))

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var cacheStore cache.Store
	if redisClient != nil {
		defer redisClient.Close()
		cacheStore = cache.NewRedisStore(redisClient.Client)
		log.Info("redis cache enabled")
	} else {
		log.Warn("redis not configured, reads are uncached")
	}
	coordinator := cache.New(cacheStore, log, cache.WithMetrics(m))

	svc := service.New(stores, runner,
		service.WithCache(coordinator),
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithCacheTTLs(cfg.DetailCacheTTL, cfg.ListCacheTTL, cfg.SummaryCacheTTL),
	)

	resolver := identity.NewResolver([]byte(cfg.JWTSigningKey))
	gate := permission.NewStaticGate(permission.AllCapabilities()...)

	router := newRouter(cfg, log, m, db, redisClient, svc, resolver, gate)
	srv := httpserver.New(cfg.Addr, router)

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	go runPurgeTicker(purgeCtx, log, svc, cfg.DeleteRetention, cfg.PurgeInterval)

	go func() {
		log.Info("starting assettrack", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	stopPurge()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func newRouter(
	cfg config.Config,
	log *slog.Logger,
	m *metrics.Metrics,
	db *sql.DB,
	redisClient *platformredis.Client,
	svc *service.Service,
	resolver middleware.ActorResolver,
	gate middleware.PermissionGate,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", healthHandler(db, redisClient))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(resolver, log))
		r.Use(middleware.ContentTypeJSON)
		handler.New(svc, gate, log).Register(r)
	})

	return r
}

func healthHandler(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "cache unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// runPurgeTicker drives the soft-delete retention sweep. An immediate first
// sweep catches anything that expired while the service was down.
func runPurgeTicker(ctx context.Context, log *slog.Logger, svc *service.Service, retention, interval time.Duration) {
	sweep := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := svc.PurgeExpired(sweepCtx, retention); err != nil {
			log.Error("retention purge failed", "error", err)
		}
	}
	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
