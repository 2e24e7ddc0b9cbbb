package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/directory"
	"github.com/geocoder89/userhub/internal/filter"
	httpx "github.com/geocoder89/userhub/internal/http"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint spans are just no-ops
	if cfg.OTELEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "userhub", cfg.OTELEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(3 * time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("could not connect to postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	// cache + filter backends: redis in production, in-process for dev
	var (
		cacheStore cache.Store
		userFilter filter.Filter
		pingCache  func() error
	)

	if cfg.CacheBackend == "memory" {
		cacheStore = cache.NewMemory()
		userFilter = filter.NewMemory()
	} else {
		redisCache := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCache.Close()

		bloom := filter.NewBloom(redisCache.Raw(), log)

		provisionCtx, cancel := config.WithTimeout(5 * time.Second)
		bloom.Provision(provisionCtx, cfg.FilterErrorRate, cfg.FilterCapacity)
		cancel()

		cacheStore = redisCache
		userFilter = bloom
		pingCache = func() error {
			ctx, cancel := config.WithTimeout(1 * time.Second)
			defer cancel()
			return redisCache.Ping(ctx)
		}
	}

	usersRepo := postgres.NewUsersRepo(pool)

	dir := directory.New(directory.InstrumentStore(usersRepo, prom), cacheStore, userFilter, log, directory.Options{
		RecordTTL: cfg.RecordCacheTTL,
		ListTTL:   cfg.ListCacheTTL,
		Metrics:   prom,
	})

	startupCtx, cancel := config.WithTimeout(10 * time.Second)

	if err := dir.SeedFilter(startupCtx); err != nil {
		// a cold filter just means every availability check hits the store
		log.Warn("membership filter seed failed", "err", err)
	}

	if err := db.EnsureAdminUser(startupCtx, dir, cfg); err != nil {
		log.Error("admin bootstrap failed", "err", err)
		cancel()
		os.Exit(1)
	}

	refreshRepo := postgres.NewRefreshTokensRepo(pool)

	if pruned, err := refreshRepo.DeleteExpired(startupCtx, time.Now().UTC()); err != nil {
		log.Warn("refresh token prune failed", "err", err)
	} else if pruned > 0 {
		log.Info("pruned expired refresh tokens", "count", pruned)
	}
	cancel()

	jwtManager := newJWTManager(cfg)

	router := httpx.NewRouter(httpx.Deps{
		Log:         log,
		Cfg:         cfg,
		Directory:   dir,
		AuthDir:     dir,
		JWT:         jwtManager,
		RefreshRepo: refreshRepo,
		Prom:        prom,
		PingDB: func() error {
			ctx, cancel := config.WithTimeout(1 * time.Second)
			defer cancel()
			return pool.Ping(ctx)
		},
		PingCache: pingCache,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "cache_backend", cfg.CacheBackend)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
