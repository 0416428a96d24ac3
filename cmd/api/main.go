package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/api"
	"github.com/Ghost-ify/Namite/internal/checker"
	"github.com/Ghost-ify/Namite/internal/config"
	"github.com/Ghost-ify/Namite/internal/cooldown"
	"github.com/Ghost-ify/Namite/internal/pipeline"
	"github.com/Ghost-ify/Namite/internal/roblox"
	"github.com/Ghost-ify/Namite/internal/stats"
	"github.com/Ghost-ify/Namite/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := newLogger(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgcfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("parse postgres dsn", zap.Error(err))
	}
	pgcfg.MaxConns = cfg.DBMaxConns
	db, err := pgxpool.NewWithConfig(ctx, pgcfg)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	rdb := r.NewClient(&r.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	store := storage.New(db, cfg.CooldownWindow, cfg.DBQueryTimeout)
	cool := cooldown.New(logger, cooldown.NewCache(cfg.CooldownCacheTTL), store)
	gate := checker.NewGate(checker.GateConfig{
		Base:       cfg.BackoffBase,
		Max:        cfg.BackoffMax,
		MaxLevel:   cfg.BackoffMaxLevel,
		DecayAfter: cfg.BackoffDecayAfter,
	})
	checks := checker.NewPool(
		roblox.NewClient(cfg.RobloxAPIURL, cfg.CheckTimeout),
		gate,
		checker.Config{
			Workers:          cfg.CheckWorkers,
			RateLimitRetries: cfg.RateLimitRetries,
			TransientRetries: cfg.TransientRetries,
			TransientDelay:   cfg.TransientDelay,
		},
		logger,
	)
	lookups := pipeline.NewLookup(cool, checks, logger)
	recorder := stats.NewRecorder(rdb)

	srv := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: api.New(lookups, store, recorder, db, logger).Routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api shutdown", zap.Error(err))
		}
	}()

	logger.Info("api listening", zap.String("addr", cfg.APIAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api server failed", zap.Error(err))
	}
	logger.Info("api stopped")
}

func newLogger(appEnv string) *zap.Logger {
	if appEnv == "development" {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}
