package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/adapt"
	"github.com/Ghost-ify/Namite/internal/checker"
	"github.com/Ghost-ify/Namite/internal/config"
	"github.com/Ghost-ify/Namite/internal/cooldown"
	"github.com/Ghost-ify/Namite/internal/dispatch"
	"github.com/Ghost-ify/Namite/internal/generate"
	"github.com/Ghost-ify/Namite/internal/pipeline"
	"github.com/Ghost-ify/Namite/internal/queue"
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

	if err := storage.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

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

	recorder := stats.NewRecorder(rdb)
	if err := recorder.MarkStarted(ctx, time.Now()); err != nil {
		logger.Warn("mark start time", zap.Error(err))
	}

	var sink dispatch.Sink
	if cfg.NotifySink == "log" {
		sink = dispatch.NewLogSink(logger)
	} else {
		sink = dispatch.NewRedisSink(rdb)
	}
	batcher := dispatch.NewBatcher(stats.NewCountingSink(sink, recorder), dispatch.Config{
		MaxSize:         cfg.BatchMaxSize,
		MaxAge:          cfg.BatchMaxAge,
		HighValueMaxLen: cfg.HighValueMaxLength,
	}, logger)

	tracker := adapt.New(rdb, logger)
	tracker.Load(ctx)

	pipe := pipeline.New(pipeline.Deps{
		Source:   generate.New(),
		Cooldown: cool,
		Checker:  checks,
		Dispatch: batcher,
		Retry:    queue.New(rdb),
		Stats:    recorder,
		Learn:    tracker,
	}, pipeline.Config{
		Interval:           cfg.CheckInterval,
		CandidatesPerCycle: cfg.CandidatesPerCycle,
		MinLength:          cfg.MinLength,
		MaxLength:          cfg.MaxLength,
		RequeueDelay:       cfg.RequeueDelay,
	}, logger)

	if err := pipe.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("pipeline stopped", zap.Error(err))
	}
	tracker.Save(context.Background())
	logger.Info("hunter stopped")
}

func newLogger(appEnv string) *zap.Logger {
	if appEnv == "development" {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}
