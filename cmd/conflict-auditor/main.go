package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability/internal/audit"
	"github.com/hackgods/provider-availability/internal/config"
	"github.com/hackgods/provider-availability/internal/db"
	"github.com/hackgods/provider-availability/internal/logging"
	redisclient "github.com/hackgods/provider-availability/internal/redis"
	"github.com/hackgods/provider-availability/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New("conflict-auditor", os.Getenv("APP_ENV"))
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("conflict-auditor", cfg.Env)
	logger.Info().Str("schedule", cfg.AuditSchedule).Msg("conflict-auditor starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := schedule.NewPgRepository(pgPool)
	svc := schedule.NewService(repo, repo, repo, nil, cfg, logger)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	auditor := audit.NewAuditor(svc, locker, 1, logger)

	// Run once at startup
	runOnce(rootCtx, auditor, logger)

	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	if _, err := c.AddFunc(cfg.AuditSchedule, func() { runOnce(rootCtx, auditor, logger) }); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.AuditSchedule).Msg("invalid audit schedule")
	}
	c.Start()

	<-rootCtx.Done()
	logger.Info().Msg("shutdown signal received, stopping conflict-auditor")
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, auditor *audit.Auditor, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	results, err := auditor.RunOnce(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("audit run error")
		return
	}

	total := 0
	for _, r := range results {
		total += r.Conflicts
	}
	logger.Info().
		Int("days", len(results)).
		Int("conflicts", total).
		Dur("took", time.Since(start)).
		Msg("audit run complete")
}
