package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability/internal/config"
	"github.com/hackgods/provider-availability/internal/db"
	"github.com/hackgods/provider-availability/internal/fixtures"
	"github.com/hackgods/provider-availability/internal/logging"
	"github.com/hackgods/provider-availability/internal/schedule"
)

const batchSize = 500

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New("seed", os.Getenv("APP_ENV"))
		logger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New("seed", cfg.Env)

	opts := fixtures.Options{
		Providers:       getInt("SEED_PROVIDERS", 100),
		From:            schedule.DateOf(time.Now()),
		Days:            getInt("SEED_DAYS", 14),
		AppointmentsDay: getInt("SEED_APPOINTMENTS_PER_DAY", 12),
		OverlapRatio:    getFloat("SEED_OVERLAP_RATIO", 0.05),
		LeaveRatio:      getFloat("SEED_LEAVE_RATIO", 0.1),
		Seed:            int64(getInt("SEED_RANDOM", int(time.Now().UnixNano()%1_000_000))),
	}
	logger.Info().
		Int("providers", opts.Providers).
		Int("days", opts.Days).
		Int64("seed", opts.Seed).
		Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.ApplySchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	snap := fixtures.Generate(opts)
	repo := schedule.NewPgRepository(pool)

	if err := seedProviders(ctx, pool, repo, snap.Providers, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed providers")
	}
	if err := seedAppointments(ctx, pool, repo, snap.Appointments, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}
	if err := seedTimeOff(ctx, pool, repo, snap.Leave, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed time off")
	}

	logger.Info().Msg("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, repo *schedule.PgRepository, providers []schedule.Provider, logger zerolog.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, p := range providers {
		if err := repo.InsertProvider(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Int("count", len(providers)).Msg("providers seeded")
	return nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, repo *schedule.PgRepository, appts []schedule.Appointment, logger zerolog.Logger) error {
	for offset := 0; offset < len(appts); offset += batchSize {
		end := min(offset+batchSize, len(appts))

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for _, a := range appts[offset:end] {
			if err := repo.InsertAppointment(ctx, tx, a); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Msgf("appointments seeded: %d/%d", end, len(appts))
	}
	return nil
}

func seedTimeOff(ctx context.Context, pool *pgxpool.Pool, repo *schedule.PgRepository, leave []schedule.TimeOffRequest, logger zerolog.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range leave {
		if err := repo.InsertTimeOff(ctx, tx, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Int("count", len(leave)).Msg("time off seeded")
	return nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
