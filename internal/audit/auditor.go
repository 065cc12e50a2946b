// Package audit periodically scans the appointment ledger for double-bookings
// and logs what it finds. It never changes appointments.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/provider-availability/internal/redis"
	"github.com/hackgods/provider-availability/internal/schedule"
)

type ConflictSource interface {
	Conflicts(ctx context.Context, date schedule.Date, providerID string) (schedule.ConflictReport, error)
}

type Result struct {
	Date      schedule.Date
	Conflicts int
	Warnings  int
	Skipped   bool
}

type Auditor struct {
	source    ConflictSource
	locker    redisclient.Locker
	logger    zerolog.Logger
	lookahead int
	now       func() time.Time
}

// NewAuditor audits today plus lookahead following days on each run. locker may
// be nil when only one auditor runs.
func NewAuditor(source ConflictSource, locker redisclient.Locker, lookahead int, logger zerolog.Logger) *Auditor {
	if lookahead < 0 {
		lookahead = 0
	}
	return &Auditor{
		source:    source,
		locker:    locker,
		logger:    logger.With().Str("component", "audit").Logger(),
		lookahead: lookahead,
		now:       time.Now,
	}
}

// RunOnce audits every day in the window. When another replica holds the lock
// the run is skipped, not failed.
func (a *Auditor) RunOnce(ctx context.Context) ([]Result, error) {
	today := schedule.DateOf(a.now())

	var results []Result
	run := func(ctx context.Context) error {
		for i := 0; i <= a.lookahead; i++ {
			date := today.AddDays(i)
			res, err := a.auditDay(ctx, date)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	}

	if a.locker == nil {
		err := run(ctx)
		return results, err
	}

	err := a.locker.WithLock(ctx, "audit:conflicts:"+today.String(), run)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		a.logger.Info().Str("date", today.String()).Msg("another auditor holds the lock, skipping run")
		return []Result{{Date: today, Skipped: true}}, nil
	}
	return results, err
}

func (a *Auditor) auditDay(ctx context.Context, date schedule.Date) (Result, error) {
	report, err := a.source.Conflicts(ctx, date, "")
	if err != nil {
		return Result{}, fmt.Errorf("audit %s: %w", date, err)
	}

	for _, c := range report.Conflicts {
		ev := a.logger.Warn()
		if c.DoubleBookingAllowed {
			ev = a.logger.Info()
		}
		ev.Str("date", date.String()).
			Str("provider_id", c.ProviderID).
			Str("appointment_a", c.A.ID).
			Str("appointment_b", c.B.ID).
			Str("overlap", c.OverlapStart.String()+"-"+c.OverlapEnd.String()).
			Bool("double_booking_allowed", c.DoubleBookingAllowed).
			Msg("double booking detected")
	}
	for _, w := range report.Warnings {
		a.logger.Warn().
			Str("date", date.String()).
			Str("code", string(w.Code)).
			Str("appointment_id", w.AppointmentID).
			Msg(w.Message)
	}

	return Result{Date: date, Conflicts: len(report.Conflicts), Warnings: len(report.Warnings)}, nil
}
