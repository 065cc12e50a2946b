package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hackgods/provider-availability/internal/config"
	redisclient "github.com/hackgods/provider-availability/internal/redis"
)

const statsComputeTimeout = 30 * time.Second

// Service loads consistent snapshots from the readers and hands them to the
// pure engine functions. It keeps no ledger state of its own.
type Service struct {
	providers    ProviderReader
	appointments AppointmentReader
	leave        LeaveReader
	cache        redisclient.Cache
	cfg          config.Config
	logger       zerolog.Logger
	flight       singleflight.Group
}

// NewService wires the readers. cache may be nil, which disables stats caching.
func NewService(providers ProviderReader, appointments AppointmentReader, leave LeaveReader, cache redisclient.Cache, cfg config.Config, logger zerolog.Logger) *Service {
	if cfg.SlotGranularity <= 0 {
		cfg.SlotGranularity = DefaultGranularity
	}
	return &Service{
		providers:    providers,
		appointments: appointments,
		leave:        leave,
		cache:        cache,
		cfg:          cfg,
		logger:       logger.With().Str("component", "schedule").Logger(),
	}
}

// DefaultGranularity returns the configured slot size used when a caller passes 0.
func (s *Service) DefaultGranularity() int {
	return s.cfg.SlotGranularity
}

func (s *Service) resolveGranularity(g int) (int, error) {
	if g == 0 {
		g = s.cfg.SlotGranularity
	}
	if err := ValidateGranularity(g); err != nil {
		return 0, err
	}
	return g, nil
}

func (s *Service) loadProvider(ctx context.Context, id string) (*Provider, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: provider id is required", ErrInvalidInput)
	}
	p, err := s.providers.GetProvider(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load provider %s: %w", id, err)
	}
	return p, nil
}

// loadLedgers reads appointments and leave for [from, to] concurrently.
func (s *Service) loadLedgers(ctx context.Context, providerID string, from, to Date) ([]Appointment, []TimeOffRequest, error) {
	var appts []Appointment
	var leave []TimeOffRequest

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appts, err = s.appointments.ListAppointments(gctx, AppointmentQuery{ProviderID: providerID, From: from, To: to})
		if err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		leave, err = s.leave.ListTimeOff(gctx, LeaveQuery{ProviderID: providerID, From: from, To: to})
		if err != nil {
			return fmt.Errorf("list time off: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return appts, leave, nil
}

// ProviderAvailability returns the slot breakdown for one provider on one day.
func (s *Service) ProviderAvailability(ctx context.Context, providerID string, date Date, granularity int) (DayAvailability, error) {
	g, err := s.resolveGranularity(granularity)
	if err != nil {
		return DayAvailability{}, err
	}

	p, err := s.loadProvider(ctx, providerID)
	if err != nil {
		return DayAvailability{}, err
	}

	appts, leave, err := s.loadLedgers(ctx, p.ID, date, date)
	if err != nil {
		return DayAvailability{}, err
	}

	snap := Snapshot{Providers: []Provider{*p}, Appointments: appts, Leave: leave}
	return GenerateSlots(snap, *p, date, g)
}

// ProviderRange returns availability for consecutive days starting at from.
func (s *Service) ProviderRange(ctx context.Context, providerID string, from Date, days, granularity int) ([]DayAvailability, error) {
	g, err := s.resolveGranularity(granularity)
	if err != nil {
		return nil, err
	}
	if days <= 0 || days > maxRangeDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, maxRangeDays)
	}

	p, err := s.loadProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	appts, leave, err := s.loadLedgers(ctx, p.ID, from, from.AddDays(days-1))
	if err != nil {
		return nil, err
	}

	snap := Snapshot{Providers: []Provider{*p}, Appointments: appts, Leave: leave}
	return GenerateRange(snap, *p, from, days, g)
}

// Conflicts reports overlapping active appointments on date, optionally for one provider.
func (s *Service) Conflicts(ctx context.Context, date Date, providerID string) (ConflictReport, error) {
	var providers []Provider
	if providerID != "" {
		p, err := s.loadProvider(ctx, providerID)
		if err != nil {
			return ConflictReport{}, err
		}
		providers = []Provider{*p}
	} else {
		all, err := s.providers.ListProviders(ctx)
		if err != nil {
			return ConflictReport{}, fmt.Errorf("list providers: %w", err)
		}
		providers = all
	}

	appts, err := s.appointments.ListAppointments(ctx, AppointmentQuery{ProviderID: providerID, From: date, To: date})
	if err != nil {
		return ConflictReport{}, fmt.Errorf("list appointments: %w", err)
	}

	report := FindConflicts(appts, ConflictFilter{ProviderID: providerID, Date: &date})
	report.Conflicts = AnnotatePolicy(report.Conflicts, providers)
	return report, nil
}

// Stats summarizes date across all providers. Results may be served from the
// cache for up to StatsCacheTTL; concurrent misses for the same key share one
// computation.
func (s *Service) Stats(ctx context.Context, date Date) (Statistics, error) {
	g := s.cfg.SlotGranularity
	key := fmt.Sprintf("stats:%s:%d", date, g)

	if cached, ok := s.cachedStats(ctx, key); ok {
		return cached, nil
	}

	ch := s.flight.DoChan(key, func() (any, error) {
		// The shared computation outlives any single caller; each caller
		// still stops waiting when its own ctx ends.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsComputeTimeout)
		defer cancel()

		stats, err := s.computeStats(fctx, date, g)
		if err != nil {
			return Statistics{}, err
		}
		s.storeStats(fctx, key, stats)
		return stats, nil
	})

	select {
	case <-ctx.Done():
		return Statistics{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Statistics{}, res.Err
		}
		return res.Val.(Statistics), nil
	}
}

func (s *Service) computeStats(ctx context.Context, date Date, granularity int) (Statistics, error) {
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		providers, err := s.providers.ListProviders(gctx)
		if err != nil {
			return fmt.Errorf("list providers: %w", err)
		}
		snap.Providers = providers
		return nil
	})
	g.Go(func() error {
		appts, leave, err := s.loadLedgers(gctx, "", date, date)
		if err != nil {
			return err
		}
		snap.Appointments = appts
		snap.Leave = leave
		return nil
	})
	if err := g.Wait(); err != nil {
		return Statistics{}, err
	}

	return Summarize(snap, date, granularity)
}

func (s *Service) cachedStats(ctx context.Context, key string) (Statistics, bool) {
	if s.cache == nil || s.cfg.StatsCacheTTL <= 0 {
		return Statistics{}, false
	}

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("stats cache read failed, recomputing")
		return Statistics{}, false
	}
	if !ok {
		return Statistics{}, false
	}

	var stats Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cached stats")
		return Statistics{}, false
	}
	return stats, true
}

func (s *Service) storeStats(ctx context.Context, key string, stats Statistics) {
	if s.cache == nil || s.cfg.StatsCacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to encode stats for cache")
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.StatsCacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
}
