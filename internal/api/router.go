package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability/internal/schedule"
)

// AvailabilityService is the read-only surface the handlers need.
type AvailabilityService interface {
	ProviderAvailability(ctx context.Context, providerID string, date schedule.Date, granularity int) (schedule.DayAvailability, error)
	ProviderRange(ctx context.Context, providerID string, from schedule.Date, days, granularity int) ([]schedule.DayAvailability, error)
	Conflicts(ctx context.Context, date schedule.Date, providerID string) (schedule.ConflictReport, error)
	Stats(ctx context.Context, date schedule.Date) (schedule.Statistics, error)
}

type RouterConfig struct {
	Service AvailabilityService
	Health  *HealthHandler
	Logger  zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware)

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	// Availability endpoints
	r.Get("/providers/{id}/availability", availabilityHandler(cfg.Service))
	r.Get("/providers/{id}/availability/week", rangeHandler(cfg.Service))
	r.Get("/conflicts", conflictsHandler(cfg.Service))
	r.Get("/stats", statsHandler(cfg.Service))

	return r
}
