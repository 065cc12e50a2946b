package schedule

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrProviderNotFound = errors.New("provider not found")

	ErrInvalidGranularity   = fmt.Errorf("%w: granularity must be between 1 and %d minutes", ErrInvalidInput, maxGranularity)
	ErrWeekdayNotConfigured = fmt.Errorf("%w: weekday has no working hours", ErrInvalidInput)
)

// AppointmentQuery selects appointments dated within [From, To] inclusive.
// An empty ProviderID means all providers.
type AppointmentQuery struct {
	ProviderID string
	From       Date
	To         Date
}

// LeaveQuery selects time-off requests intersecting [From, To] inclusive.
type LeaveQuery struct {
	ProviderID string
	From       Date
	To         Date
}

type ProviderReader interface {
	GetProvider(ctx context.Context, id string) (*Provider, error)
	ListProviders(ctx context.Context) ([]Provider, error)
}

type AppointmentReader interface {
	ListAppointments(ctx context.Context, q AppointmentQuery) ([]Appointment, error)
}

type LeaveReader interface {
	ListTimeOff(ctx context.Context, q LeaveQuery) ([]TimeOffRequest, error)
}

// Repository is the full read surface the service needs.
type Repository interface {
	ProviderReader
	AppointmentReader
	LeaveReader
}
