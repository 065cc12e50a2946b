package schedule

import (
	"errors"
	"fmt"
	"sort"
)

const (
	DefaultGranularity = 30
	maxRangeDays       = 366
)

// DayAvailability is the slot breakdown of one provider's working window on one day.
type DayAvailability struct {
	ProviderID  string    `json:"provider_id"`
	Date        Date      `json:"date"`
	Granularity int       `json:"granularity"`
	Slots       []Slot    `json:"slots"`
	Warnings    []Warning `json:"warnings"`
}

func (d DayAvailability) AvailableCount() int {
	n := 0
	for _, s := range d.Slots {
		if s.Available {
			n++
		}
	}
	return n
}

func (d DayAvailability) OccupiedCount() int {
	n := 0
	for _, s := range d.Slots {
		if s.Appointment != nil {
			n++
		}
	}
	return n
}

func (d DayAvailability) BlockedCount() int {
	n := 0
	for _, s := range d.Slots {
		if s.Leave != nil {
			n++
		}
	}
	return n
}

// GenerateSlots discretizes the provider's working window on date into
// granularity-minute slots and marks each one free, occupied or on leave.
// A disabled window yields no slots; a weekday missing from the working hours
// is an error.
func GenerateSlots(snap Snapshot, provider Provider, date Date, granularity int) (DayAvailability, error) {
	if err := ValidateGranularity(granularity); err != nil {
		return DayAvailability{}, err
	}
	idx := newSnapshotIndex(snap)
	return generateDay(provider, date, granularity, idx.appointmentsFor(provider.ID, date), idx.leaveFor(provider.ID))
}

// GenerateRange returns one DayAvailability per day starting at from. Days whose
// weekday has no configured hours come back empty with a warning.
func GenerateRange(snap Snapshot, provider Provider, from Date, days, granularity int) ([]DayAvailability, error) {
	if err := ValidateGranularity(granularity); err != nil {
		return nil, err
	}
	if days <= 0 || days > maxRangeDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, maxRangeDays)
	}

	idx := newSnapshotIndex(snap)
	leave := idx.leaveFor(provider.ID)

	out := make([]DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		date := from.AddDays(i)
		day, err := generateDay(provider, date, granularity, idx.appointmentsFor(provider.ID, date), leave)
		if errors.Is(err, ErrWeekdayNotConfigured) {
			day = emptyDay(provider.ID, date, granularity)
			day.Warnings = append(day.Warnings, weekdayWarning(provider.ID, date))
		} else if err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, nil
}

// ValidateGranularity accepts slot sizes from one minute up to a full day.
func ValidateGranularity(granularity int) error {
	if granularity <= 0 || granularity > maxGranularity {
		return fmt.Errorf("%w: got %d", ErrInvalidGranularity, granularity)
	}
	return nil
}

func emptyDay(providerID string, date Date, granularity int) DayAvailability {
	return DayAvailability{
		ProviderID:  providerID,
		Date:        date,
		Granularity: granularity,
		Slots:       []Slot{},
		Warnings:    []Warning{},
	}
}

func weekdayWarning(providerID string, date Date) Warning {
	return Warning{
		Code:       WarnWeekdayNotConfigured,
		ProviderID: providerID,
		Message:    fmt.Sprintf("no working hours configured for %s (%s)", date.Weekday(), date),
	}
}

// generateDay expects appts already scoped to (provider, date) and leave scoped to provider.
func generateDay(provider Provider, date Date, granularity int, appts []Appointment, leave []TimeOffRequest) (DayAvailability, error) {
	window, ok := provider.WorkingHours[date.Weekday()]
	if !ok {
		return DayAvailability{}, fmt.Errorf("%w: provider %s on %s", ErrWeekdayNotConfigured, provider.ID, date.Weekday())
	}

	day := emptyDay(provider.ID, date, granularity)

	active := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		if !a.IsActive() {
			continue
		}
		if !a.Interval().Valid() {
			day.Warnings = append(day.Warnings, invalidIntervalWarning(a))
			continue
		}
		active = append(active, a)
	}
	sortAppointments(active)

	for _, r := range leave {
		if r.EndDate.Before(r.StartDate) {
			day.Warnings = append(day.Warnings, invalidLeaveWarning(r))
		}
	}

	blocking := blockingLeave(leave, date)
	day.Warnings = append(day.Warnings, consistencyWarnings(provider, window, blocking, active)...)

	if !window.Enabled {
		return day, nil
	}

	step := Clock(granularity)
	for t := window.Start; t < window.End; t += step {
		end := t + step
		if end > window.End {
			end = window.End
		}
		slot := Slot{Start: t, End: end}

		if a, found := firstOverlap(active, t, end); found {
			slot.Appointment = &a
		} else if blocking != nil {
			lv := *blocking
			slot.Leave = &lv
		} else {
			slot.Available = true
		}
		day.Slots = append(day.Slots, slot)
	}

	return day, nil
}

// firstOverlap scans appointments sorted by start for one intersecting [start, end).
func firstOverlap(sorted []Appointment, start, end Clock) (Appointment, bool) {
	for _, a := range sorted {
		if a.Start >= end {
			break
		}
		if Overlaps(a.Start, a.End, start, end) {
			return a, true
		}
	}
	return Appointment{}, false
}

// blockingLeave picks the approved request covering date with the earliest start,
// ties broken by id.
func blockingLeave(leave []TimeOffRequest, date Date) *TimeOffRequest {
	var best *TimeOffRequest
	for i := range leave {
		r := leave[i]
		if !r.Blocks(date) {
			continue
		}
		if best == nil || r.StartDate.Before(best.StartDate) ||
			(r.StartDate == best.StartDate && r.ID < best.ID) {
			best = &r
		}
	}
	return best
}

func consistencyWarnings(provider Provider, window WorkingWindow, leave *TimeOffRequest, active []Appointment) []Warning {
	var out []Warning
	for _, a := range active {
		if !window.Enabled || a.Start < window.Start || a.End > window.End {
			out = append(out, Warning{
				Code:          WarnOutsideWorkingHours,
				ProviderID:    provider.ID,
				AppointmentID: a.ID,
				Message:       fmt.Sprintf("appointment %s-%s is outside working hours", a.Start, a.End),
			})
		}
		if leave != nil {
			out = append(out, Warning{
				Code:          WarnDuringLeave,
				ProviderID:    provider.ID,
				AppointmentID: a.ID,
				Message:       fmt.Sprintf("appointment falls on approved time off %s", leave.ID),
			})
		}
	}
	limit := provider.Preferences.MaxAppointmentsPerDay
	if limit > 0 && len(active) > limit {
		out = append(out, Warning{
			Code:       WarnMaxAppointments,
			ProviderID: provider.ID,
			Message:    fmt.Sprintf("%d active appointments exceed the daily limit of %d", len(active), limit),
		})
	}
	return out
}

func sortAppointments(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Start != appts[j].Start {
			return appts[i].Start < appts[j].Start
		}
		if appts[i].End != appts[j].End {
			return appts[i].End < appts[j].End
		}
		return appts[i].ID < appts[j].ID
	})
}
