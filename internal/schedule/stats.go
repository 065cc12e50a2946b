package schedule

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

type ProviderUtilization struct {
	ProviderID     string          `json:"provider_id"`
	Status         ProviderStatus  `json:"status"`
	TotalSlots     int             `json:"total_slots"`
	AvailableSlots int             `json:"available_slots"`
	OccupiedSlots  int             `json:"occupied_slots"`
	BlockedSlots   int             `json:"blocked_slots"`
	Appointments   int             `json:"appointments"`
	Utilization    decimal.Decimal `json:"utilization"`
}

type Statistics struct {
	Date               Date                  `json:"date"`
	Granularity        int                   `json:"granularity"`
	ActiveProviders    int                   `json:"activeProviders"`
	TodaysAppointments int                   `json:"todaysAppointments"`
	AvailableSlots     int                   `json:"availableSlots"`
	Conflicts          int                   `json:"conflicts"`
	Providers          []ProviderUtilization `json:"providers"`
	Warnings           []Warning             `json:"warnings"`
}

// Summarize derives the day's statistics from a snapshot. Providers without
// configured hours for the weekday contribute zero slots and a warning.
func Summarize(snap Snapshot, asOf Date, granularity int) (Statistics, error) {
	if err := ValidateGranularity(granularity); err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		Date:        asOf,
		Granularity: granularity,
		Providers:   []ProviderUtilization{},
		Warnings:    []Warning{},
	}

	idx := newSnapshotIndex(snap)

	for _, a := range snap.Appointments {
		if a.Date != asOf || !a.IsActive() {
			continue
		}
		stats.TodaysAppointments++
		if _, known := idx.providers[a.ProviderID]; !known {
			stats.Warnings = append(stats.Warnings, Warning{
				Code:          WarnUnknownProvider,
				ProviderID:    a.ProviderID,
				AppointmentID: a.ID,
				Message:       "appointment references a provider that is not in the snapshot",
			})
		}
	}

	providers := append([]Provider(nil), snap.Providers...)
	sort.Slice(providers, func(i, j int) bool { return providers[i].ID < providers[j].ID })

	for _, p := range providers {
		if p.Status == ProviderActive {
			stats.ActiveProviders++
		}

		appts := idx.appointmentsFor(p.ID, asOf)
		u := ProviderUtilization{ProviderID: p.ID, Status: p.Status, Utilization: decimal.Zero}
		for _, a := range appts {
			if a.IsActive() {
				u.Appointments++
			}
		}

		day, err := generateDay(p, asOf, granularity, appts, idx.leaveFor(p.ID))
		switch {
		case errors.Is(err, ErrWeekdayNotConfigured):
			stats.Warnings = append(stats.Warnings, weekdayWarning(p.ID, asOf))
		case err != nil:
			return Statistics{}, err
		default:
			u.TotalSlots = len(day.Slots)
			u.AvailableSlots = day.AvailableCount()
			u.OccupiedSlots = day.OccupiedCount()
			u.BlockedSlots = day.BlockedCount()
			u.Utilization = utilization(u.OccupiedSlots, u.TotalSlots-u.BlockedSlots)
			stats.Warnings = append(stats.Warnings, day.Warnings...)
		}

		stats.AvailableSlots += u.AvailableSlots
		stats.Providers = append(stats.Providers, u)
	}

	report := FindConflicts(snap.Appointments, ConflictFilter{Date: &asOf})
	stats.Conflicts = len(report.Conflicts)

	return stats, nil
}

// utilization is occupied/bookable rounded to four places, zero when nothing is bookable.
func utilization(occupied, bookable int) decimal.Decimal {
	if bookable <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(occupied)).
		Div(decimal.NewFromInt(int64(bookable))).
		Round(4)
}
