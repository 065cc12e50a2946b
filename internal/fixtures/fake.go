// Package fixtures generates synthetic ledgers for seeding and load tests.
package fixtures

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/provider-availability/internal/schedule"
)

type Options struct {
	Providers       int
	From            schedule.Date
	Days            int
	AppointmentsDay int     // per provider per working day, upper bound
	OverlapRatio    float64 // share of appointments deliberately placed over another
	LeaveRatio      float64 // share of providers with an approved leave block
	Seed            int64
}

var specialties = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Psychiatry",
	"Orthopedics",
	"Neurology",
	"ENT",
}

var appointmentTypes = []schedule.AppointmentType{
	{Label: "Consultation", DurationMinutes: 30, ColorTag: "blue"},
	{Label: "Follow-up", DurationMinutes: 15, ColorTag: "green"},
	{Label: "Procedure", DurationMinutes: 60, ColorTag: "red"},
}

var leaveReasons = []string{
	"Annual leave",
	"Medical leave",
	"Conference attendance",
	"Family matter",
	"Training",
}

var visitNotes = []string{
	"",
	"First visit",
	"Bring previous results",
	"Follow-up on medication",
	"Referred by GP",
	"Telehealth requested",
}

var activeStatuses = []schedule.AppointmentStatus{
	schedule.StatusPending,
	schedule.StatusConfirmed,
	schedule.StatusScheduled,
}

var inactiveStatuses = []schedule.AppointmentStatus{
	schedule.StatusCompleted,
	schedule.StatusCancelled,
	schedule.StatusRescheduleRequested,
}

// Generate builds a snapshot. With the same Seed it returns the same data.
func Generate(opts Options) schedule.Snapshot {
	faker := gofakeit.New(uint64(opts.Seed))
	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.From.IsZero() {
		opts.From = schedule.DateOf(time.Now())
	}

	var snap schedule.Snapshot
	for i := 0; i < opts.Providers; i++ {
		p := fakeProvider(faker)
		snap.Providers = append(snap.Providers, p)

		for d := 0; d < opts.Days; d++ {
			date := opts.From.AddDays(d)
			window, ok := p.WorkingHours[date.Weekday()]
			if !ok || !window.Enabled {
				continue
			}
			snap.Appointments = append(snap.Appointments, fakeDay(faker, p, date, window, opts)...)
		}

		if faker.Float64Range(0, 1) < opts.LeaveRatio {
			start := opts.From.AddDays(faker.Number(0, opts.Days-1))
			snap.Leave = append(snap.Leave, schedule.TimeOffRequest{
				ID:         faker.UUID(),
				ProviderID: p.ID,
				StartDate:  start,
				EndDate:    start.AddDays(faker.Number(0, 2)),
				Reason:     faker.RandomString(leaveReasons),
				Status:     schedule.LeaveApproved,
				Type:       faker.RandomString([]string{"vacation", "sick", "conference"}),
			})
		}
	}
	return snap
}

func fakeProvider(faker *gofakeit.Faker) schedule.Provider {
	start := schedule.ClockOf(faker.Number(7, 9), 0)
	end := schedule.ClockOf(faker.Number(15, 18), 0)

	hours := schedule.WeeklyHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = schedule.WorkingWindow{Start: start, End: end, Enabled: true}
	}
	hours[time.Saturday] = schedule.WorkingWindow{Start: start, End: schedule.ClockOf(12, 0), Enabled: faker.Bool()}
	hours[time.Sunday] = schedule.WorkingWindow{Start: start, End: end, Enabled: false}

	status := schedule.ProviderActive
	if faker.Number(1, 10) == 1 {
		status = schedule.ProviderInactive
	}

	return schedule.Provider{
		ID:               faker.UUID(),
		Name:             "Dr. " + faker.LastName() + " (" + faker.RandomString(specialties) + ")",
		Status:           status,
		WorkingHours:     hours,
		AppointmentTypes: appointmentTypes,
		Preferences: schedule.Preferences{
			BufferMinutes:         faker.RandomInt([]int{0, 5, 10}),
			MaxAppointmentsPerDay: faker.Number(8, 20),
			AllowDoubleBooking:    faker.Number(1, 5) == 1,
			AutoConfirm:           faker.Bool(),
		},
	}
}

// fakeDay lays appointments back to back on a 15-minute grid, then moves a share
// of them onto the previous appointment to create overlaps.
func fakeDay(faker *gofakeit.Faker, p schedule.Provider, date schedule.Date, window schedule.WorkingWindow, opts Options) []schedule.Appointment {
	count := faker.Number(0, opts.AppointmentsDay)
	var out []schedule.Appointment

	cursor := window.Start
	for i := 0; i < count; i++ {
		kind := appointmentTypes[faker.Number(0, len(appointmentTypes)-1)]
		cursor = cursor.Add(15 * faker.Number(0, 2))

		start := cursor
		if len(out) > 0 && faker.Float64Range(0, 1) < opts.OverlapRatio {
			start = out[len(out)-1].Start.Add(15)
		}
		end := start.Add(kind.DurationMinutes)
		if end > window.End {
			break
		}

		status := activeStatuses[faker.Number(0, len(activeStatuses)-1)]
		if faker.Number(1, 6) == 1 {
			status = inactiveStatuses[faker.Number(0, len(inactiveStatuses)-1)]
		}

		out = append(out, schedule.Appointment{
			ID:         faker.UUID(),
			ProviderID: p.ID,
			PatientID:  faker.UUID(),
			Date:       date,
			Start:      start,
			End:        end,
			Type:       kind.Label,
			Status:     status,
			Notes:      faker.RandomString(visitNotes),
		})
		if end > cursor {
			cursor = end
		}
	}
	return out
}
