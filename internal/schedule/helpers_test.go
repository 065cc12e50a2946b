package schedule

import "time"

// monday is 2024-01-15.
var monday = NewDate(2024, time.January, 15)

func clock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func weekdayProvider(id, start, end string) Provider {
	hours := WeeklyHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = WorkingWindow{Start: clock(start), End: clock(end), Enabled: true}
	}
	hours[time.Saturday] = WorkingWindow{Start: clock(start), End: clock(end), Enabled: false}
	return Provider{ID: id, Status: ProviderActive, WorkingHours: hours}
}

func appt(id, providerID string, date Date, start, end string, status AppointmentStatus) Appointment {
	return Appointment{
		ID:         id,
		ProviderID: providerID,
		PatientID:  "patient-" + id,
		Date:       date,
		Start:      clock(start),
		End:        clock(end),
		Status:     status,
	}
}

func leave(id, providerID string, from, to Date, status LeaveStatus) TimeOffRequest {
	return TimeOffRequest{ID: id, ProviderID: providerID, StartDate: from, EndDate: to, Status: status}
}
