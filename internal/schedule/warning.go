package schedule

import "fmt"

type WarningCode string

const (
	WarnInvalidInterval      WarningCode = "invalid_interval"
	WarnOutsideWorkingHours  WarningCode = "outside_working_hours"
	WarnDuringLeave          WarningCode = "during_leave"
	WarnMaxAppointments      WarningCode = "max_appointments_exceeded"
	WarnWeekdayNotConfigured WarningCode = "weekday_not_configured"
	WarnUnknownProvider      WarningCode = "unknown_provider"
	WarnInvalidLeaveRange    WarningCode = "invalid_leave_range"
	WarnDuplicateID          WarningCode = "duplicate_appointment_id"
)

// Warning reports a record that was inconsistent but did not stop the computation.
type Warning struct {
	Code          WarningCode `json:"code"`
	ProviderID    string      `json:"provider_id,omitempty"`
	AppointmentID string      `json:"appointment_id,omitempty"`
	LeaveID       string      `json:"leave_id,omitempty"`
	Message       string      `json:"message"`
}

func invalidIntervalWarning(a Appointment) Warning {
	return Warning{
		Code:          WarnInvalidInterval,
		ProviderID:    a.ProviderID,
		AppointmentID: a.ID,
		Message:       fmt.Sprintf("appointment ends at %s, not after its start %s; excluded", a.End, a.Start),
	}
}

func invalidLeaveWarning(r TimeOffRequest) Warning {
	return Warning{
		Code:       WarnInvalidLeaveRange,
		ProviderID: r.ProviderID,
		LeaveID:    r.ID,
		Message:    fmt.Sprintf("time off ends %s before it starts %s; ignored", r.EndDate, r.StartDate),
	}
}

func duplicateIDWarning(a Appointment) Warning {
	return Warning{
		Code:          WarnDuplicateID,
		ProviderID:    a.ProviderID,
		AppointmentID: a.ID,
		Message:       fmt.Sprintf("appointment id %s appears more than once; only the first record is checked", a.ID),
	}
}
