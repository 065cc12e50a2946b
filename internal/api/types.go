package api

import (
	"github.com/hackgods/provider-availability/internal/schedule"
)

type AppointmentRef struct {
	ID        string                     `json:"id"`
	PatientID string                     `json:"patient_id"`
	Start     schedule.Clock             `json:"start"`
	End       schedule.Clock             `json:"end"`
	Type      string                     `json:"type,omitempty"`
	Status    schedule.AppointmentStatus `json:"status"`
}

type LeaveRef struct {
	ID        string               `json:"id"`
	StartDate schedule.Date        `json:"start_date"`
	EndDate   schedule.Date        `json:"end_date"`
	Type      string               `json:"type,omitempty"`
	Status    schedule.LeaveStatus `json:"status"`
}

type SlotResponse struct {
	Start       schedule.Clock  `json:"start"`
	End         schedule.Clock  `json:"end"`
	Available   bool            `json:"available"`
	Appointment *AppointmentRef `json:"appointment,omitempty"`
	Leave       *LeaveRef       `json:"leave,omitempty"`
}

type AvailabilityResponse struct {
	ProviderID  string             `json:"provider_id"`
	Date        schedule.Date      `json:"date"`
	Granularity int                `json:"granularity"`
	Slots       []SlotResponse     `json:"slots"`
	Warnings    []schedule.Warning `json:"warnings"`
}

type RangeResponse struct {
	ProviderID string                 `json:"provider_id"`
	Start      schedule.Date          `json:"start"`
	Days       []AvailabilityResponse `json:"days"`
}

type ConflictResponse struct {
	ProviderID           string         `json:"provider_id"`
	Date                 schedule.Date  `json:"date"`
	AppointmentA         AppointmentRef `json:"appointment_a"`
	AppointmentB         AppointmentRef `json:"appointment_b"`
	OverlapStart         schedule.Clock `json:"overlap_start"`
	OverlapEnd           schedule.Clock `json:"overlap_end"`
	DoubleBookingAllowed bool           `json:"double_booking_allowed"`
}

type ConflictsResponse struct {
	Date      schedule.Date      `json:"date"`
	Conflicts []ConflictResponse `json:"conflicts"`
	Warnings  []schedule.Warning `json:"warnings"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentRef(a schedule.Appointment) AppointmentRef {
	return AppointmentRef{
		ID:        a.ID,
		PatientID: a.PatientID,
		Start:     a.Start,
		End:       a.End,
		Type:      a.Type,
		Status:    a.Status,
	}
}

func toAvailabilityResponse(day schedule.DayAvailability) AvailabilityResponse {
	resp := AvailabilityResponse{
		ProviderID:  day.ProviderID,
		Date:        day.Date,
		Granularity: day.Granularity,
		Slots:       make([]SlotResponse, 0, len(day.Slots)),
		Warnings:    day.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []schedule.Warning{}
	}
	for _, s := range day.Slots {
		sr := SlotResponse{Start: s.Start, End: s.End, Available: s.Available}
		if s.Appointment != nil {
			ref := toAppointmentRef(*s.Appointment)
			sr.Appointment = &ref
		}
		if s.Leave != nil {
			sr.Leave = &LeaveRef{
				ID:        s.Leave.ID,
				StartDate: s.Leave.StartDate,
				EndDate:   s.Leave.EndDate,
				Type:      s.Leave.Type,
				Status:    s.Leave.Status,
			}
		}
		resp.Slots = append(resp.Slots, sr)
	}
	return resp
}

func toConflictsResponse(date schedule.Date, report schedule.ConflictReport) ConflictsResponse {
	resp := ConflictsResponse{
		Date:      date,
		Conflicts: make([]ConflictResponse, 0, len(report.Conflicts)),
		Warnings:  report.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []schedule.Warning{}
	}
	for _, c := range report.Conflicts {
		resp.Conflicts = append(resp.Conflicts, ConflictResponse{
			ProviderID:           c.ProviderID,
			Date:                 c.Date,
			AppointmentA:         toAppointmentRef(c.A),
			AppointmentB:         toAppointmentRef(c.B),
			OverlapStart:         c.OverlapStart,
			OverlapEnd:           c.OverlapEnd,
			DoubleBookingAllowed: c.DoubleBookingAllowed,
		})
	}
	return resp
}
