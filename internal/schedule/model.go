package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	StatusPending             AppointmentStatus = "pending"
	StatusConfirmed           AppointmentStatus = "confirmed"
	StatusScheduled           AppointmentStatus = "scheduled"
	StatusCompleted           AppointmentStatus = "completed"
	StatusCancelled           AppointmentStatus = "cancelled"
	StatusRescheduleRequested AppointmentStatus = "reschedule_requested"
)

// IsActive reports whether an appointment in this status occupies calendar time.
func (s AppointmentStatus) IsActive() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusScheduled:
		return true
	}
	return false
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

type ProviderStatus string

const (
	ProviderActive   ProviderStatus = "active"
	ProviderInactive ProviderStatus = "inactive"
)

type WorkingWindow struct {
	Start   Clock `json:"start"`
	End     Clock `json:"end"`
	Enabled bool  `json:"enabled"`
}

// WeeklyHours maps a weekday to the provider's working window for that day.
// It encodes to JSON with lowercase weekday names as keys.
type WeeklyHours map[time.Weekday]WorkingWindow

func (h WeeklyHours) MarshalJSON() ([]byte, error) {
	out := make(map[string]WorkingWindow, len(h))
	for day, w := range h {
		out[strings.ToLower(day.String())] = w
	}
	return json.Marshal(out)
}

func (h *WeeklyHours) UnmarshalJSON(data []byte) error {
	var raw map[string]WorkingWindow
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := make(WeeklyHours, len(raw))
	for name, w := range raw {
		day, err := ParseWeekday(name)
		if err != nil {
			return err
		}
		parsed[day] = w
	}
	*h = parsed
	return nil
}

// ParseWeekday accepts full ("monday") or short ("mon") English names, case-insensitive.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, name)
}

type AppointmentType struct {
	Label           string `json:"label"`
	DurationMinutes int    `json:"duration_minutes"`
	ColorTag        string `json:"color_tag,omitempty"`
}

type Preferences struct {
	BufferMinutes         int  `json:"buffer_minutes"`
	MaxAppointmentsPerDay int  `json:"max_appointments_per_day"`
	AllowDoubleBooking    bool `json:"allow_double_booking"`
	AutoConfirm           bool `json:"auto_confirm"`
}

type Provider struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Status           ProviderStatus    `json:"status"`
	WorkingHours     WeeklyHours       `json:"working_hours"`
	AppointmentTypes []AppointmentType `json:"appointment_types,omitempty"`
	Preferences      Preferences       `json:"preferences"`
}

// Validate checks the provider profile for impossible values. Zero appointment types is valid;
// only booking needs them.
func (p Provider) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: provider id is empty", ErrInvalidInput)
	}
	for day, w := range p.WorkingHours {
		if w.Enabled && w.End <= w.Start {
			return fmt.Errorf("%w: provider %s has empty working window on %s", ErrInvalidInput, p.ID, day)
		}
	}
	for _, t := range p.AppointmentTypes {
		if t.DurationMinutes <= 0 {
			return fmt.Errorf("%w: appointment type %q must have a positive duration", ErrInvalidInput, t.Label)
		}
	}
	if p.Preferences.BufferMinutes < 0 || p.Preferences.MaxAppointmentsPerDay < 0 {
		return fmt.Errorf("%w: provider %s has negative preferences", ErrInvalidInput, p.ID)
	}
	return nil
}

type Appointment struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	PatientID  string            `json:"patient_id"`
	Date       Date              `json:"date"`
	Start      Clock             `json:"start"`
	End        Clock             `json:"end"`
	Type       string            `json:"type,omitempty"`
	Status     AppointmentStatus `json:"status"`
	Notes      string            `json:"notes,omitempty"`
}

func (a Appointment) IsActive() bool {
	return a.Status.IsActive()
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.Start, End: a.End}
}

type TimeOffRequest struct {
	ID         string      `json:"id"`
	ProviderID string      `json:"provider_id"`
	StartDate  Date        `json:"start_date"`
	EndDate    Date        `json:"end_date"`
	Reason     string      `json:"reason,omitempty"`
	Status     LeaveStatus `json:"status"`
	Type       string      `json:"type,omitempty"`
}

// Covers reports whether d falls inside the inclusive [StartDate, EndDate] range.
func (r TimeOffRequest) Covers(d Date) bool {
	return !d.Before(r.StartDate) && !d.After(r.EndDate)
}

// Blocks reports whether this request removes availability on d.
func (r TimeOffRequest) Blocks(d Date) bool {
	return r.Status == LeaveApproved && r.Covers(d)
}

// Slot is one granularity-sized step of a working window. When Available is false
// exactly one of Appointment or Leave is set.
type Slot struct {
	Start       Clock           `json:"start"`
	End         Clock           `json:"end"`
	Available   bool            `json:"available"`
	Appointment *Appointment    `json:"appointment,omitempty"`
	Leave       *TimeOffRequest `json:"leave,omitempty"`
}

type ConflictPair struct {
	ProviderID           string      `json:"provider_id"`
	Date                 Date        `json:"date"`
	A                    Appointment `json:"appointment_a"`
	B                    Appointment `json:"appointment_b"`
	OverlapStart         Clock       `json:"overlap_start"`
	OverlapEnd           Clock       `json:"overlap_end"`
	DoubleBookingAllowed bool        `json:"double_booking_allowed"`
}

// Snapshot is the immutable input to every engine call.
type Snapshot struct {
	Providers    []Provider       `json:"providers"`
	Appointments []Appointment    `json:"appointments"`
	Leave        []TimeOffRequest `json:"leave"`
}
