package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability/internal/config"
	"github.com/hackgods/provider-availability/internal/schedule"
)

// 2024-01-15 is a Monday.
const mondayParam = "2024-01-15"

func mustClock(s string) schedule.Clock {
	c, err := schedule.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func testSnapshot() schedule.Snapshot {
	monday := schedule.NewDate(2024, time.January, 15)
	hours := schedule.WeeklyHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = schedule.WorkingWindow{Start: mustClock("09:00"), End: mustClock("12:00"), Enabled: true}
	}
	return schedule.Snapshot{
		Providers: []schedule.Provider{{ID: "p1", Status: schedule.ProviderActive, WorkingHours: hours}},
		Appointments: []schedule.Appointment{
			{ID: "a1", ProviderID: "p1", Date: monday, Start: mustClock("09:00"), End: mustClock("09:45"), Status: schedule.StatusConfirmed},
			{ID: "a2", ProviderID: "p1", Date: monday, Start: mustClock("09:30"), End: mustClock("10:00"), Status: schedule.StatusPending},
		},
	}
}

func newTestRouter() http.Handler {
	store := schedule.NewMemoryStoreFrom(testSnapshot())
	svc := schedule.NewService(store, store, store, nil, config.Config{SlotGranularity: 30}, zerolog.Nop())
	return NewRouter(RouterConfig{Service: svc, Logger: zerolog.Nop()})
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAvailabilityHandler(t *testing.T) {
	rec := doGet(t, newTestRouter(), "/providers/p1/availability?date="+mondayParam)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	var resp AvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(resp.Slots))
	}
	first := resp.Slots[0]
	if first.Available || first.Appointment == nil || first.Appointment.ID != "a1" {
		t.Errorf("expected first slot held by a1, got %+v", first)
	}
	if !resp.Slots[5].Available {
		t.Error("expected last slot available")
	}
}

func TestAvailabilityHandler_Granularity(t *testing.T) {
	rec := doGet(t, newTestRouter(), "/providers/p1/availability?date="+mondayParam+"&granularity=60")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp AvailabilityResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Granularity != 60 || len(resp.Slots) != 3 {
		t.Errorf("expected 3 hour-long slots, got %d at %d", len(resp.Slots), resp.Granularity)
	}
}

func TestAvailabilityHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown provider", "/providers/nobody/availability?date=" + mondayParam, http.StatusNotFound, "provider_not_found"},
		{"bad date", "/providers/p1/availability?date=15-01-2024", http.StatusBadRequest, "invalid_input"},
		{"bad granularity", "/providers/p1/availability?date=" + mondayParam + "&granularity=abc", http.StatusBadRequest, "invalid_input"},
		{"zero-length granularity", "/providers/p1/availability?date=" + mondayParam + "&granularity=-30", http.StatusBadRequest, "invalid_input"},
		{"weekday not configured", "/providers/p1/availability?date=2024-01-14", http.StatusBadRequest, "invalid_input"},
	}

	h := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, h, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Error != tt.code {
				t.Errorf("expected error code %q, got %q", tt.code, resp.Error)
			}
		})
	}
}

func TestRangeHandler(t *testing.T) {
	rec := doGet(t, newTestRouter(), "/providers/p1/availability/week?start="+mondayParam)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RangeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(resp.Days))
	}
	// Saturday and Sunday are not configured.
	if len(resp.Days[5].Slots) != 0 || len(resp.Days[5].Warnings) != 1 {
		t.Errorf("expected empty saturday with a warning, got %+v", resp.Days[5])
	}
}

func TestConflictsHandler(t *testing.T) {
	rec := doGet(t, newTestRouter(), "/conflicts?date="+mondayParam)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ConflictsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(resp.Conflicts))
	}
	c := resp.Conflicts[0]
	if c.AppointmentA.ID != "a1" || c.AppointmentB.ID != "a2" {
		t.Errorf("expected a1/a2, got %s/%s", c.AppointmentA.ID, c.AppointmentB.ID)
	}
	if c.OverlapStart.String() != "09:30" || c.OverlapEnd.String() != "09:45" {
		t.Errorf("expected overlap 09:30-09:45, got %s-%s", c.OverlapStart, c.OverlapEnd)
	}
}

func TestConflictsHandler_EmptyListNotNull(t *testing.T) {
	rec := doGet(t, newTestRouter(), "/conflicts?date=2024-01-16")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(raw["conflicts"]) != "[]" {
		t.Errorf("expected empty conflicts array, got %s", raw["conflicts"])
	}
}

func TestStatsHandler(t *testing.T) {
	rec := doGet(t, newTestRouter(), "/stats?date="+mondayParam)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ActiveProviders    int `json:"activeProviders"`
		TodaysAppointments int `json:"todaysAppointments"`
		AvailableSlots     int `json:"availableSlots"`
		Conflicts          int `json:"conflicts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ActiveProviders != 1 || resp.TodaysAppointments != 2 || resp.AvailableSlots != 4 || resp.Conflicts != 1 {
		t.Errorf("unexpected stats: %+v", resp)
	}
}

type failingService struct {
	err error
}

func (f failingService) ProviderAvailability(context.Context, string, schedule.Date, int) (schedule.DayAvailability, error) {
	return schedule.DayAvailability{}, f.err
}

func (f failingService) ProviderRange(context.Context, string, schedule.Date, int, int) ([]schedule.DayAvailability, error) {
	return nil, f.err
}

func (f failingService) Conflicts(context.Context, schedule.Date, string) (schedule.ConflictReport, error) {
	return schedule.ConflictReport{}, f.err
}

func (f failingService) Stats(context.Context, schedule.Date) (schedule.Statistics, error) {
	return schedule.Statistics{}, f.err
}

func TestHandlers_InternalErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouter(RouterConfig{Service: failingService{err: tt.err}, Logger: zerolog.Nop()})
			rec := doGet(t, h, "/stats")
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestHealth_Readiness(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name   string
		deps   []dependency
		status int
		want   string
	}{
		{
			name:   "all up",
			deps:   []dependency{{name: "postgres", critical: true, ping: func(context.Context) error { return nil }}},
			status: http.StatusOK,
			want:   "ok",
		},
		{
			name: "optional down",
			deps: []dependency{
				{name: "postgres", critical: true, ping: func(context.Context) error { return nil }},
				{name: "redis", ping: func(context.Context) error { return down }},
			},
			status: http.StatusOK,
			want:   "degraded",
		},
		{
			name: "critical down",
			deps: []dependency{
				{name: "postgres", critical: true, ping: func(context.Context) error { return down }},
				{name: "redis", ping: func(context.Context) error { return nil }},
			},
			status: http.StatusServiceUnavailable,
			want:   "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouter(RouterConfig{
				Service: failingService{},
				Health:  newHealthHandler(tt.deps, "test", "v0"),
				Logger:  zerolog.Nop(),
			})
			rec := doGet(t, h, "/health/ready")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var resp ReadinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, resp.Status)
			}
		})
	}
}

func TestHealth_Liveness(t *testing.T) {
	h := NewRouter(RouterConfig{Service: failingService{}, Health: newHealthHandler(nil, "test", "v0"), Logger: zerolog.Nop()})
	rec := doGet(t, h, "/health/live")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := doGet(t, h, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
