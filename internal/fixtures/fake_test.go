package fixtures

import (
	"reflect"
	"testing"
	"time"

	"github.com/hackgods/provider-availability/internal/schedule"
)

func TestGenerate_Deterministic(t *testing.T) {
	opts := Options{
		Providers:       5,
		From:            schedule.NewDate(2024, time.January, 15),
		Days:            7,
		AppointmentsDay: 8,
		OverlapRatio:    0.2,
		LeaveRatio:      0.3,
		Seed:            42,
	}

	first := Generate(opts)
	second := Generate(opts)
	if !reflect.DeepEqual(first, second) {
		t.Error("expected the same seed to produce the same snapshot")
	}
}

func TestGenerate_Valid(t *testing.T) {
	from := schedule.NewDate(2024, time.January, 15)
	snap := Generate(Options{Providers: 10, From: from, Days: 14, AppointmentsDay: 10, OverlapRatio: 0.3, Seed: 7})

	if len(snap.Providers) != 10 {
		t.Fatalf("expected 10 providers, got %d", len(snap.Providers))
	}
	known := make(map[string]schedule.Provider)
	for _, p := range snap.Providers {
		if err := p.Validate(); err != nil {
			t.Errorf("provider %s invalid: %v", p.ID, err)
		}
		known[p.ID] = p
	}

	last := from.AddDays(13)
	for _, a := range snap.Appointments {
		p, ok := known[a.ProviderID]
		if !ok {
			t.Fatalf("appointment %s references unknown provider", a.ID)
		}
		if a.End <= a.Start {
			t.Errorf("appointment %s has empty interval", a.ID)
		}
		if a.Date.Before(from) || a.Date.After(last) {
			t.Errorf("appointment %s outside the requested range: %s", a.ID, a.Date)
		}
		w := p.WorkingHours[a.Date.Weekday()]
		if !w.Enabled || a.Start < w.Start || a.End > w.End {
			t.Errorf("appointment %s outside working hours", a.ID)
		}
	}
}
