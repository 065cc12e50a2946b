package schedule

import (
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func TestFindConflicts_SinglePair(t *testing.T) {
	appts := []Appointment{
		appt("b", "p1", monday, "09:30", "10:00", StatusPending),
		appt("a", "p1", monday, "09:00", "09:45", StatusConfirmed),
	}

	report := FindConflicts(appts, ConflictFilter{})
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(report.Conflicts))
	}
	c := report.Conflicts[0]
	if c.A.ID != "a" || c.B.ID != "b" {
		t.Errorf("expected pair (a, b), got (%s, %s)", c.A.ID, c.B.ID)
	}
	if c.OverlapStart != clock("09:30") || c.OverlapEnd != clock("09:45") {
		t.Errorf("expected overlap 09:30-09:45, got %s-%s", c.OverlapStart, c.OverlapEnd)
	}
	if c.ProviderID != "p1" || c.Date != monday {
		t.Errorf("unexpected conflict scope: %s %s", c.ProviderID, c.Date)
	}
}

func TestFindConflicts_BackToBack(t *testing.T) {
	appts := []Appointment{
		appt("a", "p1", monday, "09:00", "09:30", StatusConfirmed),
		appt("b", "p1", monday, "09:30", "10:00", StatusConfirmed),
	}

	if got := FindConflicts(appts, ConflictFilter{}).Conflicts; len(got) != 0 {
		t.Errorf("expected no conflicts for touching appointments, got %+v", got)
	}
}

func TestFindConflicts_IgnoresInactiveAndOtherScopes(t *testing.T) {
	appts := []Appointment{
		appt("a", "p1", monday, "09:00", "10:00", StatusConfirmed),
		appt("b", "p1", monday, "09:15", "09:45", StatusCancelled),
		appt("c", "p2", monday, "09:15", "09:45", StatusConfirmed),
		appt("d", "p1", monday.AddDays(1), "09:15", "09:45", StatusConfirmed),
	}

	if got := FindConflicts(appts, ConflictFilter{}).Conflicts; len(got) != 0 {
		t.Errorf("expected no conflicts, got %+v", got)
	}
}

func TestFindConflicts_Filter(t *testing.T) {
	tuesday := monday.AddDays(1)
	appts := []Appointment{
		appt("a", "p1", monday, "09:00", "10:00", StatusConfirmed),
		appt("b", "p1", monday, "09:30", "10:30", StatusConfirmed),
		appt("c", "p2", monday, "09:00", "10:00", StatusConfirmed),
		appt("d", "p2", monday, "09:30", "10:30", StatusConfirmed),
		appt("e", "p1", tuesday, "09:00", "10:00", StatusConfirmed),
		appt("f", "p1", tuesday, "09:30", "10:30", StatusConfirmed),
	}

	if got := len(FindConflicts(appts, ConflictFilter{}).Conflicts); got != 3 {
		t.Errorf("expected 3 conflicts unfiltered, got %d", got)
	}
	if got := len(FindConflicts(appts, ConflictFilter{ProviderID: "p1"}).Conflicts); got != 2 {
		t.Errorf("expected 2 conflicts for p1, got %d", got)
	}
	if got := len(FindConflicts(appts, ConflictFilter{Date: &tuesday}).Conflicts); got != 1 {
		t.Errorf("expected 1 conflict on tuesday, got %d", got)
	}
	if got := len(FindConflicts(appts, ConflictFilter{ProviderID: "p2", Date: &tuesday}).Conflicts); got != 0 {
		t.Errorf("expected no conflicts for p2 on tuesday, got %d", got)
	}
}

func TestFindConflicts_NestedAppointments(t *testing.T) {
	appts := []Appointment{
		appt("outer", "p1", monday, "09:00", "12:00", StatusConfirmed),
		appt("x", "p1", monday, "09:30", "10:00", StatusConfirmed),
		appt("y", "p1", monday, "10:30", "11:00", StatusConfirmed),
	}

	report := FindConflicts(appts, ConflictFilter{})
	got := pairIDs(report.Conflicts)
	want := []string{"outer/x", "outer/y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFindConflicts_Idempotent(t *testing.T) {
	appts := randomAppointments(rand.New(rand.NewSource(7)), 60)

	first := FindConflicts(appts, ConflictFilter{})
	second := FindConflicts(appts, ConflictFilter{})
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical reports for identical input")
	}

	shuffled := append([]Appointment(nil), appts...)
	rand.New(rand.NewSource(8)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if third := FindConflicts(shuffled, ConflictFilter{}); !reflect.DeepEqual(first, third) {
		t.Error("expected input order not to affect the report")
	}
}

func TestFindConflicts_MatchesPairwise(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		appts := randomAppointments(rand.New(rand.NewSource(seed)), 40)

		got := pairIDs(FindConflicts(appts, ConflictFilter{}).Conflicts)
		want := bruteForcePairs(appts)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("seed %d: sweep found %v, pairwise found %v", seed, got, want)
		}
	}
}

func TestFindConflicts_InvalidIntervalWarning(t *testing.T) {
	appts := []Appointment{
		appt("bad", "p1", monday, "10:00", "09:00", StatusConfirmed),
		appt("ok", "p1", monday, "09:00", "10:00", StatusConfirmed),
	}

	report := FindConflicts(appts, ConflictFilter{})
	if len(report.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", report.Conflicts)
	}
	if !hasWarning(report.Warnings, WarnInvalidInterval, "bad") {
		t.Errorf("expected invalid_interval warning, got %+v", report.Warnings)
	}
}

func TestFindConflicts_DuplicateID(t *testing.T) {
	appts := []Appointment{
		appt("a1", "p1", monday, "09:00", "10:00", StatusConfirmed),
		appt("a1", "p1", monday, "09:30", "10:30", StatusConfirmed),
		appt("a2", "p1", monday, "09:45", "10:15", StatusConfirmed),
	}

	report := FindConflicts(appts, ConflictFilter{})
	for _, c := range report.Conflicts {
		if c.A.ID == c.B.ID {
			t.Errorf("expected no pair of an appointment with itself, got %s/%s", c.A.ID, c.B.ID)
		}
	}
	if got := pairIDs(report.Conflicts); !reflect.DeepEqual(got, []string{"a1/a2"}) {
		t.Errorf("expected only a1/a2, got %v", got)
	}
	if !hasWarning(report.Warnings, WarnDuplicateID, "a1") {
		t.Errorf("expected duplicate_appointment_id warning, got %+v", report.Warnings)
	}
}

func TestAnnotatePolicy(t *testing.T) {
	appts := []Appointment{
		appt("a", "p1", monday, "09:00", "10:00", StatusConfirmed),
		appt("b", "p1", monday, "09:30", "10:30", StatusConfirmed),
		appt("c", "p2", monday, "09:00", "10:00", StatusConfirmed),
		appt("d", "p2", monday, "09:30", "10:30", StatusConfirmed),
	}
	p1 := weekdayProvider("p1", "09:00", "17:00")
	p1.Preferences.AllowDoubleBooking = true
	p2 := weekdayProvider("p2", "09:00", "17:00")

	pairs := AnnotatePolicy(FindConflicts(appts, ConflictFilter{}).Conflicts, []Provider{p1, p2})
	if len(pairs) != 2 {
		t.Fatalf("expected both conflicts to be reported, got %d", len(pairs))
	}
	if !pairs[0].DoubleBookingAllowed || pairs[0].ProviderID != "p1" {
		t.Errorf("expected p1 pair to be marked allowed, got %+v", pairs[0])
	}
	if pairs[1].DoubleBookingAllowed {
		t.Errorf("expected p2 pair not to be marked allowed")
	}
}

func randomAppointments(rng *rand.Rand, n int) []Appointment {
	statuses := []AppointmentStatus{StatusConfirmed, StatusPending, StatusScheduled, StatusCancelled}
	out := make([]Appointment, 0, n)
	for i := 0; i < n; i++ {
		start := ClockOf(8+rng.Intn(8), 15*rng.Intn(4))
		out = append(out, Appointment{
			ID:         fmt.Sprintf("a%03d", i),
			ProviderID: fmt.Sprintf("p%d", rng.Intn(3)),
			Date:       monday.AddDays(rng.Intn(2)),
			Start:      start,
			End:        start.Add(15 * (1 + rng.Intn(6))),
			Status:     statuses[rng.Intn(len(statuses))],
		})
	}
	return out
}

func bruteForcePairs(appts []Appointment) []string {
	out := []string{}
	for i := range appts {
		for j := i + 1; j < len(appts); j++ {
			x, y := appts[i], appts[j]
			if !x.IsActive() || !y.IsActive() || x.ProviderID != y.ProviderID || x.Date != y.Date {
				continue
			}
			if !Overlaps(x.Start, x.End, y.Start, y.End) {
				continue
			}
			if y.ID < x.ID {
				x, y = y, x
			}
			out = append(out, x.ID+"/"+y.ID)
		}
	}
	sort.Strings(out)
	return out
}

func pairIDs(pairs []ConflictPair) []string {
	out := make([]string, 0, len(pairs))
	for _, c := range pairs {
		out = append(out, c.A.ID+"/"+c.B.ID)
	}
	sort.Strings(out)
	return out
}
