package schedule

import "sort"

// ConflictFilter scopes conflict detection. Zero values mean "all".
type ConflictFilter struct {
	ProviderID string
	Date       *Date
}

func (f ConflictFilter) matches(a Appointment) bool {
	if f.ProviderID != "" && a.ProviderID != f.ProviderID {
		return false
	}
	if f.Date != nil && a.Date != *f.Date {
		return false
	}
	return true
}

type ConflictReport struct {
	Conflicts []ConflictPair `json:"conflicts"`
	Warnings  []Warning      `json:"warnings"`
}

// FindConflicts reports every pair of active appointments for the same provider
// and date whose intervals overlap. Each pair appears once with the lower id as A,
// and the result order is stable across calls on the same input.
func FindConflicts(appointments []Appointment, filter ConflictFilter) ConflictReport {
	report := ConflictReport{Conflicts: []ConflictPair{}, Warnings: []Warning{}}

	groups := make(map[providerDay][]Appointment)
	seen := make(map[string]struct{}, len(appointments))
	for _, a := range appointments {
		if !a.IsActive() || !filter.matches(a) {
			continue
		}
		if !a.Interval().Valid() {
			report.Warnings = append(report.Warnings, invalidIntervalWarning(a))
			continue
		}
		if _, dup := seen[a.ID]; dup {
			report.Warnings = append(report.Warnings, duplicateIDWarning(a))
			continue
		}
		seen[a.ID] = struct{}{}
		key := providerDay{providerID: a.ProviderID, date: a.Date}
		groups[key] = append(groups[key], a)
	}

	for key, group := range groups {
		report.Conflicts = append(report.Conflicts, sweepGroup(key, group)...)
	}

	sort.Slice(report.Conflicts, func(i, j int) bool {
		ci, cj := report.Conflicts[i], report.Conflicts[j]
		if ci.ProviderID != cj.ProviderID {
			return ci.ProviderID < cj.ProviderID
		}
		if ci.Date != cj.Date {
			return ci.Date.Before(cj.Date)
		}
		if ci.A.ID != cj.A.ID {
			return ci.A.ID < cj.A.ID
		}
		return ci.B.ID < cj.B.ID
	})
	sort.SliceStable(report.Warnings, func(i, j int) bool {
		return report.Warnings[i].AppointmentID < report.Warnings[j].AppointmentID
	})

	return report
}

// sweepGroup walks one provider/day in start order, keeping the set of
// appointments whose end is still ahead of the cursor.
func sweepGroup(key providerDay, group []Appointment) []ConflictPair {
	sortAppointments(group)

	var pairs []ConflictPair
	var open []Appointment
	for _, cur := range group {
		kept := open[:0]
		for _, o := range open {
			if o.End > cur.Start {
				kept = append(kept, o)
			}
		}
		open = kept

		for _, o := range open {
			if o.ID == cur.ID {
				continue
			}
			pairs = append(pairs, newConflictPair(key, o, cur))
		}
		open = append(open, cur)
	}
	return pairs
}

func newConflictPair(key providerDay, x, y Appointment) ConflictPair {
	if y.ID < x.ID {
		x, y = y, x
	}
	overlap, _ := x.Interval().Intersect(y.Interval())
	return ConflictPair{
		ProviderID:   key.providerID,
		Date:         key.date,
		A:            x,
		B:            y,
		OverlapStart: overlap.Start,
		OverlapEnd:   overlap.End,
	}
}

// AnnotatePolicy marks pairs whose provider allows double booking. The pairs are
// still reported; resolving them is left to whoever reads the report.
func AnnotatePolicy(pairs []ConflictPair, providers []Provider) []ConflictPair {
	allowed := make(map[string]bool, len(providers))
	for _, p := range providers {
		allowed[p.ID] = p.Preferences.AllowDoubleBooking
	}
	out := make([]ConflictPair, len(pairs))
	for i, c := range pairs {
		c.DoubleBookingAllowed = allowed[c.ProviderID]
		out[i] = c
	}
	return out
}
