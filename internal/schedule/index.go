package schedule

type providerDay struct {
	providerID string
	date       Date
}

// snapshotIndex groups a snapshot's records for per-call lookups. It is built
// fresh for each engine call and never shared.
type snapshotIndex struct {
	providers    map[string]Provider
	appointments map[providerDay][]Appointment
	leave        map[string][]TimeOffRequest
}

func newSnapshotIndex(snap Snapshot) snapshotIndex {
	idx := snapshotIndex{
		providers:    make(map[string]Provider, len(snap.Providers)),
		appointments: make(map[providerDay][]Appointment),
		leave:        make(map[string][]TimeOffRequest),
	}
	for _, p := range snap.Providers {
		idx.providers[p.ID] = p
	}
	for _, a := range snap.Appointments {
		key := providerDay{providerID: a.ProviderID, date: a.Date}
		idx.appointments[key] = append(idx.appointments[key], a)
	}
	for _, r := range snap.Leave {
		idx.leave[r.ProviderID] = append(idx.leave[r.ProviderID], r)
	}
	return idx
}

func (idx snapshotIndex) appointmentsFor(providerID string, date Date) []Appointment {
	return idx.appointments[providerDay{providerID: providerID, date: date}]
}

func (idx snapshotIndex) leaveFor(providerID string) []TimeOffRequest {
	return idx.leave[providerID]
}
