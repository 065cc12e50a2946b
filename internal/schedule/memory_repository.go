package schedule

import (
	"context"
	"maps"
	"sort"
	"sync"
)

var _ Repository = (*MemoryStore)(nil)

// MemoryStore keeps the three ledgers in memory. Reads return copies, so callers
// may hold results while writers keep going.
type MemoryStore struct {
	mu           sync.RWMutex
	providers    map[string]Provider
	appointments map[string]Appointment
	leave        map[string]TimeOffRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers:    make(map[string]Provider),
		appointments: make(map[string]Appointment),
		leave:        make(map[string]TimeOffRequest),
	}
}

// NewMemoryStoreFrom loads a snapshot, e.g. one decoded from a fixture file.
func NewMemoryStoreFrom(snap Snapshot) *MemoryStore {
	m := NewMemoryStore()
	for _, p := range snap.Providers {
		m.PutProvider(p)
	}
	for _, a := range snap.Appointments {
		m.PutAppointment(a)
	}
	for _, r := range snap.Leave {
		m.PutTimeOff(r)
	}
	return m
}

func (m *MemoryStore) PutProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID] = cloneProvider(p)
}

func (m *MemoryStore) PutAppointment(a Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.ID] = a
}

func (m *MemoryStore) PutTimeOff(r TimeOffRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leave[r.ID] = r
}

func (m *MemoryStore) GetProvider(_ context.Context, id string) (*Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	out := cloneProvider(p)
	return &out, nil
}

func (m *MemoryStore) ListProviders(_ context.Context) ([]Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Provider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, cloneProvider(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ListAppointments(_ context.Context, q AppointmentQuery) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Appointment
	for _, a := range m.appointments {
		if q.ProviderID != "" && a.ProviderID != q.ProviderID {
			continue
		}
		if a.Date.Before(q.From) || a.Date.After(q.To) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ListTimeOff(_ context.Context, q LeaveQuery) ([]TimeOffRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []TimeOffRequest
	for _, r := range m.leave {
		if q.ProviderID != "" && r.ProviderID != q.ProviderID {
			continue
		}
		if r.EndDate.Before(q.From) || r.StartDate.After(q.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneProvider(p Provider) Provider {
	p.WorkingHours = maps.Clone(p.WorkingHours)
	p.AppointmentTypes = append([]AppointmentType(nil), p.AppointmentTypes...)
	return p
}
