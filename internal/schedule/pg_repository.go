package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const microsPerMinute = int64(time.Minute / time.Microsecond)

var _ Repository = (*PgRepository)(nil)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var hours, types, prefs []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Status,
		&hours,
		&types,
		&prefs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(hours, &p.WorkingHours); err != nil {
		return nil, fmt.Errorf("decode working hours for provider %s: %w", p.ID, err)
	}
	if len(types) > 0 {
		if err := json.Unmarshal(types, &p.AppointmentTypes); err != nil {
			return nil, fmt.Errorf("decode appointment types for provider %s: %w", p.ID, err)
		}
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences for provider %s: %w", p.ID, err)
		}
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var start, end pgtype.Time
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.PatientID,
		&date,
		&start,
		&end,
		&a.Type,
		&a.Status,
		&notes,
	)
	if err != nil {
		return nil, err
	}

	a.Date = DateOf(date)
	a.Start = clockFromPg(start)
	a.End = clockFromPg(end)
	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

func scanTimeOff(row pgx.Row) (*TimeOffRequest, error) {
	var r TimeOffRequest
	var startDate, endDate time.Time
	var reason *string

	err := row.Scan(
		&r.ID,
		&r.ProviderID,
		&startDate,
		&endDate,
		&reason,
		&r.Status,
		&r.Type,
	)
	if err != nil {
		return nil, err
	}

	r.StartDate = DateOf(startDate)
	r.EndDate = DateOf(endDate)
	if reason != nil {
		r.Reason = *reason
	}
	return &r, nil
}

// clockFromPg maps a time-of-day column to minutes. Postgres renders 24:00:00 as
// a full day of microseconds, which maps to Clock 1440.
func clockFromPg(t pgtype.Time) Clock {
	if !t.Valid {
		return 0
	}
	return Clock(t.Microseconds / microsPerMinute)
}

func clockToPg(c Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * microsPerMinute, Valid: true}
}

// Interface methods

func (r *PgRepository) GetProvider(ctx context.Context, id string) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, status, working_hours, appointment_types, preferences
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) ListProviders(ctx context.Context) ([]Provider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, status, working_hours, appointment_types, preferences
		FROM providers
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, q AppointmentQuery) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, patient_id, appointment_date, start_time, end_time, type, status, notes
		FROM appointments
		WHERE ($1 = '' OR provider_id = $1)
		  AND appointment_date BETWEEN $2 AND $3
		ORDER BY id
	`, q.ProviderID, q.From.Time(), q.To.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListTimeOff(ctx context.Context, q LeaveQuery) ([]TimeOffRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, start_date, end_date, reason, status, type
		FROM time_off_requests
		WHERE ($1 = '' OR provider_id = $1)
		  AND start_date <= $3
		  AND end_date >= $2
		ORDER BY id
	`, q.ProviderID, q.From.Time(), q.To.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeOffRequest
	for rows.Next() {
		t, err := scanTimeOff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Writers used by the seed command. Ledger mutation in production belongs to the
// booking workflow, not to this service.

func (r *PgRepository) InsertProvider(ctx context.Context, tx pgx.Tx, p Provider) error {
	hours, err := json.Marshal(p.WorkingHours)
	if err != nil {
		return fmt.Errorf("encode working hours: %w", err)
	}
	types, err := json.Marshal(p.AppointmentTypes)
	if err != nil {
		return fmt.Errorf("encode appointment types: %w", err)
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO providers (id, name, status, working_hours, appointment_types, preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, p.ID, p.Name, p.Status, hours, types, prefs)
	if err != nil {
		return fmt.Errorf("insert provider %s: %w", p.ID, err)
	}
	return nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, tx pgx.Tx, a Appointment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments (id, provider_id, patient_id, appointment_date, start_time, end_time, type, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, a.ID, a.ProviderID, a.PatientID, a.Date.Time(), clockToPg(a.Start), clockToPg(a.End), a.Type, a.Status, a.Notes)
	if err != nil {
		return fmt.Errorf("insert appointment %s: %w", a.ID, err)
	}
	return nil
}

func (r *PgRepository) InsertTimeOff(ctx context.Context, tx pgx.Tx, t TimeOffRequest) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO time_off_requests (id, provider_id, start_date, end_date, reason, status, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, t.ID, t.ProviderID, t.StartDate.Time(), t.EndDate.Time(), t.Reason, t.Status, t.Type)
	if err != nil {
		return fmt.Errorf("insert time off %s: %w", t.ID, err)
	}
	return nil
}
