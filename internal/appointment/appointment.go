// Package appointment persists the structured outcome of a call: at most one
// booked appointment per call ID.
package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voiceline/voiceline/internal/db"
)

// Appointment is the durable record written by call finalization.
type Appointment struct {
	ID            string    `json:"id"`
	CallID        string    `json:"call_id"`
	UserID        string    `json:"user_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts the appointment unless one already exists for the same call.
// The bool reports whether a row was written, so repeated finalization of the
// same call stays idempotent without an error.
func (s *Store) Create(ctx context.Context, a *Appointment) (bool, error) {
	rec := *a
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, call_id, user_id, customer_name, customer_phone, appointment_date, appointment_time, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO NOTHING`,
		rec.ID, rec.CallID, rec.UserID, rec.CustomerName, rec.CustomerPhone,
		rec.Date, rec.Time, rec.Notes, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("inserting appointment for call %s: %w", a.CallID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking appointment insert: %w", err)
	}
	return n > 0, nil
}

// GetByCallID returns the appointment booked on a call, or nil.
func (s *Store) GetByCallID(ctx context.Context, callID string) (*Appointment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, call_id, user_id, customer_name, customer_phone, appointment_date, appointment_time, notes, created_at
		FROM appointments WHERE call_id = ?`, callID)

	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading appointment for call %s: %w", callID, err)
	}
	return a, nil
}

// ListByUser returns a user's appointments ordered by date.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, call_id, user_id, customer_name, customer_phone, appointment_date, appointment_time, notes, created_at
		FROM appointments WHERE user_id = ?
		ORDER BY appointment_date, appointment_time`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing appointments for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning appointment row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.CallID, &a.UserID, &a.CustomerName, &a.CustomerPhone,
		&a.Date, &a.Time, &a.Notes, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
