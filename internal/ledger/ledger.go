// Package ledger defines the analytics record written after every
// successful booking. Writes are best effort: a ledger failure is logged
// and never surfaced to the caller mid-conversation.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Appointment statuses.
const (
	StatusBooked    = "booked"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// ErrRecordNotFound is returned by UpdateStatus for an unknown record.
var ErrRecordNotFound = errors.New("ledger record not found")

// AppointmentRecord is one booked appointment as the analytics side
// sees it.
type AppointmentRecord struct {
	ID              string    `json:"id"`
	PatientName     string    `json:"patient_name"`
	Phone           string    `json:"phone"`
	Doctor          string    `json:"doctor"`
	StartISO        string    `json:"start_iso"`
	DurationMinutes int       `json:"duration_minutes"`
	Channel         string    `json:"channel"`
	CallID          string    `json:"call_id"`
	CalendarEventID string    `json:"calendar_event_id"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

// Ledger stores appointment records.
type Ledger interface {
	// Name returns the backend identifier.
	Name() string

	// Record persists a new appointment record and returns its id.
	Record(ctx context.Context, rec AppointmentRecord) (string, error)

	// UpdateStatus transitions an existing record to the given status.
	UpdateStatus(ctx context.Context, id, status string) error

	// Close releases backend resources.
	Close() error
}
