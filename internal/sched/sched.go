// Package sched defines the interface for appointment scheduling backends.
//
// A scheduler produces candidate appointment slots and books confirmed
// appointments against a real calendar. Vocero ships with two backends:
// hours (generated from configured working hours) and googlecal (Google
// Calendar REST).
package sched

import (
	"context"
	"errors"
)

// Common errors for scheduler operations.
var (
	// ErrSlotNotFound is reported when a requested slot is not part of the
	// currently offered list, neither by index nor by exact ISO start.
	ErrSlotNotFound = errors.New("slot not found in offered list")

	// ErrSchedulerFailed wraps calendar backend failures during booking.
	ErrSchedulerFailed = errors.New("scheduler backend failed")
)

// Slot is a candidate or booked appointment time with an assigned provider.
type Slot struct {
	// StartISO and EndISO are ISO-8601 timestamps, EndISO > StartISO.
	StartISO string `json:"iso_inicio"`
	EndISO   string `json:"iso_fin"`

	// Doctor is the assigned provider name (e.g., "Dr. Martínez").
	Doctor string `json:"doctor"`

	// DisplayText is a human-readable description suitable for speech
	// (e.g., "martes 26 de agosto a las 9:00 de la mañana con Dr. Martínez").
	DisplayText string `json:"texto"`
}

// Appointment describes a booking request passed to CreateAppointment.
type Appointment struct {
	PatientName string
	Phone       string
	Doctor      string
	StartISO    string
	EndISO      string
}

// Scheduler is the interface for slot availability and appointment creation.
type Scheduler interface {
	// Name returns the backend identifier (e.g., "hours", "googlecal").
	Name() string

	// AvailableSlots returns up to a handful of bookable slots within the
	// next daysAhead days. doctorHint is a best-effort preference and may
	// be empty.
	AvailableSlots(ctx context.Context, daysAhead int, doctorHint string) ([]Slot, error)

	// CreateAppointment books the appointment and returns the external
	// calendar event id.
	CreateAppointment(ctx context.Context, appt Appointment) (string, error)
}
