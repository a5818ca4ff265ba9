// Package hours implements a Scheduler that generates slots from a
// configured working-hours window, with no external calendar behind it.
//
// It is the default backend for local development and the fallback used by
// the googlecal backend when the Calendar API is unreachable: offering a
// plausible slot beats dropping a live phone call.
package hours

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vocero-ai/vocero/internal/sched"
	"github.com/vocero-ai/vocero/internal/speech"
)

// Config holds the working-hours window and provider roster.
type Config struct {
	OpenHour    int      // first bookable hour, e.g. 9
	CloseHour   int      // hour of the last bookable start, e.g. 16
	CloseMinute int      // minute of the last bookable start, e.g. 30
	SlotMinutes int      // appointment duration and grid interval, e.g. 30
	Doctors     []string // rotated across offered slots
	Timezone    string   // IANA name, e.g. "America/Bogota"
	MaxOffered  int      // cap on slots returned per query
}

// Scheduler implements sched.Scheduler from a working-hours grid.
type Scheduler struct {
	cfg Config
	loc *time.Location
	now func() time.Time
}

// New creates a working-hours scheduler. Unset fields get conservative
// defaults matching a weekday clinic.
func New(cfg Config) *Scheduler {
	if cfg.OpenHour == 0 {
		cfg.OpenHour = 9
	}
	if cfg.CloseHour == 0 {
		cfg.CloseHour = 16
	}
	if cfg.SlotMinutes == 0 {
		cfg.SlotMinutes = 30
	}
	if len(cfg.Doctors) == 0 {
		cfg.Doctors = []string{"Dr. Martínez", "Dra. Rodríguez", "Dr. González"}
	}
	if cfg.MaxOffered == 0 {
		cfg.MaxOffered = 3
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.FixedZone("-05", -5*3600)
	}
	return &Scheduler{cfg: cfg, loc: loc, now: time.Now}
}

// Name returns the backend identifier.
func (s *Scheduler) Name() string { return "hours" }

// AvailableSlots walks the working-hours grid forward from now and returns
// the first MaxOffered weekday slots, rotating doctors across them.
func (s *Scheduler) AvailableSlots(ctx context.Context, daysAhead int, doctorHint string) ([]sched.Slot, error) {
	if daysAhead <= 0 {
		daysAhead = 5
	}

	doctors := s.cfg.Doctors
	if doctorHint != "" {
		for _, d := range doctors {
			if d == doctorHint {
				doctors = []string{d}
				break
			}
		}
	}

	var slots []sched.Slot
	now := s.now().In(s.loc)
	for day := 0; day <= daysAhead && len(slots) < s.cfg.MaxOffered; day++ {
		date := now.AddDate(0, 0, day)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		start := time.Date(date.Year(), date.Month(), date.Day(), s.cfg.OpenHour, 0, 0, 0, s.loc)
		limit := time.Date(date.Year(), date.Month(), date.Day(), s.cfg.CloseHour, s.cfg.CloseMinute, 0, 0, s.loc)
		for !start.After(limit) && len(slots) < s.cfg.MaxOffered {
			if start.After(now) {
				doctor := doctors[len(slots)%len(doctors)]
				end := start.Add(time.Duration(s.cfg.SlotMinutes) * time.Minute)
				slots = append(slots, sched.Slot{
					StartISO:    start.Format(time.RFC3339),
					EndISO:      end.Format(time.RFC3339),
					Doctor:      doctor,
					DisplayText: DisplayText(start, doctor),
				})
			}
			start = start.Add(time.Duration(s.cfg.SlotMinutes) * time.Minute)
		}
	}

	slog.Debug("hours scheduler produced slots", "count", len(slots), "days_ahead", daysAhead)
	return slots, nil
}

// CreateAppointment has no calendar to write to; it accepts the booking
// and mints an event id so the rest of the pipeline behaves like
// production.
func (s *Scheduler) CreateAppointment(ctx context.Context, appt sched.Appointment) (string, error) {
	if appt.StartISO == "" || appt.EndISO == "" {
		return "", fmt.Errorf("%w: missing start or end", sched.ErrSchedulerFailed)
	}
	id := "hours-" + uuid.NewString()
	slog.Info("hours scheduler accepted appointment",
		"event_id", id, "patient", appt.PatientName, "doctor", appt.Doctor, "start", appt.StartISO)
	return id, nil
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var spanishWeekdays = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

// DisplayText renders a slot start the way it should be spoken: weekday,
// day-of-month, month in words, 12-hour clock with a Spanish day period.
// Numeric date formats are never spoken (they synthesize badly).
func DisplayText(start time.Time, doctor string) string {
	hour12 := start.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%s %d de %s a las %d:%02d %s con %s",
		spanishWeekdays[start.Weekday()], start.Day(), spanishMonths[start.Month()-1],
		hour12, start.Minute(), speech.Meridiem(start.Hour()), doctor)
}
