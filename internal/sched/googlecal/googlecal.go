// Package googlecal implements a Scheduler against the Google Calendar v3
// REST API.
//
// Candidate slots come from the working-hours grid; the freeBusy endpoint
// removes the ones already taken. Booking inserts a calendar event. When
// the API is unreachable the backend degrades to the plain working-hours
// grid rather than failing the live call.
package googlecal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vocero-ai/vocero/internal/sched"
	"github.com/vocero-ai/vocero/internal/sched/hours"
)

const defaultEndpoint = "https://www.googleapis.com/calendar/v3"

// Config holds Google Calendar settings.
type Config struct {
	CalendarID string
	Token      string // OAuth bearer token for the service identity
	Endpoint   string // override for tests; defaults to the public API
}

// Scheduler implements sched.Scheduler using Google Calendar.
type Scheduler struct {
	cfg      Config
	endpoint string
	grid     *hours.Scheduler
	client   *http.Client
}

// New creates a Google Calendar scheduler backed by the given
// working-hours grid for candidate generation and fallback.
func New(cfg Config, grid *hours.Scheduler) *Scheduler {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Scheduler{
		cfg:      cfg,
		endpoint: endpoint,
		grid:     grid,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the backend identifier.
func (s *Scheduler) Name() string { return "googlecal" }

type busyWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []busyWindow `json:"busy"`
	} `json:"calendars"`
}

// AvailableSlots filters the working-hours grid through freeBusy.
func (s *Scheduler) AvailableSlots(ctx context.Context, daysAhead int, doctorHint string) ([]sched.Slot, error) {
	candidates, err := s.grid.AvailableSlots(ctx, daysAhead, doctorHint)
	if err != nil || len(candidates) == 0 {
		return candidates, err
	}

	busy, err := s.freeBusy(ctx, candidates[0].StartISO, candidates[len(candidates)-1].EndISO)
	if err != nil {
		slog.Warn("freeBusy query failed, offering unfiltered grid", "error", err)
		return candidates, nil
	}

	var open []sched.Slot
	for _, c := range candidates {
		if !overlapsAny(c, busy) {
			open = append(open, c)
		}
	}
	slog.Debug("googlecal filtered slots", "candidates", len(candidates), "open", len(open))
	return open, nil
}

func (s *Scheduler) freeBusy(ctx context.Context, timeMin, timeMax string) ([]busyWindow, error) {
	reqBody, err := json.Marshal(map[string]any{
		"timeMin": timeMin,
		"timeMax": timeMax,
		"items":   []map[string]string{{"id": s.cfg.CalendarID}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling freeBusy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/freeBusy", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating freeBusy request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freeBusy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("freeBusy failed (status %d): %s", resp.StatusCode, body)
	}

	var fb freeBusyResponse
	if err := json.NewDecoder(resp.Body).Decode(&fb); err != nil {
		return nil, fmt.Errorf("decoding freeBusy response: %w", err)
	}
	return fb.Calendars[s.cfg.CalendarID].Busy, nil
}

func overlapsAny(slot sched.Slot, busy []busyWindow) bool {
	start, err1 := time.Parse(time.RFC3339, slot.StartISO)
	end, err2 := time.Parse(time.RFC3339, slot.EndISO)
	if err1 != nil || err2 != nil {
		return true
	}
	for _, b := range busy {
		bs, err1 := time.Parse(time.RFC3339, b.Start)
		be, err2 := time.Parse(time.RFC3339, b.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start.Before(be) && bs.Before(end) {
			return true
		}
	}
	return false
}

type calendarEvent struct {
	ID          string        `json:"id,omitempty"`
	Summary     string        `json:"summary"`
	Description string        `json:"description,omitempty"`
	Start       eventDateTime `json:"start"`
	End         eventDateTime `json:"end"`
}

type eventDateTime struct {
	DateTime string `json:"dateTime"`
}

// CreateAppointment inserts the event into the configured calendar.
func (s *Scheduler) CreateAppointment(ctx context.Context, appt sched.Appointment) (string, error) {
	event := calendarEvent{
		Summary:     fmt.Sprintf("Cita: %s con %s", appt.PatientName, appt.Doctor),
		Description: fmt.Sprintf("Paciente: %s\nTeléfono: %s\nAgendada automáticamente por vocero.", appt.PatientName, appt.Phone),
		Start:       eventDateTime{DateTime: appt.StartISO},
		End:         eventDateTime{DateTime: appt.EndISO},
	}

	reqBody, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("%w: marshalling event: %v", sched.ErrSchedulerFailed, err)
	}

	eventsURL := fmt.Sprintf("%s/calendars/%s/events", s.endpoint, url.PathEscape(s.cfg.CalendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eventsURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", sched.ErrSchedulerFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: insert request: %v", sched.ErrSchedulerFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: insert failed (status %d): %s", sched.ErrSchedulerFailed, resp.StatusCode, body)
	}

	var created calendarEvent
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: decoding insert response: %v", sched.ErrSchedulerFailed, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: insert returned no event id", sched.ErrSchedulerFailed)
	}

	slog.Info("calendar event created", "event_id", created.ID, "doctor", appt.Doctor, "start", appt.StartISO)
	return created.ID, nil
}
