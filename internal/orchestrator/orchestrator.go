// Package orchestrator implements the per-call turn state machine: it
// ties recognized speech, the conversational agent, slot booking, and
// speech synthesis together and decides what the carrier does next.
//
// Every internal failure maps to a spoken recovery line or a graceful
// hangup. A webhook must never see a raw error for a live call.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/vocero-ai/vocero/internal/agent"
	"github.com/vocero-ai/vocero/internal/audiocache"
	"github.com/vocero-ai/vocero/internal/call"
	"github.com/vocero-ai/vocero/internal/ledger"
	"github.com/vocero-ai/vocero/internal/sched"
	"github.com/vocero-ai/vocero/internal/speech"
)

// DefaultMaxSilentTurns is how many consecutive silent turns are
// tolerated before the call is ended politely.
const DefaultMaxSilentTurns = 3

// Spoken lines for outcomes the agent does not control.
const (
	DefaultGreeting = "¡Hola! Te llamo del consultorio para ayudarte a agendar una cita médica. ¿Te gustaría agendar?"

	silenceReprompt = "¿Sigues ahí? ¿Te gustaría agendar una cita?"
	silenceGoodbye  = "Parece que no es un buen momento. ¡Hasta luego, feliz día!"

	invalidSlotLine = "No pude agendar ese horario. ¿Quieres que te repita las opciones disponibles?"
	schedulerLine   = "Lo siento, tuve un problema técnico agendando la cita. ¿Lo intentamos de nuevo?"
)

func confirmationLine(displayText string) string {
	return fmt.Sprintf("¡Listo! Tu cita quedó agendada para %s. ¡Gracias, feliz día!", displayText)
}

// TurnResult tells the webhook layer what to hand the carrier. AudioURL
// is a signed artifact URL; when empty, Text carries a carrier-TTS
// fallback. EndCall requests a hangup after speaking.
type TurnResult struct {
	AudioURL string
	Text     string
	EndCall  bool
}

// Params collects the orchestrator's collaborators.
type Params struct {
	Calls              *call.Store
	Agent              agent.Agent
	Synthesizers       map[string]speech.Synthesizer
	DefaultSynthesizer string
	Scheduler          sched.Scheduler
	Ledger             ledger.Ledger // nil disables analytics writes
	Audio              *audiocache.Store
	Tokens             *speech.TokenMinter
	BaseURL            string
	Greeting           string
	MaxSilentTurns     int
}

// Orchestrator drives one turn at a time per call. All state mutation
// for a call happens inside the store's per-call critical section, so
// webhook deliveries for one call are processed serially while
// independent calls proceed in parallel.
type Orchestrator struct {
	p Params
}

// New creates the orchestrator.
func New(p Params) *Orchestrator {
	if p.Greeting == "" {
		p.Greeting = DefaultGreeting
	}
	if p.MaxSilentTurns <= 0 {
		p.MaxSilentTurns = DefaultMaxSilentTurns
	}
	return &Orchestrator{p: p}
}

// StartTurn produces the greeting response when the callee picks up.
// Never terminal: even a synthesis failure degrades to carrier-side TTS.
func (o *Orchestrator) StartTurn(ctx context.Context, callID string) TurnResult {
	logger := slog.With("call_id", callID)
	var result TurnResult

	o.p.Calls.WithCall(callID, func(c *call.Call) {
		if c.State == call.StateEnded {
			logger.Warn("answer webhook for ended call")
			result = TurnResult{EndCall: true}
			return
		}
		c.State = call.StateInProgress
		c.AppendHistory(call.RoleAssistant, o.p.Greeting)
		result = o.speak(ctx, logger, c, o.p.Greeting, false)
	})

	logger.Info("greeting turn", "audio", result.AudioURL != "")
	return result
}

// HandleTurn processes one recognized utterance (or silence) and
// returns the next carrier instruction.
func (o *Orchestrator) HandleTurn(ctx context.Context, callID, speechText string) TurnResult {
	logger := slog.With("call_id", callID)
	var result TurnResult

	o.p.Calls.WithCall(callID, func(c *call.Call) {
		if c.State == call.StateEnded {
			logger.Warn("turn webhook for ended call")
			result = TurnResult{EndCall: true}
			return
		}
		c.State = call.StateInProgress

		if speechText == "" {
			result = o.silentTurn(ctx, logger, c)
			return
		}
		c.SilentTurns = 0
		result = o.userTurn(ctx, logger, c, speechText)
	})
	return result
}

// silentTurn re-prompts without invoking the agent, hanging up politely
// once the silence cap is reached.
func (o *Orchestrator) silentTurn(ctx context.Context, logger *slog.Logger, c *call.Call) TurnResult {
	c.SilentTurns++
	logger.Info("silent turn", "consecutive", c.SilentTurns)

	if c.SilentTurns >= o.p.MaxSilentTurns {
		c.State = call.StateEnded
		c.AppendHistory(call.RoleAssistant, silenceGoodbye)
		return o.speak(ctx, logger, c, silenceGoodbye, true)
	}
	c.AppendHistory(call.RoleAssistant, silenceReprompt)
	return o.speak(ctx, logger, c, silenceReprompt, false)
}

func (o *Orchestrator) userTurn(ctx context.Context, logger *slog.Logger, c *call.Call, speechText string) TurnResult {
	// Context snapshot is taken before the utterance is appended: the
	// agent receives the current utterance separately.
	cc := agent.Context{
		PatientName:  c.PatientName,
		History:      append([]call.Turn(nil), c.History...),
		OfferedSlots: append([]sched.Slot(nil), c.OfferedSlots...),
	}
	c.AppendHistory(call.RoleUser, speechText)

	reply, err := o.p.Agent.Respond(ctx, c.ID, speechText, cc)
	if err != nil {
		logger.Error("agent round-trip failed", "error", err)
		c.AppendHistory(call.RoleAssistant, agent.UnavailableLine)
		return o.speak(ctx, logger, c, agent.UnavailableLine, false)
	}

	if reply.OfferedSlots != nil {
		c.ReplaceOfferedSlots(reply.OfferedSlots)
		logger.Info("offered slots replaced", "count", len(reply.OfferedSlots))
	}

	sayText := reply.SayText
	endCall := reply.EndCall

	for _, action := range reply.Actions {
		if action.Type != agent.ActionSchedule {
			logger.Warn("ignoring unknown action", "type", action.Type)
			continue
		}
		outcome, booked := o.executeSchedule(ctx, logger, c, action)
		if sayText != "" {
			sayText = sayText + " " + outcome
		} else {
			sayText = outcome
		}
		if booked {
			endCall = true
		}
	}

	if sayText == "" {
		sayText = agent.ReengagementLine
	}

	c.AppendHistory(call.RoleAssistant, sayText)
	if endCall {
		c.State = call.StateEnded
	}
	return o.speak(ctx, logger, c, sayText, endCall)
}

// executeSchedule resolves and books one schedule action. It returns the
// outcome phrase to append and whether a booking now exists (fresh or
// deduplicated), which forces the call to end.
func (o *Orchestrator) executeSchedule(ctx context.Context, logger *slog.Logger, c *call.Call, action agent.Action) (string, bool) {
	slot, err := resolveSlot(c.OfferedSlots, action)
	if err != nil {
		logger.Warn("slot selection invalid", "index", action.Index, "start", action.StartISO)
		return invalidSlotLine, false
	}

	key := bookingKey(c.ID, slot.StartISO)
	if eventID, ok := c.BookedKeys[key]; ok {
		// Redelivered or repeated schedule for the same slot: re-speak the
		// confirmation, book nothing twice.
		logger.Info("duplicate booking suppressed", "event_id", eventID, "start", slot.StartISO)
		return confirmationLine(slot.DisplayText), true
	}

	eventID, err := o.p.Scheduler.CreateAppointment(ctx, sched.Appointment{
		PatientName: c.PatientName,
		Phone:       c.ToNumber,
		Doctor:      slot.Doctor,
		StartISO:    slot.StartISO,
		EndISO:      slot.EndISO,
	})
	if err != nil {
		logger.Error("booking failed", "start", slot.StartISO, "error", err)
		return schedulerLine, false
	}

	if c.BookedKeys == nil {
		c.BookedKeys = make(map[string]string)
	}
	c.BookedKeys[key] = eventID
	logger.Info("appointment booked", "event_id", eventID, "doctor", slot.Doctor, "start", slot.StartISO)

	o.writeLedger(ctx, logger, c, slot, eventID)
	return confirmationLine(slot.DisplayText), true
}

func (o *Orchestrator) writeLedger(ctx context.Context, logger *slog.Logger, c *call.Call, slot sched.Slot, eventID string) {
	if o.p.Ledger == nil {
		return
	}
	rec := ledger.AppointmentRecord{
		PatientName:     c.PatientName,
		Phone:           c.ToNumber,
		Doctor:          slot.Doctor,
		StartISO:        slot.StartISO,
		DurationMinutes: slotMinutes(slot),
		Channel:         "voice",
		CallID:          c.ID,
		CalendarEventID: eventID,
		Status:          ledger.StatusBooked,
	}
	if id, err := o.p.Ledger.Record(ctx, rec); err != nil {
		// Best effort only: the appointment exists in the calendar either
		// way and the caller already heard the confirmation.
		logger.Error("ledger write failed", "error", err)
	} else {
		logger.Info("ledger record written", "record_id", id)
	}
}

// HandleStatus applies a carrier lifecycle status. Terminal statuses end
// the call and release its audio artifacts.
func (o *Orchestrator) HandleStatus(callID, status string) {
	logger := slog.With("call_id", callID, "status", status)
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		o.p.Calls.WithCall(callID, func(c *call.Call) {
			c.State = call.StateEnded
		})
		o.p.Audio.DropCall(callID)
		logger.Info("call ended by carrier status")
	default:
		logger.Debug("call status")
	}
}

// speak synthesizes text and stages the artifact behind a signed URL.
// Synthesis failure degrades to carrier-side TTS of the same text.
func (o *Orchestrator) speak(ctx context.Context, logger *slog.Logger, c *call.Call, text string, endCall bool) TurnResult {
	synth := o.synthesizerFor(c)
	if synth == nil {
		logger.Error("no synthesizer available", "choice", c.Synthesizer)
		return TurnResult{Text: text, EndCall: endCall}
	}

	spoken := speech.Normalize(text)
	res, err := synth.Synthesize(ctx, spoken, speech.SynthesizeOpts{})
	if err != nil || len(res.Audio) == 0 {
		logger.Error("synthesis failed, using carrier fallback", "backend", synth.Name(), "error", err)
		return TurnResult{Text: text, EndCall: endCall}
	}

	seq := c.NextSeq()
	o.p.Audio.Put(c.ID, seq, res.Audio, res.ContentType)
	token := o.p.Tokens.Create(c.ID, seq)

	return TurnResult{
		AudioURL: fmt.Sprintf("%s/audio/%s/%d?token=%s", o.p.BaseURL, c.ID, seq, token),
		EndCall:  endCall,
	}
}

func (o *Orchestrator) synthesizerFor(c *call.Call) speech.Synthesizer {
	if s, ok := o.p.Synthesizers[c.Synthesizer]; ok {
		return s
	}
	return o.p.Synthesizers[o.p.DefaultSynthesizer]
}

// resolveSlot maps a schedule action onto the current offer list. Index
// takes precedence; an explicit start must match exactly.
func resolveSlot(offered []sched.Slot, action agent.Action) (sched.Slot, error) {
	if action.Index != nil {
		return sched.FindByIndex(offered, *action.Index)
	}
	if action.StartISO != "" {
		return sched.FindByStart(offered, action.StartISO)
	}
	return sched.Slot{}, sched.ErrSlotNotFound
}

// bookingKey derives the idempotency key for one (call, start) pair from
// the JCS-canonical JSON form, so formatting never splits duplicates.
func bookingKey(callID, startISO string) string {
	raw, err := json.Marshal(map[string]string{"call_id": callID, "start": startISO})
	if err != nil {
		return callID + ":" + startISO
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return callID + ":" + startISO
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func slotMinutes(slot sched.Slot) int {
	start, err1 := time.Parse(time.RFC3339, slot.StartISO)
	end, err2 := time.Parse(time.RFC3339, slot.EndISO)
	if err1 != nil || err2 != nil || !end.After(start) {
		return 30
	}
	return int(end.Sub(start) / time.Minute)
}
