// Package agent defines the contract for the conversational agent that
// decides what vocero says and when it books.
//
// An agent takes the user's utterance plus call context and returns an
// utterance to speak, zero or more structured actions, an optional
// replacement slot offer, and an end-of-call flag. Vocero ships with one
// backend: openai (tool-calling chat completions).
package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/vocero-ai/vocero/internal/call"
	"github.com/vocero-ai/vocero/internal/sched"
)

// ErrUnavailable is reported when the model round-trip errors or times
// out. The orchestrator recovers with a fixed apologetic re-prompt; the
// conversation continues.
var ErrUnavailable = errors.New("conversational agent unavailable")

// MaxSayWords bounds a reply so it stays speakable in one telephony turn.
const MaxSayWords = 150

// ActionSchedule is the only action type understood downstream.
const ActionSchedule = "schedule"

// Action is a structured side effect requested by the agent. For
// schedule, either Index points into the offered list or StartISO/EndISO
// carry an explicit time; the orchestrator resolves and executes it.
type Action struct {
	Type     string `json:"type"`
	Index    *int   `json:"index,omitempty"`
	StartISO string `json:"iso_inicio,omitempty"`
	EndISO   string `json:"iso_fin,omitempty"`
}

// Reply is the agent's output contract for one turn.
type Reply struct {
	// SayText is never empty when EndCall is false.
	SayText string

	// Actions in request order.
	Actions []Action

	// OfferedSlots, when non-nil, replaces the call's slot list.
	OfferedSlots []sched.Slot

	// EndCall signals that the agent considers the conversation finished.
	EndCall bool
}

// Context is the call context presented to the agent.
type Context struct {
	PatientName  string
	History      []call.Turn
	OfferedSlots []sched.Slot
}

// Agent produces a Reply for each user turn.
type Agent interface {
	// Name returns the backend identifier (e.g., "openai").
	Name() string

	// Respond runs one turn. Internal tool use is bounded; Respond always
	// terminates with a well-formed Reply or an error.
	Respond(ctx context.Context, callID, userText string, cc Context) (*Reply, error)

	// Close releases any resources held by the agent.
	Close() error
}

// Canned Spanish lines used whenever the model cannot produce one.
const (
	// ReengagementLine substitutes for an empty final utterance.
	ReengagementLine = "¿Te gustaría agendar una cita? Puedo proponerte horarios."

	// UnavailableLine is spoken when the model round-trip fails.
	UnavailableLine = "Disculpa, tuve un problema técnico. ¿Podrías repetir si quieres agendar una cita?"
)

// LimitWords truncates free text to max words, trimming dangling
// punctuation and appending an ellipsis when it cut something.
func LimitWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.TrimRight(strings.Join(words[:max], " "), ",.;:¡!¿?") + "..."
}

// farewellMarkers match phrases that usually close a Colombian Spanish
// call.
var farewellMarkers = []string{"hasta luego", "gracias", "feliz día", "buen día"}

// IsFarewell reports whether the text reads like a goodbye. This is a
// best-effort heuristic, never authoritative: explicit outcomes (a
// confirmed booking, an agent directive) take precedence and the
// heuristic only applies when no explicit end signal exists.
func IsFarewell(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, m := range farewellMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}
