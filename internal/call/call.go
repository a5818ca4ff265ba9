// Package call holds per-call conversational state and the store that
// owns it.
//
// A call's record is a serialized resource: every mutation happens inside
// the store's per-call mutual-exclusion scope, so two webhook deliveries
// for the same call can never interleave history or double-increment the
// sequence counter. Different calls proceed fully in parallel.
package call

import (
	"time"

	"github.com/vocero-ai/vocero/internal/sched"
)

// State is the lifecycle position of a call.
type State string

const (
	// StateAwaitingGreeting: the call was placed but the carrier has not
	// yet fetched the greeting.
	StateAwaitingGreeting State = "awaiting_greeting"

	// StateInProgress: turns are being exchanged.
	StateInProgress State = "in_progress"

	// StateEnded: terminal; later webhooks are acknowledged defensively.
	StateEnded State = "ended"
)

// Roles for history turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in the dialogue history.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Call is the mutable per-call record. It must only be touched inside
// Store.WithCall.
type Call struct {
	ID          string
	ToNumber    string
	PatientName string
	Metadata    map[string]string

	// Synthesizer is the speech backend chosen at call start and fixed
	// for the call's lifetime.
	Synthesizer string

	State State

	// Seq is the per-call utterance counter; strictly increasing, never
	// reused.
	Seq int

	// History is append-only; its order is the conversational order and
	// is presented to the agent verbatim.
	History []Turn

	// OfferedSlots is the most recent offer list, fully replaced (never
	// merged) when the agent issues a new one.
	OfferedSlots []sched.Slot

	// SilentTurns counts consecutive no-speech turns.
	SilentTurns int

	// BookedKeys maps booking idempotency keys to calendar event ids, so
	// a redelivered webhook cannot double-book the same slot.
	BookedKeys map[string]string

	touched time.Time
}

// AppendHistory appends one turn with the current timestamp.
func (c *Call) AppendHistory(role, text string) {
	c.History = append(c.History, Turn{Role: role, Text: text, At: time.Now()})
}

// NextSeq increments and returns the utterance counter.
func (c *Call) NextSeq() int {
	c.Seq++
	return c.Seq
}

// ReplaceOfferedSlots installs a new offer list. Earlier indices and
// starts become unresolvable immediately; stale slots must never remain
// referenceable once supplanted.
func (c *Call) ReplaceOfferedSlots(slots []sched.Slot) {
	c.OfferedSlots = append([]sched.Slot(nil), slots...)
}
