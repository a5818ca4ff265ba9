// Package carrier defines the telephony carrier contract: placing the
// outbound call, parsing the carrier's webhook posts, and rendering the
// carrier's response document for each turn.
package carrier

import (
	"context"
	"errors"
	"net/http"
)

// ErrCallRejected is reported when the carrier refuses to place a call.
var ErrCallRejected = errors.New("carrier rejected the call")

// StartRequest describes the outbound call to place.
type StartRequest struct {
	ToNumber string
}

// TurnInput is the carrier's view of one webhook post.
type TurnInput struct {
	// CallID is the carrier's call identifier (Twilio CallSid).
	CallID string

	// SpeechText is the transcribed utterance, empty on silence.
	SpeechText string

	// Confidence of the transcription, 0 when absent.
	Confidence float64

	// Status is the carrier call status, set on status callbacks.
	Status string
}

// Response tells the carrier what to do next on a webhook reply.
// AudioURL takes precedence over Text; Text falls back to carrier-side
// TTS. GatherNext keeps the call listening; false hangs up after
// speaking.
type Response struct {
	AudioURL   string
	Text       string
	GatherNext bool
}

// Carrier places calls and speaks the carrier's webhook dialect.
type Carrier interface {
	// Name returns the backend identifier (e.g., "twilio").
	Name() string

	// StartCall places an outbound call and returns the carrier call id.
	StartCall(ctx context.Context, req StartRequest) (string, error)

	// ParseTurn extracts TurnInput from a webhook request.
	ParseTurn(r *http.Request) (TurnInput, error)

	// RenderResponse writes the carrier response document for resp.
	RenderResponse(w http.ResponseWriter, resp Response) error
}
