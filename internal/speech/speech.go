// Package speech defines the interface for text-to-speech synthesis.
//
// Vocero speaks every assistant turn over the phone: text is normalized
// for the telephony medium, synthesized by the selected backend, cached as
// an ephemeral artifact, and served to the carrier through a signed URL.
package speech

import (
	"context"
	"errors"
)

// ErrSynthesisFailed is reported when a backend errors or returns empty
// audio. It never crosses the orchestrator boundary toward the carrier;
// the turn degrades to a spoken fallback instead.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice overrides the backend's configured voice.
	Voice string

	// Rate is a relative speaking-rate factor (1.0 = normal). Backends
	// clamp out-of-range values instead of failing.
	Rate float64
}

// Result holds the output of TTS synthesis.
type Result struct {
	// Audio is the synthesized audio, container included, ready for the
	// carrier to play (telephony WAV).
	Audio []byte

	// ContentType is the MIME type of Audio (e.g., "audio/wav").
	ContentType string
}

// Synthesizer converts text to telephony audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "azure", "elevenlabs").
	Name() string

	// Synthesize generates audio from the given text. Callers are expected
	// to run Normalize on the text first; backends treat the input as
	// already speakable. Empty output is an error.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*Result, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}
