// Package elevenlabs implements the speech.Synthesizer using the
// ElevenLabs TTS REST API.
//
// ElevenLabs returns raw μ-law 8 kHz samples; this package wraps them in a
// WAV container (format 7 with a fact chunk) so carriers can play the
// artifact directly.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vocero-ai/vocero/internal/speech"
)

const defaultEndpoint = "https://api.elevenlabs.io/v1"

// Config holds ElevenLabs settings.
type Config struct {
	APIKey   string
	VoiceID  string
	ModelID  string // e.g. "eleven_multilingual_v2"
	Endpoint string // override for tests
}

// Synthesizer implements speech.Synthesizer against ElevenLabs.
type Synthesizer struct {
	cfg      Config
	endpoint string
	client   *http.Client
}

// New creates an ElevenLabs synthesizer from config.
func New(cfg Config) *Synthesizer {
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Synthesizer{
		cfg:      cfg,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "elevenlabs" }

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize requests μ-law 8 kHz audio and wraps it as WAV.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts speech.SynthesizeOpts) (*speech.Result, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", speech.ErrSynthesisFailed)
	}
	if s.cfg.APIKey == "" || s.cfg.VoiceID == "" {
		return nil, fmt.Errorf("%w: elevenlabs not configured", speech.ErrSynthesisFailed)
	}

	voice := opts.Voice
	if voice == "" {
		voice = s.cfg.VoiceID
	}

	reqBody, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: s.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.6,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshalling request: %v", speech.ErrSynthesisFailed, err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=ulaw_8000", s.endpoint, voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", speech.ErrSynthesisFailed, err)
	}
	req.Header.Set("xi-api-key", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/basic")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", speech.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", speech.ErrSynthesisFailed, resp.StatusCode, body)
	}

	mulaw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio: %v", speech.ErrSynthesisFailed, err)
	}
	if len(mulaw) == 0 {
		return nil, fmt.Errorf("%w: empty audio", speech.ErrSynthesisFailed)
	}

	slog.Debug("elevenlabs synthesis complete", "chars", len(text), "mulaw_bytes", len(mulaw))
	return &speech.Result{Audio: mulawToWAV(mulaw, 8000), ContentType: "audio/wav"}, nil
}

// Close is a no-op; requests are per-call.
func (s *Synthesizer) Close() error { return nil }

// mulawToWAV wraps raw μ-law samples in a WAV container. μ-law is WAV
// format 7 and, being compressed, carries a fact chunk with the sample
// count.
func mulawToWAV(samples []byte, sampleRate int) []byte {
	dataLen := len(samples)
	// 4 (WAVE) + fmt(8+18) + fact(8+4) + data header(8) = 50 before data.
	fileLen := 50 + dataLen

	buf := &bytes.Buffer{}
	buf.Grow(58 + dataLen)

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fileLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(18))         // subchunk size (with cbSize)
	_ = binary.Write(buf, binary.LittleEndian, uint16(7))          // μ-law
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))          // mono
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate)) // sample rate
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate)) // byte rate (1 byte/sample)
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))          // block align
	_ = binary.Write(buf, binary.LittleEndian, uint16(8))          // bits per sample
	_ = binary.Write(buf, binary.LittleEndian, uint16(0))          // cbSize

	buf.WriteString("fact")
	_ = binary.Write(buf, binary.LittleEndian, uint32(4))
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(samples)

	return buf.Bytes()
}
