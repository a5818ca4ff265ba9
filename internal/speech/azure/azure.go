// Package azure implements the speech.Synthesizer using the Azure Speech
// Service REST API.
//
// Output is RIFF 8 kHz 8-bit mono μ-law, the format telephony carriers
// play natively, synthesized in memory with no temporary files.
package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vocero-ai/vocero/internal/speech"
)

const outputFormat = "riff-8khz-8bit-mono-mulaw"

// Config holds Azure Speech settings.
type Config struct {
	SubscriptionKey string
	Region          string // e.g. "eastus"
	Voice           string // e.g. "es-CO-SalomeNeural"
	Endpoint        string // override for tests
}

// Synthesizer implements speech.Synthesizer against Azure Speech.
type Synthesizer struct {
	cfg      Config
	endpoint string
	client   *http.Client
}

// New creates an Azure synthesizer from config.
func New(cfg Config) *Synthesizer {
	if cfg.Region == "" {
		cfg.Region = "eastus"
	}
	if cfg.Voice == "" {
		cfg.Voice = "es-CO-SalomeNeural"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	return &Synthesizer{
		cfg:      cfg,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "azure" }

// Synthesize sends SSML to Azure and returns telephony WAV.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts speech.SynthesizeOpts) (*speech.Result, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", speech.ErrSynthesisFailed)
	}

	voice := opts.Voice
	if voice == "" {
		voice = s.cfg.Voice
	}
	rate := opts.Rate
	if rate < 0.8 || rate > 1.8 {
		rate = 1.2
	}

	ssml := buildSSML(text, voice, rate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader([]byte(ssml)))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", speech.ErrSynthesisFailed, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.cfg.SubscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", speech.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", speech.ErrSynthesisFailed, resp.StatusCode, body)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio: %v", speech.ErrSynthesisFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", speech.ErrSynthesisFailed)
	}

	slog.Debug("azure synthesis complete", "chars", len(text), "audio_bytes", len(audio))
	return &speech.Result{Audio: audio, ContentType: "audio/wav"}, nil
}

// Close is a no-op; requests are per-call.
func (s *Synthesizer) Close() error { return nil }

func buildSSML(text, voice string, rate float64) string {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(text))

	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="es-CO">`+
			`<voice name="%s"><prosody rate="%.1f">%s</prosody></voice></speak>`,
		voice, rate, escaped.String())
}
