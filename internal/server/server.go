// Package server exposes vocero's HTTP surface: the call-initiation API,
// the carrier webhook endpoints, the signed ephemeral audio endpoint,
// and the health and swagger routes.
//
// Webhook handlers are thin: they translate carrier payloads into
// orchestrator calls and orchestrator results into carrier response
// documents. Webhook paths never answer 5xx for a live call.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/vocero-ai/vocero/internal/audiocache"
	"github.com/vocero-ai/vocero/internal/call"
	"github.com/vocero-ai/vocero/internal/carrier"
	"github.com/vocero-ai/vocero/internal/orchestrator"
	"github.com/vocero-ai/vocero/internal/speech"
)

// Params collects the server's collaborators.
type Params struct {
	Port               int
	Orchestrator       *orchestrator.Orchestrator
	Carrier            carrier.Carrier
	Calls              *call.Store
	Audio              *audiocache.Store
	Tokens             *speech.TokenMinter
	Synthesizers       []string
	DefaultSynthesizer string
	SchedulerName      string
	LedgerName         string
}

// Server is vocero's main HTTP server.
type Server struct {
	p      Params
	server *http.Server
}

// New creates the server.
func New(p Params) *Server {
	return &Server{p: p}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /calls", s.handleCreateCall)
	mux.HandleFunc("POST /webhook/answer", s.handleAnswer)
	mux.HandleFunc("POST /webhook/turn", s.handleTurn)
	mux.HandleFunc("POST /webhook/call-status", s.handleCallStatus)
	mux.HandleFunc("POST /webhook/partial", s.handlePartial)
	mux.HandleFunc("GET /audio/{call_id}/{seq}", s.handleAudio)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// Listen starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Listen(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.p.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("server listening", "port", s.p.Port)

	go func() {
		<-ctx.Done()
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

type createCallRequest struct {
	ToNumber    string            `json:"to_number"`
	PatientName string            `json:"patient_name,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Synthesizer string            `json:"synthesizer,omitempty"`
}

type createCallResponse struct {
	CallID   string `json:"call_id"`
	Provider string `json:"provider"`
}

var e164Re = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// normalizeNumber strips separators and checks E.164 shape.
func normalizeNumber(raw string) (string, bool) {
	n := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	return n, e164Re.MatchString(n)
}

// handleCreateCall initiates an outbound call.
//
// @Summary     Place an outbound appointment call
// @Description Starts an outbound phone call to the given number. The conversation is driven
// @Description by the carrier's webhooks once the callee answers.
// @Tags        calls
// @Accept      json
// @Produce     json
// @Param       request  body      createCallRequest  true  "Call request"
// @Success     201  {object}  createCallResponse
// @Failure     400  {string}  string  "Missing or malformed number, or unknown synthesizer"
// @Failure     502  {string}  string  "Carrier rejected the call"
// @Router      /calls [post]
func (s *Server) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	number, ok := normalizeNumber(req.ToNumber)
	if !ok {
		http.Error(w, "to_number must be an E.164 phone number", http.StatusBadRequest)
		return
	}

	synth := req.Synthesizer
	if synth == "" {
		synth = s.p.DefaultSynthesizer
	}
	if !s.knownSynthesizer(synth) {
		http.Error(w, "unknown synthesizer: "+synth, http.StatusBadRequest)
		return
	}

	callID, err := s.p.Carrier.StartCall(r.Context(), carrier.StartRequest{ToNumber: number})
	if err != nil {
		slog.Error("carrier rejected call", "to", number, "error", err)
		http.Error(w, "carrier rejected the call", http.StatusBadGateway)
		return
	}

	s.p.Calls.Init(callID, number, req.PatientName, req.Metadata, synth)
	slog.Info("call placed", "call_id", callID, "to", number, "synthesizer", synth)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createCallResponse{CallID: callID, Provider: s.p.Carrier.Name()})
}

// handleAnswer serves the greeting document when the callee picks up.
//
// @Summary     Carrier answer webhook
// @Description Called by the carrier when the callee answers; returns the greeting response document.
// @Tags        webhooks
// @Accept      x-www-form-urlencoded
// @Produce     xml
// @Success     200  {string}  string  "Carrier response document"
// @Failure     400  {string}  string  "Unparseable webhook"
// @Router      /webhook/answer [post]
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	in, err := s.p.Carrier.ParseTurn(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := s.p.Orchestrator.StartTurn(r.Context(), in.CallID)
	s.render(w, in.CallID, result)
}

// handleTurn processes one recognized utterance (or silence).
//
// @Summary     Carrier turn webhook
// @Description Called by the carrier with the recognized speech for one turn; returns the next
// @Description response document (speak and listen, speak and hang up, or hang up).
// @Tags        webhooks
// @Accept      x-www-form-urlencoded
// @Produce     xml
// @Success     200  {string}  string  "Carrier response document"
// @Failure     400  {string}  string  "Unparseable webhook"
// @Router      /webhook/turn [post]
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	in, err := s.p.Carrier.ParseTurn(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Debug("turn webhook", "call_id", in.CallID, "confidence", in.Confidence,
		"silent", in.SpeechText == "")
	result := s.p.Orchestrator.HandleTurn(r.Context(), in.CallID, in.SpeechText)
	s.render(w, in.CallID, result)
}

// handleCallStatus acknowledges carrier lifecycle callbacks.
//
// @Summary     Carrier status webhook
// @Description Receives call lifecycle events. Always acknowledged with {"ok":true}.
// @Tags        webhooks
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Success     200  {object}  map[string]bool
// @Router      /webhook/call-status [post]
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	in, err := s.p.Carrier.ParseTurn(r)
	if err == nil {
		s.p.Orchestrator.HandleStatus(in.CallID, in.Status)
	} else {
		slog.Warn("unparseable status webhook", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handlePartial logs partial recognition results.
//
// @Summary     Carrier partial-result webhook
// @Description Receives partial speech recognition notifications. Log-only.
// @Tags        webhooks
// @Accept      x-www-form-urlencoded
// @Success     200  {string}  string  "Empty"
// @Router      /webhook/partial [post]
func (s *Server) handlePartial(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		slog.Debug("partial result", "call_id", r.PostFormValue("CallSid"),
			"text", r.PostFormValue("UnstableSpeechResult"))
	}
	w.WriteHeader(http.StatusOK)
}

// handleAudio serves one synthesized artifact behind its signed token.
//
// @Summary     Fetch a synthesized audio artifact
// @Tags        audio
// @Produce     audio/wav
// @Param       call_id  path   string  true  "Carrier call id"
// @Param       seq      path   int     true  "Utterance sequence number"
// @Param       token    query  string  true  "Signed access token"
// @Success     200  {file}    file
// @Failure     401  {string}  string  "Invalid or expired token"
// @Failure     404  {string}  string  "Artifact not found"
// @Router      /audio/{call_id}/{seq} [get]
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("call_id")
	seq, err := strconv.Atoi(r.PathValue("seq"))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if !s.p.Tokens.Validate(callID, seq, r.URL.Query().Get("token")) {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	artifact, err := s.p.Audio.Get(callID, seq)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Audio)))
	_, _ = w.Write(artifact.Audio)
}

type healthResponse struct {
	OK           bool      `json:"ok"`
	Timestamp    time.Time `json:"timestamp"`
	Carrier      string    `json:"carrier"`
	Synthesizers []string  `json:"synthesizers"`
	Scheduler    string    `json:"scheduler"`
	Ledger       string    `json:"ledger"`
	ActiveCalls  int       `json:"active_calls"`
}

// handleHealth summarizes configured collaborators.
//
// @Summary     Health summary
// @Tags        health
// @Produce     json
// @Success     200  {object}  healthResponse
// @Router      /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		OK:           true,
		Timestamp:    time.Now().UTC(),
		Carrier:      s.p.Carrier.Name(),
		Synthesizers: s.p.Synthesizers,
		Scheduler:    s.p.SchedulerName,
		Ledger:       s.p.LedgerName,
		ActiveCalls:  s.p.Calls.Len(),
	})
}

// render translates an orchestrator result into the carrier's document.
func (s *Server) render(w http.ResponseWriter, callID string, result orchestrator.TurnResult) {
	resp := carrier.Response{
		AudioURL:   result.AudioURL,
		Text:       result.Text,
		GatherNext: !result.EndCall,
	}
	if err := s.p.Carrier.RenderResponse(w, resp); err != nil {
		slog.Error("rendering carrier response failed", "call_id", callID, "error", err)
	}
}

func (s *Server) knownSynthesizer(name string) bool {
	for _, n := range s.p.Synthesizers {
		if n == name {
			return true
		}
	}
	return false
}
