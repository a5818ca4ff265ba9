// Package openai implements the conversational Agent using OpenAI's Chat
// Completions API with tool calling.
//
// Each turn is a bounded loop: the model either answers or requests tool
// invocations (get_slots, answer_faq, schedule), the adapter executes them
// against the real collaborators and feeds results back, and after at most
// MaxToolRounds rounds of tool use a safe fallback line is substituted.
// The bound is the cancellation mechanism for a model stuck requesting
// tools; it is correctness-relevant, not incidental.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"

	"github.com/vocero-ai/vocero/internal/agent"
	"github.com/vocero-ai/vocero/internal/call"
	"github.com/vocero-ai/vocero/internal/sched"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// MaxToolRounds bounds tool use per turn.
	MaxToolRounds = 3
)

// Config holds OpenAI agent settings.
type Config struct {
	APIKey        string
	BaseURL       string // override for tests / proxies
	Model         string
	Timeout       time.Duration
	MaxToolRounds int // 0 means MaxToolRounds
}

// Agent implements agent.Agent over the Chat Completions API.
type Agent struct {
	cfg       Config
	baseURL   string
	maxRounds int
	client    *http.Client
	scheduler sched.Scheduler
	faq       agent.FAQ
	schemas   map[string]*jsonschema.Schema
	tools     []toolDef
}

// Tool parameter schemas. These are both what the model sees and what
// its arguments are validated against before execution.
var toolParameters = map[string]string{
	"get_slots": `{
		"type": "object",
		"properties": {
			"days_ahead": {"type": "integer", "description": "Días hacia adelante a buscar", "default": 5},
			"doctor_hint": {"type": "string", "description": "Preferencia de doctor"}
		}
	}`,
	"answer_faq": `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Pregunta del usuario"}
		},
		"required": ["query"]
	}`,
	"schedule": `{
		"type": "object",
		"properties": {
			"index": {"type": "integer"},
			"iso_inicio": {"type": "string"},
			"iso_fin": {"type": "string"}
		}
	}`,
}

var toolDescriptions = map[string]string{
	"get_slots":  "Consulta hasta 3 horarios recomendados para ofrecer al usuario.",
	"answer_faq": "Responde dirección, sede, horario, teléfono, WhatsApp, parqueadero.",
	"schedule":   "Pide al backend agendar por índice (0..2) o por fecha/hora ISO explícita.",
}

const systemPrompt = `Eres Salomé (español colombiano), amable, cordial y breve. Objetivo: agendar cita.
CONTEXTO IMPORTANTE: Si hay un nombre de paciente en el contexto, ESE ES EL PACIENTE que llama, NO un doctor.
Los doctores disponibles son los que aparecen en los slots.

Puedes usar funciones cuando lo necesites:
 - get_slots: consulta horarios reales y ofrece 2-3 opciones claras.
 - answer_faq: responde dirección/horarios/teléfono/WhatsApp/parqueadero; tras responder, vuelve a ofrecer agendamiento.
 - schedule: confirma la cita (por índice de las opciones ofrecidas o por ISO si el usuario lo especifica).

Reglas:
 - Responde en UNA sola oración corta, natural, cordial y concreta.
 - Si el usuario ya eligió horario (por índice, día/hora o frase libre), intenta llamar 'schedule'.
 - Si el usuario habla de algo irrelevante, responde amablemente y guíalo hacia el agendamiento.
 - Si no quiere agendar, despídete cordialmente y termina.

Estilo de fecha/hora:
 - NUNCA leas fechas en formato numérico; convierte a natural: 'martes 26 de agosto a las 8:00 de la mañana'.
 - Usa meses en palabras y reloj de 12 horas.`

// New creates the OpenAI agent, compiling the tool schemas once. The
// scheduler backs the get_slots tool.
func New(cfg Config, scheduler sched.Scheduler) (*Agent, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema, len(toolParameters))
	tools := make([]toolDef, 0, len(toolParameters))
	for _, name := range []string{"get_slots", "answer_faq", "schedule"} {
		raw := toolParameters[name]
		schema, err := compiler.Compile([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", name, err)
		}
		schemas[name] = schema
		tools = append(tools, toolDef{
			Type: "function",
			Function: functionDef{
				Name:        name,
				Description: toolDescriptions[name],
				Parameters:  json.RawMessage(raw),
			},
		})
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = MaxToolRounds
	}

	return &Agent{
		cfg:       cfg,
		baseURL:   baseURL,
		maxRounds: maxRounds,
		client:    &http.Client{Timeout: cfg.Timeout},
		scheduler: scheduler,
		faq:       agent.DefaultFAQ(),
		schemas:   schemas,
		tools:     tools,
	}, nil
}

// Name returns the backend identifier.
func (a *Agent) Name() string { return "openai" }

// Close is a no-op for the OpenAI agent.
func (a *Agent) Close() error { return nil }

// Respond runs one bounded tool-calling turn.
func (a *Agent) Respond(ctx context.Context, callID, userText string, cc agent.Context) (*agent.Reply, error) {
	logger := slog.With("call_id", callID, "agent", "openai")

	messages := a.buildMessages(userText, cc)

	var (
		sayText      string
		actions      []agent.Action
		offered      = cc.OfferedSlots
		slotsOffered bool
		toolRounds   int
		turnCache    = map[string]json.RawMessage{}
	)

	for toolRounds < a.maxRounds {
		msg, err := a.chat(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", agent.ErrUnavailable, err)
		}

		if len(msg.ToolCalls) == 0 {
			sayText = agent.LimitWords(strings.TrimSpace(msg.Content), agent.MaxSayWords)
			break
		}

		toolRounds++
		logger.Debug("tool round", "round", toolRounds, "requests", len(msg.ToolCalls))

		// The assistant message carrying the tool_calls must precede the
		// role=tool results or the API rejects the transcript.
		messages = append(messages, *msg)

		for _, tc := range msg.ToolCalls {
			result, newOffer := a.runTool(ctx, logger, tc, turnCache, &actions)
			if newOffer != nil {
				offered = newOffer
				slotsOffered = true
			}
			messages = append(messages, chatMessage{
				Role:       "tool",
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Content:    string(result),
			})
		}
	}

	// Round budget exhausted or model produced nothing: substitute the
	// re-engagement line so the caller never hears silence.
	if sayText == "" {
		sayText = agent.ReengagementLine
	}

	reply := &agent.Reply{
		SayText: sayText,
		Actions: actions,
	}
	if slotsOffered {
		reply.OfferedSlots = offered
	}
	// Farewell detection is a fallback heuristic only; it never applies
	// to a turn that staged an explicit action.
	if len(actions) == 0 && agent.IsFarewell(sayText) {
		reply.EndCall = true
	}

	logger.Info("agent reply", "tool_rounds", toolRounds, "actions", len(actions),
		"offered_slots", len(reply.OfferedSlots), "end_call", reply.EndCall)
	return reply, nil
}

func (a *Agent) buildMessages(userText string, cc agent.Context) []chatMessage {
	patient := cc.PatientName
	if patient == "" {
		patient = "Cliente"
	}

	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	if cc.PatientName != "" {
		messages = append(messages, chatMessage{
			Role:    "system",
			Content: fmt.Sprintf("CONTEXTO: El paciente que llama se llama %s. Este NO es un doctor, es el PACIENTE que necesita agendar una cita.", cc.PatientName),
		})
	}

	// Full history, oldest first, verbatim order.
	for _, turn := range cc.History {
		role := "user"
		if turn.Role == call.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}

	messages = append(messages, chatMessage{Role: "user", Content: patient + ": " + userText})

	if len(cc.OfferedSlots) > 0 {
		raw, err := json.Marshal(cc.OfferedSlots)
		if err == nil {
			messages = append(messages, chatMessage{
				Role:    "system",
				Content: "Slots_ofrecidos_actualmente=" + string(raw),
			})
		}
	}
	return messages
}

// runTool validates and executes one tool call, returning the tool result
// JSON and, for get_slots, the new offer list.
func (a *Agent) runTool(ctx context.Context, logger *slog.Logger, tc toolCall, turnCache map[string]json.RawMessage, actions *[]agent.Action) (json.RawMessage, []sched.Slot) {
	name := tc.Function.Name
	args := []byte(tc.Function.Arguments)
	if len(args) == 0 {
		args = []byte("{}")
	}

	schema, ok := a.schemas[name]
	if !ok {
		logger.Warn("unknown tool requested", "tool", name)
		return mustJSON(map[string]string{"error": "unknown tool " + name}), nil
	}
	if result := schema.ValidateJSON(args); !result.IsValid() {
		logger.Warn("tool arguments failed validation", "tool", name, "errors", fmt.Sprint(result.Errors))
		return mustJSON(map[string]string{"error": "invalid arguments"}), nil
	}

	switch name {
	case "get_slots":
		// Idempotent within a turn: identical re-requests hit the cache
		// instead of the scheduler.
		cacheKey := "get_slots:" + string(args)
		if cached, ok := turnCache[cacheKey]; ok {
			var slots []sched.Slot
			_ = json.Unmarshal(cached, &struct {
				Slots *[]sched.Slot `json:"slots"`
			}{&slots})
			return cached, slots
		}

		var params struct {
			DaysAhead  int    `json:"days_ahead"`
			DoctorHint string `json:"doctor_hint"`
		}
		_ = json.Unmarshal(args, &params)
		if params.DaysAhead <= 0 {
			params.DaysAhead = 5
		}

		slots, err := a.scheduler.AvailableSlots(ctx, params.DaysAhead, params.DoctorHint)
		if err != nil {
			logger.Error("get_slots failed", "error", err)
			return mustJSON(map[string]string{"error": "no pude consultar horarios"}), nil
		}
		result := mustJSON(map[string]any{"slots": slots})
		turnCache[cacheKey] = result
		return result, slots

	case "answer_faq":
		var params struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(args, &params)
		return mustJSON(map[string]string{"answer": a.faq.Answer(params.Query)}), nil

	case "schedule":
		// Pass-through: the action is staged here and executed by the
		// orchestrator, which owns slot resolution and booking.
		var params struct {
			Index    *int   `json:"index"`
			StartISO string `json:"iso_inicio"`
			EndISO   string `json:"iso_fin"`
		}
		_ = json.Unmarshal(args, &params)
		*actions = append(*actions, agent.Action{
			Type:     agent.ActionSchedule,
			Index:    params.Index,
			StartISO: params.StartISO,
			EndISO:   params.EndISO,
		})
		return mustJSON(map[string]bool{"ok": true, "queued": true}), nil
	}

	return mustJSON(map[string]string{"error": "unhandled tool"}), nil
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// --- Chat Completions wire types ---

type toolDef struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []toolDef     `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *Agent) chat(ctx context.Context, messages []chatMessage) (*chatMessage, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		Tools:       a.tools,
		ToolChoice:  "auto",
		Temperature: 0.4,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("chat failed (status %d): %s", resp.StatusCode, body)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from chat API")
	}
	return &chatResp.Choices[0].Message, nil
}
