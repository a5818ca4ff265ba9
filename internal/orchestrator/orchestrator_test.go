package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vocero-ai/vocero/internal/agent"
	"github.com/vocero-ai/vocero/internal/audiocache"
	"github.com/vocero-ai/vocero/internal/call"
	"github.com/vocero-ai/vocero/internal/ledger"
	"github.com/vocero-ai/vocero/internal/sched"
	"github.com/vocero-ai/vocero/internal/speech"
)

type fakeAgent struct {
	replies []*agent.Reply
	err     error
	calls   int
	lastCtx agent.Context
}

func (f *fakeAgent) Name() string { return "fake" }
func (f *fakeAgent) Close() error { return nil }

func (f *fakeAgent) Respond(ctx context.Context, callID, userText string, cc agent.Context) (*agent.Reply, error) {
	f.lastCtx = cc
	if f.err != nil {
		return nil, f.err
	}
	reply := f.replies[f.calls%len(f.replies)]
	f.calls++
	return reply, nil
}

type fakeScheduler struct {
	eventID string
	err     error
	created []sched.Appointment
}

func (f *fakeScheduler) Name() string { return "fake" }

func (f *fakeScheduler) AvailableSlots(ctx context.Context, daysAhead int, doctorHint string) ([]sched.Slot, error) {
	return nil, nil
}

func (f *fakeScheduler) CreateAppointment(ctx context.Context, appt sched.Appointment) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, appt)
	return f.eventID, nil
}

type fakeSynth struct {
	fail  bool
	texts []string
}

func (f *fakeSynth) Name() string { return "fake" }
func (f *fakeSynth) Close() error { return nil }

func (f *fakeSynth) Synthesize(ctx context.Context, text string, opts speech.SynthesizeOpts) (*speech.Result, error) {
	if f.fail {
		return nil, speech.ErrSynthesisFailed
	}
	f.texts = append(f.texts, text)
	return &speech.Result{Audio: []byte("wav-bytes"), ContentType: "audio/wav"}, nil
}

type fixture struct {
	o      *Orchestrator
	calls  *call.Store
	agent  *fakeAgent
	sch    *fakeScheduler
	synth  *fakeSynth
	ledger *ledger.Memory
}

func newFixture(t *testing.T, ag *fakeAgent, sch *fakeScheduler, synth *fakeSynth) *fixture {
	t.Helper()
	calls := call.NewStore(0)
	led := ledger.NewMemory()
	o := New(Params{
		Calls:              calls,
		Agent:              ag,
		Synthesizers:       map[string]speech.Synthesizer{"fake": synth},
		DefaultSynthesizer: "fake",
		Scheduler:          sch,
		Ledger:             led,
		Audio:              audiocache.New(0),
		Tokens:             speech.NewTokenMinter("secret", 0),
		BaseURL:            "https://vocero.example.com",
	})
	return &fixture{o: o, calls: calls, agent: ag, sch: sch, synth: synth, ledger: led}
}

var twoSlots = []sched.Slot{
	{StartISO: "2026-09-01T09:00:00-05:00", EndISO: "2026-09-01T09:30:00-05:00", Doctor: "Dr. Martínez", DisplayText: "martes 1 de septiembre a las 9:00 de la mañana"},
	{StartISO: "2026-09-01T10:00:00-05:00", EndISO: "2026-09-01T10:30:00-05:00", Doctor: "Dra. Rodríguez", DisplayText: "martes 1 de septiembre a las 10:00 de la mañana"},
}

func TestGreetingTurn(t *testing.T) {
	f := newFixture(t, &fakeAgent{}, &fakeScheduler{}, &fakeSynth{})

	res := f.o.StartTurn(context.Background(), "CA1")
	if res.EndCall {
		t.Error("greeting must never be terminal")
	}
	if !strings.Contains(res.AudioURL, "/audio/CA1/1?token=") {
		t.Errorf("AudioURL = %q", res.AudioURL)
	}

	snap, _ := f.calls.Snapshot("CA1")
	if snap.State != call.StateInProgress {
		t.Errorf("State = %q", snap.State)
	}
	if len(snap.History) != 1 || snap.History[0].Role != call.RoleAssistant {
		t.Errorf("history = %+v", snap.History)
	}
}

// Scenario A: agent offers new slots; list is stored and call continues.
func TestTurnStoresOfferedSlots(t *testing.T) {
	ag := &fakeAgent{replies: []*agent.Reply{{
		SayText:      "Tengo dos opciones, ¿cuál prefieres?",
		OfferedSlots: twoSlots,
	}}}
	f := newFixture(t, ag, &fakeScheduler{}, &fakeSynth{})

	res := f.o.HandleTurn(context.Background(), "CA1", "sí")
	if res.EndCall {
		t.Error("offering slots must not end the call")
	}
	snap, _ := f.calls.Snapshot("CA1")
	if len(snap.OfferedSlots) != 2 {
		t.Fatalf("OfferedSlots = %+v", snap.OfferedSlots)
	}
	// User turn then assistant turn, in order.
	if snap.History[0].Role != call.RoleUser || snap.History[0].Text != "sí" {
		t.Errorf("history[0] = %+v", snap.History[0])
	}
	if snap.History[1].Role != call.RoleAssistant {
		t.Errorf("history[1] = %+v", snap.History[1])
	}
}

// Scenario B: "la segunda" books index 1 and ends the call.
func TestScheduleByIndexBooksAndEnds(t *testing.T) {
	idx := 1
	ag := &fakeAgent{replies: []*agent.Reply{{
		SayText: "Perfecto, agendo la segunda opción.",
		Actions: []agent.Action{{Type: agent.ActionSchedule, Index: &idx}},
	}}}
	sch := &fakeScheduler{eventID: "evt-42"}
	f := newFixture(t, ag, sch, &fakeSynth{})

	f.calls.Init("CA1", "+573137727034", "Carlos", nil, "fake")
	f.calls.WithCall("CA1", func(c *call.Call) { c.ReplaceOfferedSlots(twoSlots) })

	res := f.o.HandleTurn(context.Background(), "CA1", "la segunda")
	if !res.EndCall {
		t.Error("successful booking must end the call")
	}
	if len(sch.created) != 1 || sch.created[0].Doctor != "Dra. Rodríguez" {
		t.Fatalf("created = %+v", sch.created)
	}
	if sch.created[0].StartISO != twoSlots[1].StartISO {
		t.Errorf("StartISO = %q", sch.created[0].StartISO)
	}
	if f.ledger.Len() != 1 {
		t.Errorf("ledger records = %d, want 1", f.ledger.Len())
	}

	// Spoken text combines agent text then the confirmation.
	spoken := f.synth.texts[len(f.synth.texts)-1]
	if !strings.Contains(spoken, "quedó agendada") || !strings.HasPrefix(spoken, "Perfecto") {
		t.Errorf("spoken = %q", spoken)
	}
}

// Scenario C: explicit start not in the offer fails without booking.
func TestScheduleUnknownStartRecovers(t *testing.T) {
	ag := &fakeAgent{replies: []*agent.Reply{{
		SayText: "Claro.",
		Actions: []agent.Action{{Type: agent.ActionSchedule, StartISO: "2026-09-01T15:00:00-05:00"}},
	}}}
	sch := &fakeScheduler{eventID: "evt-1"}
	f := newFixture(t, ag, sch, &fakeSynth{})
	f.calls.WithCall("CA1", func(c *call.Call) { c.ReplaceOfferedSlots(twoSlots) })

	res := f.o.HandleTurn(context.Background(), "CA1", "a las 3 de la tarde")
	if res.EndCall {
		t.Error("failed booking must not end the call")
	}
	if len(sch.created) != 0 {
		t.Errorf("booking attempted: %+v", sch.created)
	}
	spoken := f.synth.texts[len(f.synth.texts)-1]
	if !strings.Contains(spoken, "No pude agendar") {
		t.Errorf("spoken = %q", spoken)
	}
	if f.ledger.Len() != 0 {
		t.Error("ledger written without a booking")
	}
}

// Scenario D: synthesis failure degrades to a carrier-TTS fallback.
func TestSynthesisFailureFallsBack(t *testing.T) {
	ag := &fakeAgent{replies: []*agent.Reply{{SayText: "¿Te parece el martes?"}}}
	f := newFixture(t, ag, &fakeScheduler{}, &fakeSynth{fail: true})

	res := f.o.HandleTurn(context.Background(), "CA1", "hola")
	if res.AudioURL != "" {
		t.Errorf("AudioURL = %q, want empty on synthesis failure", res.AudioURL)
	}
	if res.Text != "¿Te parece el martes?" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.EndCall {
		t.Error("fallback must keep the call alive")
	}
}

func TestAgentUnavailableRecovers(t *testing.T) {
	ag := &fakeAgent{err: errors.New("model timeout")}
	f := newFixture(t, ag, &fakeScheduler{}, &fakeSynth{})

	res := f.o.HandleTurn(context.Background(), "CA1", "hola")
	if res.EndCall {
		t.Error("agent failure must not end the call")
	}
	spoken := f.synth.texts[len(f.synth.texts)-1]
	if spoken != agent.UnavailableLine {
		t.Errorf("spoken = %q", spoken)
	}
}

func TestSchedulerFailureRecovers(t *testing.T) {
	idx := 0
	ag := &fakeAgent{replies: []*agent.Reply{{
		SayText: "Agendo.",
		Actions: []agent.Action{{Type: agent.ActionSchedule, Index: &idx}},
	}}}
	f := newFixture(t, ag, &fakeScheduler{err: errors.New("calendar down")}, &fakeSynth{})
	f.calls.WithCall("CA1", func(c *call.Call) { c.ReplaceOfferedSlots(twoSlots) })

	res := f.o.HandleTurn(context.Background(), "CA1", "la primera")
	if res.EndCall {
		t.Error("scheduler failure must not end the call")
	}
	if f.ledger.Len() != 0 {
		t.Error("ledger written after calendar failure")
	}
	spoken := f.synth.texts[len(f.synth.texts)-1]
	if !strings.Contains(spoken, "problema técnico") {
		t.Errorf("spoken = %q", spoken)
	}
}

func TestDuplicateScheduleBooksOnce(t *testing.T) {
	idx := 0
	ag := &fakeAgent{replies: []*agent.Reply{{
		SayText: "Listo.",
		Actions: []agent.Action{{Type: agent.ActionSchedule, Index: &idx}},
	}}}
	sch := &fakeScheduler{eventID: "evt-1"}
	f := newFixture(t, ag, sch, &fakeSynth{})
	f.calls.Init("CA1", "+573137727034", "Carlos", nil, "fake")
	f.calls.WithCall("CA1", func(c *call.Call) { c.ReplaceOfferedSlots(twoSlots) })

	first := f.o.HandleTurn(context.Background(), "CA1", "la primera")
	if !first.EndCall {
		t.Fatal("first booking did not end the call")
	}

	// Redelivered turn for the ended call is acknowledged with a hangup,
	// never an error or a second booking.
	f.calls.WithCall("CA1", func(c *call.Call) { c.State = call.StateInProgress })
	second := f.o.HandleTurn(context.Background(), "CA1", "la primera")
	if !second.EndCall {
		t.Error("duplicate booking must still end the call")
	}
	if len(sch.created) != 1 {
		t.Errorf("appointments created = %d, want 1", len(sch.created))
	}
	if f.ledger.Len() != 1 {
		t.Errorf("ledger records = %d, want 1", f.ledger.Len())
	}
}

func TestSilenceRepromptThenGoodbye(t *testing.T) {
	ag := &fakeAgent{}
	f := newFixture(t, ag, &fakeScheduler{}, &fakeSynth{})

	for i := 0; i < 2; i++ {
		res := f.o.HandleTurn(context.Background(), "CA1", "")
		if res.EndCall {
			t.Fatalf("silent turn %d ended the call early", i+1)
		}
	}
	res := f.o.HandleTurn(context.Background(), "CA1", "")
	if !res.EndCall {
		t.Error("third consecutive silent turn must hang up")
	}
	if ag.calls != 0 {
		t.Errorf("agent invoked %d times on silence", ag.calls)
	}
	spoken := f.synth.texts[len(f.synth.texts)-1]
	if !strings.Contains(spoken, "Hasta luego") {
		t.Errorf("goodbye = %q", spoken)
	}
}

func TestSpeechResetsSilenceCount(t *testing.T) {
	ag := &fakeAgent{replies: []*agent.Reply{{SayText: "Claro."}}}
	f := newFixture(t, ag, &fakeScheduler{}, &fakeSynth{})

	f.o.HandleTurn(context.Background(), "CA1", "")
	f.o.HandleTurn(context.Background(), "CA1", "")
	f.o.HandleTurn(context.Background(), "CA1", "hola")

	res := f.o.HandleTurn(context.Background(), "CA1", "")
	if res.EndCall {
		t.Error("silence count not reset by speech")
	}
}

func TestEndedCallAcknowledgedDefensively(t *testing.T) {
	ag := &fakeAgent{replies: []*agent.Reply{{SayText: "Hola."}}}
	f := newFixture(t, ag, &fakeScheduler{}, &fakeSynth{})
	f.o.HandleStatus("CA1", "completed")

	res := f.o.HandleTurn(context.Background(), "CA1", "¿aló?")
	if !res.EndCall {
		t.Error("turn for ended call must hang up")
	}
	if ag.calls != 0 {
		t.Error("agent invoked for ended call")
	}
}

func TestHandleStatusDropsAudio(t *testing.T) {
	f := newFixture(t, &fakeAgent{replies: []*agent.Reply{{SayText: "Hola."}}}, &fakeScheduler{}, &fakeSynth{})
	f.o.StartTurn(context.Background(), "CA1")
	if f.o.p.Audio.Len() != 1 {
		t.Fatalf("artifacts = %d", f.o.p.Audio.Len())
	}
	f.o.HandleStatus("CA1", "completed")
	if f.o.p.Audio.Len() != 0 {
		t.Error("audio artifacts survive call completion")
	}
}

func TestAgentContextExcludesCurrentUtterance(t *testing.T) {
	ag := &fakeAgent{replies: []*agent.Reply{{SayText: "Claro."}}}
	f := newFixture(t, ag, &fakeScheduler{}, &fakeSynth{})

	f.o.HandleTurn(context.Background(), "CA1", "primera frase")
	f.o.HandleTurn(context.Background(), "CA1", "segunda frase")

	for _, turn := range ag.lastCtx.History {
		if turn.Text == "segunda frase" {
			t.Error("current utterance duplicated into agent history")
		}
	}
	if len(ag.lastCtx.History) != 2 {
		t.Errorf("history len = %d, want 2 (first user + assistant)", len(ag.lastCtx.History))
	}
}
