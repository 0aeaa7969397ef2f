package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/voiceline/voiceline/internal/appointment"
	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/db"
	"github.com/voiceline/voiceline/internal/events"
	"github.com/voiceline/voiceline/internal/knowledge"
	"github.com/voiceline/voiceline/internal/llm"
	"github.com/voiceline/voiceline/internal/script"
)

type fakeProvider struct {
	mu        sync.Mutex
	reply     string
	jsonReply string
	err       error
	requests  []llm.CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if req.JSONMode {
		return &llm.CompletionResponse{Content: f.jsonReply}, nil
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

type fakeRetriever struct {
	snippets []knowledge.Snippet
	err      error
}

func (f *fakeRetriever) Search(context.Context, string, string, int) ([]knowledge.Snippet, error) {
	return f.snippets, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) byType(typ string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	engine       *Engine
	finalizer    *Finalizer
	calls        *callcontext.Manager
	cache        *callcontext.MemoryCache
	scripts      *script.Store
	appointments *appointment.Store
	provider     *fakeProvider
	publisher    *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cache := callcontext.NewMemoryCache(time.Hour, 100)
	calls := callcontext.NewManager(callcontext.NewStore(database), cache)
	scripts := script.NewStore(database)
	appointments := appointment.NewStore(database)
	provider := &fakeProvider{reply: "Happy to help."}
	publisher := &recordingPublisher{}

	engine := NewEngine(calls, provider, &fakeRetriever{}, scripts, publisher, Options{Model: "test-model"})
	finalizer := NewFinalizer(calls, appointments, publisher)

	return &testEnv{
		engine:       engine,
		finalizer:    finalizer,
		calls:        calls,
		cache:        cache,
		scripts:      scripts,
		appointments: appointments,
		provider:     provider,
		publisher:    publisher,
	}
}

func TestStartCallDefaultGreetings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.StartCall(ctx, "CA-in", "user-1", "+15550001111", DirectionInbound)
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if res.Reply != script.DefaultGreeting {
		t.Errorf("inbound greeting = %q, want default", res.Reply)
	}
	if !res.KeepListening {
		t.Error("greeting must keep listening")
	}

	res, err = env.engine.StartCall(ctx, "CA-out", "user-1", "+15550001111", DirectionOutbound)
	if err != nil {
		t.Fatalf("StartCall outbound: %v", err)
	}
	if res.Reply != script.DefaultOutboundGreeting {
		t.Errorf("outbound greeting = %q, want outbound default", res.Reply)
	}
}

func TestStartCallConfiguredGreeting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.scripts.Save(ctx, &script.Script{UserID: "user-1", Greeting: "Welcome to the clinic"}); err != nil {
		t.Fatalf("saving script: %v", err)
	}

	res, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound)
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if res.Reply != "Welcome to the clinic" {
		t.Errorf("greeting = %q, want configured greeting", res.Reply)
	}
}

func TestStartCallIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound); err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if _, err := env.engine.HandleSpeech(ctx, "CA1", "hello"); err != nil {
		t.Fatalf("HandleSpeech: %v", err)
	}

	// A retried call-started event replays the greeting without resetting
	// anything.
	res, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound)
	if err != nil {
		t.Fatalf("retried StartCall: %v", err)
	}
	if res.Reply != script.DefaultGreeting {
		t.Errorf("replayed greeting = %q", res.Reply)
	}

	cc, err := env.calls.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// user + assistant; the greeting is spoken, not stored.
	if len(cc.History) != 2 {
		t.Errorf("history length = %d after retry, want 2", len(cc.History))
	}
	if started := env.publisher.byType(events.TypeCallStarted); len(started) != 1 {
		t.Errorf("call.started published %d times, want 1", len(started))
	}
}

func TestHandleSpeechRecordsBothTurns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound); err != nil {
		t.Fatalf("StartCall: %v", err)
	}

	res, err := env.engine.HandleSpeech(ctx, "CA1", "what are your hours")
	if err != nil {
		t.Fatalf("HandleSpeech: %v", err)
	}
	if res.Reply != "Happy to help." || !res.KeepListening {
		t.Errorf("result = %+v", res)
	}

	cc, err := env.calls.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	n := len(cc.History)
	if n != 2 {
		t.Fatalf("history length = %d, want 2", n)
	}
	if cc.History[n-2].Role != callcontext.RoleUser || cc.History[n-2].Text != "what are your hours" {
		t.Errorf("user turn = %+v", cc.History[n-2])
	}
	if cc.History[n-1].Role != callcontext.RoleAssistant || cc.History[n-1].Text != "Happy to help." {
		t.Errorf("assistant turn = %+v", cc.History[n-1])
	}
}

// After N successful speech events the history holds exactly 2N turns,
// alternating user/assistant from the first entry. The greeting never
// appears as a turn, so the prompt window is built from exchanges only.
func TestHistoryHoldsPairsPerSpeechEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound); err != nil {
		t.Fatalf("StartCall: %v", err)
	}

	const turns = 3
	for i := 0; i < turns; i++ {
		if _, err := env.engine.HandleSpeech(ctx, "CA1", fmt.Sprintf("utterance %d", i)); err != nil {
			t.Fatalf("HandleSpeech %d: %v", i, err)
		}
	}

	cc, err := env.calls.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cc.History) != 2*turns {
		t.Fatalf("history length after %d speech events = %d, want %d", turns, len(cc.History), 2*turns)
	}
	for i, turn := range cc.History {
		want := callcontext.RoleUser
		if i%2 == 1 {
			want = callcontext.RoleAssistant
		}
		if turn.Role != want {
			t.Errorf("turn %d role = %s, want %s", i, turn.Role, want)
		}
	}
}

func TestHandleSpeechUnknownCall(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.HandleSpeech(context.Background(), "CA-missing", "hello")
	if !errors.Is(err, callcontext.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if res.Reply != MsgCannotContinue {
		t.Errorf("reply = %q, want cannot-continue message", res.Reply)
	}
	if res.KeepListening {
		t.Error("unrecoverable call must stop listening")
	}
}

func TestHandleSpeechModelFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound); err != nil {
		t.Fatalf("StartCall: %v", err)
	}

	env.provider.err = llm.ErrUnavailable
	res, err := env.engine.HandleSpeech(ctx, "CA1", "are you there")
	if err != nil {
		t.Fatalf("degraded turn returned error: %v", err)
	}
	if res.Reply != MsgModelFallback {
		t.Errorf("reply = %q, want fallback", res.Reply)
	}
	if !res.KeepListening {
		t.Error("transient failure must keep the call alive")
	}

	cc, err := env.calls.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	last := cc.History[len(cc.History)-1]
	if last.Role != callcontext.RoleUser || last.Text != "are you there" {
		t.Errorf("user utterance not recorded on failure: %+v", last)
	}
	for _, turn := range cc.History {
		if turn.Role == callcontext.RoleAssistant && turn.Text == MsgModelFallback {
			t.Error("fallback message stored as an assistant turn")
		}
	}
}

func TestHandleSpeechAfterEnded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound); err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if err := env.finalizer.Finalize(ctx, "CA1"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	res, err := env.engine.HandleSpeech(ctx, "CA1", "hello again")
	if !errors.Is(err, callcontext.ErrCallEnded) {
		t.Errorf("err = %v, want ErrCallEnded", err)
	}
	if res.KeepListening {
		t.Error("ended call must not keep listening")
	}
}

func TestSchedulingIntentAndExtraction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.provider.jsonReply = `{"customer_name":"Alex","date":"2026-09-01","time":"15:00","notes":""}`

	if _, err := env.engine.StartCall(ctx, "CA1", "user-1", "", DirectionInbound); err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if _, err := env.engine.HandleSpeech(ctx, "CA1", "I'd like to Schedule an APPOINTMENT tomorrow"); err != nil {
		t.Fatalf("HandleSpeech: %v", err)
	}

	cc, err := env.calls.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !cc.Derived.AppointmentIntent {
		t.Error("scheduling intent not detected")
	}
	if cc.Derived.Appointment.CustomerName != "Alex" {
		t.Errorf("extracted name = %q, want Alex", cc.Derived.Appointment.CustomerName)
	}
	if cc.Derived.Appointment.Time != "15:00" {
		t.Errorf("extracted time = %q, want 15:00", cc.Derived.Appointment.Time)
	}
}

func TestDetectSchedulingIntent(t *testing.T) {
	cases := []struct {
		utterance string
		want      bool
	}{
		{"I need an appointment", true},
		{"can we SCHEDULE something", true},
		{"rescheduled delivery", true},
		{"what are your opening hours", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DetectSchedulingIntent(tc.utterance); got != tc.want {
			t.Errorf("DetectSchedulingIntent(%q) = %v, want %v", tc.utterance, got, tc.want)
		}
	}
}
