package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/knowledge"
	"github.com/voiceline/voiceline/internal/llm"
	"github.com/voiceline/voiceline/internal/script"
)

func TestAssembleBasicShape(t *testing.T) {
	cc := &callcontext.CallContext{CallID: "CA1"}
	msgs := Assemble(cc, nil, nil, "hello there")

	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %s, want system", msgs[0].Role)
	}
	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleUser || last.Content != "hello there" {
		t.Errorf("final message = %+v, want the new utterance as user", last)
	}
}

func TestAssembleWindowsHistory(t *testing.T) {
	cc := &callcontext.CallContext{}
	for i := 0; i < 14; i++ {
		role := callcontext.RoleUser
		if i%2 == 1 {
			role = callcontext.RoleAssistant
		}
		cc.History = append(cc.History, callcontext.Turn{Role: role, Text: fmt.Sprintf("turn-%d", i)})
	}

	msgs := Assemble(cc, nil, nil, "latest")

	// system + 10 windowed turns + new utterance
	if len(msgs) != 12 {
		t.Fatalf("message count = %d, want 12", len(msgs))
	}
	if msgs[1].Content != "turn-4" {
		t.Errorf("oldest windowed turn = %q, want turn-4", msgs[1].Content)
	}
	if msgs[10].Content != "turn-13" {
		t.Errorf("newest windowed turn = %q, want turn-13", msgs[10].Content)
	}

	// Role labels must match stored roles in order.
	for i := 1; i <= 10; i++ {
		stored := cc.History[i+3]
		want := llm.RoleUser
		if stored.Role == callcontext.RoleAssistant {
			want = llm.RoleAssistant
		}
		if msgs[i].Role != want {
			t.Errorf("message %d role = %s, want %s", i, msgs[i].Role, want)
		}
	}
}

func TestAssembleIncludesKnowledge(t *testing.T) {
	cc := &callcontext.CallContext{}
	snippets := []knowledge.Snippet{
		{SourceName: "hours.md", Text: "Open 9 to 5 on weekdays."},
		{SourceName: "pricing.md", Text: "Visits cost fifty dollars."},
	}

	msgs := Assemble(cc, nil, snippets, "when are you open")
	sys := msgs[0].Content

	if !strings.Contains(sys, "Knowledge from hours.md") {
		t.Errorf("system prompt missing tagged snippet source:\n%s", sys)
	}
	if !strings.Contains(sys, "Open 9 to 5 on weekdays.") {
		t.Errorf("system prompt missing snippet text")
	}
	if !strings.Contains(sys, "Knowledge from pricing.md") {
		t.Errorf("system prompt missing second snippet")
	}
}

func TestAssembleIncludesScript(t *testing.T) {
	cc := &callcontext.CallContext{}
	sc := &script.Script{
		Name:            "clinic",
		Greeting:        "Thanks for calling the clinic",
		SchedulingRules: "Only book weekday mornings",
	}

	msgs := Assemble(cc, sc, nil, "hi")
	sys := msgs[0].Content

	if !strings.Contains(sys, "Only book weekday mornings") {
		t.Errorf("system prompt missing script rules:\n%s", sys)
	}
}

func TestAssembleSchedulingInstruction(t *testing.T) {
	cc := &callcontext.CallContext{}
	sys := Assemble(cc, nil, nil, "hi")[0].Content
	if strings.Contains(sys, "schedule an appointment") {
		t.Errorf("scheduling instruction present without intent")
	}

	cc.Derived.AppointmentIntent = true
	sys = Assemble(cc, nil, nil, "hi")[0].Content
	if !strings.Contains(sys, "Collect their name") {
		t.Errorf("scheduling instruction missing with intent set:\n%s", sys)
	}
}

func TestExtractionMessages(t *testing.T) {
	cc := &callcontext.CallContext{
		History: []callcontext.Turn{
			{Role: callcontext.RoleUser, Text: "I am Alex, book me tomorrow at 3pm"},
			{Role: callcontext.RoleAssistant, Text: "Sure, Alex."},
		},
	}

	msgs := ExtractionMessages(cc)
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Errorf("first role = %s, want system", msgs[0].Role)
	}
	if !strings.Contains(msgs[1].Content, "user: I am Alex") {
		t.Errorf("transcript missing user turn:\n%s", msgs[1].Content)
	}
	if !strings.Contains(msgs[1].Content, "assistant: Sure, Alex.") {
		t.Errorf("transcript missing assistant turn")
	}
}
