package twiml

import (
	"strings"
	"testing"
)

func TestSpeakAndListen(t *testing.T) {
	out, err := SpeakAndListen("How can I help?", "/api/webhook/voice").Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)

	if !strings.HasPrefix(s, "<?xml") {
		t.Errorf("missing xml declaration:\n%s", s)
	}
	for _, want := range []string{
		"<Response>",
		`<Gather input="speech" action="/api/webhook/voice" method="POST" speechTimeout="auto">`,
		"<Say>How can I help?</Say>",
		"</Gather>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "<Hangup") {
		t.Errorf("listen response must not hang up:\n%s", s)
	}
}

func TestSpeakAndHangup(t *testing.T) {
	out, err := SpeakAndHangup("Goodbye.").Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)

	sayIdx := strings.Index(s, "<Say>Goodbye.</Say>")
	hangupIdx := strings.Index(s, "<Hangup>")
	if sayIdx < 0 || hangupIdx < 0 {
		t.Fatalf("output missing verbs:\n%s", s)
	}
	if sayIdx > hangupIdx {
		t.Errorf("Say must precede Hangup:\n%s", s)
	}
}

func TestEscaping(t *testing.T) {
	out, err := SpeakAndHangup(`We open at 9 & close at 5 <sharp>`).Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "9 &amp; close") || !strings.Contains(s, "&lt;sharp&gt;") {
		t.Errorf("special characters not escaped:\n%s", s)
	}
}
