// Package prompt builds the message sequences sent to the language model:
// the conversational prompt for each turn and the extraction prompt used to
// pull appointment details out of the transcript.
package prompt

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/knowledge"
	"github.com/voiceline/voiceline/internal/llm"
	"github.com/voiceline/voiceline/internal/script"
)

// HistoryWindow bounds how many stored turns are replayed to the model each
// turn. Older turns are dropped to keep per-turn latency and cost flat over
// long calls.
const HistoryWindow = 10

const voicePreamble = `You are a helpful voice assistant answering a live phone call. ` +
	`Keep responses short, natural, and conversational. Speak in complete sentences ` +
	`suitable for text-to-speech. Never use lists, markdown, or formatting. ` +
	`If you do not know something, say so briefly and offer to take a message.`

const schedulingInstruction = `The caller wants to schedule an appointment. ` +
	`Collect their name, preferred date, preferred time, and any notes, one question ` +
	`at a time. Confirm the details back to them once you have all of them.`

// Assemble builds the full turn prompt: system instruction, the most recent
// history window in stored order, and the new utterance as the final user
// message.
func Assemble(cc *callcontext.CallContext, sc *script.Script, snippets []knowledge.Snippet, utterance string) []llm.Message {
	var sys strings.Builder
	sys.WriteString(voicePreamble)

	if len(snippets) > 0 {
		sys.WriteString("\n\nUse the following business knowledge when answering:\n")
		for _, s := range snippets {
			fmt.Fprintf(&sys, "\nKnowledge from %s:\n%s\n", s.SourceName, s.Text)
		}
	}

	if sc != nil {
		if data, err := yaml.Marshal(sc); err == nil {
			sys.WriteString("\n\nFollow this caller script:\n")
			sys.Write(data)
		}
	}

	if cc.Derived.AppointmentIntent {
		sys.WriteString("\n\n")
		sys.WriteString(schedulingInstruction)
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: sys.String()}}

	for _, turn := range cc.LastTurns(HistoryWindow) {
		role := llm.RoleUser
		if turn.Role == callcontext.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Text})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: utterance})
	return messages
}

const extractionSystem = `Extract appointment details from the phone call transcript. ` +
	`Respond with a JSON object with exactly these string fields: ` +
	`"customer_name", "date", "time", "notes". ` +
	`Use empty strings for anything the caller has not said. ` +
	`Format dates as YYYY-MM-DD and times as HH:MM in 24-hour form when possible.`

// ExtractionMessages builds the JSON-mode prompt that pulls structured
// appointment details from the conversation so far.
func ExtractionMessages(cc *callcontext.CallContext) []llm.Message {
	var transcript strings.Builder
	for _, turn := range cc.History {
		fmt.Fprintf(&transcript, "%s: %s\n", turn.Role, turn.Text)
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: extractionSystem},
		{Role: llm.RoleUser, Content: transcript.String()},
	}
}
