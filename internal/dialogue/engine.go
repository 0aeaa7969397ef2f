// Package dialogue drives the turn-taking state machine: it maps each
// webhook event onto the call's conversation, invokes the language model,
// and decides what the caller hears next.
package dialogue

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/events"
	"github.com/voiceline/voiceline/internal/knowledge"
	"github.com/voiceline/voiceline/internal/llm"
	"github.com/voiceline/voiceline/internal/prompt"
	"github.com/voiceline/voiceline/internal/script"
)

// Direction distinguishes who initiated the call; it selects the greeting.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Fixed spoken fallbacks. The caller must always hear something, never
// silence or a transport error.
const (
	MsgCannotContinue = "I'm sorry, this call could not be continued. Please call back. Goodbye."
	MsgModelFallback  = "I'm sorry, I'm having trouble processing your request right now. Could you please repeat that?"
	MsgGoodbye        = "Thank you for calling. Goodbye."
)

// TurnResult is what the telephony layer should do next: speak Reply, then
// either keep gathering speech or hang up.
type TurnResult struct {
	Reply         string
	KeepListening bool
}

// Engine executes one webhook event at a time against the call's context.
type Engine struct {
	calls     *callcontext.Manager
	provider  llm.Provider
	retriever knowledge.Retriever
	scripts   script.Provider
	publisher events.Publisher

	model          string
	maxReplyTokens int
	knowledgeTopK  int
}

// Options carries the tunable parts of the engine.
type Options struct {
	Model          string
	MaxReplyTokens int
	KnowledgeTopK  int
}

func NewEngine(calls *callcontext.Manager, provider llm.Provider, retriever knowledge.Retriever,
	scripts script.Provider, publisher events.Publisher, opts Options) *Engine {
	if opts.MaxReplyTokens <= 0 {
		opts.MaxReplyTokens = 150
	}
	if opts.KnowledgeTopK <= 0 {
		opts.KnowledgeTopK = 3
	}
	return &Engine{
		calls:          calls,
		provider:       provider,
		retriever:      retriever,
		scripts:        scripts,
		publisher:      publisher,
		model:          opts.Model,
		maxReplyTokens: opts.MaxReplyTokens,
		knowledgeTopK:  opts.KnowledgeTopK,
	}
}

// StartCall handles the call-started event: it registers the call
// (idempotently, so provider retries never reset history) and returns the
// greeting as the first spoken prompt. The greeting is not recorded in
// history; history holds only the user/assistant pairs of the exchange
// itself.
func (e *Engine) StartCall(ctx context.Context, callID, userID, customerNumber string, dir Direction) (TurnResult, error) {
	cc, err := e.calls.Create(ctx, callID, userID, customerNumber, true)
	if err != nil {
		return TurnResult{Reply: MsgCannotContinue}, err
	}

	greeting := e.greeting(ctx, userID, dir)

	// A retried call-started event for a live call replays the greeting
	// without touching state or publishing again.
	if cc.State != callcontext.StateAwaitingFirstTurn {
		return TurnResult{Reply: greeting, KeepListening: true}, nil
	}

	if _, err := e.calls.Transition(ctx, callID, callcontext.StateInConversation); err != nil {
		return TurnResult{Reply: MsgCannotContinue}, err
	}

	e.publish(ctx, events.Event{
		Type:   events.TypeCallStarted,
		CallID: callID,
		UserID: userID,
		At:     time.Now().UTC(),
		Payload: map[string]any{
			"direction":       string(dir),
			"customer_number": customerNumber,
		},
	})

	return TurnResult{Reply: greeting, KeepListening: true}, nil
}

// HandleSpeech handles one recognized utterance. The returned TurnResult is
// always speakable, even when err is non-nil; the error reports what went
// wrong for logging and status-code decisions.
func (e *Engine) HandleSpeech(ctx context.Context, callID, utterance string) (TurnResult, error) {
	cc, err := e.calls.Get(ctx, callID)
	if errors.Is(err, callcontext.ErrNotFound) {
		// Without its context the call cannot be recovered.
		return TurnResult{Reply: MsgCannotContinue}, err
	}
	if err != nil {
		return TurnResult{Reply: MsgModelFallback, KeepListening: true}, err
	}
	if cc.State == callcontext.StateEnded {
		return TurnResult{Reply: MsgGoodbye}, callcontext.ErrCallEnded
	}
	if cc.State == callcontext.StateAwaitingFirstTurn {
		if _, err := e.calls.Transition(ctx, callID, callcontext.StateInConversation); err != nil {
			return TurnResult{Reply: MsgCannotContinue}, err
		}
		cc.State = callcontext.StateInConversation
	}

	// Keyword scan runs before prompt assembly so the scheduling
	// instruction takes effect on the same turn it is detected.
	if DetectSchedulingIntent(utterance) && !cc.Derived.AppointmentIntent {
		intent := true
		cc, err = e.calls.MergeDerived(ctx, callID, callcontext.DerivedPatch{AppointmentIntent: &intent})
		if err != nil {
			return TurnResult{Reply: MsgCannotContinue}, err
		}
	}

	// Record the utterance before calling the model so a model failure
	// never loses what the caller said.
	if _, err := e.calls.AppendTurn(ctx, callID, callcontext.Turn{Role: callcontext.RoleUser, Text: utterance}); err != nil {
		if errors.Is(err, callcontext.ErrCallEnded) {
			return TurnResult{Reply: MsgGoodbye}, err
		}
		return TurnResult{Reply: MsgCannotContinue}, err
	}

	sc := e.scriptFor(ctx, cc.UserID)
	snippets := e.retrieve(ctx, cc.UserID, utterance)

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:       e.model,
		Messages:    prompt.Assemble(cc, sc, snippets, utterance),
		MaxTokens:   e.maxReplyTokens,
		Temperature: 0.7,
	})
	if err != nil {
		// Transient model failures must not end the call, and no
		// hallucinated assistant turn is stored for the failed attempt.
		log.Printf("model completion failed for call %s: %v", callID, err)
		return TurnResult{Reply: MsgModelFallback, KeepListening: true}, nil
	}

	cc, err = e.calls.AppendTurn(ctx, callID, callcontext.Turn{Role: callcontext.RoleAssistant, Text: resp.Content})
	if err != nil {
		return TurnResult{Reply: resp.Content, KeepListening: true}, err
	}

	if cc.Derived.AppointmentIntent {
		e.extractDetails(ctx, cc)
	}

	return TurnResult{Reply: resp.Content, KeepListening: true}, nil
}

func (e *Engine) greeting(ctx context.Context, userID string, dir Direction) string {
	sc := e.scriptFor(ctx, userID)
	inbound, outbound := script.Greetings(sc)
	if dir == DirectionOutbound {
		return outbound
	}
	return inbound
}

func (e *Engine) scriptFor(ctx context.Context, userID string) *script.Script {
	sc, err := e.scripts.GetScript(ctx, userID)
	if err != nil {
		log.Printf("script lookup failed for user %s: %v", userID, err)
		return nil
	}
	return sc
}

func (e *Engine) retrieve(ctx context.Context, userID, query string) []knowledge.Snippet {
	if e.retriever == nil {
		return nil
	}
	snippets, err := e.retriever.Search(ctx, userID, query, e.knowledgeTopK)
	if err != nil {
		log.Printf("knowledge retrieval failed for user %s: %v", userID, err)
		return nil
	}
	return snippets
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		log.Printf("publishing %s for call %s: %v", ev.Type, ev.CallID, err)
	}
}
