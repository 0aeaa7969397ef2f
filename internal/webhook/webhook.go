// Package webhook terminates the telephony provider's HTTP callbacks and
// translates them into dialogue engine calls. Voice-facing endpoints always
// answer with speakable TwiML, never a bare error status: whatever goes
// wrong, the caller hears something.
package webhook

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voiceline/voiceline/internal/dialogue"
	"github.com/voiceline/voiceline/internal/telephony"
	"github.com/voiceline/voiceline/internal/twiml"
	"github.com/voiceline/voiceline/internal/userconfig"
)

const msgDidNotCatch = "I'm sorry, I didn't catch that. Could you say it again?"

// Terminal call statuses that trigger finalization.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

// Handler serves the provider webhook endpoints.
type Handler struct {
	engine    *dialogue.Engine
	finalizer *dialogue.Finalizer
	resolver  *userconfig.Resolver

	// publicURL is this server's externally reachable base URL; gather
	// actions and signature checks are built against it.
	publicURL          string
	validateSignatures bool
}

func NewHandler(engine *dialogue.Engine, finalizer *dialogue.Finalizer, resolver *userconfig.Resolver,
	publicURL string, validateSignatures bool) *Handler {
	return &Handler{
		engine:             engine,
		finalizer:          finalizer,
		resolver:           resolver,
		publicURL:          publicURL,
		validateSignatures: validateSignatures,
	}
}

// RegisterRoutes mounts the provider-facing webhook endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/webhook/call", h.handleCallStarted)
	r.Post("/api/webhook/voice", h.handleVoice)
	r.Post("/api/webhook/call/status", h.handleStatus)
	r.Post("/api/webhook/outbound-call", h.handleOutboundAnswered)
}

func (h *Handler) voiceActionURL() string {
	return h.publicURL + "/api/webhook/voice"
}

func (h *Handler) handleCallStarted(w http.ResponseWriter, r *http.Request) {
	callSid, ok := requireCallSid(w, r)
	if !ok {
		return
	}
	from := r.PostFormValue("From")
	to := r.PostFormValue("To")

	uc, err := h.resolver.ResolveByNumber(r.Context(), to)
	if err != nil {
		log.Printf("routing inbound call %s to %s failed: %v", callSid, to, err)
		writeTwiML(w, twiml.SpeakAndHangup(dialogue.MsgCannotContinue))
		return
	}
	if !h.verifySignature(r, uc.AuthToken) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	res, err := h.engine.StartCall(r.Context(), callSid, uc.UserID, from, dialogue.DirectionInbound)
	if err != nil {
		log.Printf("starting call %s: %v", callSid, err)
	}
	h.writeTurn(w, res)
}

func (h *Handler) handleOutboundAnswered(w http.ResponseWriter, r *http.Request) {
	callSid, ok := requireCallSid(w, r)
	if !ok {
		return
	}
	// The call originates from the user's own number; the callee is To.
	from := r.PostFormValue("From")
	to := r.PostFormValue("To")

	uc, err := h.resolver.ResolveByNumber(r.Context(), from)
	if err != nil {
		log.Printf("routing outbound call %s from %s failed: %v", callSid, from, err)
		writeTwiML(w, twiml.SpeakAndHangup(dialogue.MsgCannotContinue))
		return
	}
	if !h.verifySignature(r, uc.AuthToken) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	res, err := h.engine.StartCall(r.Context(), callSid, uc.UserID, to, dialogue.DirectionOutbound)
	if err != nil {
		log.Printf("starting outbound call %s: %v", callSid, err)
	}
	h.writeTurn(w, res)
}

func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	callSid, ok := requireCallSid(w, r)
	if !ok {
		return
	}

	speech := r.PostFormValue("SpeechResult")
	if speech == "" {
		writeTwiML(w, twiml.SpeakAndListen(msgDidNotCatch, h.voiceActionURL()))
		return
	}

	res, err := h.engine.HandleSpeech(r.Context(), callSid, speech)
	if err != nil {
		log.Printf("turn failed for call %s: %v", callSid, err)
	}
	h.writeTurn(w, res)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	callSid, ok := requireCallSid(w, r)
	if !ok {
		return
	}

	status := r.PostFormValue("CallStatus")
	if !terminalStatuses[status] {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.finalizer.Finalize(r.Context(), callSid); err != nil {
		log.Printf("finalizing call %s: %v", callSid, err)
		http.Error(w, "finalization failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeTurn(w http.ResponseWriter, res dialogue.TurnResult) {
	if res.KeepListening {
		writeTwiML(w, twiml.SpeakAndListen(res.Reply, h.voiceActionURL()))
		return
	}
	writeTwiML(w, twiml.SpeakAndHangup(res.Reply))
}

func (h *Handler) verifySignature(r *http.Request, authToken string) bool {
	if !h.validateSignatures || authToken == "" {
		return true
	}
	sig := r.Header.Get("X-Twilio-Signature")
	requestURL := h.publicURL + r.URL.Path
	return telephony.ValidateSignature(authToken, requestURL, r.PostForm, sig)
}

// requireCallSid parses the form and rejects events without a call ID. A
// payload with no CallSid is malformed; nothing is mutated for it.
func requireCallSid(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return "", false
	}
	callSid := r.PostFormValue("CallSid")
	if callSid == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return "", false
	}
	return callSid, true
}

func writeTwiML(w http.ResponseWriter, resp *twiml.Response) {
	body, err := resp.Render()
	if err != nil {
		log.Printf("rendering twiml: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(body)
}
