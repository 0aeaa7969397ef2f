package webhook

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/telephony"
	"github.com/voiceline/voiceline/internal/userconfig"
)

// CallsAPI exposes call management over JSON: initiating outbound calls and
// reading the durable call log.
type CallsAPI struct {
	calls     *callcontext.Manager
	users     *userconfig.Store
	client    *telephony.Client
	publicURL string
}

func NewCallsAPI(calls *callcontext.Manager, users *userconfig.Store, client *telephony.Client, publicURL string) *CallsAPI {
	return &CallsAPI{calls: calls, users: users, client: client, publicURL: publicURL}
}

// RegisterRoutes mounts the call management endpoints.
func (a *CallsAPI) RegisterRoutes(r chi.Router) {
	r.Post("/api/calls/outbound", a.handleOutbound)
	r.Get("/api/calls/{userID}", a.handleList)
	r.Get("/api/call/{callID}/transcript", a.handleTranscript)
}

func (a *CallsAPI) handleOutbound(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		To     string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.To == "" {
		http.Error(w, "to is required", http.StatusBadRequest)
		return
	}

	var uc *userconfig.UserConfig
	var err error
	if body.UserID != "" {
		uc, err = a.users.Get(r.Context(), body.UserID)
	} else {
		uc, err = a.users.First(r.Context())
	}
	if err != nil {
		log.Printf("resolving user for outbound call: %v", err)
		http.Error(w, "failed to resolve user", http.StatusInternalServerError)
		return
	}
	if uc == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if uc.AccountSID == "" || uc.AuthToken == "" || uc.PhoneNumber == "" {
		http.Error(w, "user has no telephony credentials configured", http.StatusUnprocessableEntity)
		return
	}

	sid, err := a.client.PlaceCall(r.Context(), telephony.OutboundCallRequest{
		AccountSID:     uc.AccountSID,
		AuthToken:      uc.AuthToken,
		From:           uc.PhoneNumber,
		To:             body.To,
		VoiceURL:       a.publicURL + "/api/webhook/outbound-call",
		StatusCallback: a.publicURL + "/api/webhook/call/status",
	})
	if err != nil {
		log.Printf("placing outbound call for %s: %v", uc.UserID, err)
		http.Error(w, "failed to place call", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"call_sid": sid, "user_id": uc.UserID})
}

func (a *CallsAPI) handleList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	calls, err := a.calls.ListByUser(r.Context(), userID, 100)
	if err != nil {
		log.Printf("listing calls for %s: %v", userID, err)
		http.Error(w, "failed to list calls", http.StatusInternalServerError)
		return
	}

	type callSummary struct {
		CallID         string `json:"call_id"`
		CustomerNumber string `json:"customer_number"`
		Status         string `json:"status"`
		StartedAt      string `json:"started_at"`
		CompletedAt    string `json:"completed_at,omitempty"`
		Turns          int    `json:"turns"`
	}
	out := make([]callSummary, 0, len(calls))
	for _, cc := range calls {
		s := callSummary{
			CallID:         cc.CallID,
			CustomerNumber: cc.CustomerNumber,
			Status:         string(cc.Status),
			StartedAt:      cc.StartedAt.Format(time.RFC3339),
			Turns:          len(cc.History),
		}
		if cc.CompletedAt != nil {
			s.CompletedAt = cc.CompletedAt.Format(time.RFC3339)
		}
		out = append(out, s)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (a *CallsAPI) handleTranscript(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	cc, err := a.calls.Get(r.Context(), callID)
	if err != nil {
		if errors.Is(err, callcontext.ErrNotFound) {
			http.Error(w, "call not found", http.StatusNotFound)
			return
		}
		log.Printf("reading transcript for %s: %v", callID, err)
		http.Error(w, "failed to read transcript", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"call_id": cc.CallID,
		"user_id": cc.UserID,
		"status":  cc.Status,
		"history": cc.History,
		"derived": cc.Derived,
	})
}
