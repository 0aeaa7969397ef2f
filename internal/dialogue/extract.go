package dialogue

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/llm"
	"github.com/voiceline/voiceline/internal/prompt"
)

type extractedDetails struct {
	CustomerName string `json:"customer_name"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Notes        string `json:"notes"`
}

// extractDetails asks the model, in JSON mode, for the appointment details
// mentioned so far and merges whatever it found into derived state. This is
// best-effort: extraction failures are logged and the call continues; a
// later turn will try again.
func (e *Engine) extractDetails(ctx context.Context, cc *callcontext.CallContext) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:       e.model,
		Messages:    prompt.ExtractionMessages(cc),
		MaxTokens:   200,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		log.Printf("detail extraction failed for call %s: %v", cc.CallID, err)
		return
	}

	var details extractedDetails
	if err := json.Unmarshal([]byte(resp.Content), &details); err != nil {
		log.Printf("detail extraction returned invalid JSON for call %s: %v", cc.CallID, err)
		return
	}

	patch := callcontext.DerivedPatch{}
	if v := strings.TrimSpace(details.CustomerName); v != "" {
		patch.CustomerName = &v
	}
	if v := strings.TrimSpace(details.Date); v != "" {
		patch.Date = &v
	}
	if v := strings.TrimSpace(details.Time); v != "" {
		patch.Time = &v
	}
	if v := strings.TrimSpace(details.Notes); v != "" {
		patch.Notes = &v
	}
	if patch == (callcontext.DerivedPatch{}) {
		return
	}

	if _, err := e.calls.MergeDerived(ctx, cc.CallID, patch); err != nil {
		log.Printf("merging extracted details for call %s: %v", cc.CallID, err)
	}
}
