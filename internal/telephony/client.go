// Package telephony talks to the phone provider's REST API for outbound
// calls and validates inbound webhook signatures.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com"

// Client places outbound calls through the provider's REST API using a
// user's own account credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// OutboundCallRequest describes one outbound call to place.
type OutboundCallRequest struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
	// VoiceURL receives the webhook once the callee answers.
	VoiceURL string
	// StatusCallback receives call lifecycle updates.
	StatusCallback string
}

// PlaceCall creates the call and returns the provider's call SID.
func (c *Client) PlaceCall(ctx context.Context, req OutboundCallRequest) (string, error) {
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Url", req.VoiceURL)
	if req.StatusCallback != "" {
		form.Set("StatusCallback", req.StatusCallback)
		form.Set("StatusCallbackEvent", "completed")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, req.AccountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating outbound call request: %w", err)
	}
	httpReq.SetBasicAuth(req.AccountSID, req.AuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("placing outbound call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding call response: %w", err)
	}
	if result.SID == "" {
		return "", fmt.Errorf("provider returned no call sid")
	}
	return result.SID, nil
}
