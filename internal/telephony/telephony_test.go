package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestPlaceCall(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotURL string
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotURL = r.PostFormValue("Url")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sid": "CA123"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	sid, err := client.PlaceCall(context.Background(), OutboundCallRequest{
		AccountSID: "AC1",
		AuthToken:  "secret",
		From:       "+15550001111",
		To:         "+15550002222",
		VoiceURL:   "https://example.com/api/webhook/outbound-call",
	})
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}

	if sid != "CA123" {
		t.Errorf("sid = %q, want CA123", sid)
	}
	if gotPath != "/2010-04-01/Accounts/AC1/Calls.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "AC1" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	if gotTo != "+15550002222" || gotFrom != "+15550001111" {
		t.Errorf("numbers = to %q from %q", gotTo, gotFrom)
	}
	if gotURL != "https://example.com/api/webhook/outbound-call" {
		t.Errorf("voice url = %q", gotURL)
	}
}

func TestPlaceCallProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.PlaceCall(context.Background(), OutboundCallRequest{
		AccountSID: "AC1", AuthToken: "secret", To: "bogus",
	})
	if err == nil {
		t.Fatal("expected error for provider 400")
	}
}

func TestValidateSignature(t *testing.T) {
	params := url.Values{}
	params.Set("CallSid", "CA1")
	params.Set("From", "+15550001111")

	requestURL := "https://example.com/api/webhook/call"
	sig := ComputeSignature("token", requestURL, params)

	if !ValidateSignature("token", requestURL, params, sig) {
		t.Error("valid signature rejected")
	}
	if ValidateSignature("other-token", requestURL, params, sig) {
		t.Error("signature accepted with wrong token")
	}

	params.Set("CallSid", "CA2")
	if ValidateSignature("token", requestURL, params, sig) {
		t.Error("signature accepted after parameter tampering")
	}
}
