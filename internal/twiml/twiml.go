// Package twiml renders the XML instruction documents the telephony provider
// executes: speak a prompt, gather speech, hang up.
package twiml

import (
	"encoding/xml"
	"fmt"
)

// Say speaks text to the caller.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

// Gather listens for caller input and posts the result to Action.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Say           *Say     `xml:",omitempty"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Response is the document root. Verbs execute in order.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// Render serializes the response with the XML declaration the provider
// expects.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// SpeakAndListen speaks text, then gathers speech and posts it to actionURL.
// This is the shape of every mid-call turn response.
func SpeakAndListen(text, actionURL string) *Response {
	return &Response{Verbs: []any{
		&Gather{
			Input:         "speech",
			Action:        actionURL,
			Method:        "POST",
			SpeechTimeout: "auto",
			Say:           &Say{Text: text},
		},
	}}
}

// SpeakAndHangup speaks text and ends the call.
func SpeakAndHangup(text string) *Response {
	return &Response{Verbs: []any{
		&Say{Text: text},
		&Hangup{},
	}}
}
