// Package events publishes call lifecycle notifications so downstream
// consumers (CRMs, notification services) can react without polling.
package events

import (
	"context"
	"time"
)

// Event types published over the call exchange.
const (
	TypeCallStarted       = "call.started"
	TypeCallCompleted     = "call.completed"
	TypeAppointmentBooked = "appointment.booked"
)

// Event is one call lifecycle notification.
type Event struct {
	Type    string         `json:"type"`
	CallID  string         `json:"call_id"`
	UserID  string         `json:"user_id"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Publisher delivers events to interested consumers. Publishing is
// best-effort from the caller's perspective; call handling never fails
// because an event could not be delivered.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
