package callcontext

import "time"

// State tracks where a call sits in its lifecycle. Transitions only move
// forward; Ended is terminal.
type State string

const (
	StateAwaitingFirstTurn State = "awaiting_first_turn"
	StateInConversation    State = "in_conversation"
	StateEnded             State = "ended"
)

// Status is the durable completion marker, distinct from State so a crashed
// call can be ended without ever having been completed cleanly.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in the conversation. Turns are immutable once
// appended; slice order is conversation order.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// AppointmentDetails holds the scheduling facts collected so far. Fields stay
// empty until the conversation supplies them.
type AppointmentDetails struct {
	CustomerName string `json:"customer_name,omitempty"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Complete reports whether the details are sufficient to book an appointment.
func (d AppointmentDetails) Complete() bool {
	return d.CustomerName != "" && d.Date != "" && d.Time != ""
}

// Derived is structured state inferred from the conversation, kept apart from
// the raw turn history.
type Derived struct {
	AppointmentIntent bool               `json:"appointment_intent"`
	Appointment       AppointmentDetails `json:"appointment"`
}

// DerivedPatch is a partial update to Derived. Nil fields are left untouched.
type DerivedPatch struct {
	AppointmentIntent *bool
	CustomerName      *string
	Date              *string
	Time              *string
	Notes             *string
}

func (d *Derived) apply(p DerivedPatch) {
	if p.AppointmentIntent != nil {
		d.AppointmentIntent = *p.AppointmentIntent
	}
	if p.CustomerName != nil && *p.CustomerName != "" {
		d.Appointment.CustomerName = *p.CustomerName
	}
	if p.Date != nil && *p.Date != "" {
		d.Appointment.Date = *p.Date
	}
	if p.Time != nil && *p.Time != "" {
		d.Appointment.Time = *p.Time
	}
	if p.Notes != nil && *p.Notes != "" {
		d.Appointment.Notes = *p.Notes
	}
}

// CallContext is the full per-call conversation state. Exactly one exists per
// live call ID.
type CallContext struct {
	CallID         string     `json:"call_id"`
	UserID         string     `json:"user_id"`
	CustomerNumber string     `json:"customer_number"`
	State          State      `json:"state"`
	Status         Status     `json:"status"`
	History        []Turn     `json:"history"`
	Derived        Derived    `json:"derived"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (c *CallContext) Clone() *CallContext {
	cp := *c
	if c.History != nil {
		cp.History = make([]Turn, len(c.History))
		copy(cp.History, c.History)
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// LastTurns returns up to n most recent turns in conversation order.
func (c *CallContext) LastTurns(n int) []Turn {
	if n <= 0 || len(c.History) == 0 {
		return nil
	}
	if len(c.History) <= n {
		return c.History
	}
	return c.History[len(c.History)-n:]
}
