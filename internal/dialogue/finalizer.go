package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/voiceline/voiceline/internal/appointment"
	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/events"
)

// Finalizer commits a call's derived facts when the call ends: it books the
// appointment if one was fully collected, marks the context completed, and
// evicts it from the cache.
type Finalizer struct {
	calls        *callcontext.Manager
	appointments *appointment.Store
	publisher    events.Publisher
}

func NewFinalizer(calls *callcontext.Manager, appointments *appointment.Store, publisher events.Publisher) *Finalizer {
	return &Finalizer{calls: calls, appointments: appointments, publisher: publisher}
}

// Finalize processes a call-ended event. It is idempotent: repeated status
// callbacks for the same call change nothing after the first. An unknown
// call ID is absorbed, since the provider may report calls this instance
// never handled.
func (f *Finalizer) Finalize(ctx context.Context, callID string) error {
	cc, err := f.calls.Get(ctx, callID)
	if errors.Is(err, callcontext.ErrNotFound) {
		log.Printf("status callback for unknown call %s ignored", callID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading call %s for finalization: %w", callID, err)
	}

	booked := false
	d := cc.Derived
	if d.AppointmentIntent && d.Appointment.Complete() {
		created, err := f.appointments.Create(ctx, &appointment.Appointment{
			CallID:        callID,
			UserID:        cc.UserID,
			CustomerName:  d.Appointment.CustomerName,
			CustomerPhone: cc.CustomerNumber,
			Date:          d.Appointment.Date,
			Time:          d.Appointment.Time,
			Notes:         d.Appointment.Notes,
		})
		if err != nil {
			// Appointment persistence is the whole point of the call;
			// this failure must surface, not vanish into a log line.
			return fmt.Errorf("booking appointment for call %s: %w", callID, err)
		}
		booked = created
	}

	cc, ended, err := f.calls.Complete(ctx, callID)
	if err != nil {
		return fmt.Errorf("completing call %s: %w", callID, err)
	}

	if booked {
		f.publish(ctx, events.Event{
			Type:   events.TypeAppointmentBooked,
			CallID: callID,
			UserID: cc.UserID,
			At:     time.Now().UTC(),
			Payload: map[string]any{
				"customer_name": d.Appointment.CustomerName,
				"date":          d.Appointment.Date,
				"time":          d.Appointment.Time,
			},
		})
	}
	// Only the invocation that actually ended the call announces it, so
	// retried status callbacks never produce duplicate events downstream.
	if ended {
		f.publish(ctx, events.Event{
			Type:    events.TypeCallCompleted,
			CallID:  callID,
			UserID:  cc.UserID,
			At:      time.Now().UTC(),
			Payload: map[string]any{"turns": len(cc.History)},
		})
	}

	return nil
}

func (f *Finalizer) publish(ctx context.Context, ev events.Event) {
	if f.publisher == nil {
		return
	}
	if err := f.publisher.Publish(ctx, ev); err != nil {
		log.Printf("publishing %s for call %s: %v", ev.Type, ev.CallID, err)
	}
}
