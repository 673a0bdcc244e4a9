package status

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Event is one status transition of a workflow invocation.
type Event struct {
	// RunID is shared by every event of one workflow invocation.
	RunID     uuid.UUID
	Status    Status
	Message   string
	Timestamp time.Time

	Slot        mo.Option[int]
	Confidence  mo.Option[int]
	TemplateLen mo.Option[int]
}

// Payload decorates an Event before it is dispatched.
type Payload func(*Event)

func WithSlot(slot int) Payload {
	return func(e *Event) {
		e.Slot = mo.Some(slot)
	}
}

func WithConfidence(confidence int) Payload {
	return func(e *Event) {
		e.Confidence = mo.Some(confidence)
	}
}

func WithTemplateLen(n int) Payload {
	return func(e *Event) {
		e.TemplateLen = mo.Some(n)
	}
}

// Subscriber receives events. Implementations run on the workflow's goroutine
// and must return quickly.
type Subscriber interface {
	HandleStatus(ctx context.Context, event Event)
}

// SubscriberFunc is a function adapter for Subscriber.
type SubscriberFunc func(ctx context.Context, event Event)

// HandleStatus implements Subscriber.
func (f SubscriberFunc) HandleStatus(ctx context.Context, event Event) {
	f(ctx, event)
}
