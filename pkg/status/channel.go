package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel fans events out to its subscribers. Emission is synchronous, so the
// order a subscriber observes is the order the workflow produced. A panicking
// subscriber is logged and skipped; it never reaches the workflow.
//
// A nil *Channel discards everything.
type Channel struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs []Subscriber
}

// NewChannel creates a Channel with the given initial subscribers.
func NewChannel(logger *slog.Logger, subs ...Subscriber) *Channel {
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		logger: logger,
		subs:   append([]Subscriber(nil), subs...),
	}
}

// Subscribe adds a subscriber.
func (c *Channel) Subscribe(sub Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, sub)
}

// Notify dispatches event to every subscriber.
func (c *Channel) Notify(ctx context.Context, event Event) {
	if c == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.logger.Info("workflow status",
		"run", event.RunID.String(),
		"status", event.Status.String(),
		"message", event.Message,
	)

	c.mu.RLock()
	subs := make([]Subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	for _, sub := range subs {
		c.dispatch(ctx, sub, event)
	}
}

func (c *Channel) dispatch(ctx context.Context, sub Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("status subscriber panicked", "status", event.Status.String(), "panic", r)
		}
	}()

	sub.HandleStatus(ctx, event)
}

// Begin starts a new workflow invocation on the channel.
func (c *Channel) Begin() *Run {
	return &Run{
		ID: uuid.New(),
		ch: c,
	}
}

// Run stamps every event of one workflow invocation with the same RunID.
type Run struct {
	ID uuid.UUID
	ch *Channel
}

// Notify emits status with an optional message and payload.
func (r *Run) Notify(ctx context.Context, st Status, msg string, payload ...Payload) {
	event := Event{
		RunID:   r.ID,
		Status:  st,
		Message: msg,
	}
	for _, p := range payload {
		p(&event)
	}

	r.ch.Notify(ctx, event)
}
