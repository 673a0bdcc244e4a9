package workflow

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/status"
)

type recorder struct {
	events []status.Event
}

func (r *recorder) HandleStatus(_ context.Context, e status.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) statuses() []status.Status {
	out := make([]status.Status, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Status)
	}
	return out
}

func (r *recorder) last() status.Event {
	return r.events[len(r.events)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testChannel() (*status.Channel, *recorder) {
	rec := &recorder{}
	return status.NewChannel(testLogger(), rec), rec
}

func fastOptions(timeout time.Duration) []options.Option {
	return []options.Option{
		options.WithLogger(testLogger()),
		options.WithCaptureTimeout(timeout),
		options.WithPollInterval(5 * time.Millisecond),
	}
}
