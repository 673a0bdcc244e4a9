package options

import (
	"log/slog"
	"time"

	"github.com/go-ctap/fingerprint/pkg/feedback"
	"github.com/go-ctap/fingerprint/pkg/status"
)

const (
	DefaultCaptureTimeout = 20 * time.Second
	DefaultPollInterval   = 800 * time.Millisecond
)

type Options struct {
	Logger         *slog.Logger
	CaptureTimeout time.Duration
	PollInterval   time.Duration
	Subscribers    []status.Subscriber
	Palette        *feedback.Palette
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithCaptureTimeout bounds every single capture attempt.
func WithCaptureTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.CaptureTimeout = timeout
	}
}

// WithPollInterval sets the pause between two finger presence checks.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.PollInterval = interval
	}
}

func WithSubscribers(subs ...status.Subscriber) Option {
	return func(opts *Options) {
		opts.Subscribers = append(opts.Subscribers, subs...)
	}
}

// WithFeedback drives the sensor indicator from workflow statuses using palette.
func WithFeedback(palette feedback.Palette) Option {
	return func(opts *Options) {
		opts.Palette = &palette
	}
}

func NewOptions(opts ...Option) *Options {
	oo := &Options{
		Logger:         slog.Default(),
		CaptureTimeout: DefaultCaptureTimeout,
		PollInterval:   DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(oo)
	}
	if oo.Logger == nil {
		oo.Logger = slog.Default()
	}

	return oo
}
