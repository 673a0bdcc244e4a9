package vault

import (
	"crypto/rand"
	"io"
	"log/slog"
)

type Option func(*options)

type options struct {
	iterations int
	rand       io.Reader
	logger     *slog.Logger
}

// WithIterations sets the PBKDF2 cost. Blobs must be opened with the cost
// they were sealed with.
func WithIterations(n int) Option {
	return func(o *options) {
		o.iterations = n
	}
}

// WithRand replaces the salt and nonce source.
func WithRand(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts ...Option) *options {
	oo := &options{
		iterations: DefaultIterations,
		rand:       rand.Reader,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(oo)
	}
	if oo.logger == nil {
		oo.logger = slog.Default()
	}

	return oo
}

func (o *options) check(passphrase []byte) error {
	if len(passphrase) == 0 {
		return ErrNoPassphrase
	}
	if o.iterations <= 0 {
		return ErrBadIterations
	}
	return nil
}
