// Package session owns the lifecycle of one sensor handle and serializes every
// workflow run against it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-ctap/fingerprint/pkg/feedback"
	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/status"
	"github.com/go-ctap/fingerprint/pkg/workflow"
)

var ErrClosed = errors.New("session: closed")

// ConnectionError means the sensor could not be brought up. It is not retried.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "session: cannot connect to sensor: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Session is an open sensor. Operations are mutually exclusive; a second caller
// blocks until the running workflow has finished.
type Session struct {
	mu         sync.Mutex
	drv        sensor.Driver
	logger     *slog.Logger
	palette    feedback.Palette
	ch         *status.Channel
	enroller   *workflow.Enroller
	identifier *workflow.Identifier
	closed     bool
}

// Open acquires a driver from opener and puts the indicator in its ready mode.
// Subscribers given with options.WithSubscribers, and the indicator when
// options.WithFeedback is set, receive the statuses of every workflow run.
func Open(ctx context.Context, opener sensor.Opener, opts ...options.Option) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	oo := options.NewOptions(opts...)

	drv, err := opener.Open()
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	palette := feedback.DefaultPalette
	subs := oo.Subscribers
	if oo.Palette != nil {
		palette = *oo.Palette
		subs = append(subs, feedback.NewIndicator(drv, palette, oo.Logger))
	}

	if err := drv.SetFeedback(palette.Ready); err != nil {
		_ = drv.Close()
		return nil, &ConnectionError{Err: err}
	}

	ch := status.NewChannel(oo.Logger, subs...)
	s := &Session{
		drv:        drv,
		logger:     oo.Logger,
		palette:    palette,
		ch:         ch,
		enroller:   workflow.NewEnroller(drv, ch, opts...),
		identifier: workflow.NewIdentifier(drv, ch, opts...),
	}
	s.logger.Info("sensor session opened")

	return s, nil
}

// With opens a session, runs fn and closes the session on every exit path.
func With(ctx context.Context, opener sensor.Opener, fn func(*Session) error, opts ...options.Option) (err error) {
	s, err := Open(ctx, opener, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	return fn(s)
}

// Close turns the indicator off and releases the driver. Calling Close on a
// closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.drv.SetFeedback(s.palette.Off); err != nil {
		s.logger.Warn("cannot turn indicator off", "error", err)
	}
	if err := s.drv.Close(); err != nil {
		return fmt.Errorf("session: release sensor: %w", err)
	}
	s.logger.Info("sensor session closed")

	return nil
}

func (s *Session) acquire() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// Enroll runs the enrollment workflow and returns the template.
func (s *Session) Enroll(ctx context.Context) ([]byte, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	return s.enroller.Enroll(ctx)
}

// Store enrolls a finger into the sensor library. A negative slot picks the
// first free one.
func (s *Session) Store(ctx context.Context, slot int) (int, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	return s.enroller.Store(ctx, slot)
}

// Upload stages template at the first free slot.
func (s *Session) Upload(ctx context.Context, template []byte) (int, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	return s.identifier.Upload(ctx, template)
}

// Authenticate matches a live finger against the whole library.
func (s *Session) Authenticate(ctx context.Context) (*workflow.Match, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	return s.identifier.Authenticate(ctx)
}

// AuthenticateTemplate stages template, matches a live finger and discards the
// staged copy again, all without releasing the sensor in between. Subscribers
// only see the authentication run. The match may be any resident slot, not
// only the staged one.
func (s *Session) AuthenticateTemplate(ctx context.Context, template []byte) (*workflow.Match, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	slot, err := s.identifier.Stage(ctx, template)
	if err != nil {
		run := s.ch.Begin()
		run.Notify(ctx, status.Start, "Starting fingerprint authentication")
		run.Notify(ctx, workflow.StatusOf(err), err.Error())
		return nil, err
	}
	defer func() {
		// Runs after the search has been answered, never mid-transaction.
		if err := s.identifier.Delete(context.WithoutCancel(ctx), slot); err != nil {
			s.logger.Warn("cannot discard staged template", "slot", slot, "error", err)
		}
	}()

	return s.identifier.Authenticate(ctx)
}

func (s *Session) Delete(ctx context.Context, slot int) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	return s.identifier.Delete(ctx, slot)
}

func (s *Session) Info(ctx context.Context) (*workflow.Info, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	return s.identifier.Info(ctx)
}

// Clear deletes every template from the sensor library.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	return s.identifier.Clear(ctx)
}
