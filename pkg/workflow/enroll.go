// Package workflow implements the enrollment and identification state machines
// on top of a sensor.Driver. A workflow value is not safe for concurrent use;
// the session serializes access to the handle.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/status"
)

// Enroller turns two captures of the same finger into one template.
type Enroller struct {
	drv     sensor.Driver
	ch      *status.Channel
	logger  *slog.Logger
	capture *capturer
	library *Library
}

func NewEnroller(drv sensor.Driver, ch *status.Channel, opts ...options.Option) *Enroller {
	oo := options.NewOptions(opts...)

	return &Enroller{
		drv:    drv,
		ch:     ch,
		logger: oo.Logger,
		capture: &capturer{
			drv:      drv,
			logger:   oo.Logger,
			timeout:  oo.CaptureTimeout,
			interval: oo.PollInterval,
		},
		library: NewLibrary(drv, oo.Logger),
	}
}

// Enroll captures a finger twice, combines both captures and returns the
// resulting template bytes. Nothing is persisted. ErrEnrollMismatch means the
// whole workflow should be retried.
func (e *Enroller) Enroll(ctx context.Context) ([]byte, error) {
	run := e.ch.Begin()
	run.Notify(ctx, status.Start, "Starting fingerprint enrollment")

	if err := e.combine(ctx, run); err != nil {
		run.Notify(ctx, StatusOf(err), err.Error())
		return nil, err
	}

	template, err := e.drv.UploadTemplate(sensor.Buffer1)
	if err != nil {
		err = fmt.Errorf("workflow: read combined template: %w", err)
		run.Notify(ctx, status.Fail, err.Error())
		return nil, err
	}
	if len(template) == 0 {
		run.Notify(ctx, status.Fail, ErrEmptyTemplate.Error())
		return nil, ErrEmptyTemplate
	}

	run.Notify(ctx, status.Success, "Enrollment successful", status.WithTemplateLen(len(template)))
	return template, nil
}

// Store enrolls a finger directly into the sensor library. A negative slot
// stores at the first free slot. An occupied slot is never overwritten.
func (e *Enroller) Store(ctx context.Context, slot int) (int, error) {
	run := e.ch.Begin()
	run.Notify(ctx, status.Start, "Starting fingerprint enrollment")

	slot, err := e.library.Allocate(ctx, slot)
	if err != nil {
		run.Notify(ctx, StatusOf(err), err.Error())
		return 0, err
	}

	if err := e.combine(ctx, run); err != nil {
		run.Notify(ctx, StatusOf(err), err.Error())
		return 0, err
	}

	if err := e.drv.StoreAtSlot(slot, sensor.Buffer1); err != nil {
		err = fmt.Errorf("workflow: store model at slot %d: %w", slot, err)
		run.Notify(ctx, status.Fail, err.Error())
		return 0, err
	}
	e.logger.Info("fingerprint stored", "slot", slot)

	run.Notify(ctx, status.Success, "Fingerprint stored", status.WithSlot(slot))
	return slot, nil
}

// combine runs place / remove / place same / combine, leaving the model in the
// sensor's buffers.
func (e *Enroller) combine(ctx context.Context, run *status.Run) error {
	run.Notify(ctx, status.PlaceFinger, "Place your finger on the sensor")
	if err := e.capture.capture(ctx, sensor.Buffer1); err != nil {
		return fmt.Errorf("first image: %w", err)
	}

	run.Notify(ctx, status.RemoveFinger, "Remove your finger")
	if err := e.capture.waitRemoved(ctx); err != nil {
		return err
	}

	run.Notify(ctx, status.PlaceSameFinger, "Place the same finger again")
	if err := e.capture.capture(ctx, sensor.Buffer2); err != nil {
		return fmt.Errorf("second image: %w", err)
	}

	run.Notify(ctx, status.Processing, "Combining fingerprint images")
	res, err := e.drv.CombineTemplates()
	if err != nil {
		return fmt.Errorf("workflow: combine templates: %w", err)
	}

	switch res {
	case sensor.CombineOK:
		e.logger.Info("prints match")
		return nil
	case sensor.CombineMismatch:
		e.logger.Info("prints did not match")
		return ErrEnrollMismatch
	default:
		e.logger.Error("model creation failed", "result", res.String())
		return ErrCombineFailed
	}
}
