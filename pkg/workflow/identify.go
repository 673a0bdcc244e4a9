package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/mo"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/status"
)

// Match is a successful 1:N search.
type Match struct {
	Slot       int
	Confidence mo.Option[int]
}

// Identifier stages templates into the sensor and matches live captures
// against them.
type Identifier struct {
	drv     sensor.Driver
	ch      *status.Channel
	logger  *slog.Logger
	capture *capturer
	library *Library
}

func NewIdentifier(drv sensor.Driver, ch *status.Channel, opts ...options.Option) *Identifier {
	oo := options.NewOptions(opts...)

	return &Identifier{
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

// Upload pushes template into the first free slot and returns that slot.
func (id *Identifier) Upload(ctx context.Context, template []byte) (int, error) {
	run := id.ch.Begin()
	run.Notify(ctx, status.Start, "Uploading fingerprint template")

	slot, err := id.upload(ctx, template)
	if err != nil {
		run.Notify(ctx, StatusOf(err), err.Error())
		return 0, err
	}

	run.Notify(ctx, status.Success, "Template stored", status.WithSlot(slot), status.WithTemplateLen(len(template)))
	return slot, nil
}

// Stage is Upload without status events, for templates that only live in the
// sensor for the duration of one authentication.
func (id *Identifier) Stage(ctx context.Context, template []byte) (int, error) {
	return id.upload(ctx, template)
}

func (id *Identifier) upload(ctx context.Context, template []byte) (int, error) {
	if len(template) == 0 {
		return 0, ErrEmptyTemplate
	}

	slot, err := id.library.Allocate(ctx, -1)
	if err != nil {
		return 0, err
	}
	id.logger.Info("uploading template", "slot", slot, "length", len(template))

	if err := id.drv.DownloadTemplate(sensor.Buffer2, template); err != nil {
		return 0, fmt.Errorf("workflow: send template to sensor: %w", err)
	}

	// From here on the sensor owns the transaction: no cancellation until the
	// store command has been answered.
	res, err := id.drv.ImageToTemplate(sensor.Buffer2)
	if err != nil {
		return 0, fmt.Errorf("workflow: convert uploaded template: %w", err)
	}
	if res != sensor.ConvertOK {
		return 0, fmt.Errorf("%w (%s)", ErrUnusableTemplate, res)
	}

	if err := id.drv.StoreAtSlot(slot, sensor.Buffer2); err != nil {
		return 0, fmt.Errorf("workflow: store uploaded template at slot %d: %w", slot, err)
	}
	id.logger.Info("template stored", "slot", slot)

	return slot, nil
}

// Authenticate captures a finger and searches the whole library. No match is
// reported as ErrNotFound.
func (id *Identifier) Authenticate(ctx context.Context) (*Match, error) {
	run := id.ch.Begin()
	run.Notify(ctx, status.Start, "Starting fingerprint authentication")

	match, err := id.authenticate(ctx, run)
	if err != nil {
		run.Notify(ctx, StatusOf(err), err.Error())
		return nil, err
	}

	payload := []status.Payload{status.WithSlot(match.Slot)}
	if c, ok := match.Confidence.Get(); ok {
		payload = append(payload, status.WithConfidence(c))
	}
	run.Notify(ctx, status.Success, "Fingerprint recognized", payload...)

	return match, nil
}

func (id *Identifier) authenticate(ctx context.Context, run *status.Run) (*Match, error) {
	run.Notify(ctx, status.PlaceFinger, "Place your finger on the sensor")
	if err := id.capture.capture(ctx, sensor.Buffer1); err != nil {
		return nil, err
	}

	run.Notify(ctx, status.Processing, "Searching for fingerprint")
	res, err := id.drv.SearchAll(sensor.Buffer1)
	if err != nil {
		return nil, fmt.Errorf("workflow: search library: %w", err)
	}

	if !res.Found {
		id.logger.Info("fingerprint not found in library")
		return nil, ErrNotFound
	}
	id.logger.Info("fingerprint detected", "slot", res.Slot, "confidence", res.Confidence)

	return &Match{
		Slot:       res.Slot,
		Confidence: mo.Some(res.Confidence),
	}, nil
}

// Delete discards the template at slot, typically a template staged by Upload.
func (id *Identifier) Delete(ctx context.Context, slot int) error {
	return id.library.Delete(ctx, slot)
}

func (id *Identifier) Info(ctx context.Context) (*Info, error) {
	return id.library.Info(ctx)
}

func (id *Identifier) Clear(ctx context.Context) error {
	return id.library.Clear(ctx)
}

// Library returns the slot namespace shared by the identifier.
func (id *Identifier) Library() *Library {
	return id.library
}
