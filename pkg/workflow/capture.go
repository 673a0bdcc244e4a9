package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ctap/fingerprint/pkg/sensor"
)

// capturer runs the finger presence polling loops. Cancellation is only
// observed between two presence checks.
type capturer struct {
	drv      sensor.Driver
	logger   *slog.Logger
	timeout  time.Duration
	interval time.Duration
}

// capture polls until a finger image converts cleanly into buf or the capture
// window elapses. Imaging and conversion failures inside the window are retried.
func (c *capturer) capture(ctx context.Context, buf sensor.Buffer) error {
	deadline := time.Now().Add(c.timeout)
	c.logger.Debug("capturing finger image", "buffer", buf, "timeout", c.timeout)

	for {
		res, err := c.drv.CaptureImage()
		if err != nil {
			return fmt.Errorf("workflow: capture image: %w", err)
		}

		switch res {
		case sensor.CaptureReady:
			conv, err := c.drv.ImageToTemplate(buf)
			if err != nil {
				return fmt.Errorf("workflow: convert image into buffer %d: %w", buf, err)
			}
			if conv == sensor.ConvertOK {
				c.logger.Debug("finger image templated", "buffer", buf)
				return nil
			}
			c.logger.Warn("finger image rejected, retrying", "buffer", buf, "reason", conv.String())
		case sensor.CaptureNoFinger:
		case sensor.CaptureImagingError:
			c.logger.Warn("imaging error, retrying", "buffer", buf)
		}

		if err := c.pause(ctx, deadline); err != nil {
			return err
		}
	}
}

// waitRemoved polls until the sensor reports an empty window.
func (c *capturer) waitRemoved(ctx context.Context) error {
	deadline := time.Now().Add(c.timeout)

	for {
		res, err := c.drv.CaptureImage()
		if err != nil {
			return fmt.Errorf("workflow: capture image: %w", err)
		}
		if res == sensor.CaptureNoFinger {
			return nil
		}

		if err := c.pause(ctx, deadline); err != nil {
			if err == ErrCaptureTimeout {
				return ErrFingerNotRemoved
			}
			return err
		}
	}
}

// pause sleeps one poll interval, clipped to the deadline. It returns
// ErrCaptureTimeout once the deadline has passed.
func (c *capturer) pause(ctx context.Context, deadline time.Time) error {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return ErrCaptureTimeout
	}

	wait := min(c.interval, remaining)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
