package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-ctap/fingerprint/internal/config"
	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/r503"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/status"
	"github.com/go-ctap/fingerprint/pkg/sugar"
)

// newOpener builds the sensor.Opener for the loaded configuration. Tests
// replace it with a simulated sensor.
var newOpener = func(c *config.Config) sensor.Opener {
	opts := c.SensorOptions(logger)
	if c.Sensor.Port != config.AutoPort {
		return r503.Opener(c.Sensor.Port, opts...)
	}

	return sensor.OpenerFunc(func() (sensor.Driver, error) {
		ports, err := r503.Ports()
		if err != nil {
			return nil, fmt.Errorf("list serial ports: %w", err)
		}

		port, drv, err := sugar.Detect(ports, func(port string) (sensor.Driver, error) {
			dev, err := r503.Open(port, opts...)
			if err != nil {
				return nil, err
			}
			return dev, nil
		})
		if err != nil {
			return nil, err
		}
		logger.Info("sensor detected", "port", port)

		return drv, nil
	})
}

// prompter prints operator instructions as the workflow advances.
type prompter struct {
	w io.Writer
}

func (p prompter) HandleStatus(_ context.Context, event status.Event) {
	if event.Message == "" {
		return
	}
	fmt.Fprintf(p.w, "[%s] %s\n", event.Status, event.Message)
}

// workflowOptions returns the options for one command plus a cleanup that
// flushes the journal, if any.
func workflowOptions(cmd *cobra.Command) ([]options.Option, func() error, error) {
	subs := []status.Subscriber{prompter{w: cmd.OutOrStdout()}}
	done := func() error { return nil }

	if journalPath != "" {
		f, err := os.OpenFile(journalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}

		journal, err := status.NewJournal(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		subs = append(subs, journal)
		done = func() error {
			return errors.Join(journal.Err(), f.Close())
		}
	}

	opts := append(cfg.WorkflowOptions(logger), options.WithSubscribers(subs...))
	return opts, done, nil
}

// runWorkflow runs fn with the command's options and joins any journal error.
func runWorkflow(cmd *cobra.Command, fn func(ctx context.Context, opener sensor.Opener, opts []options.Option) error) error {
	opts, done, err := workflowOptions(cmd)
	if err != nil {
		return err
	}

	err = fn(cmd.Context(), newOpener(cfg), opts)
	return errors.Join(err, done())
}
