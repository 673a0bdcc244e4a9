package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/session"
	"github.com/go-ctap/fingerprint/pkg/sugar"
	"github.com/go-ctap/fingerprint/pkg/workflow"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the sensor connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, func(ctx context.Context, opener sensor.Opener, opts []options.Option) error {
			info, err := sugar.CheckSensor(ctx, opener, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sensor ready: %d of %d slots used\n", info.Count(), info.LibrarySize)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show occupied library slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, func(ctx context.Context, opener sensor.Opener, opts []options.Option) error {
			info, err := sugar.CheckSensor(ctx, opener, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Library size: %d\n", info.LibrarySize)
			fmt.Fprintf(out, "Stored templates: %d\n", info.Count())
			for _, slot := range info.Occupied {
				fmt.Fprintf(out, "  slot %d\n", slot)
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <slot>",
	Short: "Delete the template at a library slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: %q", workflow.ErrInvalidSlot, args[0])
		}

		return runWorkflow(cmd, func(ctx context.Context, opener sensor.Opener, opts []options.Option) error {
			err := session.With(ctx, opener, func(s *session.Session) error {
				return s.Delete(ctx, slot)
			}, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted slot %d\n", slot)
			return nil
		})
	},
}

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every template in the sensor library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !resetConfirmed {
			return errors.New("reset deletes every stored template, confirm with --yes")
		}

		return runWorkflow(cmd, func(ctx context.Context, opener sensor.Opener, opts []options.Option) error {
			info, err := sugar.ResetSensor(ctx, opener, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Library cleared: %d of %d slots used\n", info.Count(), info.LibrarySize)
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the reset")

	rootCmd.AddCommand(checkCmd, listCmd, deleteCmd, resetCmd)
}
