package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/session"
	"github.com/go-ctap/fingerprint/pkg/sugar"
	"github.com/go-ctap/fingerprint/pkg/workflow"
)

var enrollRetries int

var enrollCmd = &cobra.Command{
	Use:   "enroll <id>",
	Short: "Enroll a finger and save its encrypted template",
	Long: `Capture the same finger twice, combine the captures into a template and
seal it to <vault.dir>/user_<id>.bin. The template never stays in the sensor.

The id may contain letters, digits, '_' and '-'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := cfg.Vault.Secret()
		if err != nil {
			return err
		}
		v := cfg.OpenVault(logger)

		return runWorkflow(cmd, func(ctx context.Context, opener sensor.Opener, opts []options.Option) error {
			var path string
			err := retry(cmd, enrollRetries, func() error {
				var err error
				path, err = sugar.EnrollToVault(ctx, opener, v, args[0], secret, opts...)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Enrolled %s: %s\n", args[0], path)
			return nil
		})
	},
}

var storeSlot int

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Enroll a finger directly into the sensor library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, func(ctx context.Context, opener sensor.Opener, opts []options.Option) error {
			var slot int
			err := session.With(ctx, opener, func(s *session.Session) error {
				return retry(cmd, enrollRetries, func() error {
					var err error
					slot, err = s.Store(ctx, storeSlot)
					return err
				})
			}, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stored at slot %d\n", slot)
			return nil
		})
	},
}

// retry runs fn again after outcomes the operator can fix by trying again.
func retry(cmd *cobra.Command, retries int, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || attempt >= retries || !workflow.Retryable(err) || cmd.Context().Err() != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%v, try again (%d/%d)\n", err, attempt+1, retries)
	}
}

func init() {
	enrollCmd.Flags().IntVar(&enrollRetries, "retries", 2, "repeat after a timeout or mismatch")
	storeCmd.Flags().IntVar(&enrollRetries, "retries", 2, "repeat after a timeout or mismatch")
	storeCmd.Flags().IntVar(&storeSlot, "slot", -1, "library slot, negative for the first free one")

	rootCmd.AddCommand(enrollCmd, storeCmd)
}
