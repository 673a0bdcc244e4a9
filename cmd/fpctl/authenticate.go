package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/session"
	"github.com/go-ctap/fingerprint/pkg/sugar"
	"github.com/go-ctap/fingerprint/pkg/workflow"
)

var authFile string

var authenticateCmd = &cobra.Command{
	Use:     "authenticate [id]",
	Aliases: []string{"auth", "verify"},
	Short:   "Match a live finger",
	Long: `Match a live finger against the encrypted template of [id], or of --file.

Without an id or file the finger is searched against the templates resident in
the sensor library. The command exits with status 2 when the finger matches
nothing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if authFile != "" && len(args) > 0 {
			return errors.New("give either an id or --file, not both")
		}

		return runWorkflow(cmd, func(ctx context.Context, opener sensor.Opener, opts []options.Option) error {
			match, err := authenticate(ctx, opener, args, opts)
			if err != nil {
				return err
			}

			if conf, ok := match.Confidence.Get(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Match at slot %d, confidence %d\n", match.Slot, conf)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Match at slot %d\n", match.Slot)
			}
			return nil
		})
	},
}

func authenticate(ctx context.Context, opener sensor.Opener, args []string, opts []options.Option) (*workflow.Match, error) {
	if authFile == "" && len(args) == 0 {
		var match *workflow.Match
		err := session.With(ctx, opener, func(s *session.Session) error {
			var err error
			match, err = s.Authenticate(ctx)
			return err
		}, opts...)
		return match, err
	}

	secret, err := cfg.Vault.Secret()
	if err != nil {
		return nil, err
	}
	v := cfg.OpenVault(logger)

	if authFile != "" {
		return sugar.AuthenticateWithFile(ctx, opener, v, authFile, secret, opts...)
	}
	return sugar.AuthenticateWithVault(ctx, opener, v, args[0], secret, opts...)
}

func init() {
	authenticateCmd.Flags().StringVarP(&authFile, "file", "f", "", "encrypted template file")

	rootCmd.AddCommand(authenticateCmd)
}
