package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ctap/fingerprint/pkg/status"
)

var journalCmd = &cobra.Command{
	Use:   "journal <file>",
	Short: "Print a status journal written with --journal",
	Args:  cobra.ExactArgs(1),
	// The journal is readable without a valid sensor or vault configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		out := cmd.OutOrStdout()
		for event, err := range status.ReadJournal(f) {
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			fmt.Fprintf(out, "%s  %s  %-18s %s", event.Timestamp.Format(time.RFC3339Nano), event.RunID, event.Status, event.Message)
			if slot, ok := event.Slot.Get(); ok {
				fmt.Fprintf(out, " slot=%d", slot)
			}
			if conf, ok := event.Confidence.Get(); ok {
				fmt.Fprintf(out, " confidence=%d", conf)
			}
			if n, ok := event.TemplateLen.Get(); ok {
				fmt.Fprintf(out, " template_len=%d", n)
			}
			fmt.Fprintln(out)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
}
