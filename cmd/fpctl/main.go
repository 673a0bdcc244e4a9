package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-ctap/fingerprint/pkg/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode separates "no match" from real failures for calling scripts.
func exitCode(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return 2
	case workflow.Retryable(err):
		return 3
	default:
		return 1
	}
}
