package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	ExitSuccess         = 0
	ExitThresholdFailed = 1
	ExitError           = 2
)

var version = "0.1.0-dev"

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(stderr, ee.msg)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return ExitError
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shrinkray",
		Short: "Shrink-ray pricing simulator",
		Long: `shrinkray compares a closed-form demand model for shrinking boxes
against a seeded Monte Carlo simulation of informed and uninformed buyers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newConvergeCmd(),
		newPresetsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func validateOutput(output string) error {
	if output != "text" && output != "json" {
		return fmt.Errorf("--output must be 'text' or 'json', got %q", output)
	}
	return nil
}
