package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shrinkray/internal/collector"
	"shrinkray/internal/engine"
	"shrinkray/internal/logging"
)

type convergeOptions struct {
	scenario scenarioFlags
	output   string
	sizes    []int
}

func newConvergeCmd() *cobra.Command {
	opts := &convergeOptions{}
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Show how the simulated sell-through approaches the analytic share as N grows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConverge(cmd, opts)
		},
	}

	opts.scenario.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&opts.output, "output", "text", "output format: text, json")
	flags.IntSliceVar(&opts.sizes, "sizes", engine.DefaultStudySizes, "customer counts to simulate, in order")
	return cmd
}

func runConverge(cmd *cobra.Command, opts *convergeOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	cfg, err := opts.scenario.load(cmd)
	if err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger := logging.NewLogger(level, cmd.ErrOrStderr())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("interrupted, stopping study")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Debug("convergence study", "sizes", opts.sizes, "seed", cfg.Run.Seed)
	points, err := engine.Converge(ctx, cfg.Engine(), opts.sizes)
	if err != nil {
		return err
	}

	if opts.output == "json" {
		collector.FormatConvergenceJSON(cmd.OutOrStdout(), points)
	} else {
		collector.FormatConvergenceText(cmd.OutOrStdout(), points)
	}
	return nil
}
