package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shrinkray/internal/collector"
	"shrinkray/internal/model"
)

type sweepOptions struct {
	scenario scenarioFlags
	output   string
	qMin     float64
	qMax     float64
	step     float64
	csvPath  string
}

func newSweepCmd() *cobra.Command {
	opts := &sweepOptions{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate expected profit across box sizes and report the best Q",
		Long: `Sweep evaluates the analytic model at every Q in [qmin, qmax] with all
other parameters fixed, and reports the box size with the highest expected
profit. --csv writes the full table; if the path is a directory the file is
named after the price and informed share.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts)
		},
	}

	opts.scenario.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&opts.output, "output", "text", "output format: text, json")
	flags.Float64Var(&opts.qMin, "qmin", 0, "smallest box size")
	flags.Float64Var(&opts.qMax, "qmax", 0, "largest box size")
	flags.Float64Var(&opts.step, "step", 0, "box size increment")
	flags.StringVar(&opts.csvPath, "csv", "", "write the sweep as CSV to this file or directory")
	return cmd
}

func runSweep(cmd *cobra.Command, opts *sweepOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	cfg, err := opts.scenario.load(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("qmin") {
		cfg.Sweep.QMin = opts.qMin
	}
	if flags.Changed("qmax") {
		cfg.Sweep.QMax = opts.qMax
	}
	if flags.Changed("step") {
		cfg.Sweep.Step = opts.step
	}

	points, err := model.Sweep(cfg.Model, cfg.Sweep.QMin, cfg.Sweep.QMax, cfg.Sweep.Step)
	if err != nil {
		return err
	}

	if opts.csvPath != "" {
		path, err := writeSweepCSV(opts.csvPath, cfg.Model, points)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(points), path)
	}

	if opts.output == "json" {
		collector.FormatSweepJSON(cmd.OutOrStdout(), points)
	} else {
		collector.FormatSweepText(cmd.OutOrStdout(), cfg.Model, points)
	}
	return nil
}

func writeSweepCSV(path string, p model.Params, points []model.SweepPoint) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, collector.SweepFilename(p))
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating csv file: %w", err)
	}
	if err := collector.WriteSweepCSV(f, p, points); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing csv file: %w", err)
	}
	return path, nil
}
