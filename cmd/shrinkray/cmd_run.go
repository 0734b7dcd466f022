package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"shrinkray/internal/collector"
	"shrinkray/internal/core"
	"shrinkray/internal/engine"
	"shrinkray/internal/logging"
	"shrinkray/internal/metrics"
	"shrinkray/internal/model"
	"shrinkray/internal/progress"
)

type runOptions struct {
	scenario    scenarioFlags
	output      string
	quiet       bool
	metricsAddr string
	pauseAfter  int
	refreshRate float64
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and compare it with the analytic model",
		Long: `Run simulates N customers in cooperative slices, streaming a progress
line to stderr, then prints a summary. Ctrl-C pauses the engine and prints
the partial result.

Exit status is 1 when a configured threshold fails and 2 on error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}

	opts.scenario.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&opts.output, "output", "text", "output format: text, json")
	flags.BoolVar(&opts.quiet, "quiet", false, "suppress progress output during the run")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flags.IntVar(&opts.pauseAfter, "pause-after", 0, "pause once this many customers are processed (0 = run to completion)")
	flags.Float64Var(&opts.refreshRate, "refresh-rate", progress.DefaultRefreshRate, "progress redraws per second (0 = every snapshot)")
	return cmd
}

func runSimulation(cmd *cobra.Command, opts *runOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	if opts.pauseAfter < 0 {
		return fmt.Errorf("--pause-after must be >= 0, got %d", opts.pauseAfter)
	}

	cfg, err := opts.scenario.load(cmd)
	if err != nil {
		return err
	}
	ecfg := cfg.Engine()
	if err := ecfg.Validate(); err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	level, _ := cmd.Flags().GetString("log-level")
	logger := logging.NewLogger(level, stderr)

	coll := collector.NewCollector()
	prog := progress.NewProgress(opts.quiet)
	prog.SetOutput(stderr)
	prog.SetRefreshRate(opts.refreshRate)
	reporters := fanout{coll, prog}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reporters = append(reporters, metrics.NewRecorder(reg))
		shutdown, err := serveMetrics(opts.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	host := engine.NewHost(core.RealClock{}, logger, 64)
	host.Start(ctx)

	if err := host.Configure(ctx, ecfg); err != nil {
		return err
	}
	prog.Printf("Shrink Ray starting: %d customers, seed %d, regime %s, session %s",
		ecfg.N, ecfg.Seed, model.ClassifyRegime(ecfg.Params), host.ID())
	prog.Start()
	if err := host.Run(ctx); err != nil {
		return err
	}

	reason, err := drive(ctx, host, traced(reporters, logger), sigCh, opts.pauseAfter)
	prog.Stop()
	coll.Close()
	if err != nil {
		return err
	}

	switch reason {
	case stopInterrupted:
		prog.Print("Received interrupt signal, engine paused")
	case stopPaused:
		prog.Printf("Paused after %d customers", opts.pauseAfter)
	}

	logger.Debug("run finished", "reason", reason, "snapshots", coll.Seen(), "restarts", coll.Restarts())
	summary := coll.Compute()
	var thresholdResults *collector.ThresholdResults
	if cfg.Thresholds != nil {
		thresholdResults = cfg.Thresholds.Check(summary)
	}

	if opts.output == "json" {
		collector.FormatJSON(stdout, summary, thresholdResults)
	} else {
		collector.FormatText(stdout, summary, thresholdResults)
	}

	if reason != stopDone {
		return nil
	}
	if thresholdResults != nil && !thresholdResults.Passed {
		violations := thresholdResults.Violations()
		names := make([]string, len(violations))
		for i, v := range violations {
			names[i] = v.Name
		}
		logger.Warn("threshold check failed", "violations", names)
		msg := ""
		if opts.output == "text" {
			msg = fmt.Sprintf("\nThreshold check failed! (%s)", strings.Join(names, ", "))
		}
		return &exitError{code: ExitThresholdFailed, msg: msg}
	}
	return nil
}

// stopReason says why drive returned.
type stopReason int

const (
	stopDone stopReason = iota
	stopPaused
	stopInterrupted
)

func (r stopReason) String() string {
	switch r {
	case stopPaused:
		return "paused"
	case stopInterrupted:
		return "interrupted"
	default:
		return "done"
	}
}

// drive forwards host snapshots to rep until the run completes or is paused
// by pauseAfter or an interrupt. After a pause it reports the engine's state
// at the moment it stopped, which may be ahead of the last emitted snapshot.
func drive(ctx context.Context, h *engine.Host, rep engine.Reporter, interrupt <-chan os.Signal, pauseAfter int) (stopReason, error) {
	snaps := h.Snapshots()

	pause := func(reason stopReason) (stopReason, error) {
		if err := h.Pause(ctx); err != nil {
			return reason, err
		}
		s, err := h.Snapshot(ctx)
		if err != nil {
			return reason, err
		}
		rep.Report(s)
		if s.Final() {
			return stopDone, nil
		}
		return reason, nil
	}

	for {
		select {
		case s, ok := <-snaps:
			if !ok {
				return stopDone, engine.ErrHostStopped
			}
			rep.Report(s)
			if s.Final() {
				return stopDone, nil
			}
			if pauseAfter > 0 && s.Processed >= pauseAfter {
				return pause(stopPaused)
			}
		case <-interrupt:
			return pause(stopInterrupted)
		case <-ctx.Done():
			return stopDone, ctx.Err()
		}
	}
}

// fanout delivers each snapshot to every reporter in order.
type fanout []engine.Reporter

func (f fanout) Report(s engine.Snapshot) {
	for _, r := range f {
		r.Report(s)
	}
}

// traced logs every snapshot at trace level before passing it on.
func traced(next engine.Reporter, logger *slog.Logger) engine.Reporter {
	return engine.ReporterFunc(func(s engine.Snapshot) {
		logger.Log(context.Background(), logging.LevelTrace, "snapshot",
			"type", s.Kind, "phase", s.Phase, "processed", s.Processed, "sold", s.Sold, "profit", s.Profit)
		next.Report(s)
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (shutdown func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
