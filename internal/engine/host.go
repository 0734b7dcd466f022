package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"shrinkray/internal/core"
)

// ErrHostStopped is returned when a command is sent after the host's
// goroutine has exited.
var ErrHostStopped = errors.New("engine host stopped")

// Command is one of Configure, Run, Pause or Reset.
type Command interface {
	apply(e *Engine) error
}

// Configure replaces the configuration and resets the run.
type Configure struct {
	Config Config
}

// Run starts or resumes the loop.
type Run struct{}

// Pause stops the loop at the next slice boundary.
type Pause struct{}

// Reset reseeds and zeroes counters against the current configuration.
type Reset struct{}

// snapshotQuery copies the engine's current state without emitting it.
type snapshotQuery struct {
	out *Snapshot
}

func (c Configure) apply(e *Engine) error { return e.Configure(c.Config) }
func (Run) apply(e *Engine) error         { e.Run(); return nil }
func (Pause) apply(e *Engine) error       { e.Pause(); return nil }
func (Reset) apply(e *Engine) error       { e.Reset(); return nil }

func (q snapshotQuery) apply(e *Engine) error {
	*q.out = e.Snapshot()
	return nil
}

type envelope struct {
	cmd   Command
	reply chan error
}

// Host owns an Engine on a dedicated goroutine. Commands are processed one
// at a time in send order, and only between slices, so a decision is never
// interrupted. Snapshots are delivered in order on Snapshots.
//
// Commands are answered even when nobody reads Snapshots: the host queues
// snapshots internally. While running it stops slicing once the queue
// holds more than buffer snapshots, so an idle reader stalls the run
// rather than growing the queue.
type Host struct {
	id      string
	engine  *Engine
	cmds    chan envelope
	snaps   chan Snapshot
	quit    chan struct{}
	done    chan struct{}
	logger  *slog.Logger
	pending []Snapshot // owned by the host goroutine
	backlog int
}

// NewHost creates a host; call Start to launch its goroutine.
// buffer sizes the snapshot channel and the backlog allowed while running;
// values below 1 are treated as 1.
func NewHost(clock core.Clock, logger *slog.Logger, buffer int) *Host {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if buffer < 1 {
		buffer = 1
	}
	h := &Host{
		id:      uuid.NewString(),
		cmds:    make(chan envelope),
		snaps:   make(chan Snapshot, buffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		backlog: buffer,
	}
	h.logger = logger.With("session", h.id)
	h.engine = New(clock, h)
	return h
}

// ID identifies this simulation session in logs.
func (h *Host) ID() string {
	return h.id
}

// Snapshots is closed when the host stops.
func (h *Host) Snapshots() <-chan Snapshot {
	return h.snaps
}

// Done is closed when the host goroutine has exited.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Start launches the host goroutine. It runs until ctx is cancelled.
func (h *Host) Start(ctx context.Context) {
	go h.loop(ctx)
}

// Send delivers cmd and waits until the host has applied it. The returned
// error is the command's own error (only Configure can fail) or a delivery
// error.
func (h *Host) Send(ctx context.Context, cmd Command) error {
	env := envelope{cmd: cmd, reply: make(chan error, 1)}
	select {
	case h.cmds <- env:
	case <-h.done:
		return ErrHostStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-env.reply:
		return err
	case <-h.done:
		return ErrHostStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) Configure(ctx context.Context, cfg Config) error {
	return h.Send(ctx, Configure{Config: cfg})
}

func (h *Host) Run(ctx context.Context) error   { return h.Send(ctx, Run{}) }
func (h *Host) Pause(ctx context.Context) error { return h.Send(ctx, Pause{}) }
func (h *Host) Reset(ctx context.Context) error { return h.Send(ctx, Reset{}) }

// Snapshot returns the engine's state as of the moment the host takes the
// request. Nothing is emitted on Snapshots.
func (h *Host) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	if err := h.Send(ctx, snapshotQuery{out: &s}); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Report implements Reporter for the owned engine. It is only called on the
// host goroutine and queues s for delivery.
func (h *Host) Report(s Snapshot) {
	h.pending = append(h.pending, s)
}

func (h *Host) loop(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { close(h.quit) })
	defer stop()
	defer close(h.done)
	defer close(h.snaps)

	for {
		// A nil out disables the send case.
		var out chan<- Snapshot
		var next Snapshot
		if len(h.pending) > 0 {
			out, next = h.snaps, h.pending[0]
		}

		if h.engine.Phase() == Running && len(h.pending) <= h.backlog {
			// Between slices: take any pending command or deliver a
			// snapshot, otherwise continue with the next slice.
			select {
			case <-h.quit:
				return
			case env := <-h.cmds:
				h.handle(env)
			case out <- next:
				h.dequeue()
			default:
				if !h.engine.Slice() && h.engine.Phase() == Done {
					h.logger.Debug("run complete", "processed", h.engine.State().Processed)
				}
			}
			continue
		}

		select {
		case <-h.quit:
			return
		case env := <-h.cmds:
			h.handle(env)
		case out <- next:
			h.dequeue()
		}
	}
}

func (h *Host) dequeue() {
	h.pending[0] = Snapshot{}
	h.pending = h.pending[1:]
	if len(h.pending) == 0 {
		h.pending = nil
	}
}

func (h *Host) handle(env envelope) {
	before := h.engine.Phase()
	err := env.cmd.apply(h.engine)
	if err != nil {
		h.logger.Warn("command rejected", "command", commandName(env.cmd), "error", err)
	} else if after := h.engine.Phase(); after != before {
		h.logger.Debug("phase change", "command", commandName(env.cmd), "from", before, "to", after)
	}
	if c, ok := env.cmd.(Configure); ok && err == nil {
		h.logger.Info("configured",
			"N", c.Config.N, "seed", c.Config.Seed, "P", c.Config.P, "Q", c.Config.Q)
	}
	env.reply <- err
}

func commandName(cmd Command) string {
	switch cmd.(type) {
	case Configure:
		return "configure"
	case Run:
		return "run"
	case Pause:
		return "pause"
	case Reset:
		return "reset"
	case snapshotQuery:
		return "snapshot"
	default:
		return "unknown"
	}
}
