package run

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"smcbot-tui/internal/logging"
	"smcbot-tui/internal/metrics"
	"smcbot-tui/internal/sched"
	"smcbot-tui/internal/validate"
)

// Backend is the part of the service client the orchestrator needs.
type Backend interface {
	StatusSource
	StartRun(ctx context.Context, config map[string]any) (string, error)
	CancelRun(ctx context.Context, runID string) error
	Defaults(ctx context.Context) (map[string]any, error)
}

// Console is the log view cleared on reset.
type Console interface {
	Clear()
}

type Options struct {
	Scheduler    sched.Scheduler
	PollInterval time.Duration
	PollTimeout  time.Duration
	Logger       logging.Logger
	Metrics      *metrics.Metrics
	Console      Console
}

// Orchestrator maps start, stop and reset onto the run store and decides
// when a poll session exists.
type Orchestrator struct {
	backend Backend
	store   *Store
	poller  *Poller
	console Console
	logger  logging.Logger

	mu       sync.Mutex
	seq      uint64
	inflight int
	preStart flags
}

func New(backend Backend, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	store := NewStore()
	poller := NewPoller(backend, store, PollerOptions{
		Scheduler: opts.Scheduler,
		Interval:  opts.PollInterval,
		Timeout:   opts.PollTimeout,
		Logger:    opts.Logger.With("component", "poller"),
		Metrics:   opts.Metrics,
	})
	return &Orchestrator{
		backend: backend,
		store:   store,
		poller:  poller,
		console: opts.Console,
		logger:  opts.Logger,
	}
}

func (o *Orchestrator) Store() *Store {
	return o.store
}

// Start validates cfg, asks the backend for a new run and begins polling it.
// Overlapping calls resolve latest-wins: an earlier call that returns after a
// later one has started gets ErrSuperseded, and the run it created, if any,
// is cancelled. A failed request restores the running flags to what they
// were before the first of the overlapping calls, or clears them when the
// previous run settled meanwhile.
func (o *Orchestrator) Start(ctx context.Context, cfg map[string]any) (string, error) {
	if fields := validate.Config(cfg); fields != nil {
		return "", &ValidationError{Fields: fields}
	}

	o.mu.Lock()
	o.seq++
	seq := o.seq
	prev := o.store.lockFlags()
	if o.inflight == 0 {
		o.preStart = prev
	}
	o.inflight++
	o.mu.Unlock()

	runID, err := o.backend.StartRun(ctx, cloneMap(cfg))

	o.mu.Lock()
	o.inflight--
	if seq != o.seq {
		o.mu.Unlock()
		if err == nil {
			o.discard(ctx, runID)
		}
		return "", ErrSuperseded
	}
	defer o.mu.Unlock()
	if err != nil {
		o.store.restoreFlags(o.restorableFlags())
		o.logger.Warn("run start failed", "err", err)
		return "", fmt.Errorf("start run: %w", err)
	}

	o.store.begin(runID)
	o.poller.Start(runID)
	o.logger.Info("run started", "run_id", runID)
	return runID, nil
}

// restorableFlags returns the pre-start flags, unless the run they belonged
// to stopped being polled while the request was in flight.
func (o *Orchestrator) restorableFlags() flags {
	if o.poller.RunID() == "" || o.store.Snapshot().Status.Terminal() {
		return flags{}
	}
	return o.preStart
}

// discard cancels a run the backend started for a superseded call. Nothing
// polls it, so the cancel is best-effort.
func (o *Orchestrator) discard(ctx context.Context, runID string) {
	o.logger.Warn("discarding superseded run", "run_id", runID)
	if err := o.backend.CancelRun(ctx, runID); err != nil {
		o.logger.Debug("cancel of superseded run failed", "run_id", runID, "err", err)
	}
}

// Stop requests cancellation of runID, or of the current run when runID is
// empty. It never changes local state: the run keeps showing Running until a
// poll observes the backend's terminal status.
func (o *Orchestrator) Stop(ctx context.Context, runID string) error {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		runID = o.store.Snapshot().RunID
	}
	if runID == "" {
		return ErrNoActiveRun
	}
	if err := o.backend.CancelRun(ctx, runID); err != nil {
		o.logger.Warn("cancel request failed", "run_id", runID, "err", err)
		return fmt.Errorf("cancel run %s: %w", runID, err)
	}
	o.logger.Info("cancel requested", "run_id", runID)
	return nil
}

// Reset drops the current run, clears the console and reloads the backend's
// default configuration. Pending starts are superseded.
func (o *Orchestrator) Reset(ctx context.Context) (map[string]any, error) {
	o.mu.Lock()
	o.seq++
	o.poller.Stop()
	o.store.reset()
	o.mu.Unlock()

	if o.console != nil {
		o.console.Clear()
	}

	defaults, err := o.backend.Defaults(ctx)
	if err != nil {
		o.logger.Warn("loading defaults failed", "err", err)
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	return defaults, nil
}

// Close stops polling.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	o.poller.Stop()
}
