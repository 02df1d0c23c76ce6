package run

import (
	"context"
	"strings"
	"sync"
	"time"

	"smcbot-tui/internal/logging"
	"smcbot-tui/internal/metrics"
	"smcbot-tui/internal/sched"
	"smcbot-tui/internal/service"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = 10 * time.Second
)

// StatusSource answers run status queries.
type StatusSource interface {
	GetRun(ctx context.Context, runID string) (*service.RunStatus, error)
}

type StatusSourceFunc func(ctx context.Context, runID string) (*service.RunStatus, error)

func (f StatusSourceFunc) GetRun(ctx context.Context, runID string) (*service.RunStatus, error) {
	return f(ctx, runID)
}

// Poller queries the status of one run per interval until the run settles
// or the session ends. Each query is scheduled only after the previous one
// has been applied, so at most one is in flight per run.
type Poller struct {
	source   StatusSource
	store    *Store
	sched    sched.Scheduler
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics

	mu    sync.Mutex
	gen   uint64
	runID string
	task  sched.Task
}

type PollerOptions struct {
	Scheduler sched.Scheduler
	Interval  time.Duration
	Timeout   time.Duration
	Logger    logging.Logger
	Metrics   *metrics.Metrics
}

func NewPoller(source StatusSource, store *Store, opts PollerOptions) *Poller {
	if opts.Scheduler == nil {
		opts.Scheduler = sched.Real{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPollTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Poller{
		source:   source,
		store:    store,
		sched:    opts.Scheduler,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Start binds the poller to runID. Any previous session is invalidated
// first; a response still in flight for it is discarded.
func (p *Poller) Start(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.runID = runID
	p.scheduleLocked(p.gen)
}

// Stop ends the current session. Once it returns no further store writes
// come from earlier queries.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// RunID returns the run being polled, or "" when idle.
func (p *Poller) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

func (p *Poller) stopLocked() {
	p.gen++
	if p.task != nil {
		p.task.Stop()
		p.task = nil
	}
	p.runID = ""
}

func (p *Poller) scheduleLocked(gen uint64) {
	p.task = p.sched.AfterFunc(p.interval, func() { p.tick(gen) })
}

func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.runID == "" {
		p.mu.Unlock()
		return
	}
	p.task = nil
	runID := p.runID
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	status, err := p.source.GetRun(ctx, runID)
	cancel()
	p.metrics.Polled(err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		p.logger.Debug("discarding superseded poll response", "run_id", runID)
		return
	}
	if p.apply(runID, status, err) {
		p.scheduleLocked(gen)
		return
	}
	p.runID = ""
}

// apply writes one poll outcome and reports whether polling continues.
func (p *Poller) apply(runID string, status *service.RunStatus, err error) bool {
	if err != nil {
		p.logger.Warn("run status query failed; releasing run", "run_id", runID, "err", err)
		p.store.release(runID)
		return false
	}

	progress := clampProgress(status.Progress)
	message := strings.TrimSpace(status.Message)
	switch parsed := ParseStatus(status.Status); {
	case parsed == Failed:
		if message == "" {
			message = strings.TrimSpace(status.Error)
		}
		p.store.settle(runID, Failed, progress, message, nil)
		p.logger.Info("run failed", "run_id", runID, "message", message)
		return false
	case parsed.HasResult() && status.Result != nil:
		p.store.settle(runID, parsed, progress, message, status.Result)
		p.logger.Info("run settled", "run_id", runID, "status", parsed)
		return false
	case parsed.HasResult():
		// Terminal without a result yet: keep polling until the payload lands.
		p.logger.Debug("terminal status without result", "run_id", runID, "status", parsed)
		return p.store.progress(runID, progress, message)
	default:
		return p.store.progress(runID, progress, message)
	}
}

func clampProgress(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
