package telemetry

import (
	"sync"
	"time"

	"smcbot-tui/internal/logbuf"
	"smcbot-tui/internal/metrics"
	"smcbot-tui/internal/sched"
	"smcbot-tui/internal/watch"
)

// DefaultFlushInterval is the minimum spacing between two buffer mutations.
const DefaultFlushInterval = 100 * time.Millisecond

// Coalescer stages received lines and moves them into the console buffer
// at most once per flush interval. It also tracks the connection indicator.
type Coalescer struct {
	buffer   *logbuf.Buffer
	sched    sched.Scheduler
	interval time.Duration
	metrics  *metrics.Metrics

	mu        sync.Mutex
	pending   []string
	lastFlush time.Time
	flushed   bool
	scheduled sched.Task
	connected bool

	changes watch.Notifier
}

type CoalescerOptions struct {
	Scheduler     sched.Scheduler
	FlushInterval time.Duration
	Metrics       *metrics.Metrics
}

func NewCoalescer(buffer *logbuf.Buffer, opts CoalescerOptions) *Coalescer {
	if buffer == nil {
		buffer = logbuf.New(logbuf.DefaultMaxLines)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = sched.Real{}
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	return &Coalescer{
		buffer:   buffer,
		sched:    opts.Scheduler,
		interval: opts.FlushInterval,
		metrics:  opts.Metrics,
	}
}

func (c *Coalescer) Handle(ev Event) {
	switch ev.Kind {
	case Received:
		c.receive(ev.Line)
	case ConnectionEstablished:
		c.setConnected(true)
	case ConnectionLost:
		c.lost()
	}
}

func (c *Coalescer) receive(raw string) {
	line, ok := normalizeLine(raw)
	if !ok {
		return
	}
	c.metrics.LineReceived()

	c.mu.Lock()
	c.pending = append(c.pending, line)
	now := c.sched.Now()
	since := now.Sub(c.lastFlush)
	if !c.flushed || since >= c.interval {
		mutated := c.flushLocked(now)
		c.mu.Unlock()
		if mutated {
			c.changes.Notify()
		}
		return
	}
	if c.scheduled == nil {
		c.scheduled = c.sched.AfterFunc(c.interval-since, c.scheduledFlush)
	}
	c.mu.Unlock()
}

func (c *Coalescer) scheduledFlush() {
	c.mu.Lock()
	c.scheduled = nil
	mutated := c.flushLocked(c.sched.Now())
	c.mu.Unlock()
	if mutated {
		c.changes.Notify()
	}
}

// flushLocked drains the pending lines into the buffer. The pending slice is
// swapped out before the append so lines arriving later start a new batch.
func (c *Coalescer) flushLocked(now time.Time) bool {
	if c.scheduled != nil {
		c.scheduled.Stop()
		c.scheduled = nil
	}
	if len(c.pending) == 0 {
		return false
	}
	batch := c.pending
	c.pending = nil
	c.lastFlush = now
	c.flushed = true
	c.buffer.Append(batch)
	c.metrics.Flushed()
	return true
}

// lost cancels any scheduled flush and flushes whatever is staged, so a
// closing connection never strands received lines.
func (c *Coalescer) lost() {
	c.mu.Lock()
	mutated := c.flushLocked(c.sched.Now())
	changed := c.connected
	c.connected = false
	c.mu.Unlock()
	c.metrics.SetConnected(false)
	if mutated || changed {
		c.changes.Notify()
	}
}

func (c *Coalescer) setConnected(v bool) {
	c.mu.Lock()
	changed := c.connected != v
	c.connected = v
	c.mu.Unlock()
	c.metrics.SetConnected(v)
	if changed {
		c.changes.Notify()
	}
}

// Lines returns the console snapshot.
func (c *Coalescer) Lines() []string {
	return c.buffer.Snapshot()
}

// Connected reports the connection indicator.
func (c *Coalescer) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Pending reports how many lines are staged but not yet flushed.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Clear empties the console buffer. Staged lines are kept and flush later.
func (c *Coalescer) Clear() {
	c.buffer.Clear()
	c.changes.Notify()
}

// Subscribe wakes the caller after any console or connection change.
func (c *Coalescer) Subscribe() (<-chan struct{}, func()) {
	return c.changes.Subscribe()
}
