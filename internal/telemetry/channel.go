package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"smcbot-tui/internal/logging"
	"smcbot-tui/internal/metrics"
	"smcbot-tui/internal/sched"
)

// DefaultReconnectDelay is the fixed wait between a closure and the next
// connection attempt.
const DefaultReconnectDelay = 3 * time.Second

// Channel owns the push connection lifecycle: connect, read, detect loss,
// reconnect. It has no retry cap; only Close stops the cycle.
type Channel struct {
	dialer  Dialer
	sink    Sink
	sched   sched.Scheduler
	backoff retry.Backoff
	logger  logging.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	opened    bool
	closed    bool
	attempts  int
	conn      Conn
	cancel    context.CancelFunc
	reconnect sched.Task
	wg        sync.WaitGroup
}

type ChannelOptions struct {
	Scheduler      sched.Scheduler
	ReconnectDelay time.Duration
	// Backoff overrides the constant ReconnectDelay policy.
	Backoff retry.Backoff
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

func NewChannel(dialer Dialer, sink Sink, opts ChannelOptions) *Channel {
	if opts.Scheduler == nil {
		opts.Scheduler = sched.Real{}
	}
	if opts.Backoff == nil {
		delay := opts.ReconnectDelay
		if delay <= 0 {
			delay = DefaultReconnectDelay
		}
		opts.Backoff = retry.NewConstant(delay)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Channel{
		dialer:  dialer,
		sink:    sink,
		sched:   opts.Scheduler,
		backoff: opts.Backoff,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Open starts the first connection attempt. Calling it again, or after
// Close, does nothing.
func (c *Channel) Open() {
	c.mu.Lock()
	if c.opened || c.closed {
		c.mu.Unlock()
		return
	}
	c.opened = true
	c.mu.Unlock()
	c.connect()
}

// Attempts reports how many connection attempts have started.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Channel) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	c.attempts++
	attempt := c.attempts
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(ctx, cancel, attempt)
}

func (c *Channel) run(ctx context.Context, cancel context.CancelFunc, attempt int) {
	defer c.wg.Done()
	defer cancel()

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		// Expected while the backend is still starting.
		c.logger.Debug("push channel dial failed", "attempt", attempt, "err", err)
		c.lost()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("push channel connected", "attempt", attempt)
	c.sink.Handle(Event{Kind: ConnectionEstablished})

	for {
		line, err := conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Debug("push channel read ended", "attempt", attempt, "err", err)
			}
			break
		}
		c.sink.Handle(Event{Kind: Received, Line: line})
	}

	_ = conn.Close()
	c.lost()
}

// lost reports a closure and schedules exactly one reconnect attempt.
func (c *Channel) lost() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if delay, stop := c.backoff.Next(); !stop {
		c.reconnect = c.sched.AfterFunc(delay, c.connect)
		c.metrics.ReconnectScheduled()
		c.logger.Debug("push channel reconnect scheduled", "delay", delay)
	}
	c.mu.Unlock()

	c.sink.Handle(Event{Kind: ConnectionLost})
}

// Close tears the channel down: no further reconnects, a final flush of
// staged lines, then the connection is released. Close waits for the
// reader goroutine to exit and flushes once more, so a frame the transport
// handed over during teardown is neither stranded nor left on a timer.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.mu.Unlock()

	c.sink.Handle(Event{Kind: ConnectionLost})

	var err error
	if conn != nil {
		err = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.sink.Handle(Event{Kind: ConnectionLost})
	return err
}
