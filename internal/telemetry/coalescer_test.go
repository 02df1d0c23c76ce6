package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smcbot-tui/internal/logbuf"
	"smcbot-tui/internal/metrics"
	"smcbot-tui/internal/sched"
)

func newTestCoalescer(max int) (*Coalescer, *sched.Manual, *metrics.Metrics) {
	clock := sched.NewManual(time.Time{})
	m := metrics.New()
	c := NewCoalescer(logbuf.New(max), CoalescerOptions{Scheduler: clock, Metrics: m})
	return c, clock, m
}

func recv(c *Coalescer, line string) {
	c.Handle(Event{Kind: Received, Line: line})
}

func TestIsolatedMessageFlushesImmediately(t *testing.T) {
	c, clock, _ := newTestCoalescer(10)
	recv(c, "hello")

	assert.Equal(t, []string{"hello"}, c.Lines())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, 0, clock.Pending())
}

func TestSecondMessageInsideWindowIsDeferred(t *testing.T) {
	c, clock, _ := newTestCoalescer(10)
	recv(c, "a")
	clock.Advance(30 * time.Millisecond)
	recv(c, "b")
	recv(c, "c")

	assert.Equal(t, []string{"a"}, c.Lines())
	assert.Equal(t, 2, c.Pending())
	assert.Equal(t, 1, clock.Pending(), "only one flush may be scheduled")

	clock.Advance(69 * time.Millisecond)
	assert.Equal(t, []string{"a"}, c.Lines())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, c.Lines())
	assert.Equal(t, 0, clock.Pending())
}

func TestMessageAfterQuietWindowFlushesImmediately(t *testing.T) {
	c, clock, _ := newTestCoalescer(10)
	recv(c, "a")
	clock.Advance(100 * time.Millisecond)
	recv(c, "b")
	assert.Equal(t, []string{"a", "b"}, c.Lines())
	assert.Equal(t, 0, clock.Pending())
}

func TestBurstKeepsLastLinesInOrder(t *testing.T) {
	c, clock, m := newTestCoalescer(logbuf.DefaultMaxLines)

	const total = 12000
	for i := 0; i < total; i++ {
		recv(c, fmt.Sprintf("msg %d", i))
		if i%250 == 249 {
			clock.Advance(time.Millisecond)
		}
	}
	clock.Advance(100 * time.Millisecond)

	lines := c.Lines()
	require.Len(t, lines, logbuf.DefaultMaxLines)
	for i, line := range lines {
		require.Equal(t, fmt.Sprintf("msg %d", total-logbuf.DefaultMaxLines+i), line)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Flushes))
	assert.Equal(t, float64(total), testutil.ToFloat64(m.LinesReceived))
}

func TestFlushSpacingUnderContinuousInput(t *testing.T) {
	c, clock, _ := newTestCoalescer(100000)

	var flushTimes []time.Time
	prev := 0
	for i := 0; i < 180; i++ {
		recv(c, fmt.Sprintf("tick %d", i))
		if n := len(c.Lines()); n != prev {
			flushTimes = append(flushTimes, clock.Now())
			prev = n
		}
		clock.Advance(5 * time.Millisecond)
		if n := len(c.Lines()); n != prev {
			flushTimes = append(flushTimes, clock.Now())
			prev = n
		}
	}
	clock.Advance(time.Second)
	require.Len(t, c.Lines(), 180)

	require.NotEmpty(t, flushTimes)
	for i := 1; i < len(flushTimes); i++ {
		gap := flushTimes[i].Sub(flushTimes[i-1])
		assert.GreaterOrEqual(t, gap, DefaultFlushInterval, "flush %d came %s after the previous one", i, gap)
	}
	// 900ms of input can produce at most one flush per 100ms window plus the leading one.
	assert.LessOrEqual(t, len(flushTimes), 10)
}

func TestConnectionLostFlushesStagedLines(t *testing.T) {
	c, clock, _ := newTestCoalescer(10)
	c.Handle(Event{Kind: ConnectionEstablished})
	recv(c, "a")
	recv(c, "b")
	require.Equal(t, 1, clock.Pending())

	c.Handle(Event{Kind: ConnectionLost})

	assert.Equal(t, []string{"a", "b"}, c.Lines())
	assert.Equal(t, 0, clock.Pending(), "scheduled flush must be cancelled")
	assert.False(t, c.Connected())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"a", "b"}, c.Lines())
}

func TestBlankMessagesAreIgnored(t *testing.T) {
	c, _, m := newTestCoalescer(10)
	recv(c, "")
	recv(c, "   \t")
	recv(c, "\r\n")
	recv(c, "order filled\r\n")

	assert.Equal(t, []string{"order filled"}, c.Lines())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinesReceived))
}

func TestConnectionIndicatorNotifiesSubscribers(t *testing.T) {
	c, _, m := newTestCoalescer(10)
	ch, cancel := c.Subscribe()
	defer cancel()

	c.Handle(Event{Kind: ConnectionEstablished})
	assert.True(t, c.Connected())
	assert.Len(t, ch, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connected))
	<-ch

	c.Handle(Event{Kind: ConnectionEstablished})
	assert.Len(t, ch, 0, "no change, no notification")

	c.Handle(Event{Kind: ConnectionLost})
	assert.False(t, c.Connected())
	assert.Len(t, ch, 1)
}

func TestClearEmptiesConsoleButKeepsStaged(t *testing.T) {
	c, clock, _ := newTestCoalescer(10)
	recv(c, "a")
	recv(c, "b")
	c.Clear()
	assert.Empty(t, c.Lines())

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"b"}, c.Lines())
}
