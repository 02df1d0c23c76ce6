// Package logbuf holds the console output shown by the dashboard: an
// append-only, size-capped sequence of lines.
package logbuf

import "sync"

// DefaultMaxLines is the retention cap used by the dashboard console.
const DefaultMaxLines = 5000

// Buffer keeps the most recent lines in arrival order. When an append would
// exceed the cap, the oldest lines are dropped first.
type Buffer struct {
	mu    sync.RWMutex
	max   int
	lines []string
}

// New returns a buffer capped at max lines. A non-positive max uses
// DefaultMaxLines.
func New(max int) *Buffer {
	if max <= 0 {
		max = DefaultMaxLines
	}
	return &Buffer{max: max}
}

// Append adds lines to the end and trims from the front.
func (b *Buffer) Append(lines []string) {
	if len(lines) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(lines) >= b.max {
		fresh := make([]string, b.max)
		copy(fresh, lines[len(lines)-b.max:])
		b.lines = fresh
		return
	}

	b.lines = append(b.lines, lines...)
	if over := len(b.lines) - b.max; over > 0 {
		// Copy so the dropped prefix can be collected.
		kept := make([]string, b.max, b.max+b.max/4)
		copy(kept, b.lines[over:])
		b.lines = kept
	}
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// Snapshot returns a copy of the retained lines.
func (b *Buffer) Snapshot() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len reports how many lines are retained.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Cap reports the retention limit.
func (b *Buffer) Cap() int {
	return b.max
}
