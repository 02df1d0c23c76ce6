// Package telemetry ingests the backend's push channel: it keeps the
// connection alive and turns an unthrottled message stream into rate-limited
// batches on a bounded console buffer.
package telemetry

import (
	"context"
	"strings"
)

type EventKind int

const (
	Received EventKind = iota
	ConnectionEstablished
	ConnectionLost
)

func (k EventKind) String() string {
	switch k {
	case Received:
		return "received"
	case ConnectionEstablished:
		return "connection_established"
	case ConnectionLost:
		return "connection_lost"
	default:
		return "unknown"
	}
}

// Event is one item of the channel's typed event stream.
type Event struct {
	Kind EventKind
	Line string
}

// Sink consumes channel events. Handle must not block on I/O.
type Sink interface {
	Handle(Event)
}

// Conn is one established push connection.
type Conn interface {
	// Read blocks until the next message arrives, the connection closes or
	// ctx is done.
	Read(ctx context.Context) (string, error)
	Close() error
}

// Dialer opens push connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// normalizeLine strips the line terminator and reports whether anything
// besides whitespace is left.
func normalizeLine(raw string) (string, bool) {
	line := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	return line, true
}
