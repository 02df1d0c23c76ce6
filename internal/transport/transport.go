// Package transport provides the push-channel dialers used by the telemetry
// channel: a WebSocket client and a server-sent events client.
package transport

import (
	"fmt"
	"net/http"
	"strings"

	"smcbot-tui/internal/service"
	"smcbot-tui/internal/telemetry"
)

// TokenHeader carries the backend access token on every request.
const TokenHeader = service.TokenHeader

const (
	KindWebSocket = "ws"
	KindSSE       = "sse"
)

// Options selects and configures a push transport.
type Options struct {
	Kind  string
	URL   string
	Token string
}

// New returns the dialer for opts.Kind.
func New(opts Options) (telemetry.Dialer, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("stream url is required")
	}
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindWebSocket:
		return NewWebSocket(opts.URL, opts.Token), nil
	case KindSSE:
		return NewSSE(opts.URL, opts.Token, nil), nil
	default:
		return nil, fmt.Errorf("unknown stream transport %q", opts.Kind)
	}
}

func authHeader(token string) http.Header {
	header := http.Header{}
	if token = strings.TrimSpace(token); token != "" {
		header.Set(TokenHeader, token)
	}
	return header
}
