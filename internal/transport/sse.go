package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"

	"smcbot-tui/internal/telemetry"
)

const (
	initialScanBuffer = 128 * 1024
	maxScanBuffer     = 16 * 1024 * 1024
)

// SSE reads the push stream as server-sent events. The data lines of each
// event form one console line; comments and event names are ignored.
type SSE struct {
	url    string
	token  string
	client *resty.Client
}

// NewSSE builds an SSE dialer. A nil client gets a fresh resty client with
// no overall timeout, since the response body stays open for the session.
func NewSSE(url, token string, client *resty.Client) *SSE {
	if client == nil {
		client = resty.New()
	}
	return &SSE{url: url, token: token, client: client}
}

func (s *SSE) Dial(ctx context.Context) (telemetry.Conn, error) {
	req := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache")
	if token := strings.TrimSpace(s.token); token != "" {
		req.SetHeader(TokenHeader, token)
	}

	resp, err := req.Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("open event stream %s: %w", s.url, err)
	}
	body := resp.RawBody()
	if resp.StatusCode() >= 400 {
		blob, _ := io.ReadAll(io.LimitReader(body, 4096))
		_ = body.Close()
		return nil, fmt.Errorf("open event stream: status=%d body=%s", resp.StatusCode(), strings.TrimSpace(string(blob)))
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, initialScanBuffer), maxScanBuffer)
	return &sseConn{body: body, scanner: scanner}, nil
}

type sseConn struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	data    []string
}

// Read returns the next event's data. The body is bound to the dial context,
// so cancelling it unblocks the scanner.
func (c *sseConn) Read(ctx context.Context) (string, error) {
	for c.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line := strings.TrimRight(c.scanner.Text(), "\r")
		if line == "" {
			if msg, ok := c.take(); ok {
				return msg, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimPrefix(line, "data:")
			payload = strings.TrimPrefix(payload, " ")
			c.data = append(c.data, payload)
		}
	}
	if msg, ok := c.take(); ok {
		return msg, nil
	}
	if err := c.scanner.Err(); err != nil {
		return "", fmt.Errorf("read event stream: %w", err)
	}
	return "", io.EOF
}

func (c *sseConn) take() (string, bool) {
	if len(c.data) == 0 {
		return "", false
	}
	msg := strings.Join(c.data, "\n")
	c.data = c.data[:0]
	return msg, true
}

func (c *sseConn) Close() error {
	return c.body.Close()
}
