package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"smcbot-tui/internal/telemetry"
)

const wsReadLimit = 1 << 20

// WebSocket dials the backend's duplex push endpoint. Each text or binary
// message is one console line.
type WebSocket struct {
	url    string
	header http.Header
}

func NewWebSocket(url, token string) *WebSocket {
	return &WebSocket{url: url, header: authHeader(token)}
}

func (w *WebSocket) Dial(ctx context.Context) (telemetry.Conn, error) {
	conn, resp, err := websocket.Dial(ctx, w.url, &websocket.DialOptions{HTTPHeader: w.header.Clone()})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", w.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", w.url, err)
	}
	conn.SetReadLimit(wsReadLimit)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) (string, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *wsConn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	if err != nil && websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return err
}
