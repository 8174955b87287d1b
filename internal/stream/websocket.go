package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// defaultHandshakeTimeout bounds the websocket upgrade.
	defaultHandshakeTimeout = 10 * time.Second

	// defaultReadLimit covers a full camera frame.
	defaultReadLimit = 8 << 20
)

// WebsocketDialer dials the device's event websocket.
type WebsocketDialer struct {
	URL       string
	Header    http.Header
	ReadLimit int64
	Dialer    *websocket.Dialer
}

// NewWebsocketDialer returns a dialer for url with default limits.
func NewWebsocketDialer(url string) *WebsocketDialer {
	return &WebsocketDialer{
		URL:       url,
		ReadLimit: defaultReadLimit,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
	}
}

// Dial implements Dialer.
func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	c, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDial, d.URL, err)
	}
	if d.ReadLimit > 0 {
		c.SetReadLimit(d.ReadLimit)
	}
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

// ReadMessage returns the next data frame, binary or text.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}
