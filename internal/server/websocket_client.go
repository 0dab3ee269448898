package server

import (
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketClient reads trigger lines from and writes room JSON to a browser harness.
type WebSocketClient struct {
	conn *websocket.Conn

	mu      sync.Mutex // Protects readBuf
	readBuf []string
	writeMu sync.Mutex // gorilla allows one concurrent writer
}

// NewWebSocketClient wraps conn. maxMessageSize caps inbound frames; 0 leaves the default.
func NewWebSocketClient(conn *websocket.Conn, maxMessageSize int64) *WebSocketClient {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketClient{conn: conn}
}

// ReadLine returns the next non-empty line. A frame holding several lines
// is split and the remainder buffered for later calls.
func (c *WebSocketClient) ReadLine() (string, error) {
	for {
		c.mu.Lock()
		if len(c.readBuf) > 0 {
			line := c.readBuf[0]
			c.readBuf = c.readBuf[1:]
			c.mu.Unlock()
			return line, nil
		}
		c.mu.Unlock()

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}

		var lines []string
		for _, line := range strings.Split(string(message), "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}

		c.mu.Lock()
		c.readBuf = append(c.readBuf, lines...)
		c.mu.Unlock()
	}
}

// WriteJSON sends v encoded as a JSON text frame.
func (c *WebSocketClient) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Close closes the WebSocket connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the socket peer address, which may be a proxy.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
