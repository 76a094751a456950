package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
)

var errNotConnected = errors.New("transport is not connected")

type WebSocketTransport struct {
	dialer *websocket.Dialer
	log    logrus.FieldLogger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex
}

func NewWebSocketTransport(logger logrus.FieldLogger) *WebSocketTransport {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout
	return &WebSocketTransport{dialer: &dialer, log: logger}
}

func (t *WebSocketTransport) Connect(addr string) error {
	if err := ValidateEndpoint(addr); err != nil {
		return err
	}

	conn, _, err := t.dialer.Dial(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket server: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		// Closed while the handshake was in flight.
		conn.Close()
		return ErrClosed
	}
	t.conn = conn
	t.log.WithField("addr", addr).Debug("WebSocket connected")
	return nil
}

func (t *WebSocketTransport) current() (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if t.conn == nil {
		return nil, errNotConnected
	}
	return t.conn, nil
}

func (t *WebSocketTransport) Write(data []byte) error {
	conn, err := t.current()
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send WebSocket message: %w", err)
	}

	t.log.WithField("size", len(data)).Debug("Sent WebSocket message")
	return nil
}

func (t *WebSocketTransport) Read() ([]byte, error) {
	conn, err := t.current()
	if err != nil {
		return nil, err
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, fmt.Errorf("%w: %v", ErrClosed, err)
			}
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("WebSocket connection error: %w", err)
		}
		if messageType != websocket.TextMessage {
			t.log.WithField("type", messageType).Debug("Ignoring non-text WebSocket frame")
			continue
		}
		return data, nil
	}
}

func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	if err != nil {
		t.log.WithError(err).Debug("Failed to send close message")
	}

	return conn.Close()
}
