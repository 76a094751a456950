package rosbridgetest

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbocsi/rosteleop/proto"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server is a minimal rosbridge endpoint. It records every outbound frame the
// client sends and lets the test push frames back.
type Server struct {
	*httptest.Server

	// Received carries every decoded frame sent by a client.
	Received chan proto.Outbound
	// Raw carries the undecoded text of each frame.
	Raw chan string

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	joined  chan struct{}
	writeMu sync.Mutex
}

func NewServer() *Server {
	s := &Server{
		Received: make(chan proto.Outbound, 64),
		Raw:      make(chan string, 64),
		conns:    make(map[*websocket.Conn]struct{}),
		joined:   make(chan struct{}, 16),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	return s
}

// URL returns the ws:// address of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.joined <- struct{}{}

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case s.Raw <- string(data):
		default:
		}
		if msg, err := proto.DecodeOutbound(data); err == nil {
			s.Received <- msg
		}
	}
}

// WaitClient blocks until a client has completed the WebSocket handshake.
func (s *Server) WaitClient(timeout time.Duration) error {
	select {
	case <-s.joined:
		return nil
	case <-time.After(timeout):
		return errors.New("timed out waiting for a client")
	}
}

// Send writes a text frame to every connected client.
func (s *Server) Send(frame string) error {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if len(conns) == 0 {
		return errors.New("no connected clients")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return err
		}
	}
	return nil
}

// Next returns the next decoded frame from a client.
func (s *Server) Next(timeout time.Duration) (proto.Outbound, error) {
	select {
	case msg := <-s.Received:
		return msg, nil
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for a client frame")
	}
}

// DropClients closes every client connection without a close handshake.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.UnderlyingConn().Close()
	}
}

// CloseClients sends a normal close frame to every client.
func (s *Server) CloseClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
}

// Close drops all clients and shuts the HTTP server down.
func (s *Server) Close() {
	s.DropClients()
	s.Server.Close()
}
