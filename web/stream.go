package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/services"
	"github.com/sirupsen/logrus"
)

const streamWriteTimeout = 5 * time.Second

// StreamFrame is one JSON frame written on /ws. Exactly one of Event and
// Message is set, matching Kind.
type StreamFrame struct {
	Kind    string                  `json:"kind"`
	Event   *bridge.ConnectionEvent `json:"event,omitempty"`
	Message *services.MessageInfo   `json:"message,omitempty"`
}

const (
	FrameEvent   = "event"
	FrameMessage = "message"
)

// streamHub tracks open /ws connections
type streamHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	slots int
	max   int
}

func newStreamHub(max int) *streamHub {
	return &streamHub{
		conns: make(map[*websocket.Conn]struct{}),
		max:   max,
	}
}

// reserve claims a slot before the upgrade so a full hub can still answer
// with a plain HTTP error.
func (h *streamHub) reserve() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.slots >= h.max {
		return false
	}
	h.slots++
	return true
}

func (h *streamHub) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.slots--
}

func (h *streamHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *streamHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func (h *streamHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *streamHub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// HandleStream upgrades to a WebSocket and pushes connection events and
// received messages until either side goes away. Each connection is its own
// subscriber, so a slow browser only loses its own frames.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !s.streams.reserve() {
		s.log.Warn("Rejecting stream, too many connections")
		http.Error(w, "Too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.release()

	// Subscribe before the handshake completes so nothing published after
	// the client sees the upgrade is missed.
	events := s.source.Events()
	defer events.Cancel()
	messages := s.source.Messages(s.streamBuffer)
	defer messages.Cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	s.streams.add(conn)
	defer func() {
		s.streams.remove(conn)
		conn.Close()
	}()

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("Stream client connected")

	// Inbound frames are ignored; reading only detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		var frame StreamFrame
		select {
		case <-done:
			log.Info("Stream client disconnected")
			return
		case ev, ok := <-events.C:
			if !ok {
				return
			}
			frame = StreamFrame{Kind: FrameEvent, Event: &ev}
		case msg, ok := <-messages.C:
			if !ok {
				return
			}
			info := services.MessageInfo{
				Topic:      msg.Event.Topic,
				Type:       msg.Event.Type,
				Msg:        msg.Event.Msg,
				ReceivedAt: msg.ReceivedAtMillis(),
			}
			frame = StreamFrame{Kind: FrameMessage, Message: &info}
		}

		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			log.WithError(err).WithFields(logrus.Fields{"kind": frame.Kind}).Debug("Stream write failed")
			return
		}
	}
}
