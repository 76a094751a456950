package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/mbocsi/rosteleop/proto"
	"github.com/sirupsen/logrus"
)

const DefaultOutboxSize = 256

// ErrInvalidEndpoint is wrapped by every error caused by a URI that cannot be
// dialed as a WebSocket endpoint.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// ValidateEndpoint accepts absolute ws:// and wss:// URIs with a host.
func ValidateEndpoint(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidEndpoint, uri, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w %q: scheme must be ws or wss", ErrInvalidEndpoint, uri)
	}
	if u.Host == "" {
		return fmt.Errorf("%w %q: missing host", ErrInvalidEndpoint, uri)
	}
	return nil
}

// Client speaks the rosbridge protocol over one Transport at a time. Each
// Connect starts a new session; callbacks from a superseded session are
// discarded.
type Client struct {
	mu       sync.Mutex
	endpoint string
	session  *session
	gen      uint64

	newTransport func() Transport
	outboxSize   int
	log          logrus.FieldLogger
	dropped      atomic.Int64

	// Held while a session reports connect, disconnect or a connection
	// error, so a superseded session cannot report after its successor.
	lifecycleMu sync.Mutex

	// Handlers
	handlerMu         sync.RWMutex
	onConnect         func()
	onDisconnect      func()
	onMessage         func(proto.PublishEvent)
	onServiceResponse func(proto.ServiceResponse)
	onError           func(error)
}

type Option func(*Client)

// WithTransportFactory replaces the WebSocket transport. The factory is
// called once per Connect.
func WithTransportFactory(fn func() Transport) Option {
	return func(c *Client) { c.newTransport = fn }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) { c.log = logger }
}

func WithOutboxSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.outboxSize = n
		}
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		outboxSize: DefaultOutboxSize,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "client")
	if c.newTransport == nil {
		c.newTransport = func() Transport { return NewWebSocketTransport(c.log) }
	}
	return c
}

type session struct {
	gen       uint64
	transport Transport
	outbox    chan []byte
	done      chan struct{}

	open      atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	stopOnce  sync.Once

	errMu    sync.Mutex
	writeErr error
}

func (s *session) closeTransport() {
	s.closeOnce.Do(func() { s.transport.Close() })
}

// shutdown marks the session as intentionally closed before closing the
// transport, so the read loop treats the resulting error as a clean close.
func (s *session) shutdown() {
	s.closing.Store(true)
	s.closeTransport()
}

func (s *session) stop() {
	s.open.Store(false)
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *session) setWriteErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.writeErr == nil {
		s.writeErr = err
	}
}

func (s *session) getWriteErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.writeErr
}

func (c *Client) OnConnect(fn func()) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onConnect = fn
}

func (c *Client) OnDisconnect(fn func()) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onDisconnect = fn
}

func (c *Client) OnMessage(fn func(proto.PublishEvent)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onMessage = fn
}

func (c *Client) OnServiceResponse(fn func(proto.ServiceResponse)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onServiceResponse = fn
}

func (c *Client) OnError(fn func(error)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onError = fn
}

// SetEndpoint changes the URI used by the next Connect. An open session is
// left alone.
func (c *Client) SetEndpoint(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = uri
}

func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Connect replaces any existing session with a new one and dials in the
// background. An endpoint that cannot be parsed is reported to OnError
// before Connect returns.
func (c *Client) Connect() {
	c.mu.Lock()
	old := c.session
	c.session = nil
	c.gen++
	gen := c.gen
	endpoint := c.endpoint
	err := ValidateEndpoint(endpoint)
	var s *session
	if err == nil {
		s = &session{
			gen:       gen,
			transport: c.newTransport(),
			outbox:    make(chan []byte, c.outboxSize),
			done:      make(chan struct{}),
		}
		c.session = s
	}
	c.mu.Unlock()

	if old != nil {
		old.shutdown()
	}
	if err != nil {
		c.log.WithError(err).Error("Refusing to connect")
		c.emitError(fmt.Errorf("connection failed: %w", err))
		return
	}

	c.log.WithFields(logrus.Fields{"endpoint": endpoint, "session": gen}).Info("Connecting")
	go c.run(s, endpoint)
}

// Disconnect closes the current session. The read loop reports a single
// OnDisconnect once it has unwound. Calling it again is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil || s.closing.Load() {
		return
	}
	c.log.WithField("session", s.gen).Info("Disconnecting")
	s.shutdown()
}

// IsConnected reports whether the current session's transport is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	return s != nil && s.open.Load() && !s.closing.Load()
}

// Send queues one frame for the writer. It never blocks: the frame is
// dropped when no session is open or the outbox is full.
func (c *Client) Send(msg proto.Outbound) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil || !s.open.Load() || s.closing.Load() {
		c.log.WithField("op", msg.Op()).Debug("Not connected, dropping outbound message")
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).WithField("op", msg.Op()).Error("Failed to marshal outbound message")
		return
	}

	select {
	case s.outbox <- data:
	default:
		c.dropped.Add(1)
		c.log.WithFields(logrus.Fields{"op": msg.Op(), "dropped": c.dropped.Load()}).Warn("Outbox full, dropping outbound message")
	}
}

// DroppedFrames counts outbound frames lost to a full outbox.
func (c *Client) DroppedFrames() int64 {
	return c.dropped.Load()
}

func (c *Client) isCurrent(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == s
}

// lifecycle runs fn only if s is still the current session. The check and
// fn are atomic with respect to other sessions' lifecycle callbacks.
func (c *Client) lifecycle(s *session, fn func()) bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if !c.isCurrent(s) {
		return false
	}
	fn()
	return true
}

func (c *Client) run(s *session, endpoint string) {
	log := c.log.WithField("session", s.gen)

	if err := s.transport.Connect(endpoint); err != nil {
		s.closeTransport()
		s.stop()
		c.lifecycle(s, func() {
			if !s.closing.Load() {
				log.WithError(err).Warn("Connection failed")
				c.emitError(fmt.Errorf("connection failed: %w", err))
			}
			c.emitDisconnect()
		})
		return
	}

	s.open.Store(true)
	if !c.isCurrent(s) || s.closing.Load() {
		s.closeTransport()
		s.stop()
		c.lifecycle(s, c.emitDisconnect)
		return
	}

	log.Info("Connected")
	go c.writePump(s)
	c.lifecycle(s, c.emitConnect)
	c.readLoop(s)
}

func (c *Client) writePump(s *session) {
	for {
		select {
		case data := <-s.outbox:
			if err := s.transport.Write(data); err != nil {
				s.setWriteErr(fmt.Errorf("write failed: %w", err))
				s.closeTransport()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (c *Client) readLoop(s *session) {
	log := c.log.WithField("session", s.gen)

	for {
		data, err := s.transport.Read()
		if err != nil {
			s.closeTransport()
			s.stop()
			if werr := s.getWriteErr(); werr != nil && !s.closing.Load() {
				err = werr
			}
			reported := c.lifecycle(s, func() {
				if !s.closing.Load() && !errors.Is(err, ErrClosed) {
					log.WithError(err).Warn("Connection lost")
					c.emitError(fmt.Errorf("connection error: %w", err))
				} else {
					log.Info("Disconnected")
				}
				c.emitDisconnect()
			})
			if !reported {
				log.Debug("Superseded session closed")
			}
			return
		}

		if s.closing.Load() || !c.isCurrent(s) {
			continue
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	in, err := proto.ParseInbound(data)
	if err != nil {
		c.log.WithError(err).WithField("size", len(data)).Warn("Discarding inbound frame")
		c.emitError(err)
		return
	}

	switch msg := in.(type) {
	case proto.PublishEvent:
		c.log.WithFields(logrus.Fields{"topic": msg.Topic, "size": len(msg.Msg)}).Debug("Message received")
		c.handlerMu.RLock()
		handler := c.onMessage
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(msg)
		}
	case proto.ServiceResponse:
		c.log.WithFields(logrus.Fields{"service": msg.Service, "id": msg.ID, "result": msg.Result}).Debug("Service response received")
		c.handlerMu.RLock()
		handler := c.onServiceResponse
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(msg)
		}
	}
}

func (c *Client) emitConnect() {
	c.handlerMu.RLock()
	handler := c.onConnect
	c.handlerMu.RUnlock()
	if handler != nil {
		handler()
	}
}

func (c *Client) emitDisconnect() {
	c.handlerMu.RLock()
	handler := c.onDisconnect
	c.handlerMu.RUnlock()
	if handler != nil {
		handler()
	}
}

func (c *Client) emitError(err error) {
	c.handlerMu.RLock()
	handler := c.onError
	c.handlerMu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
