package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbocsi/rosteleop/broker"
	"github.com/mbocsi/rosteleop/client"
	"github.com/mbocsi/rosteleop/proto"
	"github.com/sirupsen/logrus"
)

const DefaultMessageBuffer = 64

// Client is the part of client.Client the manager drives.
type Client interface {
	OnConnect(func())
	OnDisconnect(func())
	OnMessage(func(proto.PublishEvent))
	OnServiceResponse(func(proto.ServiceResponse))
	OnError(func(error))

	SetEndpoint(uri string)
	Endpoint() string
	Connect()
	Disconnect()
	IsConnected() bool
	Send(msg proto.Outbound)
}

// Manager owns one Client, the set of topics to keep subscribed, and the
// broadcast streams the rest of the application observes.
type Manager struct {
	client Client
	log    logrus.FieldLogger
	now    func() time.Time

	// Guards every write made from the client callbacks.
	mu        sync.Mutex
	topics    []proto.Topic
	lastError string

	status    atomic.Bool
	events    *broker.Latest[ConnectionEvent]
	messages  *broker.Broker[ReceivedMessage]
	responses *broker.Broker[proto.ServiceResponse]

	messageBuffer int
	clientOpts    []client.Option
}

type Option func(*Manager)

// WithClient uses c instead of building a client.Client.
func WithClient(c Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithClientOptions is passed through to client.NewClient.
func WithClientOptions(opts ...client.Option) Option {
	return func(m *Manager) { m.clientOpts = append(m.clientOpts, opts...) }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = logger }
}

// WithMessageBuffer sets the channel size used when Messages or
// ServiceResponses is called with a non-positive buffer.
func WithMessageBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.messageBuffer = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(endpoint string, opts ...Option) *Manager {
	m := &Manager{
		log:           logrus.StandardLogger(),
		now:           time.Now,
		messageBuffer: DefaultMessageBuffer,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.client == nil {
		copts := append([]client.Option{client.WithLogger(m.log)}, m.clientOpts...)
		m.client = client.NewClient(endpoint, copts...)
	}
	m.log = m.log.WithField("component", "bridge")

	m.events = broker.NewLatest(ConnectionEvent{
		ConnectionState: ConnectionState{Kind: StateDisconnected},
		At:              m.now(),
	})
	m.messages = broker.NewBroker[ReceivedMessage](m.log)
	m.responses = broker.NewBroker[proto.ServiceResponse](m.log)

	m.client.OnConnect(m.handleConnected)
	m.client.OnDisconnect(m.handleDisconnected)
	m.client.OnMessage(m.handleMessage)
	m.client.OnServiceResponse(m.handleServiceResponse)
	m.client.OnError(m.handleError)
	return m
}

// Connect stores topics as the subscription set and starts connecting. It
// does not wait; watch Events for the outcome.
func (m *Manager) Connect(topics []proto.Topic) {
	m.mu.Lock()
	m.topics = append([]proto.Topic(nil), topics...)
	m.emit(ConnectionState{Kind: StateConnecting})
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"endpoint": m.client.Endpoint(), "topics": len(topics)}).Info("Connecting to rosbridge")
	m.client.Connect()
}

// Reconnect connects again with the current subscription set.
func (m *Manager) Reconnect() {
	m.Connect(m.Topics())
}

// Disconnect closes the link. ConnectionStatus turns false immediately,
// before the close is confirmed.
func (m *Manager) Disconnect() {
	m.status.Store(false)
	m.client.Disconnect()
}

func (m *Manager) SetEndpoint(uri string) {
	m.client.SetEndpoint(uri)
}

func (m *Manager) Endpoint() string {
	return m.client.Endpoint()
}

func (m *Manager) Publish(topic proto.Topic, payload proto.Payload) {
	m.client.Send(proto.NewPublish(topic, payload))
}

// Subscribe sends a subscribe frame and adds the topic to the set replayed
// on reconnect.
func (m *Manager) Subscribe(topic proto.Topic) {
	m.mu.Lock()
	replaced := false
	for i, t := range m.topics {
		if t.Name == topic.Name {
			m.topics[i] = topic
			replaced = true
			break
		}
	}
	if !replaced {
		m.topics = append(m.topics, topic)
	}
	m.mu.Unlock()

	m.client.Send(proto.NewSubscribe(topic))
}

// Unsubscribe sends an unsubscribe frame and drops the topic from the set.
func (m *Manager) Unsubscribe(name string) {
	m.mu.Lock()
	for i, t := range m.topics {
		if t.Name == name {
			m.topics = append(m.topics[:i:i], m.topics[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.client.Send(proto.Unsubscribe{Topic: name})
}

func (m *Manager) CallService(service, serviceType string, args any) error {
	return m.CallServiceWithID("", service, serviceType, args)
}

// CallServiceWithID sends a call_service frame carrying id, which the server
// echoes on the matching service_response.
func (m *Manager) CallServiceWithID(id, service, serviceType string, args any) error {
	cs, err := proto.NewCallService(service, serviceType, args)
	if err != nil {
		return err
	}
	cs.ID = id
	m.client.Send(cs)
	return nil
}

// IsConnected asks the transport directly.
func (m *Manager) IsConnected() bool {
	return m.client.IsConnected()
}

// ConnectionStatus is true only while Connected.
func (m *Manager) ConnectionStatus() bool {
	return m.status.Load()
}

func (m *Manager) Topics() []proto.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]proto.Topic(nil), m.topics...)
}

func (m *Manager) State() ConnectionState {
	return m.events.Get().ConnectionState
}

func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Events subscribes to connection events. The channel starts with the
// current state and always converges on the newest one.
func (m *Manager) Events() *broker.Subscription[ConnectionEvent] {
	return m.events.Subscribe()
}

// Messages subscribes to every inbound publish from now on.
func (m *Manager) Messages(buffer int) *broker.Subscription[ReceivedMessage] {
	if buffer <= 0 {
		buffer = m.messageBuffer
	}
	return m.messages.Subscribe(buffer)
}

func (m *Manager) ServiceResponses(buffer int) *broker.Subscription[proto.ServiceResponse] {
	if buffer <= 0 {
		buffer = m.messageBuffer
	}
	return m.responses.Subscribe(buffer)
}

// DroppedMessages counts inbound messages lost to slow subscribers.
func (m *Manager) DroppedMessages() int64 {
	return m.messages.Dropped()
}

// Close disconnects and closes every stream.
func (m *Manager) Close() {
	m.Disconnect()
	m.events.Close()
	m.messages.Close()
	m.responses.Close()
}

func (m *Manager) emit(state ConnectionState) {
	m.events.Set(ConnectionEvent{ConnectionState: state, At: m.now()})
}

func (m *Manager) handleConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.Store(true)
	m.emit(ConnectionState{Kind: StateConnected})
	m.log.WithField("endpoint", m.client.Endpoint()).Info("Connected to rosbridge")

	for _, t := range m.topics {
		m.log.WithFields(logrus.Fields{"topic": t.Name, "type": t.MessageType}).Debug("Subscribing")
		m.client.Send(proto.NewSubscribe(t))
	}
}

func (m *Manager) handleDisconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.Store(false)
	m.emit(ConnectionState{Kind: StateDisconnected})
	m.log.Info("Disconnected from rosbridge")
}

func (m *Manager) handleMessage(ev proto.PublishEvent) {
	m.messages.Publish(ReceivedMessage{Event: ev, ReceivedAt: m.now()})
}

func (m *Manager) handleServiceResponse(resp proto.ServiceResponse) {
	m.responses.Publish(resp)
}

func (m *Manager) handleError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := err.Error()
	m.lastError = msg
	m.emit(ConnectionState{Kind: StateError, Message: msg})
	if m.status.Load() {
		m.status.Store(false)
	}
	m.log.WithError(err).Warn("Bridge error")
}
