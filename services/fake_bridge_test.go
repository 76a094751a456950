package services

import (
	"io"
	"sync"

	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/broker"
	"github.com/mbocsi/rosteleop/proto"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type publishCall struct {
	Topic   proto.Topic
	Payload proto.Payload
}

type fakeBridge struct {
	mu         sync.Mutex
	connected  bool
	endpoint   string
	topics     []proto.Topic
	published  []publishCall
	calls      []proto.CallService
	reconnects int
	state      bridge.ConnectionState
	lastError  string
	responses  *broker.Broker[proto.ServiceResponse]
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		endpoint:  "ws://test:9090",
		state:     bridge.ConnectionState{Kind: bridge.StateDisconnected},
		responses: broker.NewBroker[proto.ServiceResponse](quietLogger()),
	}
}

func (f *fakeBridge) Connect(topics []proto.Topic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = topics
	f.reconnects++
}

func (f *fakeBridge) Reconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
}

func (f *fakeBridge) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeBridge) SetEndpoint(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoint = uri
}

func (f *fakeBridge) Endpoint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoint
}

func (f *fakeBridge) Publish(topic proto.Topic, payload proto.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishCall{topic, payload})
}

func (f *fakeBridge) Subscribe(topic proto.Topic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
}

func (f *fakeBridge) Unsubscribe(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.topics {
		if t.Name == name {
			f.topics = append(f.topics[:i], f.topics[i+1:]...)
			return
		}
	}
}

func (f *fakeBridge) CallServiceWithID(id, service, serviceType string, args any) error {
	cs, err := proto.NewCallService(service, serviceType, args)
	if err != nil {
		return err
	}
	cs.ID = id
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cs)
	return nil
}

func (f *fakeBridge) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBridge) ConnectionStatus() bool { return f.IsConnected() }

func (f *fakeBridge) State() bridge.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeBridge) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

func (f *fakeBridge) Topics() []proto.Topic {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]proto.Topic(nil), f.topics...)
}

func (f *fakeBridge) DroppedMessages() int64 { return 0 }

func (f *fakeBridge) ServiceResponses(buffer int) *broker.Subscription[proto.ServiceResponse] {
	if buffer <= 0 {
		buffer = 8
	}
	return f.responses.Subscribe(buffer)
}

func (f *fakeBridge) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
	if v {
		f.state = bridge.ConnectionState{Kind: bridge.StateConnected}
	}
}

func (f *fakeBridge) lastPublished() publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return publishCall{}
	}
	return f.published[len(f.published)-1]
}

func (f *fakeBridge) sentCalls() []proto.CallService {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]proto.CallService(nil), f.calls...)
}
