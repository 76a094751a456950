// Package rosbridgetest provides an in-memory Transport and an in-process
// rosbridge WebSocket server for exercising the client stack in tests.
package rosbridgetest

import (
	"errors"
	"sync"
	"time"

	"github.com/mbocsi/rosteleop/client"
)

// Transport is a scripted client.Transport. Frames written by the client
// land on Written; frames passed to Inject are returned from Read.
type Transport struct {
	Addr       string
	ConnectErr error
	Written    chan []byte

	inbound   chan []byte
	dropped   chan error
	closed    chan struct{}
	closeOnce sync.Once
	connected chan struct{}
}

func NewTransport() *Transport {
	return &Transport{
		Written:   make(chan []byte, 64),
		inbound:   make(chan []byte, 64),
		dropped:   make(chan error, 1),
		closed:    make(chan struct{}),
		connected: make(chan struct{}),
	}
}

func (t *Transport) Connect(addr string) error {
	t.Addr = addr
	if t.ConnectErr != nil {
		return t.ConnectErr
	}
	select {
	case <-t.closed:
		return client.ErrClosed
	default:
	}
	close(t.connected)
	return nil
}

func (t *Transport) Write(data []byte) error {
	select {
	case <-t.closed:
		return client.ErrClosed
	default:
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	t.Written <- frame
	return nil
}

func (t *Transport) Read() ([]byte, error) {
	select {
	case data := <-t.inbound:
		return data, nil
	case err := <-t.dropped:
		return nil, err
	case <-t.closed:
		return nil, client.ErrClosed
	}
}

func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// Inject queues a raw text frame as if the server had sent it.
func (t *Transport) Inject(frame string) {
	t.inbound <- []byte(frame)
}

// Drop makes the pending Read fail with err, simulating a lost connection.
// A nil err simulates a clean close from the server.
func (t *Transport) Drop(err error) {
	if err == nil {
		err = client.ErrClosed
	}
	t.dropped <- err
}

// IsClosed reports whether Close has been called.
func (t *Transport) IsClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// WaitConnected blocks until Connect succeeds or the timeout passes.
func (t *Transport) WaitConnected(timeout time.Duration) bool {
	select {
	case <-t.connected:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Next returns the next written frame, or an error after timeout.
func (t *Transport) Next(timeout time.Duration) ([]byte, error) {
	select {
	case data := <-t.Written:
		return data, nil
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for outbound frame")
	}
}

// Dialer hands out a fresh Transport on every call to New and remembers
// them in order.
type Dialer struct {
	// ConnectErr, if set, is copied onto every new Transport.
	ConnectErr error

	mu         sync.Mutex
	transports []*Transport
	created    chan *Transport
}

func NewDialer() *Dialer {
	return &Dialer{created: make(chan *Transport, 64)}
}

func (d *Dialer) New() client.Transport {
	t := NewTransport()
	d.mu.Lock()
	t.ConnectErr = d.ConnectErr
	d.transports = append(d.transports, t)
	d.mu.Unlock()
	d.created <- t
	return t
}

// Count returns how many transports have been created.
func (d *Dialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

// Last returns the most recently created transport, or nil.
func (d *Dialer) Last() *Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

// Await returns the next transport created after the previous Await.
func (d *Dialer) Await(timeout time.Duration) (*Transport, error) {
	select {
	case t := <-d.created:
		return t, nil
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for a transport")
	}
}
