package client

import "errors"

// ErrClosed is returned by Transport.Read once the connection has been closed
// cleanly, either locally or by a normal close frame from the peer.
var ErrClosed = errors.New("transport closed")

// Transport moves whole text frames. Write may be called concurrently with
// Read; Close may be called from any goroutine and unblocks a pending Read.
type Transport interface {
	Connect(addr string) error
	Write(data []byte) error
	Read() ([]byte, error) // for one-at-a-time processing
	Close() error
}
