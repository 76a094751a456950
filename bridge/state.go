package bridge

import (
	"time"

	"github.com/mbocsi/rosteleop/proto"
)

type StateKind int

const (
	StateDisconnected StateKind = iota
	StateConnecting
	StateConnected
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (k StateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ConnectionState is the application-level view of the link. Message is set
// only for StateError.
type ConnectionState struct {
	Kind    StateKind `json:"state"`
	Message string    `json:"message,omitempty"`
}

func (s ConnectionState) String() string {
	if s.Kind == StateError && s.Message != "" {
		return "error: " + s.Message
	}
	return s.Kind.String()
}

// ConnectionEvent is one transition of the connection state.
type ConnectionEvent struct {
	ConnectionState
	At time.Time `json:"at"`
}

// ReceivedMessage is an inbound publish stamped with its arrival time.
type ReceivedMessage struct {
	Event      proto.PublishEvent `json:"event"`
	ReceivedAt time.Time          `json:"received_at"`
}

func (m ReceivedMessage) ReceivedAtMillis() int64 {
	return m.ReceivedAt.UnixMilli()
}
