package services

import (
	"context"

	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/broker"
	"github.com/mbocsi/rosteleop/proto"
	"github.com/mbocsi/rosteleop/teleop"
)

// Bridge is the part of *bridge.Manager the services use.
type Bridge interface {
	Connect(topics []proto.Topic)
	Reconnect()
	Disconnect()
	SetEndpoint(uri string)
	Endpoint() string

	Publish(topic proto.Topic, payload proto.Payload)
	Subscribe(topic proto.Topic)
	Unsubscribe(name string)
	CallServiceWithID(id, service, serviceType string, args any) error

	IsConnected() bool
	ConnectionStatus() bool
	State() bridge.ConnectionState
	LastError() string
	Topics() []proto.Topic
	DroppedMessages() int64
	ServiceResponses(buffer int) *broker.Subscription[proto.ServiceResponse]
}

// MessagingService handles raw publish, subscription and service calls
type MessagingService interface {
	Publish(req PublishRequest) error
	Subscribe(req SubscribeRequest) error
	Unsubscribe(topic string) error

	// Blocks until the matching service_response arrives or the call times out
	CallService(ctx context.Context, req CallRequest) (*CallResult, error)
}

// StatusService reports connection state and drives connect/disconnect
type StatusService interface {
	GetStatus() StatusInfo
	Connect(endpoint string) error
	Disconnect()
}

// TeleopService handles operator commands and robot feedback
type TeleopService interface {
	SendDPad(direction string) error
	SetAngle(deg float64) error
	Joystick(x, y float64) (proto.Twist, error)
	SendGoal(x, y float64) error
	SendText(text string) error

	Pose() (teleop.Position, bool)
	Messages(limit int) []MessageInfo
	ClearMessages()
}

// ServiceContainer holds all service implementations
type ServiceContainer struct {
	Messaging MessagingService
	Status    StatusService
	Teleop    TeleopService
}
