package proto

import (
	"encoding/json"
	"fmt"
)

// Operation discriminators used in the "op" field of every frame.
const (
	OpSubscribe       = "subscribe"
	OpUnsubscribe     = "unsubscribe"
	OpPublish         = "publish"
	OpCallService     = "call_service"
	OpServiceResponse = "service_response"
)

// MessageType is the ROS type string sent with subscribe and publish frames.
// The bridge never interprets it beyond passing it through.
type MessageType string

const (
	TypeString  MessageType = "std_msgs/String"
	TypeInt32   MessageType = "std_msgs/Int32"
	TypeBool    MessageType = "std_msgs/Bool"
	TypeFloat32 MessageType = "std_msgs/Float32"
	TypeFloat64 MessageType = "std_msgs/Float64"
	TypeTwist   MessageType = "geometry_msgs/Twist"
	TypePose2D  MessageType = "geometry_msgs/Pose2D"
	TypeImage   MessageType = "sensor_msgs/Image"
	TypeCustom  MessageType = "custom"
)

var knownTypes = map[MessageType]struct{}{
	TypeString:  {},
	TypeInt32:   {},
	TypeBool:    {},
	TypeFloat32: {},
	TypeFloat64: {},
	TypeTwist:   {},
	TypePose2D:  {},
	TypeImage:   {},
	TypeCustom:  {},
}

// ParseMessageType maps a type string onto one of the known tags.
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(s)
	if _, ok := knownTypes[t]; !ok {
		return "", fmt.Errorf("unknown message type %q", s)
	}
	return t, nil
}

func (t MessageType) String() string {
	return string(t)
}

// Topic identifies a named channel and the wire type expected on it.
type Topic struct {
	Name        string      `json:"name" yaml:"name"`
	MessageType MessageType `json:"type" yaml:"type"`
}

// Outbound is one of Subscribe, Unsubscribe, Publish or CallService. The op
// written on the wire is fixed by the variant.
type Outbound interface {
	Op() string
	json.Marshaler
	isOutbound()
}

type Subscribe struct {
	Topic        string
	Type         MessageType
	ThrottleRate int // ms between messages, 0 = server default
	QueueLength  int
}

type Unsubscribe struct {
	Topic string
}

type Publish struct {
	Topic string
	Type  MessageType
	Msg   Payload
}

type CallService struct {
	ID      string // optional, echoed back on the service_response
	Service string
	Type    string
	Args    json.RawMessage
}

func (Subscribe) Op() string   { return OpSubscribe }
func (Unsubscribe) Op() string { return OpUnsubscribe }
func (Publish) Op() string     { return OpPublish }
func (CallService) Op() string { return OpCallService }

func (Subscribe) isOutbound()   {}
func (Unsubscribe) isOutbound() {}
func (Publish) isOutbound()     {}
func (CallService) isOutbound() {}

type subscribeWire struct {
	Op           string      `json:"op"`
	Topic        string      `json:"topic"`
	Type         MessageType `json:"type"`
	ThrottleRate int         `json:"throttle_rate,omitempty"`
	QueueLength  int         `json:"queue_length,omitempty"`
}

type unsubscribeWire struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
}

type publishWire struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Type  MessageType     `json:"type"`
	Msg   json.RawMessage `json:"msg"`
}

type callServiceWire struct {
	Op      string          `json:"op"`
	ID      string          `json:"id,omitempty"`
	Service string          `json:"service"`
	Type    string          `json:"type"`
	Args    json.RawMessage `json:"args,omitempty"`
}

func (s Subscribe) MarshalJSON() ([]byte, error) {
	return json.Marshal(subscribeWire{
		Op:           OpSubscribe,
		Topic:        s.Topic,
		Type:         s.Type,
		ThrottleRate: s.ThrottleRate,
		QueueLength:  s.QueueLength,
	})
}

func (u Unsubscribe) MarshalJSON() ([]byte, error) {
	return json.Marshal(unsubscribeWire{Op: OpUnsubscribe, Topic: u.Topic})
}

func (p Publish) MarshalJSON() ([]byte, error) {
	msg := json.RawMessage(`{}`)
	if p.Msg != nil {
		data, err := json.Marshal(p.Msg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", p.Type, err)
		}
		msg = data
	}
	return json.Marshal(publishWire{Op: OpPublish, Topic: p.Topic, Type: p.Type, Msg: msg})
}

func (c CallService) MarshalJSON() ([]byte, error) {
	return json.Marshal(callServiceWire{
		Op:      OpCallService,
		ID:      c.ID,
		Service: c.Service,
		Type:    c.Type,
		Args:    c.Args,
	})
}

// NewSubscribe builds the subscribe envelope for a topic.
func NewSubscribe(t Topic) Subscribe {
	return Subscribe{Topic: t.Name, Type: t.MessageType}
}

// NewPublish builds the publish envelope for a topic. The payload is not
// checked against the topic's declared type.
func NewPublish(t Topic, msg Payload) Publish {
	return Publish{Topic: t.Name, Type: t.MessageType, Msg: msg}
}

// NewCallService builds a call_service envelope, marshalling args when given.
func NewCallService(service, serviceType string, args any) (CallService, error) {
	cs := CallService{Service: service, Type: serviceType}
	if args == nil {
		return cs, nil
	}
	if raw, ok := args.(json.RawMessage); ok {
		cs.Args = raw
		return cs, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return CallService{}, fmt.Errorf("failed to marshal service args: %w", err)
	}
	cs.Args = data
	return cs, nil
}

// DecodeOutbound parses a frame produced by one of the Outbound variants.
// Publish payloads are decoded by their type tag; unknown tags or shapes
// that do not match come back as Raw.
func DecodeOutbound(data []byte) (Outbound, error) {
	var head struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &ParseError{Err: err}
	}

	switch head.Op {
	case OpSubscribe:
		var w subscribeWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &ParseError{Err: err}
		}
		return Subscribe{Topic: w.Topic, Type: w.Type, ThrottleRate: w.ThrottleRate, QueueLength: w.QueueLength}, nil
	case OpUnsubscribe:
		var w unsubscribeWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &ParseError{Err: err}
		}
		return Unsubscribe{Topic: w.Topic}, nil
	case OpPublish:
		var w publishWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &ParseError{Err: err}
		}
		msg, ok := DecodeByType(w.Type, w.Msg)
		if !ok {
			msg = Raw(w.Msg)
		}
		return Publish{Topic: w.Topic, Type: w.Type, Msg: msg}, nil
	case OpCallService:
		var w callServiceWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &ParseError{Err: err}
		}
		return CallService{ID: w.ID, Service: w.Service, Type: w.Type, Args: w.Args}, nil
	case "":
		return nil, &ParseError{Reason: "missing op field"}
	default:
		return nil, &UnknownOpError{Op: head.Op}
	}
}
