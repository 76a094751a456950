package services

import (
	"strings"

	"github.com/mbocsi/rosteleop/proto"
)

// validateTopic validates topic name
func validateTopic(topic string) error {
	if topic == "" {
		return ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: "Topic cannot be empty",
		}
	}
	if !strings.HasPrefix(topic, "/") {
		return ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: "Topic must start with '/': " + topic,
		}
	}
	return nil
}

func parseType(t string) (proto.MessageType, error) {
	mt, err := proto.ParseMessageType(t)
	if err != nil {
		return "", ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: "Invalid message type",
			Cause:   err,
		}
	}
	return mt, nil
}

// decodePayload turns a JSON msg into the payload variant for t. Custom
// types pass through untouched.
func decodePayload(t proto.MessageType, msg []byte) (proto.Payload, error) {
	if t == proto.TypeCustom {
		if len(msg) == 0 {
			return proto.Raw(`{}`), nil
		}
		return proto.Raw(msg), nil
	}
	payload, ok := proto.DecodeByType(t, msg)
	if !ok {
		return nil, ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: "Message does not match type " + string(t),
		}
	}
	return payload, nil
}

func notConnected() error {
	return ServiceError{
		Code:    ErrCodeNotConnected,
		Message: "Not connected to rosbridge",
	}
}

func topicOf(name string, t proto.MessageType) proto.Topic {
	return proto.Topic{Name: name, MessageType: t}
}
