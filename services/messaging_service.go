package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// MessagingServiceImpl implements MessagingService
type MessagingServiceImpl struct {
	bridge      Bridge
	callTracker *CallTracker
	log         logrus.FieldLogger
}

// NewMessagingService creates a new messaging service
func NewMessagingService(b Bridge, tracker *CallTracker, logger logrus.FieldLogger) *MessagingServiceImpl {
	return &MessagingServiceImpl{
		bridge:      b,
		callTracker: tracker,
		log:         logger.WithField("service", "messaging"),
	}
}

// Publish validates the request and publishes it
func (ms *MessagingServiceImpl) Publish(req PublishRequest) error {
	if err := validateTopic(req.Topic); err != nil {
		return err
	}
	mt, err := parseType(req.Type)
	if err != nil {
		return err
	}
	payload, err := decodePayload(mt, req.Msg)
	if err != nil {
		return err
	}
	if !ms.bridge.IsConnected() {
		return notConnected()
	}

	ms.log.WithFields(logrus.Fields{"topic": req.Topic, "type": mt}).Debug("Publishing")
	ms.bridge.Publish(topicOf(req.Topic, mt), payload)
	return nil
}

// Subscribe adds the topic to the subscription set. When disconnected the
// topic is subscribed on the next connect.
func (ms *MessagingServiceImpl) Subscribe(req SubscribeRequest) error {
	if err := validateTopic(req.Topic); err != nil {
		return err
	}
	mt, err := parseType(req.Type)
	if err != nil {
		return err
	}
	ms.bridge.Subscribe(topicOf(req.Topic, mt))
	return nil
}

func (ms *MessagingServiceImpl) Unsubscribe(topic string) error {
	if err := validateTopic(topic); err != nil {
		return err
	}
	for _, t := range ms.bridge.Topics() {
		if t.Name == topic {
			ms.bridge.Unsubscribe(topic)
			return nil
		}
	}
	return ServiceError{
		Code:    ErrCodeNotFound,
		Message: "Not subscribed to " + topic,
	}
}

// CallService sends a call_service and waits for the correlated response
func (ms *MessagingServiceImpl) CallService(ctx context.Context, req CallRequest) (*CallResult, error) {
	if err := validateTopic(req.Service); err != nil {
		return nil, err
	}
	if req.Type == "" {
		return nil, ServiceError{Code: ErrCodeInvalidInput, Message: "Service type cannot be empty"}
	}
	if len(req.Args) > 0 && !json.Valid(req.Args) {
		return nil, ServiceError{Code: ErrCodeInvalidInput, Message: "Service args must be valid JSON"}
	}
	if !ms.bridge.IsConnected() {
		return nil, notConnected()
	}

	var args any
	if len(req.Args) > 0 {
		args = req.Args
	}
	send := func(id string) error {
		return ms.bridge.CallServiceWithID(id, req.Service, req.Type, args)
	}

	var timeout time.Duration
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	ms.log.WithField("service", req.Service).Debug("Calling service")
	resp, err := ms.callTracker.Call(ctx, req.Service, send, timeout)
	if err != nil {
		return nil, err
	}
	return &CallResult{
		ID:      resp.ID,
		Service: resp.Service,
		Result:  resp.Result,
		Values:  resp.Values,
	}, nil
}
