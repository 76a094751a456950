package services

import (
	"encoding/json"

	"github.com/mbocsi/rosteleop/proto"
	"github.com/mbocsi/rosteleop/teleop"
)

// PublishRequest is a publish described in JSON terms. Type selects the
// payload shape that Msg must match.
type PublishRequest struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Msg   json.RawMessage `json:"msg"`
}

type SubscribeRequest struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

// CallRequest describes a service call. TimeoutMs of zero uses the default.
type CallRequest struct {
	Service   string          `json:"service"`
	Type      string          `json:"type"`
	Args      json.RawMessage `json:"args,omitempty"`
	TimeoutMs int             `json:"timeout_ms,omitempty"`
}

type CallResult struct {
	ID      string          `json:"id"`
	Service string          `json:"service"`
	Result  bool            `json:"result"`
	Values  json.RawMessage `json:"values,omitempty"`
}

// MessageInfo is a received message for the API layer
type MessageInfo struct {
	Topic      string          `json:"topic"`
	Type       string          `json:"type,omitempty"`
	Msg        json.RawMessage `json:"msg"`
	ReceivedAt int64           `json:"received_at_ms"`
}

// StatusInfo is a point-in-time view of the bridge
type StatusInfo struct {
	State         string           `json:"state"`
	Connected     bool             `json:"connected"`
	TransportOpen bool             `json:"transport_open"`
	LastError     string           `json:"last_error,omitempty"`
	Endpoint      string           `json:"endpoint"`
	Topics        []proto.Topic    `json:"topics"`
	Pose          *teleop.Position `json:"pose,omitempty"`
	HistoryLen    int              `json:"history_len"`
	Dropped       int64            `json:"dropped"`
}

// ServiceError represents structured service layer errors
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"cause,omitempty"`
}

func (e ServiceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e ServiceError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeNotConnected = "NOT_CONNECTED"
)
