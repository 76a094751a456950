package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound is a frame received from the server: PublishEvent or
// ServiceResponse.
type Inbound interface {
	Op() string
	isInbound()
}

// PublishEvent is a topic update pushed by the server. Msg stays raw until a
// consumer that knows the topic decodes it.
type PublishEvent struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg"`
}

// ServiceResponse answers a call_service.
type ServiceResponse struct {
	ID      string          `json:"id,omitempty"`
	Service string          `json:"service"`
	Result  bool            `json:"result"`
	Values  json.RawMessage `json:"values,omitempty"`
}

func (PublishEvent) Op() string    { return OpPublish }
func (ServiceResponse) Op() string { return OpServiceResponse }

func (PublishEvent) isInbound()    {}
func (ServiceResponse) isInbound() {}

// ParseError reports a frame that is not valid JSON or lacks a required
// envelope field.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("message parsing error: %s: %v", e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("message parsing error: %v", e.Err)
	default:
		return "message parsing error: " + e.Reason
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownOpError reports a well-formed frame with an op this client does not
// handle.
type UnknownOpError struct {
	Op string
}

func (e *UnknownOpError) Error() string {
	return fmt.Sprintf("unknown operation: %q", e.Op)
}

type inboundWire struct {
	Op      *string         `json:"op"`
	ID      json.RawMessage `json:"id"`
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Msg     json.RawMessage `json:"msg"`
	Service string          `json:"service"`
	Values  json.RawMessage `json:"values"`
	Result  bool            `json:"result"`
}

// ParseInbound decodes one text frame. It returns *ParseError for malformed
// frames and *UnknownOpError for ops other than publish and service_response.
func ParseInbound(data []byte) (Inbound, error) {
	var w inboundWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ParseError{Err: err}
	}
	if w.Op == nil {
		return nil, &ParseError{Reason: "missing op field"}
	}

	switch *w.Op {
	case OpPublish:
		if w.Topic == "" {
			return nil, &ParseError{Reason: "publish frame missing topic"}
		}
		return PublishEvent{Topic: w.Topic, Type: w.Type, Msg: w.Msg}, nil
	case OpServiceResponse:
		if w.Service == "" {
			return nil, &ParseError{Reason: "service_response frame missing service"}
		}
		return ServiceResponse{ID: idString(w.ID), Service: w.Service, Result: w.Result, Values: w.Values}, nil
	default:
		return nil, &UnknownOpError{Op: *w.Op}
	}
}

// idString flattens the optional id, which servers may send as a string or
// a number.
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
