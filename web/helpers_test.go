package web

import (
	"encoding/json"

	"github.com/mbocsi/rosteleop/proto"
)

func bridgeEvent(topic, msg string) proto.PublishEvent {
	return proto.PublishEvent{Topic: topic, Msg: json.RawMessage(msg)}
}
