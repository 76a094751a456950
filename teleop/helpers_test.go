package teleop

import (
	"encoding/json"
	"sync"

	"github.com/mbocsi/rosteleop/proto"
)

func bridgeEvent(topic, msg string) proto.PublishEvent {
	return proto.PublishEvent{Topic: topic, Msg: json.RawMessage(msg)}
}

func poseOf(x, y, theta float64) proto.Pose2D {
	return proto.Pose2D{X: x, Y: y, Theta: theta}
}

type published struct {
	Topic   proto.Topic
	Payload proto.Payload
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (r *recordingPublisher) Publish(topic proto.Topic, payload proto.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, published{Topic: topic, Payload: payload})
}

func (r *recordingPublisher) last() published {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return published{}
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
