package teleop

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/broker"
	"github.com/mbocsi/rosteleop/proto"
	"github.com/sirupsen/logrus"
)

// Position is a robot pose for display, with the heading in degrees.
type Position struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ThetaDeg float64 `json:"theta_deg"`
}

func FromPose2D(p proto.Pose2D) Position {
	return Position{X: p.X, Y: p.Y, ThetaDeg: p.Theta * 180 / math.Pi}
}

// PoseTracker follows the pose topic and keeps the latest decoded position.
type PoseTracker struct {
	topic  string
	latest *broker.Latest[Position]
	seen   atomic.Bool
	log    logrus.FieldLogger
}

func NewPoseTracker(topic string, logger logrus.FieldLogger) *PoseTracker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PoseTracker{
		topic:  topic,
		latest: broker.NewLatest(Position{}),
		log:    logger.WithField("component", "pose"),
	}
}

func (p *PoseTracker) Topic() string {
	return p.topic
}

// Handle applies one received message. It returns false for other topics and
// for payloads that are not a Pose2D.
func (p *PoseTracker) Handle(msg bridge.ReceivedMessage) bool {
	if msg.Event.Topic != p.topic {
		return false
	}
	pose, ok := proto.DecodePose2D(msg.Event.Msg)
	if !ok {
		p.log.WithField("topic", p.topic).Debug("Ignoring pose with unexpected shape")
		return false
	}
	p.seen.Store(true)
	p.latest.Set(FromPose2D(pose))
	return true
}

// Run consumes sub until ctx is done or the subscription closes.
func (p *PoseTracker) Run(ctx context.Context, sub *broker.Subscription[bridge.ReceivedMessage]) {
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			p.Handle(msg)
		}
	}
}

// Current returns the last position and whether one has been received.
func (p *PoseTracker) Current() (Position, bool) {
	return p.latest.Get(), p.seen.Load()
}

// Subscribe streams position updates, starting with the current one.
func (p *PoseTracker) Subscribe() *broker.Subscription[Position] {
	return p.latest.Subscribe()
}
