package teleop

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mbocsi/rosteleop/config"
	"github.com/mbocsi/rosteleop/proto"
	"github.com/sirupsen/logrus"
)

var ErrInvalidAngle = errors.New("angle must be between 0 and 360 degrees")

// Direction is a D-pad key, sent as the single character the robot expects.
type Direction string

const (
	DirUp     Direction = "w"
	DirDown   Direction = "s"
	DirLeft   Direction = "a"
	DirRight  Direction = "d"
	DirCenter Direction = "c"
)

// ParseDirection accepts a key character or a direction name.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "up":
		return DirUp, nil
	case "s", "down":
		return DirDown, nil
	case "a", "left":
		return DirLeft, nil
	case "d", "right":
		return DirRight, nil
	case "c", "center", "stop":
		return DirCenter, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Publisher is satisfied by *bridge.Manager.
type Publisher interface {
	Publish(topic proto.Topic, payload proto.Payload)
}

// Controller turns operator input into commands on the robot's topics.
type Controller struct {
	pub Publisher
	cfg config.TeleopConfig
	log logrus.FieldLogger
}

func NewController(pub Publisher, cfg config.TeleopConfig, logger logrus.FieldLogger) *Controller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{pub: pub, cfg: cfg, log: logger.WithField("component", "teleop")}
}

func (c *Controller) PublishDPad(d Direction) error {
	key, err := ParseDirection(string(d))
	if err != nil {
		return err
	}
	c.log.WithField("key", string(key)).Debug("D-pad")
	c.pub.Publish(proto.Topic{Name: c.cfg.KeysTopic, MessageType: proto.TypeString}, proto.String{Data: string(key)})
	return nil
}

func (c *Controller) PublishAngle(deg float64) error {
	if math.IsNaN(deg) || deg < 0 || deg > 360 {
		return fmt.Errorf("%w: got %v", ErrInvalidAngle, deg)
	}
	c.pub.Publish(proto.Topic{Name: c.cfg.AngleTopic, MessageType: proto.TypeFloat32}, proto.Float32{Data: float32(deg)})
	return nil
}

// PublishJoystick sends a velocity command for a stick position. x and y are
// clamped to [-1, 1]; pushing the stick up (negative y) drives forward.
func (c *Controller) PublishJoystick(x, y float64) proto.Twist {
	x, y = clamp(x), clamp(y)
	twist := proto.Twist{
		Linear:  proto.Vector3{X: -y * c.cfg.MaxLinear},
		Angular: proto.Vector3{Z: -x * c.cfg.MaxAngular},
	}
	c.pub.Publish(proto.Topic{Name: c.cfg.CmdVelTopic, MessageType: proto.TypeTwist}, twist)
	return twist
}

// PublishGoal sends a navigation target in arena coordinates.
func (c *Controller) PublishGoal(x, y float64) {
	c.log.WithFields(logrus.Fields{"x": x, "y": y}).Info("Goal")
	c.pub.Publish(proto.Topic{Name: c.cfg.GoalTopic, MessageType: proto.TypePose2D}, proto.Pose2D{X: x, Y: y})
}

func (c *Controller) PublishText(s string) {
	c.pub.Publish(proto.Topic{Name: c.cfg.TextTopic, MessageType: proto.TypeString}, proto.String{Data: s})
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
