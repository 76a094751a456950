package teleop

import (
	"errors"
	"math"
	"testing"

	"github.com/mbocsi/rosteleop/config"
	"github.com/mbocsi/rosteleop/proto"
)

func newTestController() (*Controller, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewController(pub, config.DefaultTeleop(), quietLogger()), pub
}

func TestParseDirection(t *testing.T) {
	tests := map[string]Direction{
		"w":      DirUp,
		"UP":     DirUp,
		"s":      DirDown,
		"left":   DirLeft,
		"d":      DirRight,
		"center": DirCenter,
		" c ":    DirCenter,
	}
	for in, want := range tests {
		got, err := ParseDirection(in)
		if err != nil {
			t.Errorf("ParseDirection(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDirection(%q): expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseDirection("x"); err == nil {
		t.Error("Expected error for unknown direction")
	}
}

func TestController_PublishDPad(t *testing.T) {
	c, pub := newTestController()

	if err := c.PublishDPad(DirLeft); err != nil {
		t.Fatalf("PublishDPad failed: %v", err)
	}
	got := pub.last()
	if got.Topic != (proto.Topic{Name: "/remote_keys", MessageType: proto.TypeString}) {
		t.Errorf("Unexpected topic %+v", got.Topic)
	}
	if got.Payload != (proto.String{Data: "a"}) {
		t.Errorf("Expected String{a}, got %+v", got.Payload)
	}

	if err := c.PublishDPad(Direction("q")); err == nil {
		t.Error("Expected error for invalid direction")
	}
	if pub.count() != 1 {
		t.Errorf("Expected invalid direction not to publish, got %d frames", pub.count())
	}
}

func TestController_PublishDPadByName(t *testing.T) {
	c, pub := newTestController()

	if err := c.PublishDPad(Direction("up")); err != nil {
		t.Fatalf("PublishDPad failed: %v", err)
	}
	if got := pub.last().Payload; got != (proto.String{Data: "w"}) {
		t.Errorf("Expected String{w}, got %+v", got)
	}
}

func TestController_PublishAngle(t *testing.T) {
	c, pub := newTestController()

	for _, deg := range []float64{0, 90.5, 360} {
		if err := c.PublishAngle(deg); err != nil {
			t.Errorf("PublishAngle(%v) failed: %v", deg, err)
		}
	}
	got := pub.last()
	if got.Topic.Name != "/angle" || got.Payload != (proto.Float32{Data: 360}) {
		t.Errorf("Unexpected publish %+v", got)
	}

	for _, deg := range []float64{-1, 360.5, math.NaN()} {
		if err := c.PublishAngle(deg); !errors.Is(err, ErrInvalidAngle) {
			t.Errorf("PublishAngle(%v): expected ErrInvalidAngle, got %v", deg, err)
		}
	}
	if pub.count() != 3 {
		t.Errorf("Expected 3 published angles, got %d", pub.count())
	}
}

func TestController_PublishJoystick(t *testing.T) {
	c, pub := newTestController()

	twist := c.PublishJoystick(0.5, -1)
	if twist.Linear.X != 0.5 {
		t.Errorf("Expected linear.x 0.5 (stick up at full), got %v", twist.Linear.X)
	}
	if twist.Angular.Z != -0.5 {
		t.Errorf("Expected angular.z -0.5, got %v", twist.Angular.Z)
	}
	got := pub.last()
	if got.Topic != (proto.Topic{Name: "/cmd_vel", MessageType: proto.TypeTwist}) {
		t.Errorf("Unexpected topic %+v", got.Topic)
	}

	twist = c.PublishJoystick(-5, 5)
	if twist.Linear.X != -0.5 || twist.Angular.Z != 1 {
		t.Errorf("Expected clamped twist, got %+v", twist)
	}
}

func TestController_PublishGoalAndText(t *testing.T) {
	c, pub := newTestController()

	c.PublishGoal(1.25, -3)
	got := pub.last()
	if got.Topic.Name != "/goal_pose" || got.Payload != (proto.Pose2D{X: 1.25, Y: -3}) {
		t.Errorf("Unexpected goal publish %+v", got)
	}

	c.PublishText("hello robot")
	got = pub.last()
	if got.Topic != (proto.Topic{Name: "/android", MessageType: proto.TypeString}) || got.Payload != (proto.String{Data: "hello robot"}) {
		t.Errorf("Unexpected text publish %+v", got)
	}
}
