package services

import (
	"errors"

	"github.com/mbocsi/rosteleop/proto"
	"github.com/mbocsi/rosteleop/teleop"
)

// TeleopServiceImpl implements TeleopService
type TeleopServiceImpl struct {
	bridge     Bridge
	controller *teleop.Controller
	pose       *teleop.PoseTracker
	history    *teleop.History
}

func NewTeleopService(b Bridge, controller *teleop.Controller, pose *teleop.PoseTracker, history *teleop.History) *TeleopServiceImpl {
	return &TeleopServiceImpl{
		bridge:     b,
		controller: controller,
		pose:       pose,
		history:    history,
	}
}

func (ts *TeleopServiceImpl) SendDPad(direction string) error {
	dir, err := teleop.ParseDirection(direction)
	if err != nil {
		return ServiceError{Code: ErrCodeInvalidInput, Message: "Invalid direction", Cause: err}
	}
	if !ts.bridge.IsConnected() {
		return notConnected()
	}
	return ts.controller.PublishDPad(dir)
}

func (ts *TeleopServiceImpl) SetAngle(deg float64) error {
	if !ts.bridge.IsConnected() {
		return notConnected()
	}
	if err := ts.controller.PublishAngle(deg); err != nil {
		if errors.Is(err, teleop.ErrInvalidAngle) {
			return ServiceError{Code: ErrCodeInvalidInput, Message: "Invalid angle", Cause: err}
		}
		return err
	}
	return nil
}

func (ts *TeleopServiceImpl) Joystick(x, y float64) (proto.Twist, error) {
	if !ts.bridge.IsConnected() {
		return proto.Twist{}, notConnected()
	}
	return ts.controller.PublishJoystick(x, y), nil
}

func (ts *TeleopServiceImpl) SendGoal(x, y float64) error {
	if !ts.bridge.IsConnected() {
		return notConnected()
	}
	ts.controller.PublishGoal(x, y)
	return nil
}

func (ts *TeleopServiceImpl) SendText(text string) error {
	if !ts.bridge.IsConnected() {
		return notConnected()
	}
	ts.controller.PublishText(text)
	return nil
}

func (ts *TeleopServiceImpl) Pose() (teleop.Position, bool) {
	return ts.pose.Current()
}

// Messages returns up to limit of the newest received messages, oldest
// first. A non-positive limit returns all of them.
func (ts *TeleopServiceImpl) Messages(limit int) []MessageInfo {
	entries := ts.history.Last(limit)
	out := make([]MessageInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, MessageInfo{
			Topic:      e.Event.Topic,
			Type:       e.Event.Type,
			Msg:        e.Event.Msg,
			ReceivedAt: e.ReceivedAtMillis(),
		})
	}
	return out
}

func (ts *TeleopServiceImpl) ClearMessages() {
	ts.history.Clear()
}
