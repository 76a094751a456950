package ui

import (
	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/teleop"
)

type EventMsg bridge.ConnectionEvent
type MessageMsg bridge.ReceivedMessage
type PoseMsg teleop.Position

// FeedbackMsg is the outcome of an operator action, shown under the panels
type FeedbackMsg struct {
	Text string
	Err  error
}

type streamClosedMsg struct{}
