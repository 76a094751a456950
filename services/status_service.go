package services

import (
	"github.com/mbocsi/rosteleop/client"
	"github.com/mbocsi/rosteleop/teleop"
	"github.com/sirupsen/logrus"
)

// StatusServiceImpl implements StatusService
type StatusServiceImpl struct {
	bridge  Bridge
	pose    *teleop.PoseTracker
	history *teleop.History
	log     logrus.FieldLogger
}

func NewStatusService(b Bridge, pose *teleop.PoseTracker, history *teleop.History, logger logrus.FieldLogger) *StatusServiceImpl {
	return &StatusServiceImpl{
		bridge:  b,
		pose:    pose,
		history: history,
		log:     logger.WithField("service", "status"),
	}
}

func (ss *StatusServiceImpl) GetStatus() StatusInfo {
	info := StatusInfo{
		State:         ss.bridge.State().Kind.String(),
		Connected:     ss.bridge.ConnectionStatus(),
		TransportOpen: ss.bridge.IsConnected(),
		LastError:     ss.bridge.LastError(),
		Endpoint:      ss.bridge.Endpoint(),
		Topics:        ss.bridge.Topics(),
		Dropped:       ss.bridge.DroppedMessages(),
	}
	if ss.pose != nil {
		if pos, ok := ss.pose.Current(); ok {
			info.Pose = &pos
		}
	}
	if ss.history != nil {
		info.HistoryLen = ss.history.Len()
	}
	return info
}

// Connect reconnects with the current topic set, switching endpoint first
// when one is given.
func (ss *StatusServiceImpl) Connect(endpoint string) error {
	if endpoint != "" {
		if err := client.ValidateEndpoint(endpoint); err != nil {
			return ServiceError{
				Code:    ErrCodeInvalidInput,
				Message: "Invalid endpoint",
				Cause:   err,
			}
		}
		ss.bridge.SetEndpoint(endpoint)
	}
	ss.log.WithField("endpoint", ss.bridge.Endpoint()).Info("Connect requested")
	ss.bridge.Reconnect()
	return nil
}

func (ss *StatusServiceImpl) Disconnect() {
	ss.log.Info("Disconnect requested")
	ss.bridge.Disconnect()
}
