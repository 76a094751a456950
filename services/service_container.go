package services

import (
	"context"
	"time"

	"github.com/mbocsi/rosteleop/teleop"
	"github.com/sirupsen/logrus"
)

// ServiceManagerImpl wires the services to one bridge
type ServiceManagerImpl struct {
	bridge      Bridge
	callTracker *CallTracker

	services *ServiceContainer
}

// NewServiceManager creates a new service manager
func NewServiceManager(
	b Bridge,
	controller *teleop.Controller,
	pose *teleop.PoseTracker,
	history *teleop.History,
	callTimeout time.Duration,
	logger logrus.FieldLogger,
) *ServiceManagerImpl {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	tracker := NewCallTracker(callTimeout)

	sm := &ServiceManagerImpl{
		bridge:      b,
		callTracker: tracker,
	}

	sm.services = &ServiceContainer{
		Messaging: NewMessagingService(b, tracker, logger),
		Status:    NewStatusService(b, pose, history, logger),
		Teleop:    NewTeleopService(b, controller, pose, history),
	}

	return sm
}

// GetServices returns the service container
func (sm *ServiceManagerImpl) GetServices() *ServiceContainer {
	return sm.services
}

// Run routes service responses to waiting calls until ctx is done
func (sm *ServiceManagerImpl) Run(ctx context.Context) {
	sm.callTracker.Run(ctx, sm.bridge.ServiceResponses(0))
}
