package app

import (
	"context"
	"sync"
	"time"

	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/client"
	"github.com/mbocsi/rosteleop/config"
	"github.com/mbocsi/rosteleop/proto"
	"github.com/mbocsi/rosteleop/services"
	"github.com/mbocsi/rosteleop/teleop"
	"github.com/sirupsen/logrus"
)

// Frontend is an operator surface that runs until ctx is done
type Frontend interface {
	Run(ctx context.Context) error
}

type FrontendFunc func(ctx context.Context) error

func (f FrontendFunc) Run(ctx context.Context) error { return f(ctx) }

// App owns the bridge and everything fed from it
type App struct {
	Config     config.Config
	Bridge     *bridge.Manager
	Pose       *teleop.PoseTracker
	History    *teleop.History
	Controller *teleop.Controller
	Services   *services.ServiceManagerImpl

	Frontends []Frontend

	log logrus.FieldLogger
	wg  sync.WaitGroup
}

// New builds the application from cfg. Extra bridge options are applied
// after the ones derived from cfg.
func New(cfg config.Config, logger logrus.FieldLogger, opts ...bridge.Option) *App {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	bridgeOpts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithMessageBuffer(cfg.Buffers.Messages),
		bridge.WithClientOptions(client.WithOutboxSize(cfg.Buffers.Outbox)),
	}
	manager := bridge.NewManager(cfg.Endpoint, append(bridgeOpts, opts...)...)

	pose := teleop.NewPoseTracker(cfg.Teleop.PoseTopic, logger)
	history := teleop.NewHistory(cfg.Buffers.History)
	controller := teleop.NewController(manager, cfg.Teleop, logger)

	return &App{
		Config:     cfg,
		Bridge:     manager,
		Pose:       pose,
		History:    history,
		Controller: controller,
		Services:   services.NewServiceManager(manager, controller, pose, history, cfg.ServiceTimeout(), logger),
		log:        logger.WithField("component", "app"),
	}
}

func (a *App) RegisterFrontend(f Frontend) {
	a.Frontends = append(a.Frontends, f)
}

// Topics returns the configured topics, with the pose topic added when it
// is missing.
func (a *App) Topics() []proto.Topic {
	topics := append([]proto.Topic(nil), a.Config.Topics...)
	if a.Config.Teleop.PoseTopic != "" && !a.Config.HasTopic(a.Config.Teleop.PoseTopic) {
		topics = append(topics, proto.Topic{Name: a.Config.Teleop.PoseTopic, MessageType: proto.TypePose2D})
	}
	return topics
}

// Start launches the stream consumers and begins connecting. It does not
// block.
func (a *App) Start(ctx context.Context) {
	poseSub := a.Bridge.Messages(0)
	historySub := a.Bridge.Messages(0)

	a.wg.Add(3)
	go func() {
		defer a.wg.Done()
		a.Pose.Run(ctx, poseSub)
	}()
	go func() {
		defer a.wg.Done()
		a.History.Run(ctx, historySub)
	}()
	go func() {
		defer a.wg.Done()
		a.Services.Run(ctx)
	}()

	a.Bridge.Connect(a.Topics())
}

// Run starts the app and every registered frontend, then blocks until ctx
// is done or a frontend returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.Start(ctx)

	errCh := make(chan error, len(a.Frontends))
	for _, f := range a.Frontends {
		go func(f Frontend) {
			errCh <- f.Run(ctx)
		}(f)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			a.log.WithError(err).Error("Frontend stopped")
		}
	}

	a.log.Info("Shutting down")
	cancel()
	a.Shutdown()
	return err
}

// Shutdown disconnects and waits briefly for the consumers to finish
func (a *App) Shutdown() {
	a.Bridge.Close()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		a.log.Warn("Timed out waiting for consumers to stop")
	}
}
