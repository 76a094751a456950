package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/broker"
	"github.com/mbocsi/rosteleop/services"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxStreams   = 8
	DefaultStreamBuffer = 64
)

// StreamSource is satisfied by *bridge.Manager.
type StreamSource interface {
	Events() *broker.Subscription[bridge.ConnectionEvent]
	Messages(buffer int) *broker.Subscription[bridge.ReceivedMessage]
}

// Server serves the JSON API, the dashboard page and the /ws stream
type Server struct {
	services  *services.ServiceContainer
	source    StreamSource
	templates *Templates
	streams   *streamHub
	upgrader  websocket.Upgrader
	log       logrus.FieldLogger

	streamBuffer int
}

type Option func(*Server)

func WithMaxStreams(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.streams.max = n
		}
	}
}

// WithStreamBuffer sets the per-connection message buffer for /ws
func WithStreamBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.streamBuffer = n
		}
	}
}

// NewServer creates the web front-end over a service container
func NewServer(svc *services.ServiceContainer, source StreamSource, logger logrus.FieldLogger, opts ...Option) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		services:  svc,
		source:    source,
		templates: NewTemplates(),
		streams:   newStreamHub(DefaultMaxStreams),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
		log:          logger.WithField("component", "web"),
		streamBuffer: DefaultStreamBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP routes for the web front-end
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.HandleDashboard)
	r.Get("/health", s.HandleHealth)
	r.Get("/ws", s.HandleStream)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.HandleStatus)
		r.Post("/connect", s.HandleConnect)
		r.Post("/disconnect", s.HandleDisconnect)

		r.Get("/messages", s.HandleMessages)
		r.Delete("/messages", s.HandleClearMessages)
		r.Get("/pose", s.HandlePose)

		r.Post("/publish", s.HandlePublish)
		r.Post("/subscriptions", s.HandleSubscribe)
		r.Delete("/subscriptions/*", s.HandleUnsubscribe)
		r.Post("/services/call", s.HandleCallService)

		r.Route("/teleop", func(r chi.Router) {
			r.Post("/dpad/{direction}", s.HandleDPad)
			r.Post("/angle", s.HandleAngle)
			r.Post("/joystick", s.HandleJoystick)
			r.Post("/goal", s.HandleGoal)
			r.Post("/text", s.HandleText)
		})
	})
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	s.log.Info("Web server stopped")
	return nil
}

// Close drops every open /ws connection
func (s *Server) Close() {
	s.streams.closeAll()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).Round(time.Microsecond),
		}).Debug("HTTP request")
	})
}
