package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mbocsi/rosteleop/services"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type angleRequest struct {
	Deg *float64 `json:"deg"`
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type textRequest struct {
	Text string `json:"text"`
}

type connectRequest struct {
	Endpoint string `json:"endpoint"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.services.Status.GetStatus())
}

// HandleConnect reconnects, optionally to the endpoint in the body
func (s *Server) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeOptional(r, &req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	if err := s.services.Status.Connect(req.Endpoint); err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.services.Status.GetStatus())
}

func (s *Server) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.services.Status.Disconnect()
	s.writeJSON(w, http.StatusAccepted, s.services.Status.GetStatus())
}

// HandleMessages lists received messages, newest last. ?limit=N keeps the
// newest N.
func (s *Server) HandleMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.handleError(w, services.ServiceError{Code: services.ErrCodeInvalidInput, Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.services.Teleop.Messages(limit))
}

func (s *Server) HandleClearMessages(w http.ResponseWriter, r *http.Request) {
	s.services.Teleop.ClearMessages()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandlePose(w http.ResponseWriter, r *http.Request) {
	pos, ok := s.services.Teleop.Pose()
	if !ok {
		s.handleError(w, services.ServiceError{Code: services.ErrCodeNotFound, Message: "No pose received yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, pos)
}

func (s *Server) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var req services.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	if err := s.services.Messaging.Publish(req); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req services.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	if err := s.services.Messaging.Subscribe(req); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleUnsubscribe takes the topic from the path, so
// DELETE /api/subscriptions/robot_pose drops /robot_pose.
func (s *Server) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	topic := "/" + chi.URLParam(r, "*")
	if err := s.services.Messaging.Unsubscribe(topic); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCallService blocks until the robot answers or the call times out
func (s *Server) HandleCallService(w http.ResponseWriter, r *http.Request) {
	var req services.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	res, err := s.services.Messaging.CallService(r.Context(), req)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) HandleDPad(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Teleop.SendDPad(chi.URLParam(r, "direction")); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) HandleAngle(w http.ResponseWriter, r *http.Request) {
	var req angleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	if req.Deg == nil {
		s.handleError(w, services.ServiceError{Code: services.ErrCodeInvalidInput, Message: "deg is required"})
		return
	}
	if err := s.services.Teleop.SetAngle(*req.Deg); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleJoystick responds with the twist that was sent
func (s *Server) HandleJoystick(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	twist, err := s.services.Teleop.Joystick(req.X, req.Y)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, twist)
}

func (s *Server) HandleGoal(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	if err := s.services.Teleop.SendGoal(req.X, req.Y); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) HandleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(w, invalidBody(err))
		return
	}
	if err := s.services.Teleop.SendText(req.Text); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("Failed to write response")
	}
}

// handleError handles service errors with proper HTTP status codes
func (s *Server) handleError(w http.ResponseWriter, err error) {
	var serviceErr services.ServiceError
	if !errors.As(err, &serviceErr) {
		s.log.WithError(err).Error("Unexpected error")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Code: services.ErrCodeInternal, Message: "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch serviceErr.Code {
	case services.ErrCodeNotFound:
		status = http.StatusNotFound
	case services.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case services.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case services.ErrCodeNotConnected:
		status = http.StatusServiceUnavailable
	}
	s.log.WithField("code", serviceErr.Code).WithError(err).Debug("Request failed")
	s.writeJSON(w, status, errorResponse{Code: serviceErr.Code, Message: serviceErr.Error()})
}

func invalidBody(err error) error {
	return services.ServiceError{Code: services.ErrCodeInvalidInput, Message: "Invalid request body", Cause: err}
}

// decodeOptional decodes a JSON body when there is one
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
