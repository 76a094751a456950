package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbocsi/rosteleop/broker"
	"github.com/mbocsi/rosteleop/proto"
)

// CallTracker correlates call_service requests with their responses
type CallTracker struct {
	mu      sync.Mutex
	pending map[string]*pendingCall
	order   []string // ids in send order, for responses without an id
	timeout time.Duration
}

type pendingCall struct {
	service string
	ch      chan proto.ServiceResponse
}

func NewCallTracker(defaultTimeout time.Duration) *CallTracker {
	return &CallTracker{
		pending: make(map[string]*pendingCall),
		timeout: defaultTimeout,
	}
}

// Call registers a new id, hands it to send and waits for the response
func (ct *CallTracker) Call(ctx context.Context, service string, send func(id string) error, timeout ...time.Duration) (*proto.ServiceResponse, error) {
	callID := uuid.New().String()
	responseChan := make(chan proto.ServiceResponse, 1)

	callTimeout := ct.timeout
	if len(timeout) > 0 && timeout[0] > 0 {
		callTimeout = timeout[0]
	}

	ct.mu.Lock()
	ct.pending[callID] = &pendingCall{service: service, ch: responseChan}
	ct.order = append(ct.order, callID)
	ct.mu.Unlock()

	defer ct.forget(callID)

	if err := send(callID); err != nil {
		return nil, ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: "Failed to send service call",
			Cause:   err,
		}
	}

	timer := time.NewTimer(callTimeout)
	defer timer.Stop()

	select {
	case response := <-responseChan:
		return &response, nil
	case <-timer.C:
		return nil, ServiceError{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("Service call %s timed out after %v", service, callTimeout),
		}
	case <-ctx.Done():
		return nil, ServiceError{
			Code:    ErrCodeTimeout,
			Message: "Service call cancelled",
			Cause:   ctx.Err(),
		}
	}
}

func (ct *CallTracker) forget(callID string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	delete(ct.pending, callID)
	for i, id := range ct.order {
		if id == callID {
			ct.order = append(ct.order[:i], ct.order[i+1:]...)
			break
		}
	}
}

// HandleResponse delivers resp to the waiting call. A response without an
// id goes to the oldest pending call for the same service; one with an
// unknown id is dropped.
func (ct *CallTracker) HandleResponse(resp proto.ServiceResponse) bool {
	ct.mu.Lock()
	call, exists := ct.pending[resp.ID]
	callID := resp.ID
	if !exists && resp.ID == "" {
		for _, id := range ct.order {
			if p := ct.pending[id]; p != nil && p.service == resp.Service {
				call, callID, exists = p, id, true
				break
			}
		}
	}
	if exists {
		// Matched calls stop being candidates for later fallbacks.
		delete(ct.pending, callID)
	}
	ct.mu.Unlock()

	if !exists {
		return false
	}

	select {
	case call.ch <- resp:
		return true
	default:
		return false
	}
}

// Pending returns the number of calls waiting for a response
func (ct *CallTracker) Pending() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.pending)
}

// Run feeds responses from sub into the tracker until ctx is done
func (ct *CallTracker) Run(ctx context.Context, sub *broker.Subscription[proto.ServiceResponse]) {
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-sub.C:
			if !ok {
				return
			}
			ct.HandleResponse(resp)
		}
	}
}
