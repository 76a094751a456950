package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbocsi/rosteleop/proto"
)

func TestCallTracker_MatchesByID(t *testing.T) {
	ct := NewCallTracker(time.Second)

	var sentID string
	send := func(id string) error {
		sentID = id
		go ct.HandleResponse(proto.ServiceResponse{ID: id, Service: "/add", Result: true})
		return nil
	}

	resp, err := ct.Call(context.Background(), "/add", send)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.ID != sentID || sentID == "" {
		t.Errorf("Expected response for id %q, got %q", sentID, resp.ID)
	}
	if ct.Pending() != 0 {
		t.Errorf("Expected no pending calls, got %d", ct.Pending())
	}
}

func TestCallTracker_FallsBackToService(t *testing.T) {
	ct := NewCallTracker(time.Second)

	send := func(id string) error {
		go ct.HandleResponse(proto.ServiceResponse{Service: "/reset", Result: true})
		return nil
	}

	resp, err := ct.Call(context.Background(), "/reset", send)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Service != "/reset" || !resp.Result {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestCallTracker_UnmatchedResponse(t *testing.T) {
	ct := NewCallTracker(time.Second)
	if ct.HandleResponse(proto.ServiceResponse{ID: "nobody", Service: "/x"}) {
		t.Error("Expected unmatched response to be rejected")
	}
}

func TestCallTracker_Timeout(t *testing.T) {
	ct := NewCallTracker(time.Hour)

	_, err := ct.Call(context.Background(), "/slow", func(string) error { return nil }, 20*time.Millisecond)

	var svcErr ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != ErrCodeTimeout {
		t.Fatalf("Expected TIMEOUT, got %v", err)
	}
	if ct.Pending() != 0 {
		t.Errorf("Expected timed out call to be forgotten, got %d pending", ct.Pending())
	}
}

func TestCallTracker_ContextCancel(t *testing.T) {
	ct := NewCallTracker(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ct.Call(ctx, "/slow", func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCallTracker_SendError(t *testing.T) {
	ct := NewCallTracker(time.Second)
	_, err := ct.Call(context.Background(), "/x", func(string) error { return errors.New("bad args") })

	var svcErr ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != ErrCodeInvalidInput {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}
}

func TestCallTracker_UnknownIDSkipsFallback(t *testing.T) {
	ct := NewCallTracker(time.Hour)

	var staleID string
	_, err := ct.Call(context.Background(), "/add", func(id string) error {
		staleID = id
		return nil
	}, 20*time.Millisecond)
	var svcErr ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != ErrCodeTimeout {
		t.Fatalf("Expected first call to time out, got %v", err)
	}

	var delivered bool
	_, err = ct.Call(context.Background(), "/add", func(string) error {
		delivered = ct.HandleResponse(proto.ServiceResponse{ID: staleID, Service: "/add", Result: true})
		return nil
	}, 50*time.Millisecond)

	if delivered {
		t.Error("Expected late response for a finished call to be dropped")
	}
	if !errors.As(err, &svcErr) || svcErr.Code != ErrCodeTimeout {
		t.Errorf("Expected second call to time out, got %v", err)
	}
}
