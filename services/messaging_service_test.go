package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/client"
	"github.com/mbocsi/rosteleop/config"
	"github.com/mbocsi/rosteleop/proto"
	"github.com/mbocsi/rosteleop/rosbridgetest"
	"github.com/mbocsi/rosteleop/teleop"
)

func errCode(err error) string {
	var svcErr ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

func TestMessagingService_Publish(t *testing.T) {
	fb := newFakeBridge()
	fb.setConnected(true)
	ms := NewMessagingService(fb, NewCallTracker(time.Second), quietLogger())

	err := ms.Publish(PublishRequest{Topic: "/android", Type: "std_msgs/String", Msg: json.RawMessage(`{"data":"hi"}`)})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got := fb.lastPublished()
	if got.Topic.Name != "/android" || got.Topic.MessageType != proto.TypeString {
		t.Errorf("Expected /android std_msgs/String, got %+v", got.Topic)
	}
	if s, ok := got.Payload.(proto.String); !ok || s.Data != "hi" {
		t.Errorf("Expected String{hi}, got %#v", got.Payload)
	}
}

func TestMessagingService_PublishCustomPassesThrough(t *testing.T) {
	fb := newFakeBridge()
	fb.setConnected(true)
	ms := NewMessagingService(fb, NewCallTracker(time.Second), quietLogger())

	err := ms.Publish(PublishRequest{Topic: "/custom", Type: "custom", Msg: json.RawMessage(`{"anything":[1,2]}`)})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	raw, ok := fb.lastPublished().Payload.(proto.Raw)
	if !ok || string(raw) != `{"anything":[1,2]}` {
		t.Errorf("Expected raw payload, got %#v", fb.lastPublished().Payload)
	}
}

func TestMessagingService_PublishErrors(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		req       PublishRequest
		code      string
	}{
		{"empty topic", true, PublishRequest{Type: "std_msgs/String", Msg: json.RawMessage(`{"data":"x"}`)}, ErrCodeInvalidInput},
		{"relative topic", true, PublishRequest{Topic: "android", Type: "std_msgs/String", Msg: json.RawMessage(`{"data":"x"}`)}, ErrCodeInvalidInput},
		{"unknown type", true, PublishRequest{Topic: "/a", Type: "std_msgs/Nope", Msg: json.RawMessage(`{}`)}, ErrCodeInvalidInput},
		{"shape mismatch", true, PublishRequest{Topic: "/a", Type: "std_msgs/Int32", Msg: json.RawMessage(`{"data":"x"}`)}, ErrCodeInvalidInput},
		{"not connected", false, PublishRequest{Topic: "/a", Type: "std_msgs/String", Msg: json.RawMessage(`{"data":"x"}`)}, ErrCodeNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBridge()
			fb.setConnected(tt.connected)
			ms := NewMessagingService(fb, NewCallTracker(time.Second), quietLogger())

			err := ms.Publish(tt.req)
			if code := errCode(err); code != tt.code {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
			if len(fb.published) != 0 {
				t.Errorf("Expected nothing published, got %d", len(fb.published))
			}
		})
	}
}

func TestMessagingService_SubscribeAndUnsubscribe(t *testing.T) {
	fb := newFakeBridge()
	ms := NewMessagingService(fb, NewCallTracker(time.Second), quietLogger())

	if err := ms.Subscribe(SubscribeRequest{Topic: "/robot_pose", Type: "geometry_msgs/Pose2D"}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if topics := fb.Topics(); len(topics) != 1 || topics[0].Name != "/robot_pose" {
		t.Errorf("Expected [/robot_pose], got %+v", topics)
	}

	if err := ms.Unsubscribe("/unknown"); errCode(err) != ErrCodeNotFound {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
	if err := ms.Unsubscribe("/robot_pose"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if topics := fb.Topics(); len(topics) != 0 {
		t.Errorf("Expected no topics, got %+v", topics)
	}
}

func TestMessagingService_CallService(t *testing.T) {
	fb := newFakeBridge()
	fb.setConnected(true)
	tracker := NewCallTracker(time.Second)
	ms := NewMessagingService(fb, tracker, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx, fb.ServiceResponses(4))

	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if calls := fb.sentCalls(); len(calls) == 1 {
				fb.responses.Publish(proto.ServiceResponse{
					ID:      calls[0].ID,
					Service: calls[0].Service,
					Result:  true,
					Values:  json.RawMessage(`{"sum":3}`),
				})
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	res, err := ms.CallService(ctx, CallRequest{Service: "/add", Type: "example/AddTwoInts", Args: json.RawMessage(`{"a":1,"b":2}`)})
	if err != nil {
		t.Fatalf("CallService failed: %v", err)
	}
	if !res.Result || string(res.Values) != `{"sum":3}` {
		t.Errorf("Unexpected result %+v", res)
	}
	if calls := fb.sentCalls(); string(calls[0].Args) != `{"a":1,"b":2}` {
		t.Errorf("Expected args to be forwarded, got %s", calls[0].Args)
	}
}

func TestMessagingService_CallServiceValidation(t *testing.T) {
	fb := newFakeBridge()
	ms := NewMessagingService(fb, NewCallTracker(time.Second), quietLogger())
	ctx := context.Background()

	if _, err := ms.CallService(ctx, CallRequest{Service: "/add"}); errCode(err) != ErrCodeInvalidInput {
		t.Errorf("Expected INVALID_INPUT for missing type, got %v", err)
	}
	if _, err := ms.CallService(ctx, CallRequest{Service: "/add", Type: "t", Args: json.RawMessage(`{`)}); errCode(err) != ErrCodeInvalidInput {
		t.Errorf("Expected INVALID_INPUT for bad args, got %v", err)
	}
	if _, err := ms.CallService(ctx, CallRequest{Service: "/add", Type: "t"}); errCode(err) != ErrCodeNotConnected {
		t.Errorf("Expected NOT_CONNECTED, got %v", err)
	}
}

func TestServiceManager_CallThroughBridge(t *testing.T) {
	dialer := rosbridgetest.NewDialer()
	m := bridge.NewManager("ws://test:9090",
		bridge.WithLogger(quietLogger()),
		bridge.WithClientOptions(client.WithTransportFactory(dialer.New)),
	)
	defer m.Close()

	cfg := config.DefaultTeleop()
	sm := NewServiceManager(m,
		teleop.NewController(m, cfg, quietLogger()),
		teleop.NewPoseTracker(cfg.PoseTopic, quietLogger()),
		teleop.NewHistory(10),
		time.Second,
		quietLogger(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sm.Run(ctx)

	m.Connect(nil)
	tr, err := dialer.Await(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for !m.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	go func() {
		frame, err := tr.Next(time.Second)
		if err != nil {
			return
		}
		var call struct {
			ID      string `json:"id"`
			Service string `json:"service"`
		}
		if json.Unmarshal(frame, &call) != nil {
			return
		}
		tr.Inject(`{"op":"service_response","id":"` + call.ID + `","service":"` + call.Service + `","result":true,"values":{"ok":true}}`)
	}()

	res, err := sm.GetServices().Messaging.CallService(ctx, CallRequest{Service: "/reset", Type: "std_srvs/Empty"})
	if err != nil {
		t.Fatalf("CallService failed: %v", err)
	}
	if res.Service != "/reset" || !res.Result || res.ID == "" {
		t.Errorf("Unexpected result %+v", res)
	}
}
