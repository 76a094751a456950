package proto

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestOutbound_RoundTrip(t *testing.T) {
	cases := []Outbound{
		Subscribe{Topic: "/robot_pose", Type: TypePose2D},
		Subscribe{Topic: "/camera", Type: TypeImage, ThrottleRate: 100, QueueLength: 1},
		Unsubscribe{Topic: "/robot_pose"},
		Publish{Topic: "/android", Type: TypeString, Msg: String{Data: "hi"}},
		Publish{Topic: "/count", Type: TypeInt32, Msg: Int32{Data: -42}},
		Publish{Topic: "/flag", Type: TypeBool, Msg: Bool{Data: true}},
		Publish{Topic: "/angle", Type: TypeFloat32, Msg: Float32{Data: 90.5}},
		Publish{Topic: "/speed", Type: TypeFloat64, Msg: Float64{Data: 0.125}},
		Publish{Topic: "/goal_pose", Type: TypePose2D, Msg: Pose2D{X: 1.5, Y: 2, Theta: 3.14}},
		Publish{Topic: "/cmd_vel", Type: TypeTwist, Msg: Twist{Linear: Vector3{X: 0.5}, Angular: Vector3{Z: -1}}},
		Publish{Topic: "/thing", Type: TypeCustom, Msg: Raw(`{"a":[1,2,3]}`)},
		CallService{Service: "/reset", Type: "std_srvs/Empty"},
		CallService{ID: "call-1", Service: "/add", Type: "rospy_tutorials/AddTwoInts", Args: json.RawMessage(`{"a":1,"b":2}`)},
	}

	for _, want := range cases {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal(%T) failed: %v", want, err)
		}
		got, err := DecodeOutbound(data)
		if err != nil {
			t.Fatalf("DecodeOutbound(%s) failed: %v", data, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Round trip mismatch:\n got  %#v\n want %#v", got, want)
		}
	}
}

func TestOutbound_OpMatchesVariant(t *testing.T) {
	cases := map[string]Outbound{
		OpSubscribe:   NewSubscribe(Topic{Name: "/a", MessageType: TypeString}),
		OpUnsubscribe: Unsubscribe{Topic: "/a"},
		OpPublish:     NewPublish(Topic{Name: "/a", MessageType: TypeString}, String{Data: "x"}),
		OpCallService: CallService{Service: "/s", Type: "t"},
	}

	for wantOp, msg := range cases {
		if msg.Op() != wantOp {
			t.Errorf("Expected Op() %q, got %q", wantOp, msg.Op())
		}
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var head map[string]any
		if err := json.Unmarshal(data, &head); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if head["op"] != wantOp {
			t.Errorf("Expected serialized op %q, got %v", wantOp, head["op"])
		}
	}
}

func TestPublish_WireFormat(t *testing.T) {
	msg := NewPublish(Topic{Name: "/android", MessageType: TypeString}, String{Data: "hi"})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"op":"publish","topic":"/android","type":"std_msgs/String","msg":{"data":"hi"}}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestSubscribe_WireFormat(t *testing.T) {
	data, err := json.Marshal(NewSubscribe(Topic{Name: "/robot_pose", MessageType: TypePose2D}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"op":"subscribe","topic":"/robot_pose","type":"geometry_msgs/Pose2D"}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestCallService_OmitsEmptyArgs(t *testing.T) {
	cs, err := NewCallService("/reset", "std_srvs/Empty", nil)
	if err != nil {
		t.Fatalf("NewCallService failed: %v", err)
	}
	data, _ := json.Marshal(cs)

	want := `{"op":"call_service","service":"/reset","type":"std_srvs/Empty"}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestNewCallService_MarshalsArgs(t *testing.T) {
	cs, err := NewCallService("/add", "AddTwoInts", map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("NewCallService failed: %v", err)
	}
	if string(cs.Args) != `{"a":1}` {
		t.Errorf("Expected args {\"a\":1}, got %s", cs.Args)
	}

	if _, err := NewCallService("/bad", "t", make(chan int)); err == nil {
		t.Error("Expected error for unmarshalable args")
	}
}

func TestDecodeOutbound_UnknownOp(t *testing.T) {
	_, err := DecodeOutbound([]byte(`{"op":"advertise","topic":"/a"}`))
	var unknown *UnknownOpError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownOpError, got %v", err)
	}
	if unknown.Op != "advertise" {
		t.Errorf("Expected op advertise, got %s", unknown.Op)
	}
}

func TestParseMessageType(t *testing.T) {
	got, err := ParseMessageType("geometry_msgs/Pose2D")
	if err != nil {
		t.Fatalf("ParseMessageType failed: %v", err)
	}
	if got != TypePose2D {
		t.Errorf("Expected %s, got %s", TypePose2D, got)
	}

	if _, err := ParseMessageType("nav_msgs/Odometry"); err == nil {
		t.Error("Expected error for unknown type")
	}
}
