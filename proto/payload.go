package proto

import (
	"bytes"
	"encoding/json"
)

// Payload is the content of a publish "msg" field. The set of variants is
// closed; Raw carries anything else verbatim.
type Payload interface {
	isPayload()
}

type String struct {
	Data string `json:"data"`
}

type Int32 struct {
	Data int32 `json:"data"`
}

type Bool struct {
	Data bool `json:"data"`
}

type Float32 struct {
	Data float32 `json:"data"`
}

type Float64 struct {
	Data float64 `json:"data"`
}

// Pose2D is a planar pose. Theta is in radians.
type Pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist matches geometry_msgs/Twist.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Raw is an already-encoded JSON payload.
type Raw json.RawMessage

func (r Raw) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

func (String) isPayload()  {}
func (Int32) isPayload()   {}
func (Bool) isPayload()    {}
func (Float32) isPayload() {}
func (Float64) isPayload() {}
func (Pose2D) isPayload()  {}
func (Twist) isPayload()   {}
func (Raw) isPayload()     {}

// decodeStrict unmarshals raw into v, rejecting unknown fields and trailing
// data. Field presence is checked by the callers through pointer fields.
func decodeStrict(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return false
	}
	return !dec.More()
}

func DecodeString(raw json.RawMessage) (String, bool) {
	var w struct {
		Data *string `json:"data"`
	}
	if !decodeStrict(raw, &w) || w.Data == nil {
		return String{}, false
	}
	return String{Data: *w.Data}, true
}

func DecodeInt32(raw json.RawMessage) (Int32, bool) {
	var w struct {
		Data *int32 `json:"data"`
	}
	if !decodeStrict(raw, &w) || w.Data == nil {
		return Int32{}, false
	}
	return Int32{Data: *w.Data}, true
}

func DecodeBool(raw json.RawMessage) (Bool, bool) {
	var w struct {
		Data *bool `json:"data"`
	}
	if !decodeStrict(raw, &w) || w.Data == nil {
		return Bool{}, false
	}
	return Bool{Data: *w.Data}, true
}

func DecodeFloat32(raw json.RawMessage) (Float32, bool) {
	var w struct {
		Data *float32 `json:"data"`
	}
	if !decodeStrict(raw, &w) || w.Data == nil {
		return Float32{}, false
	}
	return Float32{Data: *w.Data}, true
}

func DecodeFloat64(raw json.RawMessage) (Float64, bool) {
	var w struct {
		Data *float64 `json:"data"`
	}
	if !decodeStrict(raw, &w) || w.Data == nil {
		return Float64{}, false
	}
	return Float64{Data: *w.Data}, true
}

// DecodePose2D requires all of x, y and theta.
func DecodePose2D(raw json.RawMessage) (Pose2D, bool) {
	var w struct {
		X     *float64 `json:"x"`
		Y     *float64 `json:"y"`
		Theta *float64 `json:"theta"`
	}
	if !decodeStrict(raw, &w) || w.X == nil || w.Y == nil || w.Theta == nil {
		return Pose2D{}, false
	}
	return Pose2D{X: *w.X, Y: *w.Y, Theta: *w.Theta}, true
}

type vector3Wire struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

func (v *vector3Wire) value() (Vector3, bool) {
	if v == nil || v.X == nil || v.Y == nil || v.Z == nil {
		return Vector3{}, false
	}
	return Vector3{X: *v.X, Y: *v.Y, Z: *v.Z}, true
}

func DecodeTwist(raw json.RawMessage) (Twist, bool) {
	var w struct {
		Linear  *vector3Wire `json:"linear"`
		Angular *vector3Wire `json:"angular"`
	}
	if !decodeStrict(raw, &w) {
		return Twist{}, false
	}
	linear, ok := w.Linear.value()
	if !ok {
		return Twist{}, false
	}
	angular, ok := w.Angular.value()
	if !ok {
		return Twist{}, false
	}
	return Twist{Linear: linear, Angular: angular}, true
}

// DecodeByType picks the decoder matching a type tag. Tags without a
// payload variant report false.
func DecodeByType(t MessageType, raw json.RawMessage) (Payload, bool) {
	switch t {
	case TypeString:
		return wrap(DecodeString(raw))
	case TypeInt32:
		return wrap(DecodeInt32(raw))
	case TypeBool:
		return wrap(DecodeBool(raw))
	case TypeFloat32:
		return wrap(DecodeFloat32(raw))
	case TypeFloat64:
		return wrap(DecodeFloat64(raw))
	case TypePose2D:
		return wrap(DecodePose2D(raw))
	case TypeTwist:
		return wrap(DecodeTwist(raw))
	default:
		return nil, false
	}
}

func wrap[P Payload](p P, ok bool) (Payload, bool) {
	if !ok {
		return nil, false
	}
	return p, true
}
