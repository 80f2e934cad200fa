package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Pose is the body posture a set of scan measurements was computed under
type Pose string

const (
	PoseI Pose = "I" // arms-down frontal
	PoseA Pose = "A" // arms-raised
)

// ScanRecord is one scan session as listed by the measurement provider
type ScanRecord struct {
	UserID  FlexibleID `json:"user_id"`
	ScanID  FlexibleID `json:"tid"`
	TagList []string   `json:"tag_list"`
}

// ScanRecordList is the body of the record list endpoint
type ScanRecordList struct {
	Records []ScanRecord `json:"records"`
}

// UserProfile is the owner of a scan record
type UserProfile struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RealName string `json:"realName,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// DisplayName picks the friendliest non-empty name.
func (u UserProfile) DisplayName() string {
	for _, name := range []string{u.Nickname, u.RealName, u.Username} {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return ""
}

// FlexibleID accepts identifiers the provider encodes either as strings or as numbers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*id = ""
		return nil
	case json.Number:
		*id = FlexibleID(t.String())
		return nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return err
	}
	*id = FlexibleID(s)
	return nil
}

// ValueKind tags the shape a measurement was reported in
type ValueKind int

const (
	KindInvalid   ValueKind = iota
	KindScalar              // bare number (or numeric string)
	KindValue               // {"value": x}
	KindFrontBack           // {"front": x, "back": y}, summed
)

// MeasurementValue is one entry of a MeasurementPayload. The shape varies per key.
type MeasurementValue struct {
	Kind  ValueKind
	Raw   any
	Front any
	Back  any
}

// ParseMeasurementValue classifies a decoded JSON value into its measurement shape.
func ParseMeasurementValue(raw any) MeasurementValue {
	switch t := raw.(type) {
	case nil:
		return MeasurementValue{Kind: KindInvalid}
	case map[string]any:
		if v, ok := t["value"]; ok {
			return MeasurementValue{Kind: KindValue, Raw: v}
		}
		front, hasFront := t["front"]
		back, hasBack := t["back"]
		if hasFront || hasBack {
			return MeasurementValue{Kind: KindFrontBack, Front: front, Back: back}
		}
		return MeasurementValue{Kind: KindInvalid, Raw: t}
	default:
		return MeasurementValue{Kind: KindScalar, Raw: t}
	}
}

func (v *MeasurementValue) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = ParseMeasurementValue(raw)
	return nil
}

// Float returns the numeric reading. Front/back pairs need both halves.
func (v MeasurementValue) Float() (float64, bool) {
	switch v.Kind {
	case KindScalar, KindValue:
		return toFloat(v.Raw)
	case KindFrontBack:
		front, ok := toFloat(v.Front)
		if !ok {
			return 0, false
		}
		back, ok := toFloat(v.Back)
		if !ok {
			return 0, false
		}
		return front + back, true
	}
	return 0, false
}

func toFloat(raw any) (float64, bool) {
	var f float64
	switch t := raw.(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := cast.ToFloat64E(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		f = n
	default:
		n, err := cast.ToFloat64E(t)
		if err != nil {
			return 0, false
		}
		f = n
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MeasurementPayload maps measurement names to readings for one (scan, pose) pair
type MeasurementPayload map[string]MeasurementValue

// Float resolves name to a number, returning def and false when it is absent or not numeric.
func (p MeasurementPayload) Float(name string, def float64) (float64, bool) {
	v, ok := p[name]
	if !ok {
		return def, false
	}
	f, ok := v.Float()
	if !ok {
		return def, false
	}
	return f, true
}

// MeasurementResponse is the body of the per-pose measurement endpoint
type MeasurementResponse struct {
	Measurement MeasurementPayload `json:"measurement"`
}

// Shape attribute sentinel used when no tag identifies the breast shape
const AttributeUndetermined = "不確定胸型"

// ResolvedMeasurement is the normalized result of one fetch cycle. It is built fresh per
// request and handed down to matching and rendering.
type ResolvedMeasurement struct {
	Username            string   `json:"username"`
	DisplayName         string   `json:"displayName"`
	ScanID              string   `json:"scanId"`
	UpperBust           float64  `json:"upperBust"`
	LowerBust           float64  `json:"lowerBust"`
	ShoulderNippleLeft  float64  `json:"shoulderNippleLeft"`
	ShoulderNippleRight float64  `json:"shoulderNippleRight"`
	DetectedAttribute   string   `json:"detectedAttribute"`
	BodyShape           string   `json:"bodyShape,omitempty"`
	DisplayTags         []string `json:"displayTags"`
	Degraded            bool     `json:"degraded"`
	DefaultedFields     []string `json:"defaultedFields,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
}
