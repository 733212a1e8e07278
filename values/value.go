// Package values defines the single runtime datum type shared by the
// compiler, the virtual machine, and the Engine boundary: a small tagged
// sum with no array variant (see TypeObject for the one structured case).
package values

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Type identifies which alternative of Value is populated.
type Type byte

const (
	TypeString Type = iota
	TypePath
	TypeDuration
	TypeTime
	TypeInteger
	TypeFloat
	TypeBool
	TypeObject
	TypeJump
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypePath:
		return "path"
	case TypeDuration:
		return "duration"
	case TypeTime:
		return "time"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeObject:
		return "object"
	case TypeJump:
		return "jump"
	default:
		return "unknown"
	}
}

// Value is the sole runtime datum. Data holds the Go representation for
// Type: string for TypeString/TypePath, time.Duration for TypeDuration,
// *TimeOfDay for TypeTime, int64 for TypeInteger, int for TypeJump, float64 for
// TypeFloat, bool for TypeBool, *Object for TypeObject.
type Value struct {
	Type Type
	Data interface{}
}

// TimeKind distinguishes the three Time alternatives.
type TimeKind byte

const (
	TimeSunrise TimeKind = iota
	TimeSunset
	TimeHourMinute
)

// TimeOfDay is the payload of a TypeTime value.
type TimeOfDay struct {
	Kind   TimeKind
	Hour   int // 0..23, only meaningful when Kind == TimeHourMinute
	Minute int // 0..59, only meaningful when Kind == TimeHourMinute
}

// Object is an ordered-iteration mapping from string keys to Value. Key
// order during iteration (Keys) is always sorted, giving deterministic
// JSON round-trips and Print output.
type Object struct {
	Fields map[string]*Value
}

// NewObject builds an Object from the given fields; the map is copied by
// reference, callers should not mutate it afterwards.
func NewObject(fields map[string]*Value) *Object {
	if fields == nil {
		fields = make(map[string]*Value)
	}
	return &Object{Fields: fields}
}

// Keys returns the object's field names in sorted order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Constructors. Each returns a fresh *Value; Values are treated as
// immutable by convention and copied (not aliased) across task stacks.

func NewString(s string) *Value { return &Value{Type: TypeString, Data: s} }
func NewPath(p string) *Value   { return &Value{Type: TypePath, Data: p} }

func NewDuration(d time.Duration) *Value {
	if d < 0 {
		d = 0
	}
	return &Value{Type: TypeDuration, Data: d}
}

func NewTimeSunrise() *Value {
	return &Value{Type: TypeTime, Data: &TimeOfDay{Kind: TimeSunrise}}
}

func NewTimeSunset() *Value {
	return &Value{Type: TypeTime, Data: &TimeOfDay{Kind: TimeSunset}}
}

func NewTimeHourMinute(hour, minute int) *Value {
	if hour < 0 {
		hour = 0
	}
	if hour > 23 {
		hour = 23
	}
	if minute < 0 {
		minute = 0
	}
	if minute > 59 {
		minute = 59
	}
	return &Value{Type: TypeTime, Data: &TimeOfDay{Kind: TimeHourMinute, Hour: hour, Minute: minute}}
}

func NewInteger(i int64) *Value   { return &Value{Type: TypeInteger, Data: i} }
func NewFloat(f float64) *Value   { return &Value{Type: TypeFloat, Data: f} }
func NewBool(b bool) *Value       { return &Value{Type: TypeBool, Data: b} }
func NewObjectValue(o *Object) *Value { return &Value{Type: TypeObject, Data: o} }
func NewJump(ip int) *Value       { return &Value{Type: TypeJump, Data: ip} }

// Clone returns an independent copy suitable for pushing onto a
// different task's stack. Object fields are cloned recursively so that
// a Spawn snapshot cannot observe later mutation of the parent's object
// (objects are otherwise treated as compile-time constants, see Compiler).
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	switch v.Type {
	case TypeObject:
		src := v.Data.(*Object)
		fields := make(map[string]*Value, len(src.Fields))
		for k, fv := range src.Fields {
			fields[k] = fv.Clone()
		}
		return &Value{Type: TypeObject, Data: &Object{Fields: fields}}
	default:
		cp := *v
		return &cp
	}
}

// AsString returns the Go string for TypeString/TypePath values.
func (v *Value) AsString() (string, bool) {
	if v.Type != TypeString && v.Type != TypePath {
		return "", false
	}
	return v.Data.(string), true
}

// AsDuration returns the Go duration for a TypeDuration value.
func (v *Value) AsDuration() (time.Duration, bool) {
	if v.Type != TypeDuration {
		return 0, false
	}
	return v.Data.(time.Duration), true
}

// AsTime returns the TimeOfDay payload for a TypeTime value.
func (v *Value) AsTime() (*TimeOfDay, bool) {
	if v.Type != TypeTime {
		return nil, false
	}
	return v.Data.(*TimeOfDay), true
}

// AsBool returns the Go bool for a TypeBool value.
func (v *Value) AsBool() (bool, bool) {
	if v.Type != TypeBool {
		return false, false
	}
	return v.Data.(bool), true
}

// AsJump returns the instruction index for a TypeJump value.
func (v *Value) AsJump() (int, bool) {
	if v.Type != TypeJump {
		return 0, false
	}
	return v.Data.(int), true
}

// AsObject returns the Object payload for a TypeObject value.
func (v *Value) AsObject() (*Object, bool) {
	if v.Type != TypeObject {
		return nil, false
	}
	return v.Data.(*Object), true
}

// Equal implements the structural equality used by the Equal instruction.
// Values with different Types are always unequal, even when the underlying
// Go representation would compare equal (e.g. Integer(1) vs Float(1)).
func Equal(a, b *Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeString, TypePath:
		av, _ := a.AsString()
		bv, _ := b.AsString()
		return av == bv
	case TypeDuration:
		av, _ := a.AsDuration()
		bv, _ := b.AsDuration()
		return av == bv
	case TypeTime:
		at, _ := a.AsTime()
		bt, _ := b.AsTime()
		return *at == *bt
	case TypeInteger:
		return a.Data.(int64) == b.Data.(int64)
	case TypeFloat:
		return a.Data.(float64) == b.Data.(float64)
	case TypeBool:
		return a.Data.(bool) == b.Data.(bool)
	case TypeJump:
		return a.Data.(int) == b.Data.(int)
	case TypeObject:
		ao, _ := a.AsObject()
		bo, _ := b.AsObject()
		if len(ao.Fields) != len(bo.Fields) {
			return false
		}
		for k, av := range ao.Fields {
			bv, ok := bo.Fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a Value the way Print stringifies it.
func (v *Value) String() string {
	switch v.Type {
	case TypeString, TypePath:
		s, _ := v.AsString()
		return s
	case TypeDuration:
		d, _ := v.AsDuration()
		return d.String()
	case TypeTime:
		t, _ := v.AsTime()
		switch t.Kind {
		case TimeSunrise:
			return "#sunrise"
		case TimeSunset:
			return "#sunset"
		default:
			return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
		}
	case TypeInteger:
		return strconv.FormatInt(v.Data.(int64), 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Data.(float64), 'g', -1, 64)
	case TypeBool:
		if v.Data.(bool) {
			return "true"
		}
		return "false"
	case TypeObject:
		o, _ := v.AsObject()
		out := "{"
		for i, k := range o.Keys() {
			if i > 0 {
				out += ", "
			}
			out += k + ": " + o.Fields[k].String()
		}
		return out + "}"
	case TypeJump:
		ip, _ := v.AsJump()
		return fmt.Sprintf("<jump %d>", ip)
	default:
		return "<invalid>"
	}
}
