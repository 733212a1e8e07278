package values

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Parse implements the Get-side of the byte bridge (spec §4.3): it tries to
// parse data as JSON and maps bool/number/string/object onto the matching
// Value variant. Arrays and null are refused (the Value sum has no array
// variant) and fall through to the UTF-8 fallback, same as a parse failure.
func Parse(data []byte) *Value {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return NewString(string(data))
	}
	// A conforming decode must consume the entire payload; trailing bytes
	// (e.g. "1 2") mean this wasn't really a single JSON value.
	if dec.More() {
		return NewString(string(data))
	}
	v, ok := fromJSON(raw)
	if !ok {
		return NewString(string(data))
	}
	return v
}

func fromJSON(raw interface{}) (*Value, bool) {
	switch t := raw.(type) {
	case bool:
		return NewBool(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewInteger(i), true
		}
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return NewFloat(f), true
	case string:
		return NewString(t), true
	case map[string]interface{}:
		fields := make(map[string]*Value, len(t))
		for k, fv := range t {
			cv, ok := fromJSON(fv)
			if !ok {
				return nil, false
			}
			fields[k] = cv
		}
		return NewObjectValue(NewObject(fields)), true
	default:
		// nil (JSON null) and []interface{} (JSON array) are both refused.
		return nil, false
	}
}

// Marshal implements the Set-side of the byte bridge (spec §4.3). Duration,
// Time, Bool, and Jump are not transmissible and return an error.
func Marshal(v *Value) ([]byte, error) {
	switch v.Type {
	case TypeString, TypePath:
		s, _ := v.AsString()
		return []byte(s), nil
	case TypeInteger:
		return []byte(strconv.FormatInt(v.Data.(int64), 10)), nil
	case TypeFloat:
		return []byte(strconv.FormatFloat(v.Data.(float64), 'g', -1, 64)), nil
	case TypeObject:
		return marshalObject(v)
	default:
		return nil, fmt.Errorf("values: %s is not transmissible via set", v.Type)
	}
}

func marshalObject(v *Value) ([]byte, error) {
	o, _ := v.AsObject()
	m := make(map[string]interface{}, len(o.Fields))
	for k, fv := range o.Fields {
		jv, err := toJSON(fv)
		if err != nil {
			return nil, err
		}
		m[k] = jv
	}
	return json.Marshal(m)
}

func toJSON(v *Value) (interface{}, error) {
	switch v.Type {
	case TypeString, TypePath:
		s, _ := v.AsString()
		return s, nil
	case TypeInteger:
		return v.Data.(int64), nil
	case TypeFloat:
		return v.Data.(float64), nil
	case TypeBool:
		return v.Data.(bool), nil
	case TypeObject:
		o, _ := v.AsObject()
		m := make(map[string]interface{}, len(o.Fields))
		for k, fv := range o.Fields {
			jv, err := toJSON(fv)
			if err != nil {
				return nil, err
			}
			m[k] = jv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("values: %s has no JSON representation", v.Type)
	}
}

