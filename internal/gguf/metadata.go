package gguf

import "fmt"

// String returns the first present string value among keys.
func (f *GGUFFile) String(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := f.KV[k].(string); ok {
			return v, true
		}
	}
	return "", false
}

// Int returns the first present integer value among keys.
func (f *GGUFFile) Int(keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := f.KV[k].(type) {
		case uint8:
			return int(v), true
		case int8:
			return int(v), true
		case uint16:
			return int(v), true
		case int16:
			return int(v), true
		case uint32:
			return int(v), true
		case int32:
			return int(v), true
		case uint64:
			return int(v), true
		case int64:
			return int(v), true
		}
	}
	return 0, false
}

// Float returns the first present float value among keys.
func (f *GGUFFile) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := f.KV[k].(type) {
		case float32:
			return float64(v), true
		case float64:
			return v, true
		}
	}
	return 0, false
}

// Strings returns the first present string array among keys.
func (f *GGUFFile) Strings(keys ...string) ([]string, error) {
	for _, k := range keys {
		val, ok := f.KV[k]
		if !ok {
			continue
		}
		arr, ok := val.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: expected array, got %T", k, val)
		}
		out := make([]string, len(arr))
		for i, v := range arr {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected string, got %T", k, i, v)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("none of %v found", keys)
}

// ParameterCount sums the element counts of all tensors.
func (f *GGUFFile) ParameterCount() int64 {
	var total int64
	for _, t := range f.Tensors {
		total += int64(t.NumElements())
	}
	return total
}
