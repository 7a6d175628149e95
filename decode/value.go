package decode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

// Record is a decoded message in field declaration order.
//
// Values are int8, uint8, int16, uint16, int32, uint32, float32, float64,
// bool, string, Record, []bool (bitmasks), []byte, nil (truncated field) or
// the value of a static field.
type Record = *orderedmap.OrderedMap[string, any]

// NewRecord returns an empty Record
func NewRecord(capacity int) Record {
	return orderedmap.NewOrderedMapWithCapacity[string, any](capacity)
}

// RecordOf builds a Record from key value pairs, mostly for tests
func RecordOf(kv ...any) Record {
	if len(kv)%2 != 0 {
		panic("RecordOf: odd number of arguments")
	}
	r := NewRecord(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

// AsInt64 converts any integer value to int64
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case uint8:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int:
		return int64(n), true
	case uint:
		return int64(n), true
	}
	return 0, false
}

// AsFloat64 converts any numeric value to float64
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := AsInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// IsNegative reports whether v is a number below zero
func IsNegative(v any) bool {
	f, ok := AsFloat64(v)
	return ok && f < 0
}

// ToMap converts a Record into plain maps, recursively
func ToMap(r Record) map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, r.Len())
	for el := r.Front(); el != nil; el = el.Next() {
		out[el.Key] = plain(el.Value)
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case Record:
		return ToMap(t)
	case []Record:
		list := make([]any, len(t))
		for i, r := range t {
			list[i] = ToMap(r)
		}
		return list
	}
	return v
}

// Format renders a value as compact text for dumps. Records keep their field
// order.
func Format(v any) string {
	var sb strings.Builder
	format(&sb, v)
	return sb.String()
}

func format(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case Record:
		sb.WriteByte('{')
		first := true
		for el := t.Front(); el != nil; el = el.Next() {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(el.Key)
			sb.WriteString(": ")
			format(sb, el.Value)
		}
		sb.WriteByte('}')
	case []Record:
		sb.WriteByte('[')
		for i, r := range t {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, r)
		}
		sb.WriteByte(']')
	case []any:
		sb.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, el)
		}
		sb.WriteByte(']')
	case []bool:
		sb.WriteByte('[')
		for _, b := range t {
			if b {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		sb.WriteByte(']')
	case []byte:
		fmt.Fprintf(sb, "<% x>", t)
	case string:
		fmt.Fprintf(sb, "%q", t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			format(sb, t[k])
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "%v", t)
	}
}
