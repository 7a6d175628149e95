package state

import (
	"sort"

	"github.com/prtracker/prdemo/decode"
)

// Fields is an immutable string keyed map. Every write returns a new Fields
// and leaves the receiver untouched. Nested records are stored as Fields.
// The zero value is an empty Fields.
type Fields struct {
	m map[string]any
}

// NewFields returns Fields holding a copy of m. Nested maps and records are
// converted to Fields.
func NewFields(m map[string]any) Fields {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = freeze(v)
	}
	return Fields{m: out}
}

// FieldsOf converts a decoded record, leaving out the omitted keys.
// Nil values are kept.
func FieldsOf(r decode.Record, omit ...string) Fields {
	if r == nil {
		return Fields{}
	}
	out := make(map[string]any, r.Len())
	for el := r.Front(); el != nil; el = el.Next() {
		if contains(omit, el.Key) {
			continue
		}
		out[el.Key] = freeze(el.Value)
	}
	return Fields{m: out}
}

func freeze(v any) any {
	switch t := v.(type) {
	case decode.Record:
		return FieldsOf(t)
	case map[string]any:
		return NewFields(t)
	case []bool:
		return append([]bool(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Len returns the number of keys
func (f Fields) Len() int {
	return len(f.m)
}

// Get returns the value for key
func (f Fields) Get(key string) (any, bool) {
	v, ok := f.m[key]
	return v, ok
}

// Int returns the value for key as int64
func (f Fields) Int(key string) (int64, bool) {
	return decode.AsInt64(f.m[key])
}

// Text returns the value for key if it is a string
func (f Fields) Text(key string) (string, bool) {
	s, ok := f.m[key].(string)
	return s, ok
}

// Sub returns the nested Fields for key
func (f Fields) Sub(key string) (Fields, bool) {
	s, ok := f.m[key].(Fields)
	return s, ok
}

// Keys returns the sorted keys
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f.m))
	for k := range f.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f Fields) clone(extra int) map[string]any {
	out := make(map[string]any, len(f.m)+extra)
	for k, v := range f.m {
		out[k] = v
	}
	return out
}

// Set returns a copy with key set to v
func (f Fields) Set(key string, v any) Fields {
	m := f.clone(1)
	m[key] = freeze(v)
	return Fields{m: m}
}

// Delete returns a copy without key
func (f Fields) Delete(key string) Fields {
	if _, ok := f.m[key]; !ok {
		return f
	}
	m := f.clone(0)
	delete(m, key)
	return Fields{m: m}
}

// Merge returns a copy with the values of r merged in.
// A nil value removes the key, keys absent from r are kept, and nested
// records are merged into existing nested Fields instead of replacing them.
func (f Fields) Merge(r decode.Record, omit ...string) Fields {
	if r == nil {
		return f
	}
	m := f.clone(r.Len())
	for el := r.Front(); el != nil; el = el.Next() {
		if contains(omit, el.Key) {
			continue
		}
		mergeValue(m, el.Key, el.Value)
	}
	return Fields{m: m}
}

// MergeFields is Merge for a Fields value
func (f Fields) MergeFields(o Fields) Fields {
	m := f.clone(len(o.m))
	for k, v := range o.m {
		mergeValue(m, k, v)
	}
	return Fields{m: m}
}

func mergeValue(m map[string]any, key string, v any) {
	if v == nil {
		delete(m, key)
		return
	}
	prev, isFields := m[key].(Fields)
	switch t := v.(type) {
	case decode.Record:
		if isFields {
			m[key] = prev.Merge(t)
			return
		}
	case Fields:
		if isFields {
			m[key] = prev.MergeFields(t)
			return
		}
	}
	m[key] = freeze(v)
}

// ToMap returns a plain copy, with nested Fields converted recursively
func (f Fields) ToMap() map[string]any {
	out := make(map[string]any, len(f.m))
	for k, v := range f.m {
		if sub, ok := v.(Fields); ok {
			out[k] = sub.ToMap()
			continue
		}
		out[k] = v
	}
	return out
}
