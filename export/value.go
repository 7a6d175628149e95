package export

import (
	"math"
	"sort"

	"github.com/CrowdStrike/csproto"
	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/decode"
)

// Protobuf field numbers of Value
const (
	FieldValueInt    = 1
	FieldValueFloat  = 2
	FieldValueStr    = 3
	FieldValueBool   = 4
	FieldValueRaw    = 5
	FieldValueRecord = 6
	FieldValueList   = 7
	FieldValueNull   = 8
	FieldValueBits   = 9

	FieldRecordEntry = 1
	FieldEntryKey    = 1
	FieldEntryValue  = 2
	FieldListValue   = 1
)

// ErrUnsupportedValue is returned for values that have no export encoding
var ErrUnsupportedValue = errors.New("unsupported value type")

// MarshalValue appends the encoded Value message for v to b
func MarshalValue(b []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return appendBool(b, FieldValueNull, true), nil
	case bool:
		return appendBool(b, FieldValueBool, t), nil
	case string:
		return appendString(b, FieldValueStr, t), nil
	case []byte:
		return appendBytes(b, FieldValueRaw, t), nil
	case []bool:
		bits := make([]byte, len(t))
		for i, set := range t {
			if set {
				bits[i] = 1
			}
		}
		return appendBytes(b, FieldValueBits, bits), nil
	case float32:
		return appendFixed64(b, FieldValueFloat, math.Float64bits(float64(t))), nil
	case float64:
		return appendFixed64(b, FieldValueFloat, math.Float64bits(t)), nil
	case decode.Record:
		sub, err := marshalRecord(t)
		if err != nil {
			return nil, err
		}
		return appendBytes(b, FieldValueRecord, sub), nil
	case map[string]any:
		sub, err := marshalMap(t)
		if err != nil {
			return nil, err
		}
		return appendBytes(b, FieldValueRecord, sub), nil
	case []decode.Record:
		list := make([]any, len(t))
		for i, r := range t {
			list[i] = r
		}
		return marshalList(b, list)
	case []any:
		return marshalList(b, t)
	}
	if n, ok := decode.AsInt64(v); ok {
		return appendUint(b, FieldValueInt, uint64(n)), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedValue, "%T", v)
}

func marshalEntry(key string, v any) ([]byte, error) {
	e := appendString(nil, FieldEntryKey, key)
	val, err := MarshalValue(nil, v)
	if err != nil {
		return nil, errors.Wrapf(err, "key %q", key)
	}
	return appendBytes(e, FieldEntryValue, val), nil
}

func marshalRecord(r decode.Record) ([]byte, error) {
	var b []byte
	for el := r.Front(); el != nil; el = el.Next() {
		e, err := marshalEntry(el.Key, el.Value)
		if err != nil {
			return nil, err
		}
		b = appendBytes(b, FieldRecordEntry, e)
	}
	return b, nil
}

func marshalMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b []byte
	for _, k := range keys {
		e, err := marshalEntry(k, m[k])
		if err != nil {
			return nil, err
		}
		b = appendBytes(b, FieldRecordEntry, e)
	}
	return b, nil
}

func marshalList(b []byte, list []any) ([]byte, error) {
	var sub []byte
	for _, v := range list {
		val, err := MarshalValue(nil, v)
		if err != nil {
			return nil, err
		}
		sub = appendBytes(sub, FieldListValue, val)
	}
	return appendBytes(b, FieldValueList, sub), nil
}

// UnmarshalValue decodes a Value message. Integers come back as int64,
// floats as float64, records as decode.Record and lists as []any.
func UnmarshalValue(data []byte) (any, error) {
	var v any
	d := newDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}
		switch tag {
		case FieldValueInt:
			v, err = getInt64(d, tag, wireType)
		case FieldValueFloat:
			var bits uint64
			bits, err = getFixed64(d, tag, wireType)
			v = math.Float64frombits(bits)
		case FieldValueStr:
			v, err = getString(d, tag, wireType)
		case FieldValueBool:
			v, err = getBool(d, tag, wireType)
		case FieldValueRaw:
			var raw []byte
			raw, err = getBytes(d, tag, wireType)
			v = append([]byte{}, raw...)
		case FieldValueBits:
			var raw []byte
			raw, err = getBytes(d, tag, wireType)
			bits := make([]bool, len(raw))
			for i, c := range raw {
				bits[i] = c != 0
			}
			v = bits
		case FieldValueRecord:
			var sub []byte
			if sub, err = getBytes(d, tag, wireType); err == nil {
				v, err = unmarshalRecord(sub)
			}
		case FieldValueList:
			var sub []byte
			if sub, err = getBytes(d, tag, wireType); err == nil {
				v, err = unmarshalList(sub)
			}
		case FieldValueNull:
			_, err = getBool(d, tag, wireType)
			v = nil
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func unmarshalRecord(data []byte) (decode.Record, error) {
	r := decode.NewRecord(0)
	d := newDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}
		if tag != FieldRecordEntry {
			if _, err := d.Skip(tag, wireType); err != nil {
				return nil, err
			}
			continue
		}
		entry, err := getBytes(d, tag, wireType)
		if err != nil {
			return nil, err
		}
		key, val, err := unmarshalEntry(entry)
		if err != nil {
			return nil, err
		}
		r.Set(key, val)
	}
	return r, nil
}

func unmarshalEntry(data []byte) (key string, val any, err error) {
	d := newDecoder(data)
	for d.More() {
		var tag int
		var wireType csproto.WireType
		tag, wireType, err = d.DecodeTag()
		if err != nil {
			return
		}
		switch tag {
		case FieldEntryKey:
			key, err = getString(d, tag, wireType)
		case FieldEntryValue:
			var sub []byte
			if sub, err = getBytes(d, tag, wireType); err == nil {
				val, err = UnmarshalValue(sub)
			}
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return
		}
	}
	return
}

func unmarshalList(data []byte) ([]any, error) {
	list := []any{}
	d := newDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}
		if tag != FieldListValue {
			if _, err := d.Skip(tag, wireType); err != nil {
				return nil, err
			}
			continue
		}
		sub, err := getBytes(d, tag, wireType)
		if err != nil {
			return nil, err
		}
		v, err := UnmarshalValue(sub)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}
