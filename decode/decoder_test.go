package decode

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/schema"
)

func f(key string, ft schema.FieldType) schema.Field {
	return schema.Field{Key: key, Type: ft}
}

func fp(key string, ft schema.FieldType) *schema.Field {
	return &schema.Field{Key: key, Type: ft}
}

func newTestDecoder() (*Decoder, *diag.Collector) {
	c := &diag.Collector{}
	return NewDecoder(c), c
}

// encodeBits is the inverse of Cursor.Bits
func encodeBits(bits []bool) []byte {
	n := len(bits) / 8
	out := make([]byte, n)
	for i, b := range bits {
		if b {
			out[n-1-i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func TestDecoder_Field_scalars(t *testing.T) {
	f32 := math.Float32bits(1.5)
	f64 := math.Float64bits(-2.25)
	tests := []struct {
		name     string
		buf      []byte
		ft       schema.FieldType
		want     any
		consumed int
	}{
		{"int8", []byte{0xFF}, schema.Int8{}, int8(-1), 1},
		{"uint8", []byte{0xFF}, schema.UInt8{}, uint8(255), 1},
		{"int16", []byte{0xFE, 0xFF}, schema.Int16{}, int16(-2), 2},
		{"uint16", []byte{0x34, 0x12}, schema.UInt16{}, uint16(0x1234), 2},
		{"int32", []byte{0xFF, 0xFF, 0xFF, 0xFF}, schema.Int32{}, int32(-1), 4},
		{"uint32", []byte{0x78, 0x56, 0x34, 0x12}, schema.UInt32{}, uint32(0x12345678), 4},
		{"float32", []byte{byte(f32), byte(f32 >> 8), byte(f32 >> 16), byte(f32 >> 24)}, schema.Float32{}, float32(1.5), 4},
		{"float64", []byte{byte(f64), byte(f64 >> 8), byte(f64 >> 16), byte(f64 >> 24),
			byte(f64 >> 32), byte(f64 >> 40), byte(f64 >> 48), byte(f64 >> 56)}, schema.Float64{}, -2.25, 8},
		{"bool-true", []byte{1}, schema.Bool{}, true, 1},
		{"bool-two", []byte{2}, schema.Bool{}, false, 1},
		{"cstring", []byte("abc\x00def"), schema.CString{}, "abc", 4},
		{"cstring-empty", []byte{0}, schema.CString{}, "", 1},
		{"cstring-unterminated", []byte("abc"), schema.CString{}, "abc", 4},
		{"static", nil, schema.Static{Value: 1}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDecoder()
			n, v, err := d.Field(tt.buf, 0, tt.ft, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.consumed, n)
		})
	}
}

func TestDecoder_Field_truncated(t *testing.T) {
	types := []schema.FieldType{
		schema.Int8{}, schema.UInt16{}, schema.Int32{}, schema.Float64{},
		schema.Bool{}, schema.CString{}, schema.BitGroup{HighKey: "a", LowKey: "b"},
		schema.Bitmask{Bytes: 2},
	}
	for _, ft := range types {
		t.Run(ft.String(), func(t *testing.T) {
			d, _ := newTestDecoder()
			_, _, err := d.Field([]byte{}, 0, ft, nil)
			assert.True(t, errors.Is(err, ErrTruncatedRecord), "got %v", err)
		})
	}
}

func TestDecoder_Field_bitGroup(t *testing.T) {
	d, _ := newTestDecoder()

	n, v, err := d.Field([]byte{0x83}, 0, schema.BitGroup{HighKey: "team", LowKey: "squad", Team: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]any{"team": uint8(2), "squad": uint8(3)}, ToMap(v.(Record)))

	_, v, err = d.Field([]byte{0x1F}, 0, schema.BitGroup{HighKey: "team", LowKey: "squad", Team: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"team": uint8(1), "squad": uint8(0x0F)}, ToMap(v.(Record)))

	_, v, err = d.Field([]byte{0x85}, 0, schema.BitGroup{HighKey: "isLeader", LowKey: "squad"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"isLeader": true, "squad": uint8(5)}, ToMap(v.(Record)))
}

func TestDecoder_Field_bitmask(t *testing.T) {
	d, _ := newTestDecoder()
	buf := []byte{0x01, 0xA0}
	n, v, err := d.Field(buf, 0, schema.Bitmask{Bytes: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	bits := v.([]bool)
	require.Len(t, bits, 16)

	var set []int
	for i, b := range bits {
		if b {
			set = append(set, i)
		}
	}
	// 0xA0 is the last byte and provides bits 0-7
	assert.Equal(t, []int{5, 7, 8}, set)
	assert.Equal(t, buf, encodeBits(bits))
}

func TestDecoder_Record_truncation(t *testing.T) {
	d, c := newTestDecoder()
	fields := schema.FieldSchema{
		f("a", schema.UInt16{}),
		f("b", schema.UInt16{}),
		f("c", schema.CString{}),
	}
	n, rec, err := d.Record([]byte{0x05, 0x00}, 0, fields)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, rec.Len())
	assert.Equal(t, map[string]any{"a": uint16(5), "b": nil, "c": nil}, ToMap(rec))

	truncated := c.OfKind(diag.TruncatedRecord)
	require.Len(t, truncated, 2)
	assert.Equal(t, "b", truncated[0].Key)
	assert.Equal(t, 2, truncated[0].Offset)
	assert.Equal(t, "c", truncated[1].Key)
}

func TestDecoder_Record_truncationContinues(t *testing.T) {
	// A field that does not fit is skipped, smaller fields after it still decode
	d, _ := newTestDecoder()
	fields := schema.FieldSchema{
		f("big", schema.UInt32{}),
		f("small", schema.UInt8{}),
	}
	n, rec, err := d.Record([]byte{0x07}, 0, fields)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]any{"big": nil, "small": uint8(7)}, ToMap(rec))
}

func TestDecoder_Field_conditional(t *testing.T) {
	d, _ := newTestDecoder()
	rec := NewRecord(1)
	rec.Set("mask", []bool{true, false, true})
	cond := schema.Conditional{
		BitmaskKey: "mask",
		Fields: []*schema.Field{
			fp("f0", schema.UInt8{}),
			fp("f1", schema.UInt8{}),
			nil,
		},
	}
	n, v, err := d.Field([]byte{0x09, 0x0A}, 0, cond, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]any{"f0": uint8(9)}, ToMap(v.(Record)))
}

func TestDecoder_Field_conditionalErrors(t *testing.T) {
	cond := schema.Conditional{BitmaskKey: "mask", Fields: []*schema.Field{fp("a", schema.UInt8{})}}

	d, _ := newTestDecoder()
	_, _, err := d.Field([]byte{1}, 0, cond, NewRecord(0))
	assert.True(t, errors.Is(err, schema.ErrInvalidSchema))

	rec := NewRecord(1)
	rec.Set("mask", uint8(1))
	_, _, err = d.Field([]byte{1}, 0, cond, rec)
	assert.True(t, errors.Is(err, schema.ErrInvalidSchema))

	// A truncated bitmask selects nothing
	rec.Set("mask", nil)
	n, v, err := d.Field([]byte{1}, 0, cond, rec)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, v.(Record).Len())
}

func TestSelect(t *testing.T) {
	a, b, c := fp("a", schema.Int8{}), fp("b", schema.Int8{}), fp("c", schema.Int8{})
	tests := []struct {
		name   string
		bits   []bool
		fields []*schema.Field
		want   []string
	}{
		{"all", []bool{true, true, true}, []*schema.Field{a, b, c}, []string{"a", "b", "c"}},
		{"gaps", []bool{false, true, true}, []*schema.Field{a, nil, c}, []string{"c"}},
		{"short-bits", []bool{true}, []*schema.Field{a, b, c}, []string{"a"}},
		{"short-fields", []bool{true, true, true, true}, []*schema.Field{a, b}, []string{"a", "b"}},
		{"none", nil, []*schema.Field{a}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.bits, tt.fields)
			keys := make([]string, 0, len(got))
			for _, f := range got {
				keys = append(keys, f.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestDecoder_Field_conditionalCollection(t *testing.T) {
	cc := schema.ConditionalCollection{Fields: schema.FieldSchema{
		f("vehicleId", schema.Int16{}),
		f("seat", schema.CString{}),
		f("slot", schema.Int8{}),
	}}
	d, _ := newTestDecoder()

	// Negative sentinel: only the sentinel is consumed
	n, v, err := d.Field([]byte{0xFF, 0xFF, 0x33}, 0, cc, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int16(-1), v)

	n, v, err = d.Field([]byte{0x02, 0x00, 'd', 'r', 0x00, 0x01}, 0, cc, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, map[string]any{"vehicleId": int16(2), "seat": "dr", "slot": int8(1)}, ToMap(v.(Record)))

	_, _, err = d.Field([]byte{0x02}, 0, cc, nil)
	assert.True(t, errors.Is(err, ErrTruncatedRecord))
}

func TestDecoder_offsetConservation(t *testing.T) {
	fields := schema.FieldSchema{
		f("mask", schema.Bitmask{Bytes: 1}),
		f("id", schema.UInt8{}),
		f("status", schema.Conditional{BitmaskKey: "mask", Fields: []*schema.Field{
			fp("team", schema.Int8{}),
			fp("pos", schema.Collection{Fields: schema.FieldSchema{
				f("x", schema.Int16{}),
				f("y", schema.Int16{}),
			}}),
			fp("name", schema.CString{}),
		}}),
		f("tail", schema.UInt8{}),
	}
	buf := []byte{
		0b00000111, // team, pos and name present
		0x04,
		0x02,
		0x10, 0x00, 0x20, 0x00,
		'x', 0x00,
		0x99,
	}
	d, c := newTestDecoder()
	n, rec, err := d.Record(buf, 0, fields)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, 0, c.Len())

	status, _ := rec.Get("status")
	sn, _, err := d.Field(buf, 2, schema.Collection{Fields: Select(
		[]bool{true, true, true},
		fields[2].Type.(schema.Conditional).Fields,
	)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, sn)
	assert.Equal(t, 1+1+sn+1, n)

	assert.Equal(t, map[string]any{
		"team": int8(2),
		"pos":  map[string]any{"x": int16(0x10), "y": int16(0x20)},
		"name": "x",
	}, ToMap(status.(Record)))
	tail, _ := rec.Get("tail")
	assert.Equal(t, uint8(0x99), tail)
}

func TestDecoder_Message(t *testing.T) {
	single := &schema.MessageSchema{Name: "one", Fields: schema.FieldSchema{f("id", schema.UInt8{})}}
	repeat := &schema.MessageSchema{Name: "many", Fields: schema.FieldSchema{f("id", schema.UInt8{})}, Repeat: true}
	opaque := &schema.MessageSchema{Name: "raw"}

	d, c := newTestDecoder()

	v, err := d.Message(single, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": uint8(1)}, ToMap(v.(Record)))

	v, err = d.Message(single, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": nil}, ToMap(v.(Record)))

	v, err = d.Message(repeat, []byte{1, 2, 3})
	require.NoError(t, err)
	recs := v.([]Record)
	require.Len(t, recs, 3)
	id, _ := recs[2].Get("id")
	assert.Equal(t, uint8(3), id)

	v, err = d.Message(repeat, nil)
	require.NoError(t, err)
	assert.Len(t, v.([]Record), 0)

	v, err = d.Message(opaque, []byte{9, 8})
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8}, v)

	c2 := c.Len()
	pair := &schema.MessageSchema{Name: "pairs", Repeat: true, Fields: schema.FieldSchema{f("v", schema.UInt16{})}}
	v, err = d.Message(pair, []byte{1, 0, 2})
	require.NoError(t, err)
	assert.Len(t, v.([]Record), 1)
	assert.Greater(t, c.Len(), c2)
}

func TestDecoder_Message_invalidSchema(t *testing.T) {
	type bogus struct{ schema.FieldType }
	ms := &schema.MessageSchema{Name: "bad", Fields: schema.FieldSchema{f("x", bogus{})}}
	d, _ := newTestDecoder()
	_, err := d.Message(ms, []byte{1})
	assert.True(t, errors.Is(err, schema.ErrInvalidSchema))
}

func TestDecoder_Message_malformedTypes(t *testing.T) {
	tests := []struct {
		name string
		ft   schema.FieldType
	}{
		{"empty conditional collection", schema.ConditionalCollection{}},
		{"negative bitmask", schema.Bitmask{Bytes: -1}},
		{"empty bitmask", schema.Bitmask{Bytes: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &schema.MessageSchema{Name: "bad", Fields: schema.FieldSchema{f("a", tt.ft)}}
			d, c := newTestDecoder()
			var err error
			require.NotPanics(t, func() {
				_, err = d.Message(ms, []byte{1, 2, 3})
			})
			assert.True(t, errors.Is(err, schema.ErrInvalidSchema), "got %v", err)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestCursor_negativeRead(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3}, 0)
	_, err := c.take(-1)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrTruncatedRecord))
	assert.Equal(t, 0, c.Offset())
}

func TestDecoder_deterministic(t *testing.T) {
	ms, ok := schema.Default().ByName("playerAdd")
	require.True(t, ok)
	payload := []byte{
		0x01, 'a', 'b', 0x00, 'h', 0x00, '1', 0x00,
		0x02, 'c', 0x00, 0x00, 0x00,
	}
	d, _ := newTestDecoder()
	v1, err := d.Message(ms, payload)
	require.NoError(t, err)
	v2, err := d.Message(ms, payload)
	require.NoError(t, err)
	assert.Equal(t, Format(v1), Format(v2))
	assert.Equal(t,
		`[{playerId: 1, name: "ab", hash: "h", ip: "1"}, {playerId: 2, name: "c", hash: "", ip: ""}]`,
		Format(v1))
}
