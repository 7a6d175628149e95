// Package decode turns frame payloads into Records using a message schema.
//
// Decoding is lenient: a field whose bytes are missing is set to nil, reported
// as a diagnostic, and decoding continues with the next field at the same
// offset. Only schema errors are fatal.
package decode

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/schema"
)

// Context is the state threaded through a record decode: the running offset
// and the record decoded so far.
type Context struct {
	Offset int
	Record Record
}

// Decoder decodes payloads and reports truncated fields to a diag.Sink
type Decoder struct {
	sink diag.Sink
}

// NewDecoder returns a Decoder. A nil sink reports to diag.Default().
func NewDecoder(sink diag.Sink) *Decoder {
	if sink == nil {
		sink = diag.Default()
	}
	return &Decoder{sink: sink}
}

// Message decodes a full payload.
// Opaque schemas return the payload unchanged. Non-repeat schemas return
// exactly one Record and ignore trailing bytes. Repeat schemas return a
// []Record, decoding until the payload is exhausted.
func (d *Decoder) Message(ms *schema.MessageSchema, payload []byte) (any, error) {
	if ms.Opaque() {
		return payload, nil
	}
	p := d.pass(ms.Name)
	if !ms.Repeat {
		_, rec, err := p.record(payload, 0, ms.Fields)
		return rec, err
	}
	var out []Record
	for offset := 0; offset < len(payload); {
		n, rec, err := p.record(payload, offset, ms.Fields)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Nothing could be read, the remaining bytes are unusable
			dg := diag.New(diag.TruncatedRecord)
			dg.Type = ms.Name
			dg.Offset = offset
			dg.Err = errors.Errorf("%d trailing bytes", len(payload)-offset)
			d.sink.Report(dg)
			break
		}
		out = append(out, rec)
		offset += n
	}
	return out, nil
}

// Record decodes fields starting at offset and returns the bytes consumed
func (d *Decoder) Record(buf []byte, offset int, fields schema.FieldSchema) (int, Record, error) {
	return d.pass("").record(buf, offset, fields)
}

// Field decodes a single field at offset. The record decoded so far is needed
// for conditional fields. Missing bytes return an error matching
// ErrTruncatedRecord.
func (d *Decoder) Field(buf []byte, offset int, ft schema.FieldType, rec Record) (int, any, error) {
	return d.pass("").field(buf, offset, ft, rec)
}

func (d *Decoder) pass(message string) pass {
	return pass{sink: d.sink, message: message}
}

// pass carries the per message reporting context
type pass struct {
	sink    diag.Sink
	message string
}

func (r pass) record(buf []byte, offset int, fields schema.FieldSchema) (int, Record, error) {
	ctx := Context{Offset: offset, Record: NewRecord(len(fields))}
	for _, f := range fields {
		var err error
		ctx, err = r.step(buf, ctx, f)
		if err != nil {
			return 0, nil, err
		}
	}
	return ctx.Offset - offset, ctx.Record, nil
}

// step decodes one field into ctx and returns the advanced context
func (r pass) step(buf []byte, ctx Context, f schema.Field) (Context, error) {
	n, v, err := r.field(buf, ctx.Offset, f.Type, ctx.Record)
	if err != nil {
		if !errors.Is(err, ErrTruncatedRecord) {
			return ctx, err
		}
		dg := diag.New(diag.TruncatedRecord)
		dg.Type = r.message
		dg.Key = f.Key
		dg.Offset = ctx.Offset
		dg.Err = err
		r.sink.Report(dg)
		n, v = 0, nil
	}
	ctx.Record.Set(f.Key, v)
	ctx.Offset += n
	return ctx, nil
}

func (r pass) field(buf []byte, offset int, ft schema.FieldType, rec Record) (int, any, error) {
	c := NewCursor(buf, offset)
	var v any
	var err error
	switch t := ft.(type) {
	case schema.Int8:
		v, err = c.Int8()
	case schema.UInt8:
		v, err = c.UInt8()
	case schema.Int16:
		v, err = c.Int16()
	case schema.UInt16:
		v, err = c.UInt16()
	case schema.Int32:
		v, err = c.Int32()
	case schema.UInt32:
		v, err = c.UInt32()
	case schema.Float32:
		v, err = c.Float32()
	case schema.Float64:
		v, err = c.Float64()
	case schema.Bool:
		v, err = c.Bool()
	case schema.CString:
		v, err = c.CString()
	case schema.Static:
		return 0, t.Value, nil
	case schema.BitGroup:
		return bitGroup(c, t)
	case schema.Bitmask:
		if t.Bytes < 1 {
			return 0, nil, &schema.InvalidSchemaError{
				Message: r.message,
				Reason:  fmt.Sprintf("bitmask of %d bytes", t.Bytes),
			}
		}
		v, err = c.Bits(t.Bytes)
	case schema.Collection:
		n, sub, err := r.record(buf, offset, t.Fields)
		return n, sub, err
	case schema.Conditional:
		return r.conditional(buf, offset, t, rec)
	case schema.ConditionalCollection:
		if len(t.Fields) == 0 {
			return 0, nil, &schema.InvalidSchemaError{
				Message: r.message,
				Reason:  "conditional collection without a sentinel field",
			}
		}
		lead := t.Fields[0]
		n, pv, err := r.field(buf, offset, lead.Type, rec)
		if err != nil {
			return 0, nil, err
		}
		if IsNegative(pv) {
			return n, pv, nil
		}
		n, sub, err := r.record(buf, offset, t.Fields)
		return n, sub, err
	default:
		return 0, nil, &schema.InvalidSchemaError{
			Message: r.message,
			Reason:  fmt.Sprintf("unsupported field type %T", ft),
		}
	}
	if err != nil {
		return 0, nil, err
	}
	return c.Offset() - offset, v, nil
}

func bitGroup(c *Cursor, t schema.BitGroup) (int, any, error) {
	b, err := c.UInt8()
	if err != nil {
		return 0, nil, err
	}
	high := b >= 0x80
	var hv any = high
	if t.Team {
		team := uint8(1)
		if high {
			team = 2
		}
		hv = team
	}
	sub := NewRecord(2)
	sub.Set(t.HighKey, hv)
	sub.Set(t.LowKey, b&0x0F)
	return 1, sub, nil
}

func (r pass) conditional(buf []byte, offset int, t schema.Conditional, rec Record) (int, any, error) {
	if rec == nil {
		return 0, nil, &schema.InvalidSchemaError{
			Message: r.message,
			Reason:  fmt.Sprintf("conditional on %q decoded without a record", t.BitmaskKey),
		}
	}
	raw, exists := rec.Get(t.BitmaskKey)
	if !exists {
		return 0, nil, &schema.InvalidSchemaError{
			Message: r.message,
			Field:   t.BitmaskKey,
			Reason:  "bitmask not decoded before conditional field",
		}
	}
	var bits []bool
	switch b := raw.(type) {
	case nil:
		// Truncated bitmask, nothing is present
	case []bool:
		bits = b
	default:
		return 0, nil, &schema.InvalidSchemaError{
			Message: r.message,
			Field:   t.BitmaskKey,
			Reason:  fmt.Sprintf("expected bitmask value, got %T", raw),
		}
	}
	n, sub, err := r.record(buf, offset, Select(bits, t.Fields))
	return n, sub, err
}

// Select returns the fields whose bit is set, in order. Bits and fields are
// paired by position up to the shorter length; nil fields are skipped.
func Select(bits []bool, fields []*schema.Field) schema.FieldSchema {
	n := len(bits)
	if len(fields) < n {
		n = len(fields)
	}
	out := make(schema.FieldSchema, 0, n)
	for i := 0; i < n; i++ {
		if bits[i] && fields[i] != nil {
			out = append(out, *fields[i])
		}
	}
	return out
}
