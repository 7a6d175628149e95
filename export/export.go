package export

import (
	"io"

	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/events"
)

// Protobuf field numbers
const (
	FieldExportFormatVersion = 1
	FieldExportMeta          = 2
	FieldExportEvent         = 3
	FieldExportCompatVersion = 4

	FieldEventType   = 1
	FieldEventTag    = 2
	FieldEventOffset = 3
	FieldEventData   = 4
)

// ErrIncompatible is returned when an export needs a newer reader
var ErrIncompatible = errors.New("incompatible export format version")

// Export is the root object in an export protobuf
type Export struct {
	FormatVersion uint32 // version of this export format
	CompatVersion uint32 // compatible with readers that support at least this version
	Meta          Meta
	Events        []events.Event
}

// New returns an Export for the current format version
func New(meta Meta, evs []events.Event) *Export {
	return &Export{
		FormatVersion: CurrentFormatVersion,
		CompatVersion: WriteCompatFormatVersion,
		Meta:          meta,
		Events:        evs,
	}
}

// MarshalEvent encodes a single Event message
func MarshalEvent(e events.Event) ([]byte, error) {
	b := appendString(nil, FieldEventType, e.Type)
	b = appendUint(b, FieldEventTag, uint64(e.Tag))
	b = appendUint(b, FieldEventOffset, uint64(e.Offset))
	data, err := MarshalValue(nil, e.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "event %s at offset %d", e.Type, e.Offset)
	}
	return appendBytes(b, FieldEventData, data), nil
}

// UnmarshalEvent decodes a single Event message
func UnmarshalEvent(data []byte) (events.Event, error) {
	var e events.Event
	d := newDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return e, err
		}
		switch tag {
		case FieldEventType:
			e.Type, err = getString(d, tag, wireType)
		case FieldEventTag:
			var t uint32
			t, err = getUInt32(d, tag, wireType)
			e.Tag = byte(t)
		case FieldEventOffset:
			var off uint64
			off, err = getUInt64(d, tag, wireType)
			e.Offset = int(off)
		case FieldEventData:
			var sub []byte
			if sub, err = getBytes(d, tag, wireType); err == nil {
				e.Data, err = UnmarshalValue(sub)
			}
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return e, err
		}
	}
	return e, nil
}

// Marshal returns the protobuf encoding of the export
func (x *Export) Marshal() ([]byte, error) {
	b := appendUint(nil, FieldExportFormatVersion, uint64(x.FormatVersion))
	if x.CompatVersion > 0 {
		b = appendUint(b, FieldExportCompatVersion, uint64(x.CompatVersion))
	}
	b = appendBytes(b, FieldExportMeta, x.Meta.Marshal())
	for _, e := range x.Events {
		msg, err := MarshalEvent(e)
		if err != nil {
			return nil, err
		}
		b = appendBytes(b, FieldExportEvent, msg)
	}
	return b, nil
}

// WriteTo writes the protobuf encoding to w
func (x *Export) WriteTo(w io.Writer) (int64, error) {
	b, err := x.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

func (x *Export) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldExportFormatVersion:
			x.FormatVersion, err = getUInt32(d, tag, wireType)
		case FieldExportCompatVersion:
			x.CompatVersion, err = getUInt32(d, tag, wireType)
		case FieldExportMeta:
			var msg []byte
			if msg, err = getBytes(d, tag, wireType); err == nil {
				err = x.Meta.Unmarshal(msg)
			}
		case FieldExportEvent:
			var msg []byte
			if msg, err = getBytes(d, tag, wireType); err == nil {
				var e events.Event
				e, err = UnmarshalEvent(msg)
				x.Events = append(x.Events, e)
			}
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return err
		}
	}
	if x.CompatVersion > CurrentFormatVersion {
		return errors.Wrapf(ErrIncompatible, "export needs version %d, we support %d",
			x.CompatVersion, CurrentFormatVersion)
	}
	return nil
}
