package events

import (
	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/decode"
	"github.com/prtracker/prdemo/diag"
)

// Override replaces the generic schema decode for one message type.
// It receives the raw payload and returns the decoded data, usually []decode.Record.
type Override func(payload []byte, sink diag.Sink) any

// Reader reads one value at the cursor
type Reader func(c *decode.Cursor) (any, error)

// FlagField is a single entry of a FlagLayout. A nil Read marks a flag whose
// data cannot be read: no bytes are consumed and Key is never set on the
// record. The presence of such a flag is only visible in the "flags" list.
type FlagField struct {
	Bit  int
	Key  string
	Read Reader
}

// FlagLayout describes a record of packed optional fields: a little-endian
// flag word, an id, then one value for every set flag in Fields order.
type FlagLayout struct {
	Name      string
	FlagBytes int // 1 or 2
	IDKey     string
	ReadID    Reader
	Fields    []FlagField
}

// Decode reads records until the payload is exhausted.
// Every record contains "flags" ([]bool, index i is flag bit i), the id and
// the readable fields that were flagged, in layout order.
func (l FlagLayout) Decode(payload []byte, sink diag.Sink) any {
	var out []decode.Record
	c := decode.NewCursor(payload, 0)
	for c.Remaining() > 0 {
		start := c.Offset()
		word, err := l.readFlags(c)
		if err != nil {
			l.report(sink, "flags", start, err)
			break
		}
		bits := make([]bool, l.FlagBytes*8)
		for i := range bits {
			bits[i] = word&(1<<i) != 0
		}
		rec := decode.NewRecord(len(l.Fields) + 2)
		rec.Set("flags", bits)

		failed := false
		read := func(key string, r Reader) {
			if failed {
				rec.Set(key, nil)
				return
			}
			at := c.Offset()
			v, err := r(c)
			if err != nil {
				l.report(sink, key, at, err)
				failed = true
				v = nil
			}
			rec.Set(key, v)
		}

		read(l.IDKey, l.ReadID)
		for _, ff := range l.Fields {
			if !bits[ff.Bit] || ff.Read == nil {
				continue
			}
			read(ff.Key, ff.Read)
		}
		out = append(out, rec)
		if failed {
			break
		}
	}
	return out
}

func (l FlagLayout) readFlags(c *decode.Cursor) (uint16, error) {
	switch l.FlagBytes {
	case 1:
		b, err := c.UInt8()
		return uint16(b), err
	case 2:
		return c.UInt16()
	}
	return 0, errors.Errorf("%s: unsupported flag size %d", l.Name, l.FlagBytes)
}

func (l FlagLayout) report(sink diag.Sink, key string, offset int, err error) {
	d := diag.New(diag.TruncatedRecord)
	d.Type = l.Name
	d.Key = key
	d.Offset = offset
	d.Err = err
	sink.Report(d)
}

// Readers for flag layouts

func ReadInt8(c *decode.Cursor) (any, error)   { return c.Int8() }
func ReadUInt8(c *decode.Cursor) (any, error)  { return c.UInt8() }
func ReadInt16(c *decode.Cursor) (any, error)  { return c.Int16() }
func ReadString(c *decode.Cursor) (any, error) { return c.CString() }

// ReadFlag reads a byte that is true only when it equals 1
func ReadFlag(c *decode.Cursor) (any, error) { return c.Bool() }

// ReadPosition reads x, y and z as int16
func ReadPosition(c *decode.Cursor) (any, error) {
	pos := decode.NewRecord(3)
	for _, k := range []string{"x", "y", "z"} {
		v, err := c.Int16()
		if err != nil {
			return nil, err
		}
		pos.Set(k, v)
	}
	return pos, nil
}

// ReadVehicleSeat reads a vehicle id; a seat name and slot only follow for
// ids that are not negative.
func ReadVehicleSeat(c *decode.Cursor) (any, error) {
	id, err := c.Int16()
	if err != nil {
		return nil, err
	}
	rec := decode.NewRecord(3)
	rec.Set("vehicleId", id)
	if id < 0 {
		return rec, nil
	}
	seat, err := c.CString()
	if err != nil {
		return nil, err
	}
	slot, err := c.Int8()
	if err != nil {
		return nil, err
	}
	rec.Set("seat", seat)
	rec.Set("slot", slot)
	return rec, nil
}

// PlayerUpdateLayout is the player update record: uint16 flags, uint8 player id
var PlayerUpdateLayout = FlagLayout{
	Name:      "playerUpdate",
	FlagBytes: 2,
	IDKey:     "playerId",
	ReadID:    ReadUInt8,
	Fields: []FlagField{
		{0, "team", ReadInt8},
		{1, "squad", ReadUInt8},
		{2, "vehicle", ReadVehicleSeat},
		{3, "health", ReadInt8},
		{4, "score", ReadInt16},
		{5, "teamworkScore", ReadInt16},
		{6, "kills", ReadInt16},
		{7, "teamkills", nil},
		{8, "deaths", ReadInt16},
		{9, "ping", ReadInt16},
		{10, "placeholder", nil},
		{11, "isAlive", ReadFlag},
		{12, "isJoining", ReadFlag},
		{13, "position", ReadPosition},
		{14, "yaw", ReadInt16},
		{15, "kit", ReadString},
	},
}

// VehicleUpdateLayout is the vehicle update record: uint8 flags, int16 vehicle id
var VehicleUpdateLayout = FlagLayout{
	Name:      "vehicleUpdate",
	FlagBytes: 1,
	IDKey:     "vehicleId",
	ReadID:    ReadInt16,
	Fields: []FlagField{
		{0, "team", ReadInt8},
		{1, "position", ReadPosition},
		{2, "yaw", ReadInt16},
		{3, "health", ReadInt16},
	},
}

// DefaultOverrides returns the overrides for the built-in message table
func DefaultOverrides() map[string]Override {
	return map[string]Override{
		PlayerUpdateLayout.Name:  PlayerUpdateLayout.Decode,
		VehicleUpdateLayout.Name: VehicleUpdateLayout.Decode,
	}
}
