package export

import (
	"encoding/binary"
	"fmt"

	"github.com/CrowdStrike/csproto"
)

type ErrUnexpectedWireType struct {
	Tag         int
	WireType    csproto.WireType
	ExpWireType csproto.WireType
}

func (e ErrUnexpectedWireType) Error() string {
	return fmt.Sprintf("unexpected wiretype for tag %d: got %v, expected %v",
		e.Tag, e.WireType, e.ExpWireType)
}

func expectWT(tag int, got, exp csproto.WireType) error {
	if got != exp {
		return ErrUnexpectedWireType{
			Tag:         tag,
			WireType:    got,
			ExpWireType: exp,
		}
	}
	return nil
}

func newDecoder(data []byte) *csproto.Decoder {
	d := csproto.NewDecoder(data)
	d.SetMode(csproto.DecoderModeFast)
	return d
}

func getUInt32(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint32, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeUInt32()
}

func getUInt64(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint64, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeUInt64()
}

func getInt64(d *csproto.Decoder, tag int, wireType csproto.WireType) (int64, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeInt64()
}

func getBool(d *csproto.Decoder, tag int, wireType csproto.WireType) (bool, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return false, err
	}
	return d.DecodeBool()
}

func getFixed64(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint64, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeFixed64); err != nil {
		return 0, err
	}
	return d.DecodeFixed64()
}

func getBytes(d *csproto.Decoder, tag int, wireType csproto.WireType) ([]byte, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeLengthDelimited); err != nil {
		return nil, err
	}
	val, err := d.DecodeBytes()
	if err != nil {
		return nil, err
	}
	n := len(val)
	return val[0:n:n], nil
}

func getString(d *csproto.Decoder, tag int, wireType csproto.WireType) (string, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeLengthDelimited); err != nil {
		return "", err
	}
	return d.DecodeString()
}

// Append style encoders. The csproto encoders write into a preallocated
// slice, these grow the slice as needed.

func appendTag(b []byte, tag int, wt csproto.WireType) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := csproto.EncodeTag(tmp[:], tag, wt)
	return append(b, tmp[:n]...)
}

func appendVarint(b []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := csproto.EncodeVarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func appendUint(b []byte, tag int, v uint64) []byte {
	b = appendTag(b, tag, csproto.WireTypeVarint)
	return appendVarint(b, v)
}

func appendBool(b []byte, tag int, v bool) []byte {
	var n uint64
	if v {
		n = 1
	}
	return appendUint(b, tag, n)
}

func appendFixed64(b []byte, tag int, v uint64) []byte {
	b = appendTag(b, tag, csproto.WireTypeFixed64)
	return binary.LittleEndian.AppendUint64(b, v)
}

func appendBytes(b []byte, tag int, data []byte) []byte {
	b = appendTag(b, tag, csproto.WireTypeLengthDelimited)
	b = appendVarint(b, uint64(len(data)))
	return append(b, data...)
}

func appendString(b []byte, tag int, s string) []byte {
	b = appendTag(b, tag, csproto.WireTypeLengthDelimited)
	b = appendVarint(b, uint64(len(s)))
	return append(b, s...)
}
