package decode

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrTruncatedRecord is returned when a field needs more bytes than available
var ErrTruncatedRecord = errors.New("truncated record")

// Cursor reads little-endian values from a buffer. Reads past the end fail
// with ErrTruncatedRecord and leave the offset unchanged.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a Cursor positioned at offset
func NewCursor(buf []byte, offset int) *Cursor {
	return &Cursor{buf: buf, off: offset}
}

// Offset returns the current offset. It can exceed the buffer length after
// reading an unterminated string at the end of the buffer.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes
func (c *Cursor) Remaining() int {
	if c.off >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.off
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid read of %d bytes at offset %d", n, c.off)
	}
	if c.off < 0 || c.off+n > len(c.buf) {
		return nil, errors.Wrapf(ErrTruncatedRecord, "need %d bytes at offset %d, have %d",
			n, c.off, c.Remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *Cursor) Int8() (int8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (c *Cursor) UInt8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) Int16() (int16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (c *Cursor) UInt16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) Int32() (int32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (c *Cursor) UInt32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) Float32() (float32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (c *Cursor) Float64() (float64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// Bool reads one byte. Only 1 is true.
func (c *Cursor) Bool() (bool, error) {
	b, err := c.take(1)
	if err != nil {
		return false, err
	}
	return b[0] == 1, nil
}

// CString reads text up to the first zero byte or the end of the buffer.
// The terminator is always counted, even when the buffer ends first.
func (c *Cursor) CString() (string, error) {
	if c.off < 0 || c.off >= len(c.buf) {
		return "", errors.Wrapf(ErrTruncatedRecord, "no string data at offset %d", c.off)
	}
	rest := c.buf[c.off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		end = len(rest)
	}
	s := string(rest[:end])
	c.off += end + 1
	return s, nil
}

// Bits reads n bytes and expands them to n*8 bools. The bit list is built
// most significant bit first and then reversed, so index i is bit i%8 of byte
// n-1-i/8.
func (c *Cursor) Bits(n int) ([]bool, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	bits := make([]bool, 0, n*8)
	for _, ch := range b {
		for i := 7; i >= 0; i-- {
			bits = append(bits, ch&(1<<i) != 0)
		}
	}
	for i, j := 0, len(bits)-1; i < j; i, j = i+1, j-1 {
		bits[i], bits[j] = bits[j], bits[i]
	}
	return bits, nil
}
