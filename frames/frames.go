// Package frames splits a decompressed tracker log into length-prefixed frames.
package frames

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// LengthSize is the size of the little-endian length prefix of every frame
const LengthSize = 2

// ErrTruncatedLog is returned when a length prefix or frame body points past
// the end of the buffer.
var ErrTruncatedLog = errors.New("truncated log")

// TruncatedLogError describes where a log was cut off
type TruncatedLogError struct {
	Offset    int // offset of the length prefix
	Want      int // bytes needed
	Available int // bytes left in the buffer
}

func (e *TruncatedLogError) Error() string {
	return fmt.Sprintf("truncated log at offset %d: need %d bytes, %d available",
		e.Offset, e.Want, e.Available)
}

func (e *TruncatedLogError) Is(target error) bool {
	return target == ErrTruncatedLog
}

// Frame is a single message from the log. The Body starts with a one byte tag.
type Frame struct {
	Offset int // offset of the length prefix in the decompressed log
	Body   []byte
}

// Tag returns the message tag. It returns false for an empty frame.
func (f Frame) Tag() (byte, bool) {
	if len(f.Body) == 0 {
		return 0, false
	}
	return f.Body[0], true
}

// Payload returns the frame body without the tag
func (f Frame) Payload() []byte {
	if len(f.Body) == 0 {
		return nil
	}
	return f.Body[1:]
}

// Iterator reads frames from a buffer one at a time.
// Frames share memory with the buffer and must not be modified.
type Iterator struct {
	buf    []byte
	offset int
	err    error
}

// NewIterator returns an Iterator over buf
func NewIterator(buf []byte) *Iterator {
	return &Iterator{buf: buf}
}

// Offset returns the offset of the next frame
func (it *Iterator) Offset() int {
	return it.offset
}

// Next returns the next frame. It returns io.EOF once the buffer is exhausted.
// Once a truncation is found, every following call returns the same
// TruncatedLogError.
func (it *Iterator) Next() (Frame, error) {
	if it.err != nil {
		return Frame{}, it.err
	}
	remaining := len(it.buf) - it.offset
	if remaining == 0 {
		return Frame{}, io.EOF
	}
	if remaining < LengthSize {
		it.err = &TruncatedLogError{Offset: it.offset, Want: LengthSize, Available: remaining}
		return Frame{}, it.err
	}
	length := int(binary.LittleEndian.Uint16(it.buf[it.offset:]))
	start := it.offset + LengthSize
	end := start + length
	if end > len(it.buf) {
		it.err = &TruncatedLogError{Offset: it.offset, Want: LengthSize + length, Available: remaining}
		return Frame{}, it.err
	}
	f := Frame{
		Offset: it.offset,
		Body:   it.buf[start:end:end],
	}
	it.offset = end
	return f, nil
}

// Split returns all frames in buf. On truncation it returns the frames read
// so far together with an error that matches ErrTruncatedLog.
func Split(buf []byte) ([]Frame, error) {
	var out []Frame
	it := NewIterator(buf)
	for {
		f, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, f)
	}
}

// Append appends a frame with given tag and payload to buf. This is mostly
// useful to build logs in tests.
func Append(buf []byte, tag byte, payload []byte) []byte {
	var prefix [LengthSize]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(payload)+1))
	buf = append(buf, prefix[:]...)
	buf = append(buf, tag)
	return append(buf, payload...)
}
