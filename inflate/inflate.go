// Package inflate decompresses tracker logs.
//
// Logs are zlib streams. Gzip and zstd files are detected by their magic
// bytes, and a stream without a valid zlib header is read as raw deflate.
package inflate

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// ErrCorruptStream is returned for data that cannot be decompressed
var ErrCorruptStream = errors.New("corrupt compressed stream")

// Format is a compression container
type Format int

const (
	Zlib Format = iota
	Deflate
	Gzip
	Zstd
)

func (f Format) String() string {
	switch f {
	case Zlib:
		return "zlib"
	case Deflate:
		return "deflate"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "unknown"
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect returns the format of compressed data
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case isZlibHeader(data):
		return Zlib
	}
	return Deflate
}

// isZlibHeader checks the CMF and FLG bytes of RFC 1950
func isZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// Decompress returns the decompressed contents of data.
// Any failure is wrapped in ErrCorruptStream.
func Decompress(data []byte) ([]byte, error) {
	f := Detect(data)
	out, err := decompress(f, data)
	if err != nil {
		return nil, corrupt(f, err)
	}
	return out, nil
}

func decompress(f Format, data []byte) ([]byte, error) {
	if f == Zstd {
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return d.DecodeAll(data, nil)
	}

	var r io.ReadCloser
	var err error
	switch f {
	case Gzip:
		r, err = gzip.NewReader(bytes.NewReader(data))
	case Zlib:
		r, err = zlib.NewReader(bytes.NewReader(data))
	default:
		r = flate.NewReader(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

type corruptError struct {
	format Format
	err    error
}

func (e *corruptError) Error() string {
	return "inflate " + e.format.String() + ": " + e.err.Error()
}

func (e *corruptError) Is(target error) bool {
	return target == ErrCorruptStream
}

func (e *corruptError) Unwrap() error {
	return e.err
}

func corrupt(f Format, err error) error {
	return &corruptError{format: f, err: err}
}

// Compress compresses data in the given format, at the default level
func Compress(f Format, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch f {
	case Zlib:
		w = zlib.NewWriter(&buf)
	case Deflate:
		w, err = flate.NewWriter(&buf, flate.DefaultCompression)
	case Gzip:
		w = gzip.NewWriter(&buf)
	case Zstd:
		w, err = zstd.NewWriter(&buf)
	default:
		return nil, errors.Errorf("unknown format %d", f)
	}
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
