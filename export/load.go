package export

import (
	"bytes"
	"io"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/klauspost/compress/gzip"
)

// LoadData loads export file contents that are gzipped protobufs
func LoadData(data []byte) (*Export, error) {
	// Uncompress
	g, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	pbData, err := io.ReadAll(g)
	if err != nil {
		return nil, err
	}
	if err := g.Close(); err != nil {
		return nil, err
	}

	msg := new(Export)
	if err := msg.Unmarshal(pbData); err != nil {
		return nil, err
	}
	return msg, nil
}

// DumpData returns a compressed Export
func DumpData(msg *Export) ([]byte, DumpDataStats, error) {
	var stat DumpDataStats
	t0 := time.Now()

	out := bytes.NewBuffer(make([]byte, 0, 64*datasize.KB))
	gw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		return nil, stat, err
	}
	pbSize, err := msg.WriteTo(gw)
	if err != nil {
		return nil, stat, err
	}
	stat.ProtobufSize = datasize.ByteSize(pbSize)

	if err = gw.Close(); err != nil {
		return nil, stat, err
	}
	stat.TCompressed = time.Since(t0)

	compressedData := out.Bytes()
	stat.CompressedSize = datasize.ByteSize(len(compressedData))
	return compressedData, stat, nil
}

type DumpDataStats struct {
	TCompressed    time.Duration     // time it took to marshal and compress
	ProtobufSize   datasize.ByteSize // uncompressed protobuf size
	CompressedSize datasize.ByteSize // compressed size
}
