package frames

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	var log []byte
	log = Append(log, 0x01, []byte{1, 2, 3})
	log = Append(log, 0xF1, []byte{7})
	log = Append(log, 0x12, nil)

	got, err := Split(log)
	require.NoError(t, err)
	require.Len(t, got, 3)

	tag, ok := got[0].Tag()
	assert.True(t, ok)
	assert.Equal(t, byte(0x01), tag)
	assert.Equal(t, []byte{1, 2, 3}, got[0].Payload())
	assert.Equal(t, 0, got[0].Offset)

	tag, _ = got[1].Tag()
	assert.Equal(t, byte(0xF1), tag)
	assert.Equal(t, 6, got[1].Offset)

	assert.Equal(t, []byte{}, got[2].Payload())
}

func TestSplit_truncated(t *testing.T) {
	good := Append(nil, 0x01, []byte{1, 2})
	tests := []struct {
		name      string
		log       []byte
		wantCount int
		wantErr   bool
	}{
		{"empty", nil, 0, false},
		{"complete", good, 1, false},
		{"half-prefix", append(append([]byte{}, good...), 0x05), 1, true},
		{"short-body", append(append([]byte{}, good...), 0x05, 0x00, 0x01), 1, true},
		{"only-short-body", []byte{0x10, 0x00, 0x01, 0x02}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.log)
			assert.Len(t, got, tt.wantCount)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrTruncatedLog), "got %v", err)
				var tle *TruncatedLogError
				assert.True(t, errors.As(err, &tle))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIterator_stickyError(t *testing.T) {
	it := NewIterator([]byte{0x03, 0x00, 0x01})
	_, err := it.Next()
	assert.True(t, errors.Is(err, ErrTruncatedLog))
	_, err2 := it.Next()
	assert.Equal(t, err, err2)
	assert.Equal(t, 0, it.Offset())
}

func TestIterator_emptyFrame(t *testing.T) {
	it := NewIterator([]byte{0x00, 0x00})
	f, err := it.Next()
	require.NoError(t, err)
	_, ok := f.Tag()
	assert.False(t, ok)
	assert.Nil(t, f.Payload())
	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}
