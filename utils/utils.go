package utils

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
)

// IsCanceled checks if the context has been canceled.
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// DisplayASCII represents a payload as ascii if it only contains safe ascii
// characters. Unsafe characters are replaced by '.' and a hex representation
// is added to the output. Short payloads always get the hex part.
// Payloads longer than max bytes are cut, with max <= 0 meaning no limit.
func DisplayASCII(b []byte, max int) string {
	suffix := ""
	if max > 0 && len(b) > max {
		suffix = fmt.Sprintf("... (%d bytes)", len(b))
		b = b[:max]
	}
	ret := make([]byte, len(b))
	unsafe := false
	for i, ch := range b {
		if ch < 32 || ch > 126 {
			ret[i] = '.'
			unsafe = true
		} else {
			ret[i] = ch
		}
	}
	if unsafe || len(b) <= 8 {
		return fmt.Sprintf("%s [% 0x]%s", string(ret), b, suffix)
	}
	return string(ret) + suffix
}

// TimeDiff returns the difference between two times, rounded to milliseconds.
func TimeDiff(t1, t0 time.Time) time.Duration {
	return t1.Sub(t0).Round(time.Millisecond)
}

// GC runs the garbage collector and logs some memory stats
func GC() time.Duration {
	var before, after runtime.MemStats
	t0 := time.Now()
	runtime.ReadMemStats(&before)
	runtime.GC()
	runtime.ReadMemStats(&after)
	t1 := time.Now()
	dt := TimeDiff(t1, t0)
	logrus.WithFields(logrus.Fields{
		"time_gc":       dt,
		"freed_objects": after.Frees - before.Frees,
		"alloc_before":  datasize.ByteSize(before.HeapAlloc),
		"alloc_after":   datasize.ByteSize(after.HeapAlloc),
	}).Debug("GC stats")
	return dt
}
