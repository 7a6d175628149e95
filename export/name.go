package export

import (
	"fmt"
	"strings"
	"time"
)

const (
	timeFormat = "20060102-150405.000000000" // but need to s/./-/
	dotIndex   = 15                          // position of the '.'
	Extension  = "pb.gz"
)

func Timestamp(ts time.Time) string {
	fileTimestamp := strings.Replace(
		ts.UTC().Format(timeFormat),
		".", "-", 1)
	return fileTimestamp
}

func TimestampFromNano(tsNano uint64) string {
	ts := time.Unix(0, int64(tsNano))
	return Timestamp(ts)
}

// DemoName turns a file name into a demo name that is safe to use in an
// export name: the extension is dropped, dots and double underscores are
// replaced.
func DemoName(filename string) string {
	if i := strings.LastIndexByte(filename, '/'); i >= 0 {
		filename = filename[i+1:]
	}
	base, _, _ := strings.Cut(filename, ".")
	for strings.Contains(base, "__") {
		base = strings.ReplaceAll(base, "__", "_")
	}
	if base == "" {
		base = "demo"
	}
	return base
}

// Name returns the export name for a demo parsed at ts
func Name(demoName string, ts time.Time) string {
	return fmt.Sprintf("%s__%s.%s", DemoName(demoName), Timestamp(ts), Extension)
}

func ParseName(name string) (NameInfo, error) {
	var ni, empty NameInfo
	basename, ext, found := strings.Cut(name, ".")
	if !found {
		return empty, fmt.Errorf("invalid name: no dot: %s", name)
	}
	if ext != Extension {
		return empty, fmt.Errorf("unexpected extension: %s", name)
	}
	ni.FullName = name
	ni.Extension = ext
	p := strings.Split(basename, "__")
	if len(p) < 2 {
		return empty, fmt.Errorf("not enough name parts: %s", name)
	}
	ni.DemoName = p[0]
	ni.TimestampString = p[1]
	tss := ni.TimestampString
	if len(tss) != len(timeFormat) || tss[dotIndex] != '-' {
		return empty, fmt.Errorf("invalid timestamp format: %s in %s", tss, name)
	}
	tss = tss[:dotIndex] + "." + tss[dotIndex+1:] // replace second '-' with '.' for parsing
	ts, err := time.Parse(timeFormat, tss)        // returns time in UTC
	if err != nil {
		return empty, fmt.Errorf("timestamp parse error: %s", err)
	}
	ni.Timestamp = ts
	return ni, nil
}

type NameInfo struct {
	FullName        string
	Extension       string // "pb.gz"
	DemoName        string
	TimestampString string
	Timestamp       time.Time
}
