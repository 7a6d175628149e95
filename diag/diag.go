// Package diag collects recoverable problems found while decoding a log.
//
// Decoding never stops for damaged data. Instead every problem is reported
// to a Sink, which typically logs it and counts it.
package diag

import (
	"fmt"
	"strings"
	"sync"
)

// Kind is the class of a Diagnostic
type Kind string

const (
	// TruncatedLog means a frame length pointed past the end of the log
	TruncatedLog Kind = "truncated_log"
	// UnknownMessageType means a frame tag has no schema; the frame is dropped
	UnknownMessageType Kind = "unknown_message_type"
	// TruncatedRecord means a field could not be read and was set to nil
	TruncatedRecord Kind = "truncated_record"
	// UnrecognizedEventType means no state rule exists for an event type
	UnrecognizedEventType Kind = "unrecognized_event_type"
	// MissingEntityID means an entity event carried no usable id
	MissingEntityID Kind = "missing_entity_id"
)

// Kinds lists all kinds
var Kinds = []Kind{
	TruncatedLog,
	UnknownMessageType,
	TruncatedRecord,
	UnrecognizedEventType,
	MissingEntityID,
}

// Diagnostic is a single reported problem
type Diagnostic struct {
	Kind   Kind
	Type   string // message or event type, if known
	Tag    int    // message tag, or -1
	Key    string // field key, if known
	Offset int    // byte offset, or -1
	Err    error
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(string(d.Kind))
	if d.Type != "" {
		fmt.Fprintf(&sb, " type=%s", d.Type)
	}
	if d.Tag >= 0 {
		fmt.Fprintf(&sb, " tag=%#02x", d.Tag)
	}
	if d.Key != "" {
		fmt.Fprintf(&sb, " key=%s", d.Key)
	}
	if d.Offset >= 0 {
		fmt.Fprintf(&sb, " offset=%d", d.Offset)
	}
	if d.Err != nil {
		fmt.Fprintf(&sb, " err=%v", d.Err)
	}
	return sb.String()
}

// New returns a Diagnostic with Tag and Offset marked as unknown
func New(kind Kind) Diagnostic {
	return Diagnostic{Kind: kind, Tag: -1, Offset: -1}
}

// Sink receives diagnostics. Implementations must be safe for concurrent use.
type Sink interface {
	Report(d Diagnostic)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(d Diagnostic)

func (f SinkFunc) Report(d Diagnostic) {
	f(d)
}

// Discard drops every diagnostic. Only meant for benchmarks.
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Multi reports to all sinks in order
type Multi []Sink

func (m Multi) Report(d Diagnostic) {
	for _, s := range m {
		s.Report(d)
	}
}

// Collector keeps all reported diagnostics in memory
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// All returns a copy of the collected diagnostics
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.items...)
}

// OfKind returns the collected diagnostics of one kind
func (c *Collector) OfKind(kind Kind) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.items {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of collected diagnostics
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
