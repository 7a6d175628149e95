// Package events turns log frames into a flat stream of typed events.
package events

import (
	"io"

	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/decode"
	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/frames"
	"github.com/prtracker/prdemo/schema"
)

// TickType is the event type that starts a new tick
const TickType = "tick"

// Event is one decoded message. Data is a decode.Record, or the raw payload
// for opaque message types.
type Event struct {
	Type   string
	Tag    byte
	Offset int // frame offset in the decompressed log
	Data   any
}

// Record returns the event data as a Record
func (e Event) Record() (decode.Record, bool) {
	r, ok := e.Data.(decode.Record)
	return r, ok && r != nil
}

// Get returns a field of the event record
func (e Event) Get(key string) (any, bool) {
	r, ok := e.Record()
	if !ok {
		return nil, false
	}
	return r.Get(key)
}

// IsTick reports whether the event is a tick marker
func (e Event) IsTick() bool {
	return e.Type == TickType
}

// Normalizer decodes frames into events.
//
// Frames with an unknown tag are reported as diag.UnknownMessageType and
// dropped; decoding continues with the next frame. This is the only policy,
// unknown tags never abort a parse.
type Normalizer struct {
	registry  *schema.Registry
	overrides map[string]Override
	decoder   *decode.Decoder
	sink      diag.Sink
}

// NewNormalizer returns a Normalizer. Overrides may be nil. A nil sink
// reports to diag.Default().
func NewNormalizer(registry *schema.Registry, overrides map[string]Override, sink diag.Sink) *Normalizer {
	if sink == nil {
		sink = diag.Default()
	}
	return &Normalizer{
		registry:  registry,
		overrides: overrides,
		decoder:   decode.NewDecoder(sink),
		sink:      sink,
	}
}

// Normalize decodes one frame. Repeated records are unnested into one event
// each. Only schema errors are returned.
func (n *Normalizer) Normalize(f frames.Frame) ([]Event, error) {
	tag, ok := f.Tag()
	if !ok {
		d := diag.New(diag.UnknownMessageType)
		d.Offset = f.Offset
		d.Err = errors.New("empty frame")
		n.sink.Report(d)
		return nil, nil
	}
	ms, ok := n.registry.Lookup(tag)
	if !ok {
		d := diag.New(diag.UnknownMessageType)
		d.Tag = int(tag)
		d.Offset = f.Offset
		n.sink.Report(d)
		return nil, nil
	}

	var data any
	if o, ok := n.overrides[ms.Name]; ok {
		data = o(f.Payload(), n.sink)
	} else {
		var err error
		data, err = n.decoder.Message(ms, f.Payload())
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s at offset %d", ms.Name, f.Offset)
		}
	}
	return unnest(Event{
		Type:   ms.Name,
		Tag:    tag,
		Offset: f.Offset,
		Data:   data,
	}), nil
}

func unnest(e Event) []Event {
	list, ok := e.Data.([]decode.Record)
	if !ok {
		return []Event{e}
	}
	out := make([]Event, len(list))
	for i, r := range list {
		out[i] = e
		out[i].Data = r
	}
	return out
}

// Decode returns all events of a decompressed log.
// A truncated log returns the events decoded so far and an error matching
// frames.ErrTruncatedLog, which is also reported to the sink.
func (n *Normalizer) Decode(log []byte) ([]Event, int, error) {
	var out []Event
	it := frames.NewIterator(log)
	count := 0
	for {
		f, err := it.Next()
		if err == io.EOF {
			return out, count, nil
		}
		if err != nil {
			d := diag.New(diag.TruncatedLog)
			d.Offset = it.Offset()
			d.Err = err
			n.sink.Report(d)
			return out, count, err
		}
		count++
		evs, err := n.Normalize(f)
		if err != nil {
			return out, count, err
		}
		out = append(out, evs...)
	}
}
