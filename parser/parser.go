// Package parser runs the full pipeline from a compressed demo to a history
// of worlds: decompress, split frames, decode events, segment ticks and
// reduce.
package parser

import (
	"context"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/events"
	"github.com/prtracker/prdemo/frames"
	"github.com/prtracker/prdemo/inflate"
	"github.com/prtracker/prdemo/schema"
	"github.com/prtracker/prdemo/state"
	"github.com/prtracker/prdemo/utils"
)

// Options configures a Parser. The zero value parses with the built-in
// message table, overrides and rules.
type Options struct {
	Registry *schema.Registry
	// Overrides replace generic decoding per message name. Nil uses
	// events.DefaultOverrides, an empty map disables them.
	Overrides map[string]events.Override
	Rules     state.Rules
	Sink      diag.Sink
	Logger    logrus.FieldLogger

	// Blocking folds all ticks in one go instead of in groups
	Blocking bool
	Groups   int
	Yield    func()
	Progress func(done bool, h state.History)
}

// Result is the outcome of a parse
type Result struct {
	Events  []events.Event
	History state.History
	Frames  int
	Ticks   int
	// Truncated is set when the log ended inside a frame. Everything before
	// the cut is still decoded.
	Truncated bool

	CompressedSize   datasize.ByteSize
	DecompressedSize datasize.ByteSize
	Duration         time.Duration
}

// Parser parses demos. It is safe for concurrent use when the Sink is.
type Parser struct {
	opt        Options
	log        logrus.FieldLogger
	normalizer *events.Normalizer
	reducer    *state.Reducer
}

// New returns a Parser
func New(opt Options) *Parser {
	if opt.Registry == nil {
		opt.Registry = schema.Default()
	}
	if opt.Overrides == nil {
		opt.Overrides = events.DefaultOverrides()
	}
	if opt.Sink == nil {
		opt.Sink = diag.Default()
	}
	if opt.Logger == nil {
		opt.Logger = logrus.StandardLogger()
	}
	return &Parser{
		opt:        opt,
		log:        opt.Logger,
		normalizer: events.NewNormalizer(opt.Registry, opt.Overrides, opt.Sink),
		reducer:    state.NewReducer(opt.Rules, opt.Sink),
	}
}

// Registry returns the message table in use
func (p *Parser) Registry() *schema.Registry {
	return p.opt.Registry
}

// Events decompresses and decodes a demo without building a history
func (p *Parser) Events(data []byte) (*Result, error) {
	t0 := time.Now()
	res := &Result{CompressedSize: datasize.ByteSize(len(data))}
	log, err := inflate.Decompress(data)
	if err != nil {
		metricParses.WithLabelValues("corrupt").Inc()
		return nil, errors.Wrap(err, "decompress")
	}
	if err := p.decode(res, log); err != nil {
		metricParses.WithLabelValues("failed").Inc()
		return nil, err
	}
	res.Duration = utils.TimeDiff(time.Now(), t0)
	return res, nil
}

// Parse runs the full pipeline on compressed demo data.
// When the context is canceled while folding ticks, the partial result is
// returned together with the context error.
func (p *Parser) Parse(ctx context.Context, data []byte) (*Result, error) {
	t0 := time.Now()
	log, err := inflate.Decompress(data)
	if err != nil {
		metricParses.WithLabelValues("corrupt").Inc()
		return nil, errors.Wrap(err, "decompress")
	}
	res, err := p.ParseLog(ctx, log)
	if res != nil {
		res.CompressedSize = datasize.ByteSize(len(data))
		res.Duration = utils.TimeDiff(time.Now(), t0)
		metricBytes.WithLabelValues("compressed").Add(float64(len(data)))
	}
	return res, err
}

// ParseLog runs the pipeline on an already decompressed log
func (p *Parser) ParseLog(ctx context.Context, log []byte) (*Result, error) {
	t0 := time.Now()
	res := &Result{}
	if err := p.decode(res, log); err != nil {
		metricParses.WithLabelValues("failed").Inc()
		return nil, err
	}

	batches := state.Segment(res.Events, state.IsTick)
	res.Ticks = len(batches)
	if p.opt.Blocking {
		res.History = state.Build(state.NewHistory(), batches, p.reducer)
		if p.opt.Progress != nil {
			p.opt.Progress(true, res.History)
		}
	} else {
		h, err := state.Stream(ctx, state.NewHistory(), batches, p.reducer, state.StreamOptions{
			Groups:   p.opt.Groups,
			Yield:    p.opt.Yield,
			Progress: p.opt.Progress,
		})
		res.History = h
		if err != nil {
			metricParses.WithLabelValues("canceled").Inc()
			res.Duration = utils.TimeDiff(time.Now(), t0)
			return res, err
		}
	}
	metricTicks.Add(float64(res.Ticks))

	res.Duration = utils.TimeDiff(time.Now(), t0)
	metricDuration.Observe(res.Duration.Seconds())
	if res.Truncated {
		metricParses.WithLabelValues("truncated").Inc()
	} else {
		metricParses.WithLabelValues("ok").Inc()
	}
	p.log.WithFields(logrus.Fields{
		"frames":    res.Frames,
		"events":    len(res.Events),
		"ticks":     res.Ticks,
		"size":      res.DecompressedSize,
		"truncated": res.Truncated,
		"time":      res.Duration,
	}).Debug("Parsed demo")
	return res, nil
}

func (p *Parser) decode(res *Result, log []byte) error {
	res.DecompressedSize = datasize.ByteSize(len(log))
	metricBytes.WithLabelValues("decompressed").Add(float64(len(log)))

	evs, n, err := p.normalizer.Decode(log)
	res.Frames = n
	metricFrames.Add(float64(n))
	if err != nil {
		if !errors.Is(err, frames.ErrTruncatedLog) {
			return errors.Wrap(err, "decode events")
		}
		res.Truncated = true
		p.log.WithError(err).Warn("Demo log is truncated, keeping what was decoded")
	}
	res.Events = evs
	for _, e := range evs {
		metricEvents.WithLabelValues(e.Type).Inc()
	}
	return nil
}
