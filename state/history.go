package state

import (
	"context"
	"runtime"

	"github.com/samber/lo"

	"github.com/prtracker/prdemo/events"
	"github.com/prtracker/prdemo/utils"
)

// DefaultGroups is the default number of groups Stream splits the batches into
const DefaultGroups = 200

// Segment splits events into per tick batches. A new batch starts right
// before every event for which isTick returns true. Events before the first
// tick form their own batch when there are any.
func Segment(evs []events.Event, isTick func(events.Event) bool) [][]events.Event {
	if isTick == nil {
		isTick = IsTick
	}
	var out [][]events.Event
	var cur []events.Event
	for _, e := range evs {
		if isTick(e) && len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, e)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// IsTick matches tick events
func IsTick(e events.Event) bool {
	return e.IsTick()
}

// History is an append-only sequence of worlds. Entry 0 is the initial world.
type History struct {
	worlds []World
}

// NewHistory returns a History starting with the given worlds, or with a
// single empty World when none are given.
func NewHistory(initial ...World) History {
	if len(initial) == 0 {
		return History{worlds: []World{{}}}
	}
	return History{worlds: append([]World(nil), initial...)}
}

// Len returns the number of worlds
func (h History) Len() int {
	return len(h.worlds)
}

// At returns world i
func (h History) At(i int) World {
	return h.worlds[i]
}

// Last returns the most recent world
func (h History) Last() World {
	if len(h.worlds) == 0 {
		return World{}
	}
	return h.worlds[len(h.worlds)-1]
}

// Worlds returns a copy of the world list
func (h History) Worlds() []World {
	return append([]World(nil), h.worlds...)
}

// builder appends to a private slice. Histories handed out are capped, so
// later appends never write into memory they can see.
type builder struct {
	worlds  []World
	reducer *Reducer
	work    workset
}

func newBuilder(initial History, r *Reducer, extra int) *builder {
	if initial.Len() == 0 {
		initial = NewHistory()
	}
	worlds := make([]World, 0, initial.Len()+extra)
	worlds = append(worlds, initial.worlds...)
	return &builder{worlds: worlds, reducer: r}
}

func (b *builder) add(batch []events.Event) {
	last := b.worlds[len(b.worlds)-1]
	b.worlds = append(b.worlds, b.reducer.reduce(begin(last, &b.work), batch))
}

func (b *builder) history() History {
	n := len(b.worlds)
	return History{worlds: b.worlds[:n:n]}
}

// Build folds every batch into a new world and returns the extended history.
// An empty initial history starts from an empty World.
func Build(initial History, batches [][]events.Event, r *Reducer) History {
	b := newBuilder(initial, r, len(batches))
	for _, batch := range batches {
		b.add(batch)
	}
	return b.history()
}

// StreamOptions configures Stream
type StreamOptions struct {
	// Groups is the approximate number of groups, DefaultGroups when 0
	Groups int
	// Yield is called between groups, runtime.Gosched when nil
	Yield func()
	// Progress is called after every group. done is true for the last call.
	Progress func(done bool, h History)
}

// Stream is Build in groups. After each group it reports progress and yields.
// The context is only checked between groups; when it is canceled the
// history built so far is returned with the context error.
func Stream(ctx context.Context, initial History, batches [][]events.Event, r *Reducer, opt StreamOptions) (History, error) {
	groups := opt.Groups
	if groups <= 0 {
		groups = DefaultGroups
	}
	yield := opt.Yield
	if yield == nil {
		yield = runtime.Gosched
	}
	progress := opt.Progress
	if progress == nil {
		progress = func(bool, History) {}
	}

	b := newBuilder(initial, r, len(batches))
	if len(batches) == 0 {
		progress(true, b.history())
		return b.history(), nil
	}

	size := (len(batches) + groups - 1) / groups
	chunks := lo.Chunk(batches, size)
	for i, chunk := range chunks {
		if utils.IsCanceled(ctx) {
			return b.history(), ctx.Err()
		}
		for _, batch := range chunk {
			b.add(batch)
		}
		done := i == len(chunks)-1
		progress(done, b.history())
		if !done {
			yield()
		}
	}
	return b.history(), nil
}
