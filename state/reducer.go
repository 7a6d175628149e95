package state

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/decode"
	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/events"
)

// Reducer folds event batches into worlds
type Reducer struct {
	rules Rules
	sink  diag.Sink
}

// NewReducer returns a Reducer. A nil rules table uses DefaultRules and a nil
// sink reports to diag.Default().
func NewReducer(rules Rules, sink diag.Sink) *Reducer {
	if rules == nil {
		rules = DefaultRules()
	}
	if sink == nil {
		sink = diag.Default()
	}
	return &Reducer{rules: rules, sink: sink}
}

// ReduceTick applies a batch of events in order and returns the resulting
// world. prev is never modified.
func (r *Reducer) ReduceTick(prev World, batch []events.Event) World {
	return r.reduce(begin(prev, nil), batch)
}

func (r *Reducer) reduce(t *txn, batch []events.Event) World {
	for _, e := range batch {
		r.apply(t, e)
	}
	return t.commit()
}

// Apply applies a single event
func (r *Reducer) Apply(prev World, e events.Event) World {
	return r.ReduceTick(prev, []events.Event{e})
}

func (r *Reducer) apply(t *txn, e events.Event) {
	if e.IsTick() {
		t.w.ticks++
	}
	rule, ok := r.rules[e.Type]
	if !ok {
		d := diag.New(diag.UnrecognizedEventType)
		d.Type = e.Type
		d.Tag = int(e.Tag)
		d.Offset = e.Offset
		r.sink.Report(d)
		return
	}
	if rule.Kind == Noop {
		return
	}
	rec, ok := e.Record()
	if !ok {
		d := diag.New(diag.UnrecognizedEventType)
		d.Type = e.Type
		d.Offset = e.Offset
		d.Err = errors.Errorf("expected a record, got %T", e.Data)
		r.sink.Report(d)
		return
	}

	switch rule.Kind {
	case Add:
		if id, key, ok := r.id(e, rec, rule); ok {
			t.setEntity(rule.Category, id, FieldsOf(rec, omitted(key, rule)...))
		}
	case Remove:
		if id, _, ok := r.id(e, rec, rule); ok {
			t.deleteEntity(rule.Category, id)
		}
	case Update:
		if id, key, ok := r.id(e, rec, rule); ok {
			cur, _ := t.entity(rule.Category, id)
			t.setEntity(rule.Category, id, cur.Merge(rec, omitted(key, rule)...))
		}
	case Tickets:
		if v, ok := rec.Get("tickets"); ok && v != nil {
			t.w.tickets = t.w.tickets.Set(rule.Target, v)
		}
	case Reveal:
		if id, _, ok := r.id(e, rec, rule); ok {
			cur, _ := t.entity(rule.Category, id)
			t.setEntity(rule.Category, id, cur.Set("revealed", true))
		}
	case Intel:
		v, _ := rec.Get("points")
		if points, ok := decode.AsInt64(v); ok {
			t.w.intel += points
		}
	case SquadName:
		r.squadName(t, e, rec)
	case Append:
		f := FieldsOf(rec)
		for _, ref := range rule.Refs {
			var player any
			v, _ := rec.Get(ref.IDKey)
			if id, ok := decode.AsInt64(v); ok {
				if p, ok := t.entity(Players, id); ok {
					player = p
				}
			}
			f = f.Set(ref.Key, player)
		}
		t.appendLog(rule.Log, f)
	case Server:
		t.w.server = FieldsOf(rec)
	}
}

// id finds the entity id of a record. A missing or non-integer id is reported.
func (r *Reducer) id(e events.Event, rec decode.Record, rule Rule) (int64, string, bool) {
	for _, key := range rule.IDKeys {
		v, exists := rec.Get(key)
		if !exists {
			continue
		}
		if id, ok := decode.AsInt64(v); ok {
			return id, key, true
		}
		r.missingID(e, key, errors.Errorf("id is %T", v))
		return 0, "", false
	}
	key := ""
	if len(rule.IDKeys) > 0 {
		key = rule.IDKeys[0]
	}
	r.missingID(e, key, errors.New("no id field"))
	return 0, "", false
}

func (r *Reducer) missingID(e events.Event, key string, err error) {
	d := diag.New(diag.MissingEntityID)
	d.Type = e.Type
	d.Tag = int(e.Tag)
	d.Key = key
	d.Offset = e.Offset
	d.Err = err
	r.sink.Report(d)
}

func omitted(idKey string, rule Rule) []string {
	return append([]string{idKey}, rule.Omit...)
}

func (r *Reducer) squadName(t *txn, e events.Event, rec decode.Record) {
	name, _ := rec.Get("name")
	if g, ok := rec.Get("group"); ok {
		if group, ok := g.(decode.Record); ok {
			tv, _ := group.Get("team")
			sv, _ := group.Get("squad")
			team, tok := decode.AsInt64(tv)
			squad, sok := decode.AsInt64(sv)
			if tok && sok {
				teamKey := strconv.FormatInt(team, 10)
				squads, _ := t.w.squads.Sub(teamKey)
				squads = squads.Set(strconv.FormatInt(squad, 10), name)
				t.w.squads = t.w.squads.Set(teamKey, squads)
				return
			}
		}
	}
	v, _ := rec.Get("groupId")
	if id, ok := decode.AsInt64(v); ok {
		t.w.squads = t.w.squads.Set(strconv.FormatInt(id, 10), name)
		return
	}
	r.missingID(e, "group", errors.New("no squad group"))
}
