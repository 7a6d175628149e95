package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prtracker/prdemo/decode"
	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/events"
	"github.com/prtracker/prdemo/schema"
)

func ev(typ string, kv ...any) events.Event {
	return events.Event{Type: typ, Data: decode.RecordOf(kv...)}
}

func tick() events.Event {
	return ev("tick", "time", uint8(1))
}

func newTestReducer() (*Reducer, *diag.Collector) {
	c := &diag.Collector{}
	return NewReducer(nil, c), c
}

func TestDefaultRules_coverDefaultSchema(t *testing.T) {
	rules := DefaultRules()
	reg := schema.Default()
	for _, tag := range reg.Tags() {
		ms, _ := reg.Lookup(tag)
		_, ok := rules[ms.Name]
		assert.True(t, ok, "no rule for %s", ms.Name)
	}
}

func TestReducer_mergeNotReplace(t *testing.T) {
	r, c := newTestReducer()
	w := r.ReduceTick(World{}, []events.Event{
		ev("playerAdd", "playerId", uint8(7), "name", "a"),
		ev("playerUpdate", "flags", []bool{true}, "playerId", uint8(7), "team", int8(1), "health", int8(100)),
	})
	w2 := r.Apply(w, ev("playerUpdate", "playerId", uint8(7), "health", int8(80)))

	p, ok := w2.Player(7)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "a", "team": int8(1), "health": int8(80)}, p.ToMap())

	// previous world untouched
	p, _ = w.Player(7)
	health, _ := p.Int("health")
	assert.Equal(t, int64(100), health)
	assert.Equal(t, 0, c.Len())
}

func TestReducer_entities(t *testing.T) {
	r, c := newTestReducer()
	w := r.ReduceTick(World{}, []events.Event{
		ev("vehicleAdd", "id", int16(3), "name", "jeep", "maxHealth", uint16(100)),
		ev("vehicleUpdate", "vehicleId", int16(3), "health", int16(50)),
		ev("vehicleUpdate", "vehicleId", int16(9), "health", int16(10)),
		ev("fobAdd", "id", int32(1), "team", int8(1)),
		ev("fobAdd", "id", int32(2), "team", int8(2)),
		ev("fobRemove", "id", int32(1)),
		ev("cacheAdd", "id", uint8(4)),
		ev("cacheReveal", "id", uint8(4)),
		ev("rallyAdd", "groupId", uint8(5), "x", int16(0)),
		ev("flagList", "id", int16(1), "owner", int8(0)),
		ev("flagUpdate", "id", int16(1), "owner", int8(2)),
	})
	assert.Equal(t, []int64{3, 9}, w.IDs(Vehicles), "update creates missing entities")
	v, _ := w.Entity(Vehicles, 3)
	assert.Equal(t, map[string]any{"name": "jeep", "maxHealth": uint16(100), "health": int16(50)}, v.ToMap())
	assert.Equal(t, []int64{2}, w.IDs(Fobs))
	cache, _ := w.Entity(Caches, 4)
	revealed, _ := cache.Get("revealed")
	assert.Equal(t, true, revealed)
	assert.Equal(t, 1, w.Count(Rallies))
	flag, _ := w.Entity(Flags, 1)
	owner, _ := flag.Int("owner")
	assert.Equal(t, int64(2), owner)

	w2 := r.Apply(w, ev("vehicleDestroyed", "id", int16(3), "isKillerKnown", false))
	assert.Equal(t, []int64{9}, w2.IDs(Vehicles))
	assert.Equal(t, []int64{3, 9}, w.IDs(Vehicles))
	assert.Equal(t, 0, c.Len())
}

func TestReducer_concurrentBranches(t *testing.T) {
	r, c := newTestReducer()
	base := r.ReduceTick(World{}, []events.Event{
		ev("playerAdd", "playerId", uint8(1), "name", "a"),
		ev("kill", "attacker", uint8(1), "victim", uint8(1)),
	})
	want := base.ToMap()

	const n = 8
	results := make([]World, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := r.Apply(base, ev("playerUpdate", "playerId", uint8(1), "score", int16(i)))
			w = r.Apply(w, ev("kill", "attacker", uint8(1), "victim", uint8(1)))
			results[i] = w
		}(i)
	}
	wg.Wait()

	for i, w := range results {
		p, _ := w.Player(1)
		score, _ := p.Int("score")
		assert.Equal(t, int64(i), score)
		assert.Equal(t, 2, w.LogLen(Kills))
	}
	assert.Equal(t, want, base.ToMap())
	assert.Equal(t, 0, c.Len())
}

func TestReducer_intel(t *testing.T) {
	r, _ := newTestReducer()
	h := Build(NewHistory(), [][]events.Event{
		{tick(), ev("intelChange", "points", int8(5))},
		{tick(), ev("intelChange", "points", int8(-2))},
		{tick(), ev("intelChange", "points", int8(10))},
	}, r)
	assert.Equal(t, int64(13), h.Last().Intel())
	assert.Equal(t, int64(5), h.At(1).Intel())
	assert.Equal(t, 3, h.Last().Ticks())
}

func TestReducer_ticketsAndServer(t *testing.T) {
	r, _ := newTestReducer()
	w := r.ReduceTick(World{}, []events.Event{
		ev("serverDetails", "name", "srv", "map", "a"),
		ev("ticketsTeam1", "team", 1, "tickets", int16(200)),
		ev("ticketsTeam2", "team", 2, "tickets", int16(150)),
		ev("ticketsTeam1", "team", 1, "tickets", int16(199)),
		ev("serverDetails", "name", "srv2"),
	})
	assert.Equal(t, map[string]any{"team1": int16(199), "team2": int16(150)}, w.Tickets().ToMap())
	assert.Equal(t, map[string]any{"name": "srv2"}, w.Server().ToMap())
}

func TestReducer_squadName(t *testing.T) {
	r, c := newTestReducer()
	w := r.ReduceTick(World{}, []events.Event{
		ev("squadName", "group", decode.RecordOf("team", uint8(2), "squad", uint8(3)), "name", "Alpha"),
		ev("squadName", "group", decode.RecordOf("team", uint8(2), "squad", uint8(4)), "name", "Bravo"),
		ev("squadName", "groupId", uint8(9), "name", "Other"),
		ev("squadName", "name", "lost"),
	})
	assert.Equal(t, map[string]any{
		"2": map[string]any{"3": "Alpha", "4": "Bravo"},
		"9": "Other",
	}, w.Squads().ToMap())
	assert.Len(t, c.OfKind(diag.MissingEntityID), 1)
}

func TestReducer_logs(t *testing.T) {
	r, _ := newTestReducer()
	w := r.ReduceTick(World{}, []events.Event{
		ev("playerAdd", "playerId", uint8(1), "name", "medic"),
		ev("playerAdd", "playerId", uint8(2), "name", "victim"),
		ev("kill", "attackerId", uint8(3), "victimId", uint8(2), "weapon", "knife"),
		ev("revive", "medicId", uint8(1), "victimId", uint8(2)),
		ev("chat", "channel", uint8(0), "id", uint8(1), "message", "hi"),
		ev("kitAllocated", "id", uint8(2), "kit", "rifleman"),
		ev("playerUpdate", "playerId", uint8(2), "health", int8(5)),
	})

	kills := w.Log(Kills)
	require.Len(t, kills, 1)
	victim, ok := kills[0].Sub("victim")
	require.True(t, ok)
	name, _ := victim.Text("name")
	assert.Equal(t, "victim", name)
	attacker, exists := kills[0].Get("attacker")
	assert.True(t, exists)
	assert.Nil(t, attacker, "unknown player resolves to nil")

	revives := w.Log(Revives)
	require.Len(t, revives, 1)
	medic, _ := revives[0].Sub("medic")
	name, _ = medic.Text("name")
	assert.Equal(t, "medic", name)

	assert.Equal(t, 1, w.LogLen(Messages))
	assert.Equal(t, 1, w.LogLen(Kits))

	// The reference is the player at the time of the event
	_, hasHealth := victim.Get("health")
	assert.False(t, hasHealth)
}

func TestReducer_diagnostics(t *testing.T) {
	r, c := newTestReducer()
	w := r.ReduceTick(World{}, []events.Event{
		ev("playerAdd", "playerId", uint8(1)),
	})
	tests := []struct {
		name  string
		event events.Event
		kind  diag.Kind
	}{
		{"unrecognized", ev("bogus", "a", 1), diag.UnrecognizedEventType},
		{"missing id", ev("playerUpdate", "health", int8(1)), diag.MissingEntityID},
		{"non-integer id", ev("playerRemove", "playerId", "x"), diag.MissingEntityID},
		{"truncated id", ev("playerRemove", "playerId", nil), diag.MissingEntityID},
		{"not a record", events.Event{Type: "playerAdd", Data: []byte{1}}, diag.UnrecognizedEventType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := c.Len()
			w2 := r.Apply(w, tt.event)
			assert.Equal(t, w.ToMap(), w2.ToMap())
			require.Equal(t, before+1, c.Len())
			ds := c.All()
			assert.Equal(t, tt.kind, ds[len(ds)-1].Kind)
		})
	}
}

func TestReducer_noop(t *testing.T) {
	r, c := newTestReducer()
	w := r.ReduceTick(World{}, []events.Event{
		ev("dateTime", "time", uint32(1)),
		{Type: "projectile", Data: []byte{1, 2}},
		ev("roundEnd", "winner", int8(1)),
	})
	assert.Equal(t, World{}.ToMap(), w.ToMap())
	assert.Equal(t, 0, c.Len())
}
