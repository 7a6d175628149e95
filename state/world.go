// Package state folds tick batches of events into an immutable history of
// game worlds.
package state

import (
	"strconv"
	"sync"

	"github.com/tidwall/btree"
)

// Category is a kind of tracked entity
type Category int

const (
	Players Category = iota
	Vehicles
	Fobs
	Rallies
	Caches
	Flags
	numCategories
)

var categoryNames = [numCategories]string{
	"players", "vehicles", "fobs", "rallies", "caches", "flags",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "category(" + strconv.Itoa(int(c)) + ")"
	}
	return categoryNames[c]
}

// Categories lists all entity categories
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Log is an append-only event log kept in the world
type Log int

const (
	Messages Log = iota
	Kills
	Revives
	Kits
	numLogs
)

var logNames = [numLogs]string{"messages", "kills", "revives", "kits"}

func (l Log) String() string {
	if l < 0 || l >= numLogs {
		return "log(" + strconv.Itoa(int(l)) + ")"
	}
	return logNames[l]
}

// Logs lists all logs
func Logs() []Log {
	out := make([]Log, numLogs)
	for i := range out {
		out[i] = Log(i)
	}
	return out
}

type entityMap = btree.Map[int64, Fields]
type logMap = btree.Map[int, Fields]

// World is the state of the game at one tick.
//
// A World is immutable: reducing events returns a new World that shares
// unchanged structure with its predecessor. It is safe to keep references to
// any World and to read it from multiple goroutines.
type World struct {
	entities [numCategories]*entityMap
	logs     [numLogs]*logMap
	tickets  Fields
	squads   Fields
	server   Fields
	intel    int64
	ticks    int
}

// Entity returns one entity
func (w World) Entity(c Category, id int64) (Fields, bool) {
	m := w.entities[c]
	if m == nil {
		return Fields{}, false
	}
	return m.Get(id)
}

// Count returns the number of entities in a category
func (w World) Count(c Category) int {
	if m := w.entities[c]; m != nil {
		return m.Len()
	}
	return 0
}

// IDs returns the entity ids of a category in ascending order
func (w World) IDs(c Category) []int64 {
	if m := w.entities[c]; m != nil {
		return m.Keys()
	}
	return nil
}

// Scan calls fn for every entity of a category in id order until fn returns false
func (w World) Scan(c Category, fn func(id int64, f Fields) bool) {
	if m := w.entities[c]; m != nil {
		m.Scan(fn)
	}
}

// Player is a shortcut for Entity(Players, id)
func (w World) Player(id int64) (Fields, bool) {
	return w.Entity(Players, id)
}

// Log returns the entries of a log in insertion order
func (w World) Log(l Log) []Fields {
	m := w.logs[l]
	if m == nil {
		return nil
	}
	return m.Values()
}

// LogLen returns the number of entries in a log
func (w World) LogLen(l Log) int {
	if m := w.logs[l]; m != nil {
		return m.Len()
	}
	return 0
}

// Tickets returns the tickets per team, keyed "team1" and "team2"
func (w World) Tickets() Fields {
	return w.tickets
}

// Squads returns the squad names
func (w World) Squads() Fields {
	return w.squads
}

// Server returns the last server details
func (w World) Server() Fields {
	return w.server
}

// Intel returns the accumulated intel points
func (w World) Intel() int64 {
	return w.intel
}

// Ticks returns the number of ticks folded into this world
func (w World) Ticks() int {
	return w.ticks
}

// ToMap returns the world as plain nested maps
func (w World) ToMap() map[string]any {
	out := map[string]any{
		"tickets": w.tickets.ToMap(),
		"squads":  w.squads.ToMap(),
		"server":  w.server.ToMap(),
		"intel":   w.intel,
		"ticks":   w.ticks,
	}
	for _, c := range Categories() {
		ents := make(map[string]any, w.Count(c))
		w.Scan(c, func(id int64, f Fields) bool {
			ents[strconv.FormatInt(id, 10)] = f.ToMap()
			return true
		})
		out[c.String()] = ents
	}
	for _, l := range Logs() {
		entries := w.Log(l)
		list := make([]any, len(entries))
		for i, f := range entries {
			list[i] = f.ToMap()
		}
		out[l.String()] = list
	}
	return out
}

// copyMu serializes copies of published maps. Copy marks the source map,
// so two goroutines branching from the same World would otherwise race.
var copyMu sync.Mutex

func copyShared[K int | int64](m *btree.Map[K, Fields]) *btree.Map[K, Fields] {
	if m == nil {
		return new(btree.Map[K, Fields])
	}
	copyMu.Lock()
	defer copyMu.Unlock()
	return m.Copy()
}

// workset holds maps that are never part of a published World. A txn that
// uses a workset writes into these maps and commits copies of them, so the
// maps of committed Worlds are never touched again.
type workset struct {
	entities [numCategories]*entityMap
	logs     [numLogs]*logMap
}

// txn batches the writes of one tick. Every map is copied at most once per
// txn, the copies share their nodes with the previous World until written.
type txn struct {
	w         World
	ws        *workset
	ownEntity [numCategories]bool
	ownLog    [numLogs]bool
}

// begin starts a txn on w. With a non-nil workset, its maps must hold the
// same contents as the maps of w they were created from.
func begin(w World, ws *workset) *txn {
	return &txn{w: w, ws: ws}
}

func (t *txn) entities(c Category) *entityMap {
	if !t.ownEntity[c] {
		switch {
		case t.ws == nil:
			t.w.entities[c] = copyShared(t.w.entities[c])
		case t.ws.entities[c] == nil:
			t.ws.entities[c] = copyShared(t.w.entities[c])
		}
		t.ownEntity[c] = true
	}
	if t.ws != nil {
		return t.ws.entities[c]
	}
	return t.w.entities[c]
}

func (t *txn) log(l Log) *logMap {
	if !t.ownLog[l] {
		switch {
		case t.ws == nil:
			t.w.logs[l] = copyShared(t.w.logs[l])
		case t.ws.logs[l] == nil:
			t.ws.logs[l] = copyShared(t.w.logs[l])
		}
		t.ownLog[l] = true
	}
	if t.ws != nil {
		return t.ws.logs[l]
	}
	return t.w.logs[l]
}

func (t *txn) setEntity(c Category, id int64, f Fields) {
	t.entities(c).Set(id, f)
}

// entity reads an entity including the writes of this txn
func (t *txn) entity(c Category, id int64) (Fields, bool) {
	if t.ws != nil && t.ws.entities[c] != nil {
		return t.ws.entities[c].Get(id)
	}
	return t.w.Entity(c, id)
}

func (t *txn) deleteEntity(c Category, id int64) {
	if _, ok := t.entity(c, id); !ok {
		return
	}
	t.entities(c).Delete(id)
}

func (t *txn) appendLog(l Log, f Fields) {
	m := t.log(l)
	m.Set(m.Len(), f)
}

func (t *txn) commit() World {
	if t.ws == nil {
		return t.w
	}
	for c, own := range t.ownEntity {
		if own {
			t.w.entities[c] = t.ws.entities[c].Copy()
		}
	}
	for l, own := range t.ownLog {
		if own {
			t.w.logs[l] = t.ws.logs[l].Copy()
		}
	}
	return t.w
}
