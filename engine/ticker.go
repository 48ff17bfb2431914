package engine

import (
	"slices"

	"pkg.world.dev/world-engine/automation/event"
)

// TickerFunc runs once per core tick. Returning false unregisters it.
type TickerFunc func(dt float64) bool

type tickerEntry struct {
	handle event.Handle
	fn     TickerFunc
}

// Ticker is the engine-wide frame callback registry.
type Ticker struct {
	next    event.Handle
	entries []tickerEntry
}

func NewTicker() *Ticker {
	return &Ticker{}
}

func (t *Ticker) AddTicker(fn TickerFunc) event.Handle {
	t.next++
	t.entries = append(t.entries, tickerEntry{handle: t.next, fn: fn})
	return t.next
}

func (t *Ticker) RemoveTicker(h event.Handle) {
	t.entries = slices.DeleteFunc(t.entries, func(e tickerEntry) bool { return e.handle == h })
}

func (t *Ticker) Tick(dt float64) {
	snapshot := slices.Clone(t.entries)
	for _, e := range snapshot {
		if !e.fn(dt) {
			t.RemoveTicker(e.handle)
		}
	}
}

func (t *Ticker) Len() int {
	return len(t.entries)
}

// RegisterTickable adds a world-independent tickable. Editor tickables only run for editor worlds.
// The returned func unregisters it.
func (e *Engine) RegisterTickable(t Tickable, editor bool) func() {
	list := &e.gameTickables
	if editor {
		list = &e.editorTickables
	}
	*list = append(*list, t)
	return func() {
		*list = slices.DeleteFunc(*list, func(other Tickable) bool { return other == t })
	}
}

func (e *Engine) TickGameObjects(dt float64) {
	for _, t := range slices.Clone(e.gameTickables) {
		t.Tick(dt)
	}
}

func (e *Engine) TickEditorObjects(dt float64) {
	for _, t := range slices.Clone(e.editorTickables) {
		t.Tick(dt)
	}
}
