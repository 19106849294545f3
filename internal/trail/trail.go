// Package trail implements the append-only event log shared by the domain
// store and every reasoner (SAT engine, theories). It only knows how to
// save/restore decision levels; it has no notion of variables or literals.
package trail

// Undoer is implemented by anything that registers events on a Trail. When
// the trail unwinds past the level at which an event was pushed, Undo is
// called once with that event's payload.
type Undoer interface {
	Undo(event any)
}

// Trail is a single append-only vector of events, partitioned by decision
// level. save_state/restore_last/restore of spec.md §4.1 map directly onto
// Save/RestoreLast/Restore.
type Trail struct {
	events    []entry
	levelEnds []int // events[:levelEnds[i]] is the state at the end of level i
}

type entry struct {
	payload any
	owner   Undoer
}

// New returns an empty trail at decision level 0.
func New() *Trail {
	return &Trail{}
}

// CurrentLevel returns the number of decision levels currently saved, i.e.
// the level that would be produced by the *next* Save call.
func (t *Trail) CurrentLevel() int {
	return len(t.levelEnds)
}

// Save pushes a new decision level, returning its index.
func (t *Trail) Save() int {
	t.levelEnds = append(t.levelEnds, len(t.events))
	return len(t.levelEnds) - 1
}

// Push appends an event owned by owner. owner.Undo(payload) is called if and
// when this event is undone.
func (t *Trail) Push(owner Undoer, payload any) {
	t.events = append(t.events, entry{payload: payload, owner: owner})
}

// NumEvents returns the number of live events, for invariant checking by
// callers that track their own parallel event counts.
func (t *Trail) NumEvents() int {
	return len(t.events)
}

// RestoreLast pops all events of the current (deepest) decision level,
// invoking each owner's Undo in reverse order, then drops that level.
func (t *Trail) RestoreLast() {
	if len(t.levelEnds) == 0 {
		return
	}
	end := t.levelEnds[len(t.levelEnds)-1]
	t.levelEnds = t.levelEnds[:len(t.levelEnds)-1]
	t.undoTo(end)
}

// Restore pops decision levels until CurrentLevel() == level.
func (t *Trail) Restore(level int) {
	for t.CurrentLevel() > level {
		t.RestoreLast()
	}
}

func (t *Trail) undoTo(end int) {
	for len(t.events) > end {
		last := t.events[len(t.events)-1]
		t.events = t.events[:len(t.events)-1]
		last.owner.Undo(last.payload)
	}
}
