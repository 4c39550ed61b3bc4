package linebuf

import (
	"cmp"
	"slices"
)

// snapshot is the single level undo copy of a buffer. It shares the
// records of the live array; only the array itself is copied.
type snapshot struct {
	recs   []*Line
	dot    int
	labels [NumLabels]int
	hist   []int
	mode   Mode
}

// lineUndo remembers the one line changed by a directory rename or a
// form field write.
type lineUndo struct {
	n        int
	old, new *Line
}

// BeginCommand starts a new outer command: its first structural change
// will take a fresh undo snapshot. Commands replayed by a global command
// share the snapshot of the global command.
func (b *Buffer) BeginCommand() {
	if b.inGlobal {
		return
	}
	b.madeChanges = false
}

// checkpoint takes the undo snapshot before the first change of a
// command.
func (b *Buffer) checkpoint() {
	if b.mode&undoless != 0 || b.madeChanges {
		return
	}
	b.madeChanges = true
	b.reconcile()
	b.lineUndo = nil
	b.snap = &snapshot{
		recs:   slices.Clone(b.recs),
		dot:    b.dot,
		labels: b.labels,
		hist:   slices.Clone(b.hist),
		mode:   b.mode,
	}
}

// reconcile discards the snapshot and releases every record that only
// the snapshot still refers to. It returns the number released.
func (b *Buffer) reconcile() int {
	if b.snap == nil {
		return 0
	}
	old := liveRecords(b.snap.recs)
	live := liveRecords(b.recs)
	byID := func(x, y *Line) int { return cmp.Compare(x.id, y.id) }
	slices.SortFunc(old, byID)
	slices.SortFunc(live, byID)
	var freed, j int
	for _, l := range old {
		for j < len(live) && live[j].id < l.id {
			j++
		}
		if j < len(live) && live[j].id == l.id {
			continue
		}
		if !l.released() {
			l.release()
			freed++
		}
	}
	b.snap = nil
	b.released += freed
	logger.Printf("reconcile: released %d of %d snapshot lines", freed, len(old))
	return freed
}

func liveRecords(recs []*Line) []*Line {
	if len(recs) < 2 {
		return nil
	}
	return slices.Clone(recs[1 : len(recs)-1])
}

// Released returns how many records undo reconciliation has released
// over the life of the buffer.
func (b *Buffer) Released() int { return b.released }

// CanUndo reports whether Undo would succeed.
func (b *Buffer) CanUndo() bool {
	if b.lineUndo != nil {
		return true
	}
	return b.mode&undoless == 0 && b.snap != nil
}

// Undo swaps the live state with the snapshot. Calling it again undoes
// the undo.
func (b *Buffer) Undo() error {
	if b.inGlobal {
		return ErrUndoInGlobal
	}
	if b.mode&undoless != 0 {
		return ErrUndoUnavailable
	}
	if b.snap == nil {
		return ErrNothingToUndo
	}
	s := b.snap
	b.snap = &snapshot{
		recs:   b.recs,
		dot:    b.dot,
		labels: b.labels,
		hist:   b.hist,
		mode:   b.mode,
	}
	b.recs, b.dot, b.labels, b.hist, b.mode = s.recs, s.dot, s.labels, s.hist, s.mode
	b.madeChanges = true
	b.changed()
	return nil
}

// undoLine reverts the one line change of a directory or browse buffer
// and keeps the inverse so that a second undo redoes it.
func (b *Buffer) undoLine() *lineUndo {
	u := b.lineUndo
	if u == nil || b.Line(u.n) != u.new {
		b.lineUndo = nil
		return nil
	}
	b.recs[u.n] = u.old
	b.lineUndo = &lineUndo{n: u.n, old: u.new, new: u.old}
	b.dot = u.n
	b.dirty = true
	return u
}

// dropUndo reconciles and forgets all undo state.
func (b *Buffer) dropUndo() {
	b.reconcile()
	b.lineUndo = nil
}

// destroy releases every record of the buffer.
func (b *Buffer) destroy() {
	b.dropUndo()
	for i := 1; b.recs != nil && b.recs[i] != nil; i++ {
		b.recs[i].release()
		b.released++
	}
	b.recs = nil
	b.labels = [NumLabels]int{}
	b.hist = nil
	b.dot = 0
}
