// Package linebuf implements the editing core of a line editor: the
// line store of a buffer, address resolution, single level undo, the
// global command driver and the substitution engine.
//
// Line numbers are 1-based. Line 0 is the position before the first
// line and is only meaningful as the target of an insertion.
package linebuf

import (
	"bytes"
	"fmt"
	"io"
	"log"
)

var logger = log.New(io.Discard, "linebuf: ", log.Lmsgprefix)

// SetLogOutput sets the destination of the package debug log.
func SetLogOutput(w io.Writer) { logger.SetOutput(w) }

// Mode describes what a buffer holds. The directory, browse, sql and irc
// modes are maintained by the collaborators that render those views; in
// them undo is not available.
type Mode uint16

const (
	ModeDirectory Mode = 1 << iota
	ModeBrowse
	ModeSQL
	ModeIRC
	ModeBinary // content may hold NUL bytes
	ModeNoEOL  // the last line had no newline when loaded
)

const undoless = ModeDirectory | ModeBrowse | ModeSQL | ModeIRC

const (
	// NumLabels is the number of labels, one per lower case letter.
	NumLabels  = 26
	maxHistory = 64
)

// Buffer is one document held as numbered lines.
type Buffer struct {
	store

	Path string // file, directory or url the buffer was loaded from

	dot      int
	labels   [NumLabels]int
	hist     []int
	mode     Mode
	dirty    bool
	maxLines int

	gflags   []bool // global marks, parallel to recs while a global runs
	gmarked  int
	inGlobal bool
	shift    uint64 // bumped whenever line numbers move

	madeChanges bool
	snap        *snapshot
	lineUndo    *lineUndo
	released    int
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{maxLines: DefaultMaxLines}
}

// Dot returns the current line.
func (b *Buffer) Dot() int { return b.dot }

// SetDot sets the current line.
func (b *Buffer) SetDot(n int) error {
	if n < 0 || n > b.LineCount() || (n == 0 && b.LineCount() > 0) {
		return ErrInvalidAddress
	}
	b.dot = n
	return nil
}

// Mode returns the mode bits.
func (b *Buffer) Mode() Mode { return b.mode }

// SetMode replaces the mode bits. Entering or leaving a mode without
// undo drops the undo state.
func (b *Buffer) SetMode(m Mode) {
	if (m&undoless != 0) != (b.mode&undoless != 0) {
		b.dropUndo()
	}
	b.mode = m
}

// Editable reports whether lines may be added, moved or joined.
func (b *Buffer) Editable() bool { return b.mode&undoless == 0 }

// Dirty reports whether the buffer changed since it was loaded or
// marked clean.
func (b *Buffer) Dirty() bool { return b.dirty }

// SetDirty sets the modified state.
func (b *Buffer) SetDirty(d bool) { b.dirty = d }

// SetMaxLines sets the line limit.
func (b *Buffer) SetMaxLines(n int) { b.maxLines = n }

// CanInsert reports whether n more lines fit.
func (b *Buffer) CanInsert(n int) error {
	if n < 1 {
		return ErrEmptyInsert
	}
	if b.LineCount()+n > b.maxLines {
		return ErrTooManyLines
	}
	return nil
}

// FetchLine returns a copy of line n including its newline.
func (b *Buffer) FetchLine(n int) ([]byte, error) {
	l := b.Line(n)
	if l == nil {
		return nil, ErrInvalidAddress
	}
	return bytes.Clone(l.text), nil
}

// Label returns the line marked by c.
func (b *Buffer) Label(c byte) (int, error) {
	if c < 'a' || c > 'z' {
		return 0, ErrInvalidMark
	}
	n := b.labels[c-'a']
	if n == 0 {
		return 0, ErrMarkUnset
	}
	return n, nil
}

// SetLabel marks line n with c.
func (b *Buffer) SetLabel(c byte, n int) error {
	if c < 'a' || c > 'z' {
		return ErrInvalidMark
	}
	if n < 1 || n > b.LineCount() {
		return ErrInvalidAddress
	}
	b.labels[c-'a'] = n
	return nil
}

// PushHistory records n as a previously visited line.
func (b *Buffer) PushHistory(n int) {
	if n < 1 || n > b.LineCount() {
		return
	}
	if len(b.hist) == maxHistory {
		b.hist = append(b.hist[:0], b.hist[1:]...)
	}
	b.hist = append(b.hist, n)
}

// History returns the most recently visited line.
func (b *Buffer) History() (int, error) {
	if len(b.hist) == 0 {
		return 0, ErrNoHistory
	}
	return b.hist[len(b.hist)-1], nil
}

// Load replaces the content with the lines of blob. Undo is reset, and
// so are the marks of a running global command.
func (b *Buffer) Load(blob []byte) {
	b.dropUndo()
	b.setLines(NewLines(blob))
	b.mode &^= ModeBinary | ModeNoEOL
	if bytes.IndexByte(blob, 0) >= 0 {
		b.mode |= ModeBinary
	}
	if len(blob) > 0 && blob[len(blob)-1] != '\n' {
		b.mode |= ModeNoEOL
	}
	b.labels = [NumLabels]int{}
	b.hist = nil
	b.gflags, b.gmarked = nil, 0
	b.dot = b.LineCount()
	b.dirty = false
	b.shift++
	logger.Printf("load %d bytes, %d lines", len(blob), b.LineCount())
}

// Bytes returns the content as one blob.
func (b *Buffer) Bytes() []byte {
	var size int
	for i := 1; b.recs != nil && b.recs[i] != nil; i++ {
		size += b.recs[i].Len()
	}
	out := make([]byte, 0, size)
	for i := 1; b.recs != nil && b.recs[i] != nil; i++ {
		out = append(out, b.recs[i].text...)
	}
	if b.mode&ModeNoEOL != 0 && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out
}

// Check audits the structural invariants of the buffer.
func (b *Buffer) Check() error {
	n := b.LineCount()
	if n == 0 && b.recs != nil {
		return fmt.Errorf("empty buffer owns an array of %d", len(b.recs))
	}
	if n > 0 {
		if b.recs[0] != nil || b.recs[n+1] != nil {
			return fmt.Errorf("sentinel missing")
		}
		for i := 1; i <= n; i++ {
			if b.recs[i] == nil || b.recs[i].released() {
				return fmt.Errorf("line %d unset", i)
			}
		}
	}
	if b.dot < 0 || b.dot > n || (n > 0 && b.dot == 0) {
		return fmt.Errorf("dot %d outside 1..%d", b.dot, n)
	}
	for i, v := range b.labels {
		if v < 0 || v > n {
			return fmt.Errorf("label %c = %d outside 1..%d", 'a'+i, v, n)
		}
	}
	for _, v := range b.hist {
		if v < 1 || v > n {
			return fmt.Errorf("history entry %d outside 1..%d", v, n)
		}
	}
	if b.gflags != nil && len(b.gflags) != n+2 {
		return fmt.Errorf("global marks sized %d for %d lines", len(b.gflags), n)
	}
	return nil
}

// relocate rewrites every label and history entry through fn. Entries
// mapped to 0 are cleared.
func (b *Buffer) relocate(fn func(int) int) {
	for i, v := range b.labels {
		if v != 0 {
			b.labels[i] = fn(v)
		}
	}
	h := b.hist[:0]
	for _, v := range b.hist {
		if v = fn(v); v != 0 {
			h = append(h, v)
		}
	}
	b.hist = h
}

func (b *Buffer) changed() {
	b.shift++
	b.dirty = true
}
