package linebuf

import (
	"bytes"
	"sync/atomic"
)

var lastID atomic.Uint64

// Line is one record of a buffer. The text always ends in a newline and
// may hold NUL bytes. A Line is never modified after it is stored; an
// edit builds a new Line so that undo snapshots can share records.
type Line struct {
	text []byte

	// Suffix and Flags are side bytes used by directory listings: the
	// file type marker ('/', '@', '*', '|') and reserved attribute bits.
	Suffix byte
	Flags  byte

	id uint64
}

// NewLine returns a record for b. A trailing newline is added when b
// does not already end in one.
func NewLine(b []byte) *Line {
	n := len(b)
	if n > 0 && b[n-1] == '\n' {
		n--
	}
	text := make([]byte, n+1)
	copy(text, b[:n])
	text[n] = '\n'
	return &Line{text: text, id: lastID.Add(1)}
}

// NewLines splits b on newlines. A final line without a terminator is
// kept; an empty b yields no lines.
func NewLines(b []byte) []*Line {
	if len(b) == 0 {
		return nil
	}
	b = bytes.TrimSuffix(b, []byte{'\n'})
	parts := bytes.Split(b, []byte{'\n'})
	lines := make([]*Line, len(parts))
	for i, p := range parts {
		lines[i] = NewLine(p)
	}
	return lines
}

// Text returns the content without its newline. The slice must not be
// modified.
func (l *Line) Text() []byte {
	if len(l.text) == 0 {
		return nil
	}
	return l.text[:len(l.text)-1]
}

// String returns the content without its newline.
func (l *Line) String() string { return string(l.Text()) }

// Len returns the length including the newline.
func (l *Line) Len() int { return len(l.text) }

func (l *Line) clone() *Line {
	c := *l
	c.text = bytes.Clone(l.text)
	c.id = lastID.Add(1)
	return &c
}

func (l *Line) release() { l.text = nil }

func (l *Line) released() bool { return l.text == nil }
