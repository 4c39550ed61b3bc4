package linebuf

import (
	"fmt"
	"slices"
)

// InsertBlock places lines after line after (0 inserts before line 1)
// and sets dot to the last inserted line. The records must not be
// stored anywhere else. Inserting nothing, or past the line limit, is a
// programming error; commands check CanInsert first.
func (b *Buffer) InsertBlock(lines []*Line, after int) error {
	n := len(lines)
	if n == 0 {
		panic(ErrEmptyInsert)
	}
	if b.LineCount()+n > b.maxLines {
		panic(fmt.Errorf("%w: %d + %d lines", ErrTooManyLines, b.LineCount(), n))
	}
	if after < 0 || after > b.LineCount() {
		return ErrInvalidAddress
	}
	b.checkpoint()
	if b.recs == nil {
		b.recs = make([]*Line, 2, n+2)
	}
	b.recs = slices.Insert(b.recs, after+1, lines...)
	if b.gflags != nil {
		b.gflags = slices.Insert(b.gflags, after+1, make([]bool, n)...)
	}
	b.relocate(func(v int) int {
		if v > after {
			return v + n
		}
		return v
	})
	b.dot = after + n
	b.changed()
	return nil
}

// DeleteRange removes lines start through end. Labels and history
// entries inside the range are cleared. Dot moves to the line that
// followed the range, or to the new last line.
func (b *Buffer) DeleteRange(start, end int) error {
	if start < 1 || end < start || end > b.LineCount() {
		return ErrInvalidAddress
	}
	b.checkpoint()
	b.cut(start, end)
	k := end - start + 1
	b.relocate(func(v int) int {
		switch {
		case v > end:
			return v - k
		case v >= start:
			return 0
		}
		return v
	})
	b.dot = min(start, b.LineCount())
	b.changed()
	return nil
}

// cut removes recs[start:end+1] and the matching global marks. The
// array is released when the last line goes.
func (b *Buffer) cut(start, end int) {
	b.recs = slices.Delete(b.recs, start, end+1)
	if b.gflags != nil {
		for _, f := range b.gflags[start : end+1] {
			if f {
				b.gmarked--
			}
		}
		b.gflags = slices.Delete(b.gflags, start, end+1)
	}
	if len(b.recs) == 2 {
		b.recs = nil
	}
}

// MoveRange moves lines start through end after line dest and sets dot
// to the last moved line.
func (b *Buffer) MoveRange(start, end, dest int) error {
	if start < 1 || end < start || end > b.LineCount() {
		return ErrInvalidAddress
	}
	if dest < 0 || dest > b.LineCount() {
		return ErrInvalidAddress
	}
	if dest >= start && dest < end {
		return ErrInvalidDest
	}
	if dest == start-1 || dest == end {
		b.dot = end
		return nil
	}
	b.checkpoint()
	moveBlock(b.recs, start, end, dest)
	if b.gflags != nil {
		moveBlock(b.gflags, start, end, dest)
	}
	b.relocate(func(v int) int { return movedIndex(v, start, end, dest) })
	b.dot = movedIndex(end, start, end, dest)
	b.changed()
	return nil
}

// CopyRange inserts copies of lines start through end after line dest
// and sets dot to the last copy. The source lines are left untouched.
func (b *Buffer) CopyRange(start, end, dest int) error {
	if start < 1 || end < start || end > b.LineCount() {
		return ErrInvalidAddress
	}
	if dest < 0 || dest > b.LineCount() {
		return ErrInvalidAddress
	}
	if err := b.CanInsert(end - start + 1); err != nil {
		return err
	}
	copies := make([]*Line, 0, end-start+1)
	for i := start; i <= end; i++ {
		copies = append(copies, b.recs[i].clone())
	}
	return b.InsertBlock(copies, dest)
}

// JoinLines replaces lines start through end with one line holding
// their contents separated by sep. Labels inside the range follow the
// joined line. Dot is set to the joined line.
func (b *Buffer) JoinLines(start, end int, sep []byte) error {
	if start < 1 || end < start || end > b.LineCount() {
		return ErrInvalidAddress
	}
	if start == end {
		b.dot = start
		return nil
	}
	joined := joinRecords(b.recs[start:end+1], sep)
	b.checkpoint()
	b.recs[start] = joined
	b.cut(start+1, end)
	k := end - start
	b.relocate(func(v int) int {
		switch {
		case v > end:
			return v - k
		case v > start:
			return start
		}
		return v
	})
	b.dot = start
	b.changed()
	return nil
}

// joinRecords builds one record from lines, sizing the result once.
func joinRecords(lines []*Line, sep []byte) *Line {
	size := 1 + len(sep)*(len(lines)-1)
	for _, l := range lines {
		size += len(l.Text())
	}
	text := make([]byte, 0, size)
	for i, l := range lines {
		if i > 0 {
			text = append(text, sep...)
		}
		text = append(text, l.Text()...)
	}
	text = append(text, '\n')
	return &Line{text: text, id: lastID.Add(1)}
}

// replace overwrites line n in place; line numbers do not move.
func (b *Buffer) replace(n int, l *Line) {
	b.checkpoint()
	b.recs[n] = l
	b.dirty = true
}
