package linebuf

// DefaultMaxLines is the largest number of lines a buffer may hold
// unless configured otherwise.
const DefaultMaxLines = 1 << 24

// store is the ordered line array of a buffer. recs[0] is unused and
// recs[n+1] is always a nil sentinel, so scans can stop on nil without
// checking bounds. An empty store owns no array.
type store struct {
	recs []*Line
}

// LineCount returns the number of lines.
func (s *store) LineCount() int {
	if s.recs == nil {
		return 0
	}
	return len(s.recs) - 2
}

// Line returns the record of line n, or nil when n is out of range.
func (s *store) Line(n int) *Line {
	if n < 1 || n > s.LineCount() {
		return nil
	}
	return s.recs[n]
}

// setLines replaces the whole array.
func (s *store) setLines(lines []*Line) {
	if len(lines) == 0 {
		s.recs = nil
		return
	}
	s.recs = make([]*Line, len(lines)+2)
	copy(s.recs[1:], lines)
}

// lines returns the live records as a new slice.
func (s *store) lines() []*Line {
	if s.recs == nil {
		return nil
	}
	out := make([]*Line, len(s.recs)-2)
	copy(out, s.recs[1:len(s.recs)-1])
	return out
}

// moveBlock moves s[start:end+1] so that it follows s[dest], using three
// block copies. dest must lie outside [start, end-1].
func moveBlock[T any](s []T, start, end, dest int) {
	k := end - start + 1
	tmp := make([]T, k)
	copy(tmp, s[start:end+1])
	if dest < start {
		copy(s[dest+1+k:end+1], s[dest+1:start])
		copy(s[dest+1:dest+1+k], tmp)
		return
	}
	copy(s[start:dest-k+1], s[end+1:dest+1])
	copy(s[dest-k+1:dest+1], tmp)
}

// movedIndex returns where line v ends up after moveBlock(start, end, dest).
func movedIndex(v, start, end, dest int) int {
	k := end - start + 1
	switch {
	case v >= start && v <= end && dest < start:
		return v - start + dest + 1
	case v >= start && v <= end:
		return v - start + dest - k + 1
	case dest < start && v > dest && v < start:
		return v + k
	case dest > end && v > end && v <= dest:
		return v - k
	}
	return v
}
