package linebuf

import (
	"bytes"
	"errors"
	"unicode"
	"unicode/utf8"
)

// splitSlack is added to every split map allocation.
const splitSlack = 16

// Substitution describes one s command.
type Substitution struct {
	Pattern     Pattern
	Replacement string
	Nth         int  // the match to replace, counting from 1
	Global      bool // replace the Nth match and every one after it
	Last        bool // replace only the last match
}

type pieceKind uint8

const (
	pieceText pieceKind = iota
	pieceGroup
	pieceUpper
	pieceLower
	pieceMixed
)

type piece struct {
	kind  pieceKind
	text  []byte
	group int
}

// parseReplacement compiles the replacement text. & and \0 stand for
// the whole match, \1 to \9 and $0 to $9 for groups, \n or an escaped
// newline for a line break, \t for a tab and \0 followed by octal
// digits for that byte. Any other escaped character stands for itself.
// The whole replacement %u, %l or %m upper cases, lower cases or
// capitalizes the matched text.
func parseReplacement(raw string, nsub int) ([]piece, error) {
	switch raw {
	case "%u":
		return []piece{{kind: pieceUpper}}, nil
	case "%l":
		return []piece{{kind: pieceLower}}, nil
	case "%m":
		return []piece{{kind: pieceMixed}}, nil
	}
	var (
		out []piece
		lit []byte
	)
	flush := func() {
		if len(lit) > 0 {
			out = append(out, piece{kind: pieceText, text: lit})
			lit = nil
		}
	}
	group := func(k int) error {
		if k > nsub {
			return ErrBackref
		}
		flush()
		out = append(out, piece{kind: pieceGroup, group: k})
		return nil
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '&':
			if err := group(0); err != nil {
				return nil, err
			}
		case c == '$' && i+1 < len(raw) && isDigit(raw[i+1]):
			i++
			if err := group(int(raw[i] - '0')); err != nil {
				return nil, err
			}
		case c == '\\' && i+1 < len(raw):
			i++
			d := raw[i]
			switch {
			case d == 'n' || d == '\n':
				lit = append(lit, '\n')
			case d == 't':
				lit = append(lit, '\t')
			case d == '0' && i+1 < len(raw) && isOctal(raw[i+1]):
				v, j := 0, i+1
				for ; j < len(raw) && j <= i+3 && isOctal(raw[j]); j++ {
					v = v*8 + int(raw[j]-'0')
				}
				if v > 0xff {
					return nil, ErrNumberOutOfRange
				}
				lit = append(lit, byte(v))
				i = j - 1
			case isDigit(d):
				if err := group(int(d - '0')); err != nil {
					return nil, err
				}
			default:
				lit = append(lit, d)
			}
		default:
			lit = append(lit, c)
		}
	}
	flush()
	return out, nil
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// expand appends the replacement for match m of text to dst.
func expand(dst []byte, pieces []piece, text []byte, m []int) []byte {
	for _, p := range pieces {
		switch p.kind {
		case pieceText:
			dst = append(dst, p.text...)
		case pieceGroup:
			if lo, hi := m[2*p.group], m[2*p.group+1]; lo >= 0 {
				dst = append(dst, text[lo:hi]...)
			}
		case pieceUpper:
			dst = append(dst, bytes.ToUpper(text[m[0]:m[1]])...)
		case pieceLower:
			dst = append(dst, bytes.ToLower(text[m[0]:m[1]])...)
		case pieceMixed:
			dst = appendMixed(dst, text[m[0]:m[1]])
		}
	}
	return dst
}

// appendMixed capitalizes the first letter of every word in s.
func appendMixed(dst, s []byte) []byte {
	word := false
	for len(s) > 0 {
		r, n := utf8.DecodeRune(s)
		switch {
		case !unicode.IsLetter(r):
			word = false
		case word:
			r = unicode.ToLower(r)
		default:
			r = unicode.ToUpper(r)
			word = true
		}
		dst = utf8.AppendRune(dst, r)
		s = s[n:]
	}
	return dst
}

type substituter struct {
	*Substitution
	pieces []piece
	nth    int
}

func newSubstituter(sub *Substitution) (*substituter, error) {
	pieces, err := parseReplacement(sub.Replacement, sub.Pattern.NumSubexp())
	if err != nil {
		return nil, err
	}
	nth := sub.Nth
	if nth < 1 {
		nth = 1
	}
	return &substituter{Substitution: sub, pieces: pieces, nth: nth}, nil
}

// apply rewrites one line of text. It returns nil when no match was
// selected. Each search resumes where the previous match ended, so an
// empty match is found twice at the same offset; that ends the scan, or
// fails with ErrRegexLoop when every match was asked for.
func (s *substituter) apply(text []byte) ([]byte, error) {
	var matches [][]int
	multi := s.Global || s.Last
	off, prevEmpty := 0, -1
	for off <= len(text) {
		m, err := s.Pattern.FindAt(text, off)
		if err != nil {
			return nil, err
		}
		if m == nil {
			break
		}
		if m[0] < off {
			return nil, ErrRegexLoop
		}
		if m[0] == m[1] {
			if m[0] == prevEmpty {
				if multi {
					return nil, ErrRegexLoop
				}
				break
			}
			prevEmpty = m[0]
		}
		matches = append(matches, m)
		if !multi && len(matches) == s.nth {
			break
		}
		off = m[1]
	}
	selected := func(k int) bool {
		switch {
		case s.Last:
			return k == len(matches)-1
		case s.Global:
			return k >= s.nth-1
		}
		return k == s.nth-1
	}
	var out []byte
	prev := 0
	for k, m := range matches {
		if !selected(k) {
			continue
		}
		if out == nil {
			out = make([]byte, 0, len(text)+len(s.Replacement))
		}
		out = append(out, text[prev:m[0]]...)
		out = expand(out, s.pieces, text, m)
		prev = m[1]
	}
	if out == nil {
		return nil, nil
	}
	return append(out, text[prev:]...), nil
}

type lineChange struct {
	n     int
	lines [][]byte
}

// Substitute applies sub to lines start through end and returns how
// many lines changed. A replacement holding line breaks splits its line;
// labels then follow the first piece of the line they marked. Dot is
// set to the last line produced by the last change. No line changes
// when any line fails.
func (b *Buffer) Substitute(start, end int, sub *Substitution) (int, error) {
	s, err := newSubstituter(sub)
	if err != nil {
		return 0, err
	}
	return b.substitute(start, end, s)
}

func (b *Buffer) substitute(start, end int, s *substituter) (int, error) {
	if start < 1 || end < start || end > b.LineCount() {
		return 0, ErrInvalidAddress
	}
	var (
		changes []lineChange
		extra   int
	)
	for i := start; i <= end; i++ {
		out, err := s.apply(b.recs[i].Text())
		if err != nil {
			if start == end || errors.Is(err, ErrRegexLoop) {
				return 0, err
			}
			logger.Printf("substitute: line %d: %v", i, err)
			continue
		}
		if out == nil {
			continue
		}
		parts := bytes.Split(out, []byte{'\n'})
		extra += len(parts) - 1
		changes = append(changes, lineChange{n: i, lines: parts})
	}
	if len(changes) == 0 {
		return 0, ErrNoMatch
	}
	if extra > 0 {
		if err := b.CanInsert(extra); err != nil {
			return 0, err
		}
	}
	k := 0
	for ; k < len(changes) && len(changes[k].lines) == 1; k++ {
		c := changes[k]
		b.replace(c.n, NewLine(c.lines[0]))
		b.dot = c.n
	}
	b.checkpoint()
	if k < len(changes) {
		b.splitLines(changes[k:])
	}
	return len(changes), nil
}

// splitLines rebuilds the line array once a change produced more than
// one line. Lines before the first such change keep their numbers; the
// rest are copied into a new array that grows by a tenth whenever it
// runs out of room, then swapped in.
func (b *Buffer) splitLines(changes []lineChange) {
	n := b.LineCount()
	first := changes[0].n
	out := make([]*Line, first, n*10/9+splitSlack)
	copy(out, b.recs[:first])
	var gout []bool
	if b.gflags != nil {
		gout = make([]bool, first, cap(out))
		copy(gout, b.gflags[:first])
	}
	refs := b.refCursor()
	for i := first; i <= n; i++ {
		refs.move(i, len(out))
		add := 1
		if len(changes) > 0 && changes[0].n == i {
			add = len(changes[0].lines)
		}
		if len(out)+add+1 > cap(out) {
			c := cap(out)*10/9 + add + splitSlack
			out = append(make([]*Line, 0, c), out...)
			if gout != nil {
				gout = append(make([]bool, 0, c), gout...)
			}
		}
		if add == 1 && (len(changes) == 0 || changes[0].n != i) {
			out = append(out, b.recs[i])
			if gout != nil {
				gout = append(gout, b.gflags[i])
			}
			continue
		}
		for j, part := range changes[0].lines {
			out = append(out, NewLine(part))
			if gout != nil {
				gout = append(gout, j == 0 && b.gflags[i])
			}
		}
		b.dot = len(out) - 1
		changes = changes[1:]
	}
	b.recs = append(out, nil)
	if gout != nil {
		b.gflags = append(gout, false)
	}
	b.compactHistory()
	b.changed()
	logger.Printf("split: %d lines became %d", n, b.LineCount())
}

// Substitute runs sub on the current buffer. A replacement of "%" reuses
// the previous replacement. Directory and browse buffers change one line
// at a time: the new text is handed to the rename or form hook and only
// that line is kept for undo.
func (ws *Workspace) Substitute(start, end int, sub *Substitution) (int, error) {
	if sub.Replacement == "%" {
		if !ws.haveReplace {
			return 0, ErrNoPrevReplace
		}
		sub.Replacement = ws.lastReplace
	}
	s, err := newSubstituter(sub)
	if err != nil {
		return 0, err
	}
	ws.lastReplace, ws.haveReplace = sub.Replacement, true
	b := ws.Current()
	if b.Editable() {
		return b.substitute(start, end, s)
	}
	if b.mode&(ModeDirectory|ModeBrowse) == 0 {
		return 0, ErrReadOnly
	}
	if start < 1 || end < start || end > b.LineCount() {
		return 0, ErrInvalidAddress
	}
	if start != end {
		return 0, ErrOneLine
	}
	old := b.recs[start]
	out, err := s.apply(old.Text())
	if err != nil {
		return 0, err
	}
	if out == nil {
		return 0, ErrNoMatch
	}
	if bytes.IndexByte(out, '\n') >= 0 {
		return 0, ErrOneLine
	}
	if b.mode&ModeDirectory != 0 && (len(out) == 0 || bytes.IndexByte(out, '/') >= 0) {
		return 0, ErrInvalidFileName
	}
	l := NewLine(out)
	l.Suffix, l.Flags = old.Suffix, old.Flags
	if err := ws.applyLine(b, start, old, l); err != nil {
		return 0, err
	}
	b.recs[start] = l
	b.lineUndo = &lineUndo{n: start, old: old, new: l}
	b.dot = start
	return 1, nil
}
