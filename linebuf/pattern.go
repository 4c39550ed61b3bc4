package linebuf

import (
	"regexp"
	"strings"
)

// Pattern is a compiled regular expression as supplied by the regex
// engine. FindAt returns the submatch index vector of the first match
// that starts at or after off, or nil. Offsets are relative to text, so
// anchors keep their meaning at any offset.
type Pattern interface {
	Match(text []byte) (bool, error)
	FindAt(text []byte, off int) ([]int, error)
	NumSubexp() int
	String() string
}

// Compile compiles expr with the regexp package.
func Compile(expr string, icase bool) (Pattern, error) {
	src := expr
	if icase {
		src = "(?i)" + expr
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	return &rePattern{re: re, expr: expr}, nil
}

type rePattern struct {
	re   *regexp.Regexp
	expr string

	// matches of the last line scanned by FindAt
	text []byte
	all  [][]int
}

func (p *rePattern) Match(text []byte) (bool, error) { return p.re.Match(text), nil }

func (p *rePattern) FindAt(text []byte, off int) ([]int, error) {
	if off == 0 || !sameSlice(text, p.text) {
		p.text = text
		p.all = p.re.FindAllSubmatchIndex(text, -1)
	}
	for _, m := range p.all {
		if m[0] >= off {
			return m, nil
		}
	}
	return nil, nil
}

func (p *rePattern) NumSubexp() int { return p.re.NumSubexp() }

func (p *rePattern) String() string { return p.expr }

func sameSlice(a, b []byte) bool {
	if len(a) != len(b) || cap(a) != cap(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

// SplitDelimited returns the text of s up to the first unescaped delim
// and the rest after it. An escaped delim loses its backslash; other
// escapes are kept. The text also ends at an unescaped newline. closed
// reports whether delim was found.
func SplitDelimited(s string, delim byte) (body, rest string, closed bool) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			if s[i] != delim {
				sb.WriteByte(c)
			}
			sb.WriteByte(s[i])
		case c == delim:
			return sb.String(), s[i+1:], true
		case c == '\n':
			return sb.String(), s[i:], false
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), "", false
}
