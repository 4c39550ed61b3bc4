package linebuf

import (
	"strconv"
)

// Range is a resolved address pair.
type Range struct {
	Start, End int
	Count      int  // addresses given, at most 2
	Jump       bool // an address came from a search, a label or the history
}

// Check validates the range for a command. Line 0 is accepted only when
// allowZero is set.
func (r Range) Check(b *Buffer, allowZero bool) error {
	lo := 1
	if allowZero {
		lo = 0
	}
	if r.Start < lo || r.End < r.Start || r.End > b.LineCount() {
		return ErrInvalidAddress
	}
	return nil
}

type addrParser struct {
	ws   *Workspace
	b    *Buffer
	s    string
	pos  int
	dot  int
	jump bool
}

// ResolveAddress parses one address from the front of token and returns
// its line number and the unparsed rest. A token that does not start
// with an address resolves to dot.
func (ws *Workspace) ResolveAddress(token string) (int, string, error) {
	b := ws.Current()
	p := addrParser{ws: ws, b: b, s: token, dot: b.dot}
	n, ok, err := p.address()
	if err != nil {
		return 0, token, err
	}
	if !ok {
		n = b.dot
	}
	return n, token[p.pos:], nil
}

// ResolveRange parses the addresses at the front of token. Without
// addresses the range is dot,dot with Count 0. A separator resets the
// default second address to the last line, so "," alone is the whole
// buffer and ";" is dot through the last line.
func (ws *Workspace) ResolveRange(token string) (Range, string, error) {
	b := ws.Current()
	p := addrParser{ws: ws, b: b, s: token, dot: b.dot}
	var addrs []int
	n, ok, err := p.address()
	if err != nil {
		return Range{}, token, err
	}
	if ok {
		addrs = append(addrs, n)
	}
	for {
		p.skipBlanks()
		sep := p.peek()
		if sep != ',' && sep != ';' && sep != '%' {
			break
		}
		if sep == '%' && ok {
			break
		}
		p.pos++
		if !ok {
			switch sep {
			case ';':
				addrs = append(addrs, p.dot)
			default:
				addrs = append(addrs, 1)
			}
		}
		if sep == ';' {
			p.dot = addrs[len(addrs)-1]
		}
		n, ok, err = p.address()
		if err != nil {
			return Range{}, token, err
		}
		if !ok {
			n, ok = b.LineCount(), true
		}
		addrs = append(addrs, n)
	}
	r := Range{Start: b.dot, End: b.dot, Jump: p.jump}
	switch len(addrs) {
	case 0:
	case 1:
		r.Start, r.End, r.Count = addrs[0], addrs[0], 1
	default:
		r.Start, r.End, r.Count = addrs[len(addrs)-2], addrs[len(addrs)-1], 2
	}
	if r.End < r.Start {
		return r, token, ErrInvalidAddress
	}
	if p.dot != b.dot && p.dot >= 1 && p.dot <= b.LineCount() {
		b.dot = p.dot
	}
	return r, token[p.pos:], nil
}

func (p *addrParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *addrParser) skipBlanks() {
	for p.peek() == ' ' || p.peek() == '\t' {
		p.pos++
	}
}

func (p *addrParser) number() (int, error) {
	start := p.pos
	for isDigit(p.peek()) {
		p.pos++
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		return 0, ErrNumberOutOfRange
	}
	return n, nil
}

// address parses one address with its trailing offsets. ok is false,
// and nothing is consumed, when there is none.
func (p *addrParser) address() (n int, ok bool, err error) {
	p.skipBlanks()
	start := p.pos
	n = p.dot
	last := p.b.LineCount()
	switch c := p.peek(); {
	case isDigit(c):
		if n, err = p.number(); err != nil {
			return 0, false, err
		}
		ok = true
	case c == '.':
		p.pos++
		ok = true
	case c == '$':
		p.pos++
		n, ok = last, true
	case c == '\'':
		p.pos++
		m := p.peek()
		p.pos++
		if m == '\'' {
			n, err = p.b.History()
		} else {
			n, err = p.b.Label(m)
		}
		if err != nil {
			return 0, false, err
		}
		ok, p.jump = true, true
	case c == '/' || c == '?':
		p.pos++
		body, rest, _ := SplitDelimited(p.s[p.pos:], c)
		p.pos = len(p.s) - len(rest)
		pat, err := p.ws.SearchPattern(body)
		if err != nil {
			return 0, false, err
		}
		if n, err = p.ws.search(p.b, pat, p.dot, c == '/'); err != nil {
			return 0, false, err
		}
		ok, p.jump = true, true
	}
	for {
		p.skipBlanks()
		c := p.peek()
		if c == '+' || c == '-' {
			p.pos++
			k := 1
			if isDigit(p.peek()) {
				if k, err = p.number(); err != nil {
					return 0, false, err
				}
			}
			if c == '-' {
				k = -k
			}
			n += k
			ok = true
			continue
		}
		if ok && isDigit(c) {
			k, err := p.number()
			if err != nil {
				return 0, false, err
			}
			n += k
			continue
		}
		break
	}
	if !ok {
		p.pos = start
		return 0, false, nil
	}
	if n < 0 || n > last {
		return 0, false, ErrInvalidAddress
	}
	return n, true, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// SearchPattern compiles body, or reuses the previous search pattern
// when body is empty.
func (ws *Workspace) SearchPattern(body string) (Pattern, error) {
	if body == "" {
		if ws.lastSearch == nil {
			return nil, ErrNoPrevPattern
		}
		return ws.lastSearch, nil
	}
	p, err := Compile(body, false)
	if err != nil {
		return nil, err
	}
	ws.lastSearch = p
	return p, nil
}

// Search finds the next line after from (or before it, when forward is
// false) that matches p, wrapping around the end of the buffer when
// wrap mode is on.
func (ws *Workspace) Search(p Pattern, from int, forward bool) (int, error) {
	return ws.search(ws.Current(), p, from, forward)
}

func (ws *Workspace) search(b *Buffer, p Pattern, from int, forward bool) (int, error) {
	n := b.LineCount()
	if n == 0 {
		return 0, ErrNotFound
	}
	span := n
	if !ws.Wrap {
		span = n - from
		if !forward {
			span = from - 1
		}
	}
	i := from
	for k := 0; k < n; k++ {
		if ws.interrupted() {
			return 0, ErrInterrupt
		}
		if forward {
			i++
			if i > n {
				if !ws.Wrap {
					break
				}
				i = 1
			}
		} else {
			i--
			if i < 1 {
				if !ws.Wrap {
					break
				}
				i = n
			}
		}
		ok, err := p.Match(b.recs[i].Text())
		if err != nil {
			if span == 1 {
				return 0, err
			}
			logger.Printf("search: line %d: %v", i, err)
			continue
		}
		if ok {
			return i, nil
		}
	}
	return 0, ErrNotFound
}
