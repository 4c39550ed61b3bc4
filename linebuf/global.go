package linebuf

import (
	"cmp"
	"errors"
	"slices"
	"strconv"
)

// RunGlobal marks every line of start through end that matches p (or,
// with invert, does not match it) and runs subcmd once per marked line.
// A delete, join or session read of a fixed block around each match is
// carried out in a single pass over the buffer; any other sub-command is
// replayed through the workspace Dispatcher with dot set to the line.
func (ws *Workspace) RunGlobal(start, end int, p Pattern, invert bool, subcmd string) error {
	b := ws.Current()
	if b.inGlobal {
		return ErrNestedGlobal
	}
	if start < 1 || end < start || end > b.LineCount() {
		return ErrInvalidAddress
	}
	if err := ws.markGlobal(b, start, end, p, invert); err != nil {
		return err
	}
	b.inGlobal = true
	defer func() {
		b.inGlobal = false
		b.gflags, b.gmarked = nil, 0
	}()
	if op, ok := parseMass(subcmd); ok && b.Editable() {
		logger.Printf("global: %d marked, mass %c %+d,%+d", b.gmarked, op.cmd, op.lo, op.hi)
		return ws.runMass(b, op)
	}
	logger.Printf("global: %d marked, replaying %q", b.gmarked, subcmd)
	return ws.replay(b, subcmd)
}

func (ws *Workspace) markGlobal(b *Buffer, start, end int, p Pattern, invert bool) error {
	flags := make([]bool, b.LineCount()+2)
	marked := 0
	for i := start; i <= end; i++ {
		if ws.interrupted() {
			return ErrInterrupt
		}
		ok, err := p.Match(b.recs[i].Text())
		if err != nil {
			if start == end {
				return err
			}
			logger.Printf("global: line %d: %v", i, err)
			continue
		}
		if ok != invert {
			flags[i] = true
			marked++
		}
	}
	if marked == 0 {
		return ErrNoMatch
	}
	b.gflags, b.gmarked = flags, marked
	return nil
}

// replay runs subcmd on each marked line. Whenever the sub-command moved
// line numbers the scan starts over at line 1; it ends once no mark is
// left or a whole pass cleared none. A sub-command that matched nothing
// is not an error unless no line matched at all.
func (ws *Workspace) replay(b *Buffer, subcmd string) error {
	if ws.Dispatcher == nil {
		return ErrNoDispatcher
	}
	var runs, misses int
	for b.gmarked > 0 {
		progress := false
		for i := 1; i <= b.LineCount(); i++ {
			if !b.gflags[i] {
				continue
			}
			if ws.interrupted() {
				return ErrInterrupt
			}
			b.gflags[i] = false
			b.gmarked--
			progress = true
			b.dot = i
			shift := b.shift
			err := ws.Dispatcher.Dispatch(subcmd)
			if ws.Current() != b {
				return ErrBufferSwitched
			}
			runs++
			switch {
			case errors.Is(err, ErrNoMatch):
				misses++
			case err != nil:
				return err
			}
			if b.gflags == nil {
				return nil
			}
			if b.shift != shift {
				i = 0
			}
		}
		if !progress {
			break
		}
	}
	if runs > 0 && runs == misses {
		return ErrNoMatch
	}
	return nil
}

// massOp is a sub-command the global command can apply in one pass.
type massOp struct {
	cmd     byte // 'd', 'j' or 'r'
	sep     []byte
	lo, hi  int // block around each marked line
	session int
}

// parseMass recognizes the sub-commands that have a one pass form:
//
//	d  .,+Nd  -B,.d  -B,+Nd    delete a block
//	j  J  -j  .,+Nj            join a block, J with a space
//	rN                         read session N after each line
func parseMass(s string) (massOp, bool) {
	if len(s) > 1 && s[0] == 'r' {
		for i := 1; i < len(s); i++ {
			if !isDigit(s[i]) {
				return massOp{}, false
			}
		}
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 1 || n > MaxSessions {
			return massOp{}, false
		}
		return massOp{cmd: 'r', session: n}, true
	}
	var (
		op  massOp
		pos int
	)
	lo, ok := relAddr(s, &pos)
	hi, pair := lo, false
	if ok && pos < len(s) && s[pos] == ',' {
		pos++
		if hi, pair = relAddr(s, &pos); !pair {
			return massOp{}, false
		}
	}
	if pos != len(s)-1 {
		return massOp{}, false
	}
	op.lo, op.hi = lo, hi
	switch s[pos] {
	case 'd':
		op.cmd = 'd'
	case 'J':
		op.sep = []byte{' '}
		fallthrough
	case 'j':
		op.cmd = 'j'
		if !pair {
			op.hi = op.lo + 1
		}
		if op.hi == op.lo {
			return massOp{}, false
		}
	default:
		return massOp{}, false
	}
	if op.lo > 0 || op.hi < 0 || op.hi < op.lo {
		return massOp{}, false
	}
	return op, true
}

// relAddr parses an address relative to the marked line: ".", "+N",
// "-N", ".+N" or ".-N". A sign without digits counts one.
func relAddr(s string, pos *int) (int, bool) {
	i, ok := *pos, false
	if i < len(s) && s[i] == '.' {
		i++
		ok = true
	}
	v := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg := s[i] == '-'
		i++
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		v = 1
		if j > i {
			var err error
			if v, err = strconv.Atoi(s[i:j]); err != nil {
				return 0, false
			}
		}
		if neg {
			v = -v
		}
		i, ok = j, true
	}
	if !ok {
		return 0, false
	}
	*pos = i
	return v, true
}

type window struct{ lo, hi int }

// runMass validates the block of every marked line before touching the
// buffer, then compacts it in one pass.
func (ws *Workspace) runMass(b *Buffer, op massOp) error {
	n := b.LineCount()
	var wins []window
	for i := 1; i <= n; i++ {
		if !b.gflags[i] {
			continue
		}
		w := window{i + op.lo, i + op.hi}
		if w.lo < 1 || w.hi > n {
			return ErrGlobalRange
		}
		if len(wins) > 0 && w.lo <= wins[len(wins)-1].hi {
			return ErrGlobalOverlap
		}
		wins = append(wins, w)
	}
	if op.cmd == 'r' {
		return ws.massRead(b, op.session, wins)
	}
	b.checkpoint()
	refs := b.refCursor()
	j, dot := 1, 0
	for i, k := 1, 0; i <= n; {
		if k < len(wins) && wins[k].lo == i {
			w := wins[k]
			k++
			if op.cmd == 'd' {
				for ; i <= w.hi; i++ {
					refs.move(i, 0)
				}
				dot = j
				continue
			}
			joined := joinRecords(b.recs[w.lo:w.hi+1], op.sep)
			for ; i <= w.hi; i++ {
				refs.move(i, j)
			}
			b.recs[j] = joined
			dot = j
			j++
			continue
		}
		refs.move(i, j)
		b.recs[j] = b.recs[i]
		i++
		j++
	}
	clear(b.recs[j:])
	b.recs = b.recs[:j+1]
	if j == 1 {
		b.recs = nil
	}
	b.gflags, b.gmarked = nil, 0
	b.dot = min(dot, b.LineCount())
	b.compactHistory()
	b.changed()
	logger.Printf("global: %d lines became %d", n, b.LineCount())
	return nil
}

// massRead inserts a copy of session n's buffer after every window.
func (ws *Workspace) massRead(b *Buffer, n int, wins []window) error {
	src, err := ws.SessionBuffer(n)
	if err != nil {
		return err
	}
	lines := src.lines()
	if len(lines) == 0 {
		return ErrEmptyInsert
	}
	add := len(lines) * len(wins)
	if add/len(wins) != len(lines) {
		return ErrTooManyLines
	}
	if err := b.CanInsert(add); err != nil {
		return err
	}
	b.checkpoint()
	total := b.LineCount()
	out := make([]*Line, 1, total+add+2)
	refs := b.refCursor()
	for i, k := 1, 0; i <= total; i++ {
		refs.move(i, len(out))
		out = append(out, b.recs[i])
		if k < len(wins) && wins[k].hi == i {
			for _, l := range lines {
				out = append(out, l.clone())
			}
			b.dot = len(out) - 1
			k++
		}
	}
	b.recs = append(out, nil)
	b.gflags, b.gmarked = nil, 0
	b.changed()
	return nil
}

type ref struct {
	at   int
	slot *int
}

// refCursor relocates labels and history entries while a pass walks the
// old line numbers in increasing order. Each entry moves once.
type refCursor struct {
	refs []ref
	k    int
}

func (b *Buffer) refCursor() *refCursor {
	var refs []ref
	for i, v := range b.labels {
		if v != 0 {
			refs = append(refs, ref{at: v, slot: &b.labels[i]})
		}
	}
	for i, v := range b.hist {
		refs = append(refs, ref{at: v, slot: &b.hist[i]})
	}
	slices.SortFunc(refs, func(x, y ref) int { return cmp.Compare(x.at, y.at) })
	return &refCursor{refs: refs}
}

// move sends the entries that pointed at old line i to line to; 0
// clears them.
func (c *refCursor) move(i, to int) {
	for c.k < len(c.refs) && c.refs[c.k].at < i {
		c.k++
	}
	for c.k < len(c.refs) && c.refs[c.k].at == i {
		*c.refs[c.k].slot = to
		c.k++
	}
}

// compactHistory drops history entries that were cleared.
func (b *Buffer) compactHistory() {
	b.hist = slices.DeleteFunc(b.hist, func(v int) bool { return v == 0 })
}
