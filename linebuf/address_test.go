package linebuf

import (
	"bytes"
	"errors"
	"testing"
)

var errEngine = errors.New("engine failure")

// flakyPattern matches text containing want and fails on text equal to
// bad.
type flakyPattern struct {
	want, bad string
}

func (p flakyPattern) Match(text []byte) (bool, error) {
	if string(text) == p.bad {
		return false, errEngine
	}
	return bytes.Contains(text, []byte(p.want)), nil
}

func (p flakyPattern) FindAt(text []byte, off int) ([]int, error) {
	if string(text) == p.bad {
		return nil, errEngine
	}
	i := bytes.Index(text[off:], []byte(p.want))
	if i < 0 {
		return nil, nil
	}
	return []int{off + i, off + i + len(p.want)}, nil
}

func (flakyPattern) NumSubexp() int { return 0 }

func (p flakyPattern) String() string { return p.want }

func TestResolveRange(t *testing.T) {
	tests := []struct {
		addr string
		want Range
		rest string
		dot  int
		err  error
	}{
		{addr: "", want: Range{Start: 3, End: 3}, dot: 3},
		{addr: "p", want: Range{Start: 3, End: 3}, rest: "p", dot: 3},
		{addr: "2", want: Range{Start: 2, End: 2, Count: 1}, dot: 3},
		{addr: "2p", want: Range{Start: 2, End: 2, Count: 1}, rest: "p", dot: 3},
		{addr: "2,4", want: Range{Start: 2, End: 4, Count: 2}, dot: 3},
		{addr: ",", want: Range{Start: 1, End: 5, Count: 2}, dot: 3},
		{addr: "%", want: Range{Start: 1, End: 5, Count: 2}, dot: 3},
		{addr: "2,", want: Range{Start: 2, End: 5, Count: 2}, dot: 3},
		{addr: ";", want: Range{Start: 3, End: 5, Count: 2}, dot: 3},
		{addr: "2;+1", want: Range{Start: 2, End: 3, Count: 2}, dot: 2},
		{addr: "1,2,4", want: Range{Start: 2, End: 4, Count: 2}, dot: 3},
		{addr: "$", want: Range{Start: 5, End: 5, Count: 1}, dot: 3},
		{addr: "$-2", want: Range{Start: 3, End: 3, Count: 1}, dot: 3},
		{addr: ".+1", want: Range{Start: 4, End: 4, Count: 1}, dot: 3},
		{addr: "-", want: Range{Start: 2, End: 2, Count: 1}, dot: 3},
		{addr: "--", want: Range{Start: 1, End: 1, Count: 1}, dot: 3},
		{addr: "+2", want: Range{Start: 5, End: 5, Count: 1}, dot: 3},
		{addr: "2 2", want: Range{Start: 4, End: 4, Count: 1}, dot: 3},
		{addr: "0", want: Range{Start: 0, End: 0, Count: 1}, dot: 3},
		{addr: "'a", want: Range{Start: 4, End: 4, Count: 1, Jump: true}, dot: 3},
		{addr: "'a,$", want: Range{Start: 4, End: 5, Count: 2, Jump: true}, dot: 3},
		{addr: "/fi/", want: Range{Start: 5, End: 5, Count: 1, Jump: true}, dot: 3},
		{addr: "/fi", want: Range{Start: 5, End: 5, Count: 1, Jump: true}, dot: 3},
		{addr: "?t?", want: Range{Start: 2, End: 2, Count: 1, Jump: true}, dot: 3},
		{addr: "/o/-1", want: Range{Start: 3, End: 3, Count: 1, Jump: true}, dot: 3},
		{addr: "/e/;/e/", dot: 3, err: ErrInvalidAddress},
		{addr: "4,2", dot: 3, err: ErrInvalidAddress},
		{addr: "6", dot: 3, err: ErrInvalidAddress},
		{addr: "-4", dot: 3, err: ErrInvalidAddress},
		{addr: "'b", dot: 3, err: ErrMarkUnset},
		{addr: "'B", dot: 3, err: ErrInvalidMark},
		{addr: "''", dot: 3, err: ErrNoHistory},
		{addr: "/zzz/", dot: 3, err: ErrNotFound},
		{addr: "99999999999999999999", dot: 3, err: ErrNumberOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			ws := newTestWorkspace("one", "two", "three", "four", "five")
			b := ws.Current()
			b.SetDot(3)
			b.SetLabel('a', 4)
			r, rest, err := ws.ResolveRange(tt.addr)
			if !errors.Is(err, tt.err) {
				t.Fatalf("got error %v, want %v", err, tt.err)
			}
			if err != nil {
				return
			}
			if r != tt.want {
				t.Errorf("got %+v, want %+v", r, tt.want)
			}
			if rest != tt.rest {
				t.Errorf("rest = %q, want %q", rest, tt.rest)
			}
			if b.Dot() != tt.dot {
				t.Errorf("dot = %d, want %d", b.Dot(), tt.dot)
			}
		})
	}
}

func TestResolveAddressHistory(t *testing.T) {
	ws := newTestWorkspace("a", "b", "c")
	ws.Current().PushHistory(2)
	n, rest, err := ws.ResolveAddress("''p")
	if err != nil || n != 2 || rest != "p" {
		t.Errorf("ResolveAddress(\"''p\") = %d, %q, %v", n, rest, err)
	}
	if n, _ := ws.Current().History(); n != 2 {
		t.Errorf("history popped")
	}
}

func TestSearchWrap(t *testing.T) {
	ws := newTestWorkspace("a", "b", "c")
	ws.Wrap = false
	if _, _, err := ws.ResolveAddress("/x/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("search without match = %v, want %v", err, ErrNotFound)
	}

	ws = newTestWorkspace("a", "x", "c")
	for dot := 1; dot <= 3; dot++ {
		ws.Current().SetDot(dot)
		n, _, err := ws.ResolveAddress("/x/")
		if err != nil || n != 2 {
			t.Errorf("dot %d: /x/ = %d, %v; want 2", dot, n, err)
		}
		n, _, err = ws.ResolveAddress("?x?")
		if err != nil || n != 2 {
			t.Errorf("dot %d: ?x? = %d, %v; want 2", dot, n, err)
		}
	}

	ws.Wrap = false
	ws.Current().SetDot(2)
	if _, _, err := ws.ResolveAddress("/x/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("search ran past the end: %v", err)
	}
	if _, _, err := ws.ResolveAddress("//"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty pattern did not reuse /x/: %v", err)
	}
}

func TestSearchNoPreviousPattern(t *testing.T) {
	ws := newTestWorkspace("a")
	if _, _, err := ws.ResolveAddress("//"); !errors.Is(err, ErrNoPrevPattern) {
		t.Errorf("got %v, want %v", err, ErrNoPrevPattern)
	}
}

func TestSearchEngineErrors(t *testing.T) {
	p := flakyPattern{want: "x", bad: "bad"}

	ws := newTestWorkspace("a", "bad", "x")
	n, err := ws.Search(p, 1, true)
	if err != nil || n != 3 {
		t.Errorf("Search skipping a failing line = %d, %v; want 3", n, err)
	}

	ws = newTestWorkspace("bad")
	if _, err := ws.Search(p, 1, true); !errors.Is(err, errEngine) {
		t.Errorf("single line search = %v, want %v", err, errEngine)
	}
}

func TestSearchInterrupt(t *testing.T) {
	ws := newTestWorkspace("a", "b")
	ws.Interrupt()
	if _, err := ws.Search(flakyPattern{want: "b"}, 1, true); !errors.Is(err, ErrInterrupt) {
		t.Errorf("got %v, want %v", err, ErrInterrupt)
	}
	if n, err := ws.Search(flakyPattern{want: "b"}, 1, true); err != nil || n != 2 {
		t.Errorf("interrupt was not cleared: %d, %v", n, err)
	}
}

func TestRangeCheck(t *testing.T) {
	empty := NewBuffer()
	if err := (Range{}).Check(empty, true); err != nil {
		t.Errorf("0,0 on empty buffer with zero allowed: %v", err)
	}
	if err := (Range{}).Check(empty, false); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("0,0 without zero allowed: %v", err)
	}
	b := newTestBuffer("a", "b")
	if err := (Range{Start: 1, End: 3}).Check(b, false); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("range past end: %v", err)
	}
}

func TestSplitDelimited(t *testing.T) {
	tests := []struct {
		in, body, rest string
		closed         bool
	}{
		{in: "abc/p", body: "abc", rest: "p", closed: true},
		{in: `a\/b/`, body: "a/b", closed: true},
		{in: `a\.b/x`, body: `a\.b`, rest: "x", closed: true},
		{in: "abc", body: "abc"},
		{in: "ab\ncd", body: "ab", rest: "\ncd"},
	}
	for _, tt := range tests {
		body, rest, closed := SplitDelimited(tt.in, '/')
		if body != tt.body || rest != tt.rest || closed != tt.closed {
			t.Errorf("SplitDelimited(%q) = %q, %q, %v", tt.in, body, rest, closed)
		}
	}
}
