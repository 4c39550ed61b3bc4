package linebuf

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// loopPattern matches a whole line once, except on "loop" where it keeps
// reporting an empty match at offset 0.
type loopPattern struct{}

func (loopPattern) Match(text []byte) (bool, error) { return true, nil }

func (loopPattern) FindAt(text []byte, off int) ([]int, error) {
	if string(text) == "loop" {
		return []int{0, 0}, nil
	}
	if off > 0 {
		return nil, nil
	}
	return []int{0, len(text)}, nil
}

func (loopPattern) NumSubexp() int { return 0 }

func (loopPattern) String() string { return "loop" }

func TestSubstituteLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		expr  string
		icase bool
		sub   Substitution
		want  string
		err   error
	}{
		{name: "first", line: "a a a a", expr: "a", sub: Substitution{Replacement: "b"}, want: "b a a a"},
		{name: "nth", line: "a a a a", expr: "a", sub: Substitution{Replacement: "b", Nth: 3}, want: "a a b a"},
		{name: "global", line: "a a a a", expr: "a", sub: Substitution{Replacement: "b", Global: true}, want: "b b b b"},
		{name: "nth and after", line: "a a a a", expr: "a", sub: Substitution{Replacement: "b", Nth: 2, Global: true}, want: "a b b b"},
		{name: "last", line: "a a a a", expr: "a", sub: Substitution{Replacement: "b", Last: true}, want: "a a a b"},
		{name: "nth past end", line: "a a a a", expr: "a", sub: Substitution{Replacement: "b", Nth: 5}, err: ErrNoMatch},
		{name: "no match", line: "a a a a", expr: "z", sub: Substitution{Replacement: "b"}, err: ErrNoMatch},
		{name: "ampersand", line: "a a", expr: "a", sub: Substitution{Replacement: "[&]"}, want: "[a] a"},
		{name: "escaped ampersand", line: "a a", expr: "a", sub: Substitution{Replacement: `\&`}, want: "& a"},
		{name: "whole match", line: "ab", expr: "b", sub: Substitution{Replacement: `<\0>`}, want: "a<b>"},
		{name: "octal", line: "ab", expr: "b", sub: Substitution{Replacement: `\0101`}, want: "aA"},
		{name: "octal out of range", line: "ab", expr: "b", sub: Substitution{Replacement: `\0777`}, err: ErrNumberOutOfRange},
		{name: "groups", line: "ab cd", expr: `(\w)(\w)`, sub: Substitution{Replacement: `\2\1`, Global: true}, want: "ba dc"},
		{name: "dollar groups", line: "ab cd", expr: `(\w)(\w)`, sub: Substitution{Replacement: `$2-$1`, Last: true}, want: "ab d-c"},
		{name: "escaped dollar", line: "ab", expr: "b", sub: Substitution{Replacement: `\$1`}, want: "a$1"},
		{name: "bad group", line: "ab", expr: "b", sub: Substitution{Replacement: `\1`}, err: ErrBackref},
		{name: "tab", line: "a b", expr: " ", sub: Substitution{Replacement: `\t`}, want: "a\tb"},
		{name: "backslash", line: "a b", expr: " ", sub: Substitution{Replacement: `\\`}, want: `a\b`},
		{name: "upper", line: "hello world", expr: "o w", sub: Substitution{Replacement: "%u"}, want: "hellO World"},
		{name: "lower", line: "HELLO", expr: ".*", sub: Substitution{Replacement: "%l"}, want: "hello"},
		{name: "mixed", line: "hELLO wORLD", expr: ".*", sub: Substitution{Replacement: "%m"}, want: "Hello World"},
		{name: "percent in text", line: "a", expr: "a", sub: Substitution{Replacement: "%d"}, want: "%d"},
		{name: "ignore case", line: "A a", expr: "a", icase: true, sub: Substitution{Replacement: "b"}, want: "b a"},
		{name: "empty match", line: "abc", expr: "x*", sub: Substitution{Replacement: "-"}, want: "-abc"},
		{name: "empty match twice", line: "abc", expr: "x*", sub: Substitution{Replacement: "-", Nth: 2}, err: ErrNoMatch},
		{name: "empty matches", line: "abc", expr: "x*", sub: Substitution{Replacement: "-", Global: true}, err: ErrRegexLoop},
		{name: "empty last match", line: "abc", expr: "x*", sub: Substitution{Replacement: "-", Last: true}, err: ErrRegexLoop},
		{name: "anchor only", line: "abc", expr: "^", sub: Substitution{Replacement: "-", Global: true}, err: ErrRegexLoop},
		{name: "end only", line: "abc", expr: "$", sub: Substitution{Replacement: "!"}, want: "abc!"},
		{name: "anchor", line: "aaa", expr: "^a", sub: Substitution{Replacement: "b", Global: true}, want: "baa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuffer(tt.line)
			p, err := Compile(tt.expr, tt.icase)
			if err != nil {
				t.Fatal(err)
			}
			sub := tt.sub
			sub.Pattern = p
			n, err := b.Substitute(1, 1, &sub)
			if !errors.Is(err, tt.err) {
				t.Fatalf("got error %v, want %v", err, tt.err)
			}
			if err != nil {
				if b.Line(1).String() != tt.line || b.Dirty() {
					t.Errorf("failed substitution changed the line to %q", b.Line(1))
				}
				return
			}
			if n != 1 {
				t.Errorf("changed %d lines, want 1", n)
			}
			if got := b.Line(1).String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubstituteSplitsLine(t *testing.T) {
	b := newTestBuffer("foo bar")
	n, err := b.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, "bar"), Replacement: "baz\nqux"})
	if err != nil || n != 1 {
		t.Fatalf("Substitute = %d, %v", n, err)
	}
	if diff := cmp.Diff([]string{"foo baz", "qux"}, contents(b)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if b.LineCount() != 2 || b.Dot() != 2 {
		t.Errorf("%d lines, dot %d; want 2, 2", b.LineCount(), b.Dot())
	}
	mustCheck(t, b)

	b = newTestBuffer("a b")
	if _, err := b.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, " "), Replacement: `\n`}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, contents(b)); diff != "" {
		t.Errorf("escaped newline (-want +got):\n%s", diff)
	}
}

func TestSubstituteSplitRelocatesLabels(t *testing.T) {
	b := newTestBuffer("a,b", "c", "d,e", "f", "g")
	for i, c := range "abcde" {
		b.SetLabel(byte(c), i+1)
	}
	b.PushHistory(4)
	n, err := b.Substitute(1, 4, &Substitution{Pattern: mustCompile(t, ","), Replacement: "\n", Global: true})
	if err != nil || n != 2 {
		t.Fatalf("Substitute = %d, %v", n, err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d", "e", "f", "g"}, contents(b)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	want := [NumLabels]int{1, 3, 4, 6, 7}
	if diff := cmp.Diff(want, b.labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if h, _ := b.History(); h != 6 {
		t.Errorf("history = %d, want 6", h)
	}
	if b.Dot() != 5 {
		t.Errorf("dot = %d, want 5", b.Dot())
	}
	mustCheck(t, b)
}

func TestSubstituteInPlaceThenSplit(t *testing.T) {
	b := newTestBuffer("x", "y", "x", "y")
	b.SetLabel('a', 4)
	n, err := b.Substitute(1, 4, &Substitution{Pattern: mustCompile(t, "x|y"), Replacement: "&&"})
	if err != nil || n != 4 {
		t.Fatalf("Substitute = %d, %v", n, err)
	}
	if diff := cmp.Diff([]string{"xx", "yy", "xx", "yy"}, contents(b)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	n, err = b.Substitute(1, 4, &Substitution{Pattern: mustCompile(t, "yy"), Replacement: "y\ny"})
	if err != nil || n != 2 {
		t.Fatalf("Substitute = %d, %v", n, err)
	}
	if diff := cmp.Diff([]string{"xx", "y", "y", "xx", "y", "y"}, contents(b)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if n, _ := b.Label('a'); n != 5 {
		t.Errorf("label a = %d, want 5", n)
	}
}

func TestSubstituteGrowsSplitMap(t *testing.T) {
	lines := make([]string, 300)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d,%d,%d", i, i, i)
	}
	b := newTestBuffer(lines...)
	b.SetLabel('z', 300)
	n, err := b.Substitute(1, 300, &Substitution{Pattern: mustCompile(t, ","), Replacement: "\n", Global: true})
	if err != nil || n != 300 {
		t.Fatalf("Substitute = %d, %v", n, err)
	}
	if b.LineCount() != 900 {
		t.Fatalf("%d lines, want 900", b.LineCount())
	}
	if got := b.Line(898).String(); got != "299" {
		t.Errorf("line 898 = %q", got)
	}
	if n, _ := b.Label('z'); n != 898 {
		t.Errorf("label z = %d, want 898", n)
	}
	if b.Dot() != 900 {
		t.Errorf("dot = %d, want 900", b.Dot())
	}
	mustCheck(t, b)
}

func TestJoinSplitRoundTrip(t *testing.T) {
	orig := []string{"one", "two", "", "four"}
	b := newTestBuffer(orig...)
	if err := b.JoinLines(1, 4, []byte("|")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, `\|`), Replacement: "\n", Global: true}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(orig, contents(b)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSubstituteAtomic(t *testing.T) {
	b := newTestBuffer("a", "loop")
	_, err := b.Substitute(1, 2, &Substitution{Pattern: loopPattern{}, Replacement: "z", Global: true})
	if !errors.Is(err, ErrRegexLoop) {
		t.Fatalf("got %v, want %v", err, ErrRegexLoop)
	}
	if diff := cmp.Diff([]string{"a", "loop"}, contents(b)); diff != "" {
		t.Errorf("failed substitution changed lines (-want +got):\n%s", diff)
	}
	if b.CanUndo() {
		t.Errorf("failed substitution took a snapshot")
	}
}

func TestSubstituteLineLimit(t *testing.T) {
	b := newTestBuffer("a b c")
	b.SetMaxLines(2)
	_, err := b.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, " "), Replacement: "\n", Global: true})
	if !errors.Is(err, ErrTooManyLines) {
		t.Errorf("got %v, want %v", err, ErrTooManyLines)
	}
}

func TestSubstituteEngineErrors(t *testing.T) {
	p := flakyPattern{want: "x", bad: "bad"}
	b := newTestBuffer("bad", "x")
	n, err := b.Substitute(1, 2, &Substitution{Pattern: p, Replacement: "y"})
	if err != nil || n != 1 {
		t.Fatalf("Substitute = %d, %v", n, err)
	}
	if diff := cmp.Diff([]string{"bad", "y"}, contents(b)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if _, err := b.Substitute(1, 1, &Substitution{Pattern: p, Replacement: "y"}); !errors.Is(err, errEngine) {
		t.Errorf("single line = %v, want %v", err, errEngine)
	}
}

func TestSubstitutePreviousReplacement(t *testing.T) {
	ws := newTestWorkspace("a", "a")
	if _, err := ws.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, "a"), Replacement: "%"}); !errors.Is(err, ErrNoPrevReplace) {
		t.Errorf("got %v, want %v", err, ErrNoPrevReplace)
	}
	if _, err := ws.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, "a"), Replacement: "b&"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Substitute(2, 2, &Substitution{Pattern: mustCompile(t, "a"), Replacement: "%"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ba", "ba"}, contents(ws.Current())); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	// A rejected replacement does not become the previous one.
	ws = newTestWorkspace("a", "a")
	if _, err := ws.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, "a"), Replacement: "b&"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Substitute(2, 2, &Substitution{Pattern: mustCompile(t, "a"), Replacement: `\3`}); !errors.Is(err, ErrBackref) {
		t.Fatalf("got %v, want %v", err, ErrBackref)
	}
	if _, err := ws.Substitute(2, 2, &Substitution{Pattern: mustCompile(t, "a"), Replacement: "%"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ba", "ba"}, contents(ws.Current())); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

type fakeDir struct {
	ops    []string
	fail   error
	failOn string
}

func (d *fakeDir) Rename(dir, oldName, newName string) error {
	if d.fail != nil {
		return d.fail
	}
	d.ops = append(d.ops, fmt.Sprintf("mv %s/%s %s/%s", dir, oldName, dir, newName))
	return nil
}

func (d *fakeDir) Remove(dir, name string) error {
	if d.fail != nil && (d.failOn == "" || d.failOn == name) {
		return d.fail
	}
	d.ops = append(d.ops, fmt.Sprintf("rm %s/%s", dir, name))
	return nil
}

func newDirWorkspace(d *fakeDir, names ...string) *Workspace {
	ws := NewWorkspace(WithDirHook(d))
	b := ws.Current()
	b.Load([]byte(strings.Join(names, "\n") + "\n"))
	b.Path = "/tmp"
	b.SetMode(ModeDirectory)
	return ws
}

func TestDirectoryRename(t *testing.T) {
	d := &fakeDir{}
	ws := newDirWorkspace(d, "a.txt", "b.txt")
	b := ws.Current()
	b.Line(1).Suffix = '*'

	n, err := ws.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, "a"), Replacement: "c"})
	if err != nil || n != 1 {
		t.Fatalf("Substitute = %d, %v", n, err)
	}
	if got := b.Line(1); got.String() != "c.txt" || got.Suffix != '*' {
		t.Errorf("line 1 = %q suffix %q", got, got.Suffix)
	}
	if err := ws.Undo(); err != nil {
		t.Fatal(err)
	}
	if got := b.Line(1).String(); got != "a.txt" {
		t.Errorf("undo left %q", got)
	}
	if err := ws.Undo(); err != nil {
		t.Fatal(err)
	}
	want := []string{"mv /tmp/a.txt /tmp/c.txt", "mv /tmp/c.txt /tmp/a.txt", "mv /tmp/a.txt /tmp/c.txt"}
	if diff := cmp.Diff(want, d.ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	if !b.CanUndo() {
		t.Errorf("CanUndo = false after a rename")
	}
}

func TestDirectoryRenameErrors(t *testing.T) {
	errDisk := errors.New("disk")
	tests := []struct {
		name       string
		start, end int
		expr, rep  string
		fail       error
		err        error
	}{
		{name: "two lines", start: 1, end: 2, expr: "a", rep: "c", err: ErrOneLine},
		{name: "slash", start: 1, end: 1, expr: "a", rep: "x/y", err: ErrInvalidFileName},
		{name: "empty", start: 1, end: 1, expr: ".*", rep: "", err: ErrInvalidFileName},
		{name: "newline", start: 1, end: 1, expr: "a", rep: "x\ny", err: ErrOneLine},
		{name: "no match", start: 1, end: 1, expr: "q", rep: "x", err: ErrNoMatch},
		{name: "hook", start: 1, end: 1, expr: "a", rep: "c", fail: errDisk, err: errDisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newDirWorkspace(&fakeDir{fail: tt.fail}, "a.txt", "b.txt")
			_, err := ws.Substitute(tt.start, tt.end, &Substitution{Pattern: mustCompile(t, tt.expr), Replacement: tt.rep})
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			if got := ws.Current().Line(1).String(); got != "a.txt" {
				t.Errorf("line 1 changed to %q", got)
			}
		})
	}
}

func TestDirectoryDelete(t *testing.T) {
	d := &fakeDir{}
	ws := newDirWorkspace(d, "a", "b", "c")
	if err := ws.Delete(1, 2); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"rm /tmp/a", "rm /tmp/b"}, d.ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, contents(ws.Current())); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	errBusy := errors.New("busy")
	d = &fakeDir{fail: errBusy, failOn: "b"}
	ws = newDirWorkspace(d, "a", "b", "c")
	if err := ws.Delete(1, 3); !errors.Is(err, errBusy) {
		t.Fatalf("partial delete = %v, want %v", err, errBusy)
	}
	if diff := cmp.Diff([]string{"rm /tmp/a"}, d.ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "c"}, contents(ws.Current())); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	ws = newTestWorkspace("a")
	ws.Current().SetMode(ModeSQL)
	if err := ws.Delete(1, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("delete in sql mode = %v", err)
	}
	if _, err := ws.Substitute(1, 1, &Substitution{Pattern: mustCompile(t, "a"), Replacement: "b"}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("substitute in sql mode = %v", err)
	}
}

type fakeForm struct{ fields map[int]string }

func (f *fakeForm) SetField(line int, old, new []byte) error {
	f.fields[line] = string(new)
	return nil
}

func TestBrowseFieldWrite(t *testing.T) {
	f := &fakeForm{fields: map[int]string{}}
	ws := NewWorkspace(WithFormHook(f))
	b := ws.Current()
	b.Load([]byte("name: \nmail: \n"))
	b.SetMode(ModeBrowse)
	if _, err := ws.Substitute(2, 2, &Substitution{Pattern: mustCompile(t, "$"), Replacement: "a@b"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[int]string{2: "mail: a@b"}, f.fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if err := ws.Undo(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[int]string{2: "mail: "}, f.fields); diff != "" {
		t.Errorf("undo fields mismatch (-want +got):\n%s", diff)
	}
}
