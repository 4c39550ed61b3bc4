package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/thimc/ledit/linebuf"
)

// Ed is limited to displaying these error messages with the exception
// of the errors reported by the linebuf package and regular expression
// errors.
var (
	ErrDefault             = errors.New("?") // descriptive error message, don't you think?
	ErrCannotReadFile      = errors.New("cannot read input file")
	ErrCannotWriteFile     = errors.New("cannot write file")
	ErrDestinationExpected = errors.New("destination expected")
	ErrFileModified        = errors.New("warning: file modified")
	ErrInvalidCmdSuffix    = errors.New("invalid command suffix")
	ErrInvalidRedirection  = errors.New("invalid redirection")
	ErrNoCmd               = errors.New("no command")
	ErrNoFileName          = errors.New("no current filename")
	ErrNoPreviousCmd       = errors.New("no previous command")
	ErrUnexpectedAddress   = errors.New("unexpected address")
	ErrUnexpectedCmdSuffix = errors.New("unexpected command suffix")
	ErrUnexpectedEOF       = errors.New("unexpected end-of-file")
	ErrUnknownCmd          = errors.New("unknown command")
)

type suffix int

const (
	suffixPrint suffix = 1 << iota
	suffixList
	suffixEnumerate
)

const DefaultShell = "/bin/sh"
const DefaultHangupFile = "ed.hup"
const DefaultPrompt = "*"

type Editor struct {
	cursor
	input

	ws *linebuf.Workspace

	sub    *linebuf.Substitution // previous substitution
	scroll int                   // previous scroll value
	err    error                 // previous error
	gcmd   string                // previous interactive global command

	g           bool   // global command state
	interactive bool   // the running global command is G or V
	gs          suffix // print suffix of an interactive global command
	quit        bool
	hup         atomic.Bool // set by SIGHUP, handled between commands

	prompt  bool           // state for rendering the prompt
	up      string         // user prompt
	verbose bool           // toggle verbose errors
	silent  bool           // suppress diagnostics
	script  bool           // stdin is not a terminal
	binary  bool           // keep a missing final newline on write
	width   int            // terminal width, 0 disables folding
	sigch   chan os.Signal // signal handlers

	cs suffix // command suffix

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type Option func(*Editor)

func WithStdin(stdin io.Reader) Option {
	return func(ed *Editor) {
		ed.stdin = stdin
		ed.input = newInput(bufio.NewScanner(ed.stdin))
	}
}

func WithStdout(stdout io.Writer) Option {
	return func(ed *Editor) { ed.stdout = stdout }
}

func WithStderr(stderr io.Writer) Option {
	return func(ed *Editor) { ed.stderr = stderr }
}

func WithSilent(t bool) Option {
	return func(ed *Editor) { ed.silent = t }
}

func WithPrompt(prompt string) Option {
	return func(ed *Editor) {
		ed.up = prompt
		ed.prompt = ed.up != ""
	}
}

// WithWrap controls whether searches wrap around the end of the
// buffer.
func WithWrap(wrap bool) Option {
	return func(ed *Editor) { ed.ws.Wrap = wrap }
}

func WithBinary(t bool) Option {
	return func(ed *Editor) { ed.binary = t }
}

// WithWidth sets the column at which the l command folds long lines.
func WithWidth(n int) Option {
	return func(ed *Editor) { ed.width = n }
}

func WithFile(path string) Option {
	return func(ed *Editor) {
		b := ed.ws.Current()
		if err := ed.load(b, path); err != nil {
			if !strings.HasPrefix(path, "!") {
				b.Path = path
			}
			ed.err = err
			ed.errorln(err)
		}
	}
}

func NewEditor(opts ...Option) *Editor {
	ed := &Editor{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		sigch:  make(chan os.Signal, 1),
	}
	ed.input = newInput(bufio.NewScanner(ed.stdin))
	ed.ws = linebuf.NewWorkspace(
		linebuf.WithDispatcher(ed),
		linebuf.WithDirHook(osDir{}),
	)
	for _, opt := range opts {
		opt(ed)
	}
	if f, ok := ed.stdin.(*os.File); ok {
		ed.script = !term.IsTerminal(int(f.Fd()))
	}
	go ed.handleSignals()
	return ed
}

func (ed *Editor) validatePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if p := ed.ws.Current().Path; p != "" {
		return p, nil
	}
	return "", ErrNoFileName
}

func (ed *Editor) validate(f, s int) error {
	if ed.addrc == 0 {
		ed.first = f
		ed.second = s
	}
	if ed.first > ed.second || ed.first < 1 || ed.second > ed.ws.Current().LineCount() {
		return linebuf.ErrInvalidAddress
	}
	return nil
}

// editable refuses the commands that only make sense on a text
// buffer.
func (ed *Editor) editable() error {
	if !ed.ws.Current().Editable() {
		return linebuf.ErrReadOnly
	}
	return nil
}

func (ed *Editor) doPrompt() {
	if ed.prompt && ed.up != "" {
		fmt.Fprint(ed.stdout, ed.up)
	}
}

// errorln reports err and returns the exit status the editor should
// stop with, or 0 to carry on.
func (ed *Editor) errorln(err error) int {
	if !ed.verbose {
		fmt.Fprintln(ed.stderr, ErrDefault)
		return 0
	}
	if ed.script {
		fmt.Fprintf(ed.stderr, "script, line %d: %s\n", ed.lc, err)
		return 2
	}
	fmt.Fprintln(ed.stderr, err)
	return 0
}

func (ed *Editor) run() error {
	ed.doPrompt()
	if !ed.input.Scan() {
		if !ed.ws.Current().Dirty() {
			ed.quit = true
			return nil
		}
		ed.doInput("q")
	}
	ed.ws.ClearInterrupt()
	ed.ws.BeginCommand()
	if err := ed.parse(); err != nil {
		return err
	}
	if err := ed.exec(); err != nil {
		return err
	}
	return ed.display(ed.ws.Current().Dot(), ed.ws.Current().Dot(), ed.cs)
}

// Run reads and executes commands until the input ends or a quit
// command runs. It returns the exit status.
func (ed *Editor) Run() int {
	for !ed.quit {
		if ed.hungUp() {
			return 1
		}
		if err := ed.run(); err != nil {
			if ed.hungUp() {
				return 1
			}
			log.Printf("command %q: %v", ed.buf, err)
			ed.err = err
			ed.cs = 0
			if code := ed.errorln(err); code != 0 {
				return code
			}
		}
	}
	return 0
}

// hungUp saves the buffer once a hangup has been signalled.
func (ed *Editor) hungUp() bool {
	if !ed.hup.Swap(false) {
		return false
	}
	ed.hangup()
	return true
}

// Dispatch runs the command list of a global command with dot set on
// one of the marked lines.
func (ed *Editor) Dispatch(cmdlist string) error {
	cur, buf, pos, queue := ed.cursor, ed.buf, ed.pos, ed.queue
	defer func() { ed.cursor, ed.buf, ed.pos, ed.queue = cur, buf, pos, queue }()
	if ed.interactive {
		b := ed.ws.Current()
		gs := ed.gs
		if gs == 0 {
			gs = suffixPrint
		}
		if err := ed.display(b.Dot(), b.Dot(), gs); err != nil {
			return err
		}
		ln, ok := ed.readLine()
		if !ok {
			return ErrUnexpectedEOF
		}
		ed.doInput(ln)
		var err error
		if cmdlist, err = ed.cmdList(); err != nil {
			return err
		}
		switch cmdlist {
		case "":
			return nil
		case "&":
			if ed.gcmd == "" {
				return ErrNoPreviousCmd
			}
			cmdlist = ed.gcmd
		default:
			ed.gcmd = cmdlist
		}
	}
	ed.push(cmdlist)
	for ed.next() {
		if err := ed.parse(); err != nil {
			return err
		}
		if err := ed.exec(); err != nil {
			return err
		}
		dot := ed.ws.Current().Dot()
		if err := ed.display(dot, dot, ed.cs); err != nil {
			return err
		}
	}
	return nil
}

func (ed *Editor) getThirdAddr() (int, error) {
	ed.skipWhitespace()
	rest := ed.buf[ed.pos:]
	addr, tail, err := ed.ws.ResolveAddress(rest)
	if err != nil {
		return -1, err
	}
	if tail == rest {
		return -1, ErrDestinationExpected
	}
	ed.pos = len(ed.buf) - len(tail)
	return addr, nil
}

// append reads text lines up to a lone period and adds them after line
// after.
func (ed *Editor) append(after int) error {
	lines, err := ed.readText()
	if err != nil || len(lines) == 0 {
		return err
	}
	return ed.ws.Current().InsertBlock(lines, after)
}

func (ed *Editor) readText() ([]*linebuf.Line, error) {
	var lines []*linebuf.Line
	for {
		ln, ok := ed.readLine()
		if !ok || ln == "." {
			break
		}
		lines = append(lines, linebuf.NewLine([]byte(ln)))
	}
	if len(lines) > 0 {
		if err := ed.ws.Current().CanInsert(len(lines)); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func (ed *Editor) display(start, end int, flags suffix) error {
	if flags == 0 {
		return nil
	}
	b := ed.ws.Current()
	if start < 1 || end > b.LineCount() {
		return linebuf.ErrInvalidAddress
	}
	for i := start; i <= end; i++ {
		l := b.Line(i)
		var sb strings.Builder
		if flags&suffixEnumerate > 0 {
			fmt.Fprintf(&sb, "%d\t", i)
		}
		if flags&suffixList > 0 {
			sb.WriteString(ed.list(l.Text()))
		} else {
			sb.Write(l.Text())
			if l.Suffix != 0 {
				sb.WriteByte(l.Suffix)
			}
		}
		fmt.Fprintln(ed.stdout, sb.String())
	}
	b.SetDot(end)
	ed.cs = 0
	return nil
}

var listEscapes = map[rune]string{
	'\a': `\a`,
	'\b': `\b`,
	'\f': `\f`,
	'\r': `\r`,
	'\t': `\t`,
	'\v': `\v`,
	'\\': `\\`,
	'$':  `\$`,
}

// list renders text unambiguously: escapes for control characters,
// octal for invalid bytes, a $ at the end and a backslash wherever the
// line is folded.
func (ed *Editor) list(text []byte) string {
	var (
		sb  strings.Builder
		col int
	)
	emit := func(s string) {
		w := runewidth.StringWidth(s)
		if ed.width > 1 && col+w >= ed.width {
			sb.WriteString("\\\n")
			col = 0
		}
		sb.WriteString(s)
		col += w
	}
	for len(text) > 0 {
		r, n := utf8.DecodeRune(text)
		esc, ok := listEscapes[r]
		switch {
		case ok:
			emit(esc)
		case r == utf8.RuneError && n == 1, r < ' ', r == 0x7f:
			emit(fmt.Sprintf("\\%03o", text[0]))
		default:
			emit(string(r))
		}
		text = text[n:]
	}
	sb.WriteByte('$')
	return sb.String()
}

func (ed *Editor) getSuffix() error {
	var ok bool
	r := ed.token()
	for !ok {
		r = ed.token()
		switch r {
		case 'n':
			ed.cs |= suffixEnumerate
			ed.consume()
		case 'l':
			ed.cs |= suffixList
			ed.consume()
		case 'p':
			ed.cs |= suffixPrint
			ed.consume()
		default:
			ok = true
		}
	}
	if !ed.input.eof() && r != '\n' {
		return ErrInvalidCmdSuffix
	}
	return nil
}

// cmdList returns the rest of the command line. A line ending in a
// backslash continues on the next input line.
func (ed *Editor) cmdList() (string, error) {
	var lines []string
	ln := ed.scanString()
	for strings.HasSuffix(ln, `\`) {
		lines = append(lines, strings.TrimSuffix(ln, `\`))
		var ok bool
		if ln, ok = ed.readLine(); !ok {
			return "", ErrUnexpectedEOF
		}
	}
	lines = append(lines, ln)
	return strings.Join(lines, "\n"), nil
}
