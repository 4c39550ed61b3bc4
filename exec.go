package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/thimc/ledit/linebuf"
)

type cmd func(ed *Editor) error

var cmds map[rune]cmd

func init() {
	cmds = map[rune]cmd{
		'a':  cmdAppend,
		'b':  cmdBrowse,
		'^':  cmdBack,
		'c':  cmdChange,
		'd':  cmdDelete,
		'E':  cmdEdit,
		'e':  cmdEdit,
		'f':  cmdFilename,
		'V':  cmdGlobal,
		'G':  cmdGlobal,
		'v':  cmdGlobal,
		'g':  cmdGlobal,
		'H':  cmdHelp,
		'h':  cmdHelp,
		'i':  cmdInsert,
		'J':  cmdJoin,
		'j':  cmdJoin,
		'k':  cmdMark,
		'l':  cmdPrint,
		'n':  cmdPrint,
		'p':  cmdPrint,
		'm':  cmdMove,
		'P':  cmdPrompt,
		'Q':  cmdQuit,
		'q':  cmdQuit,
		'r':  cmdRead,
		's':  cmdSubstitute,
		't':  cmdTransfer,
		'u':  cmdUndo,
		'W':  cmdWrite,
		'w':  cmdWrite,
		'z':  cmdScroll,
		'=':  cmdLineCount,
		'!':  cmdShell,
		'\n': cmdNone,
		EOF:  cmdNone,
	}
}

func (ed *Editor) exec() error {
	ed.skipWhitespace()
	if cmd, ok := cmds[ed.token()]; ok {
		return cmd(ed)
	}
	return ErrUnknownCmd
}

func (ed *Editor) dot() int { return ed.ws.Current().Dot() }

func cmdAppend(ed *Editor) error {
	ed.consume()
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if err := ed.editable(); err != nil {
		return err
	}
	return ed.append(ed.second)
}

// cmdBrowse opens a file or directory on top of the current buffer.
// Without a name it opens the entry on the current line of a directory
// listing.
func cmdBrowse(ed *Editor) error {
	ed.consume()
	if ed.g {
		return linebuf.ErrBufferSwitched
	}
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if !unicode.IsSpace(ed.token()) && ed.token() != EOF {
		return ErrUnexpectedCmdSuffix
	}
	ed.skipWhitespace()
	b := ed.ws.Current()
	path := ed.scanString()
	isDir := b.Mode()&linebuf.ModeDirectory != 0
	switch {
	case path == "" && isDir && b.Dot() > 0:
		path = filepath.Join(b.Path, b.Line(b.Dot()).String())
	case path == "":
		return ErrNoFileName
	case isDir && !filepath.IsAbs(path) && !strings.HasPrefix(path, "!"):
		path = filepath.Join(b.Path, path)
	}
	nb := ed.ws.NewBuffer()
	if err := ed.load(nb, path); err != nil {
		return err
	}
	ed.ws.Session().Push(nb)
	return nil
}

func cmdBack(ed *Editor) error {
	ed.consume()
	if ed.g {
		return linebuf.ErrBufferSwitched
	}
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	return ed.ws.Session().Back()
}

func cmdChange(ed *Editor) error {
	ed.consume()
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if err := ed.validate(ed.dot(), ed.dot()); err != nil {
		return err
	}
	if err := ed.editable(); err != nil {
		return err
	}
	lines, err := ed.readText()
	if err != nil {
		return err
	}
	b := ed.ws.Current()
	if err := b.DeleteRange(ed.first, ed.second); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return b.InsertBlock(lines, ed.first-1)
}

func cmdDelete(ed *Editor) error {
	ed.consume()
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if err := ed.validate(ed.dot(), ed.dot()); err != nil {
		return err
	}
	return ed.ws.Delete(ed.first, ed.second)
}

func cmdEdit(ed *Editor) error {
	r := ed.token()
	ed.consume()
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if unicode.IsDigit(ed.token()) {
		n, err := ed.scanNumber()
		if err != nil {
			return err
		}
		if err := ed.getSuffix(); err != nil {
			return err
		}
		created, err := ed.ws.Switch(n)
		if err != nil {
			return err
		}
		log.Printf("session %d, new: %v", n, created)
		return nil
	}
	if !unicode.IsSpace(ed.token()) && ed.token() != EOF {
		return ErrUnexpectedCmdSuffix
	}
	b := ed.ws.Current()
	if r == 'e' && b.Dirty() {
		b.SetDirty(false)
		return ErrFileModified
	}
	ed.skipWhitespace()
	path, err := ed.validatePath(ed.scanString())
	if err != nil {
		return err
	}
	return ed.load(b, path)
}

func cmdFilename(ed *Editor) error {
	ed.consume()
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if !unicode.IsSpace(ed.token()) && ed.token() != EOF {
		return ErrUnexpectedCmdSuffix
	}
	ed.skipWhitespace()
	path := ed.scanString()
	if len(path) > 0 && path[0] == '!' {
		return ErrInvalidRedirection
	}
	path, err := ed.validatePath(path)
	if err != nil {
		return err
	}
	b := ed.ws.Current()
	b.Path = strings.ReplaceAll(path, `\!`, "!")
	fmt.Fprintln(ed.stdout, b.Path)
	return nil
}

func cmdGlobal(ed *Editor) error {
	r := ed.token()
	ed.consume()
	if ed.g {
		return linebuf.ErrNestedGlobal
	}
	if err := ed.validate(1, ed.ws.Current().LineCount()); err != nil {
		return err
	}
	p, err := ed.pattern()
	if err != nil {
		return err
	}
	interactive := r == 'G' || r == 'V'
	var cmdlist string
	if interactive {
		if err := ed.getSuffix(); err != nil {
			return err
		}
		ed.gs, ed.cs = ed.cs, 0
	} else {
		if cmdlist, err = ed.cmdList(); err != nil {
			return err
		}
		if cmdlist == "" {
			cmdlist = "p"
		}
	}
	ed.g, ed.interactive = true, interactive
	defer func() { ed.g, ed.interactive = false, false }()
	err = ed.ws.RunGlobal(ed.first, ed.second, p, r == 'v' || r == 'V', cmdlist)
	ed.cs = 0
	return err
}

func cmdHelp(ed *Editor) error {
	r := ed.token()
	ed.consume()
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if r == 'H' {
		ed.verbose = !ed.verbose
		if !ed.verbose {
			return nil
		}
	}
	if ed.err != nil {
		fmt.Fprintln(ed.stderr, ed.err)
	}
	return nil
}

func cmdInsert(ed *Editor) error {
	ed.consume()
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if err := ed.editable(); err != nil {
		return err
	}
	return ed.append(max(ed.second-1, 0))
}

func cmdJoin(ed *Editor) error {
	r := ed.token()
	ed.consume()
	if err := ed.validate(ed.dot(), ed.dot()+1); err != nil {
		return err
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if err := ed.editable(); err != nil {
		return err
	}
	if ed.first == ed.second {
		return nil
	}
	var sep []byte
	if r == 'J' {
		sep = []byte{' '}
	}
	return ed.ws.Current().JoinLines(ed.first, ed.second, sep)
}

func cmdMark(ed *Editor) error {
	ed.consume()
	if ed.second == 0 {
		return linebuf.ErrInvalidAddress
	}
	r := ed.token()
	ed.consume()
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if r < 'a' || r > 'z' {
		return linebuf.ErrInvalidMark
	}
	return ed.ws.Current().SetLabel(byte(r), ed.second)
}

func cmdPrint(ed *Editor) error {
	if err := ed.validate(ed.dot(), ed.dot()); err != nil {
		return err
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	return ed.display(ed.first, ed.second, ed.cs)
}

func cmdMove(ed *Editor) error {
	ed.consume()
	if err := ed.validate(ed.dot(), ed.dot()); err != nil {
		return err
	}
	addr, err := ed.getThirdAddr()
	if err != nil {
		return err
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if err := ed.editable(); err != nil {
		return err
	}
	return ed.ws.Current().MoveRange(ed.first, ed.second, addr)
}

func cmdPrompt(ed *Editor) error {
	ed.consume()
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if ed.up == "" {
		ed.up = DefaultPrompt
	}
	ed.prompt = !ed.prompt
	return nil
}

func cmdQuit(ed *Editor) error {
	r := ed.token()
	ed.consume()
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if b := ed.ws.Current(); r == 'q' && b.Dirty() {
		b.SetDirty(false)
		return ErrFileModified
	}
	ed.quit = true
	return nil
}

func cmdRead(ed *Editor) error {
	ed.consume()
	if err := ed.editable(); err != nil {
		return err
	}
	if ed.addrc == 0 {
		ed.second = ed.ws.Current().LineCount()
	}
	if unicode.IsDigit(ed.token()) {
		n, err := ed.scanNumber()
		if err != nil {
			return err
		}
		if err := ed.getSuffix(); err != nil {
			return err
		}
		size, err := ed.ws.ReadSession(n, ed.second)
		if err != nil {
			return err
		}
		ed.printSize(size)
		return nil
	}
	if !unicode.IsSpace(ed.token()) && ed.token() != EOF {
		return ErrUnexpectedCmdSuffix
	}
	ed.skipWhitespace()
	path, err := ed.validatePath(ed.scanString())
	if err != nil {
		return err
	}
	return ed.read(path, ed.second)
}

func cmdSubstitute(ed *Editor) error {
	ed.consume()
	if err := ed.validate(ed.dot(), ed.dot()); err != nil {
		return err
	}
	var (
		sub linebuf.Substitution
		err error
	)
	switch r := ed.token(); {
	case r == EOF, r == '\n', r == 'g', r == 'p', r == 'r', unicode.IsDigit(r):
		if ed.sub == nil {
			return linebuf.ErrNoPrevReplace
		}
		sub = *ed.sub
		err = ed.repeatFlags(&sub)
	default:
		if sub, err = ed.substitution(); err == nil {
			saved := sub
			ed.sub = &saved
		}
	}
	if err != nil {
		return err
	}
	_, err = ed.ws.Substitute(ed.first, ed.second, &sub)
	return err
}

// substitution parses /re/replacement/flags. A replacement ending in
// a backslash continues on the next input line, and an unterminated
// replacement prints the result.
func (ed *Editor) substitution() (linebuf.Substitution, error) {
	var sub linebuf.Substitution
	delim := ed.token()
	if delim == ' ' || delim == '\n' || delim == EOF || delim >= unicode.MaxASCII {
		return sub, linebuf.ErrPatternDelim
	}
	ed.consume()
	body, rest, closed := linebuf.SplitDelimited(ed.buf[ed.pos:], byte(delim))
	if !closed {
		return sub, linebuf.ErrPatternDelim
	}
	text := rest
	for {
		var repl string
		repl, rest, closed = linebuf.SplitDelimited(text, byte(delim))
		if closed || !continued(text) {
			sub.Replacement = repl
			break
		}
		ln, ok := ed.readLine()
		if !ok {
			return sub, ErrUnexpectedEOF
		}
		text += "\n" + ln
	}
	ed.doInput(rest)
	if !closed {
		ed.cs |= suffixPrint
	}

	var icase bool
	for done := false; !done; {
		switch r := ed.token(); {
		case r == 'g':
			sub.Global = true
			ed.consume()
		case r == '$':
			sub.Last = true
			ed.consume()
		case r == 'i' || r == 'I':
			icase = true
			ed.consume()
		case unicode.IsDigit(r):
			n, err := ed.scanNumber()
			if err != nil {
				return sub, err
			}
			if n < 1 {
				return sub, linebuf.ErrNumberOutOfRange
			}
			sub.Nth = n
		default:
			done = true
		}
	}
	if err := ed.getSuffix(); err != nil {
		return sub, err
	}

	var err error
	switch {
	case icase && body == "":
		p, perr := ed.ws.SearchPattern("")
		if perr != nil {
			return sub, perr
		}
		sub.Pattern, err = linebuf.Compile(p.String(), true)
	case icase:
		sub.Pattern, err = linebuf.Compile(body, true)
	default:
		sub.Pattern, err = ed.ws.SearchPattern(body)
	}
	return sub, err
}

// repeatFlags applies the flags of a bare s command that repeats the
// previous substitution: g toggles global replacement, a number picks
// the match, r switches to the last search pattern and p prints.
func (ed *Editor) repeatFlags(sub *linebuf.Substitution) error {
	for {
		switch r := ed.token(); {
		case r == 'g':
			sub.Global = !sub.Global
		case r == 'p':
			ed.cs |= suffixPrint
		case r == 'r':
			p, err := ed.ws.SearchPattern("")
			if err != nil {
				return err
			}
			sub.Pattern = p
		case unicode.IsDigit(r):
			n, err := ed.scanNumber()
			if err != nil {
				return err
			}
			if n < 1 {
				return linebuf.ErrNumberOutOfRange
			}
			sub.Nth, sub.Global, sub.Last = n, false, false
			continue
		case r == EOF, r == '\n':
			return nil
		default:
			return ErrInvalidCmdSuffix
		}
		ed.consume()
	}
}

// continued reports whether s ends in an unescaped backslash.
func continued(s string) bool {
	n := len(s) - len(strings.TrimRight(s, `\`))
	return n%2 == 1
}

func cmdTransfer(ed *Editor) error {
	ed.consume()
	if err := ed.validate(ed.dot(), ed.dot()); err != nil {
		return err
	}
	addr, err := ed.getThirdAddr()
	if err != nil {
		return err
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	if err := ed.editable(); err != nil {
		return err
	}
	return ed.ws.Current().CopyRange(ed.first, ed.second, addr)
}

func cmdUndo(ed *Editor) error {
	ed.consume()
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	if err := ed.getSuffix(); err != nil {
		return err
	}
	return ed.ws.Undo()
}

func cmdWrite(ed *Editor) error {
	r := ed.token()
	ed.consume()
	quit := ed.token()
	if !ed.match(" \tqQ") && quit != EOF {
		return ErrUnexpectedCmdSuffix
	}
	if quit == 'q' || quit == 'Q' {
		ed.consume()
	}
	ed.skipWhitespace()
	path, err := ed.validatePath(ed.scanString())
	if err != nil {
		return err
	}
	b := ed.ws.Current()
	if ed.addrc == 0 && b.LineCount() < 1 {
		ed.first, ed.second = 0, 0
	} else if err := ed.validate(1, b.LineCount()); err != nil {
		return err
	}
	return ed.write(path, r, quit, ed.first, ed.second)
}

func cmdScroll(ed *Editor) error {
	ed.consume()
	b := ed.ws.Current()
	if err := ed.validate(1, ed.dot()+1); err != nil {
		return err
	}
	if unicode.IsDigit(ed.token()) {
		n, err := ed.scanNumber()
		if err != nil {
			return err
		}
		ed.scroll = n
	}
	ed.cs = suffixPrint
	if err := ed.getSuffix(); err != nil {
		return err
	}
	end := min(ed.second+ed.scroll, b.LineCount())
	return ed.display(ed.second, end, ed.cs)
}

func cmdLineCount(ed *Editor) error {
	ed.consume()
	if err := ed.getSuffix(); err != nil {
		return err
	}
	n := ed.second
	if ed.addrc < 1 {
		n = ed.ws.Current().LineCount()
	}
	fmt.Fprintln(ed.stdout, n)
	return nil
}

func cmdShell(ed *Editor) error {
	ed.consume()
	if ed.addrc > 0 {
		return ErrUnexpectedAddress
	}
	ed.skipWhitespace()
	output, err := ed.shell(ed.scanString())
	if err != nil {
		return err
	}
	ed.stdout.Write(output)
	fmt.Fprintln(ed.stdout, "!")
	return nil
}

func cmdNone(ed *Editor) error {
	if err := ed.validate(1, ed.dot()+1); err != nil {
		return err
	}
	return ed.display(ed.second, ed.second, suffixPrint)
}
