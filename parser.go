package main

import (
	"strconv"
	"unicode"

	"github.com/thimc/ledit/linebuf"
)

// parse parses the addresses in front of the command and leaves the
// input at the command character. A range that was reached by a search,
// a mark or the history is remembered in the position history.
func (ed *Editor) parse() error {
	b := ed.ws.Current()
	dot := b.Dot()
	r, rest, err := ed.ws.ResolveRange(ed.buf[ed.pos:])
	if err != nil {
		return err
	}
	ed.pos = len(ed.buf) - len(rest)
	ed.first, ed.second, ed.addrc = r.Start, r.End, r.Count
	if r.Jump && dot > 0 {
		b.PushHistory(dot)
	}
	return nil
}

// pattern parses a delimited regular expression. An empty expression
// reuses the previous one.
func (ed *Editor) pattern() (linebuf.Pattern, error) {
	delim := ed.token()
	if delim == ' ' || delim == '\n' || delim == EOF || delim >= unicode.MaxASCII {
		return nil, linebuf.ErrPatternDelim
	}
	ed.consume()
	body, rest, _ := linebuf.SplitDelimited(ed.buf[ed.pos:], byte(delim))
	ed.pos = len(ed.buf) - len(rest)
	return ed.ws.SearchPattern(body)
}

// scanNumber scans the user input for a number and will advance until
// the current token is not a valid digit.
func (ed *Editor) scanNumber() (int, error) {
	start := ed.pos
	for unicode.IsDigit(ed.token()) {
		ed.consume()
	}
	n, err := strconv.Atoi(ed.buf[start:ed.pos])
	if err != nil {
		return 0, linebuf.ErrNumberOutOfRange
	}
	return n, nil
}

// scanString scans the user input until EOF or new line.
func (ed *Editor) scanString() string {
	start := ed.pos
	for ed.token() != EOF && ed.token() != '\n' {
		ed.consume()
	}
	return ed.buf[start:ed.pos]
}

func (ed *Editor) skipWhitespace() {
	for ed.token() == ' ' || ed.token() == '\t' {
		ed.consume()
	}
}
