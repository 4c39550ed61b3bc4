package main

import (
	"bufio"
	"strings"
	"unicode/utf8"
)

const EOF rune = -1

// input is the command line being parsed. Further lines come from the
// command list of a running global command, or from the scanner when
// no list is pending.
type input struct {
	*bufio.Scanner
	buf string
	pos int

	queue []string // command list of the running global command
	lc    int      // lines read from the scanner
}

func newInput(sc *bufio.Scanner) input { return input{Scanner: sc} }

func (i *input) match(s string) bool { return strings.ContainsRune(s, i.token()) }

func (i *input) doInput(s string) { i.buf, i.pos = s, 0 }

func (i *input) eof() bool { return i.pos >= len(i.buf) }

func (i *input) consume() {
	if i.eof() {
		return
	}
	_, n := utf8.DecodeRuneInString(i.buf[i.pos:])
	i.pos += n
}

func (i *input) token() rune {
	if i.eof() {
		return EOF
	}
	tok, _ := utf8.DecodeRuneInString(i.buf[i.pos:])
	return tok
}

// Scan loads the next line from the scanner as the command line.
func (i *input) Scan() bool {
	ok := i.Scanner.Scan()
	if ok {
		i.lc++
	}
	i.doInput(i.Scanner.Text())
	return ok
}

// readLine returns the next line of text input without making it the
// command line. A pending command list is drained first and never
// falls through to the scanner.
func (i *input) readLine() (string, bool) {
	if i.queue != nil {
		if len(i.queue) == 0 {
			return "", false
		}
		ln := i.queue[0]
		i.queue = i.queue[1:]
		return ln, true
	}
	if !i.Scanner.Scan() {
		return "", false
	}
	i.lc++
	return i.Scanner.Text(), true
}

// push queues a newline separated command list.
func (i *input) push(cmdlist string) { i.queue = strings.Split(cmdlist, "\n") }

// next makes the next queued command the command line.
func (i *input) next() bool {
	if len(i.queue) == 0 {
		return false
	}
	i.doInput(i.queue[0])
	i.queue = i.queue[1:]
	return true
}
