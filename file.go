package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thimc/ledit/linebuf"
)

type cursor struct {
	first  int
	second int
	addrc  int // address count
}

// load replaces the content of b with a file, the output of a shell
// command (a path starting with !) or the listing of a directory.
func (ed *Editor) load(b *linebuf.Buffer, path string) error {
	var blob []byte
	if cmd, ok := strings.CutPrefix(path, "!"); ok {
		out, err := ed.shell(cmd)
		if err != nil {
			return err
		}
		blob = out
	} else {
		fi, err := os.Stat(path)
		if err != nil {
			return ErrCannotReadFile
		}
		if fi.IsDir() {
			return ed.loadDir(b, path)
		}
		if blob, err = os.ReadFile(path); err != nil {
			return ErrCannotReadFile
		}
		b.Path = path
	}
	b.SetMode(b.Mode() &^ linebuf.ModeDirectory)
	b.Load(blob)
	log.Printf("loaded %s: %d lines", path, b.LineCount())
	ed.printSize(ed.size(b, 1, b.LineCount()))
	return nil
}

// loadDir lists dir in b, one entry per line, and puts b in directory
// mode.
func (ed *Editor) loadDir(b *linebuf.Buffer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ErrCannotReadFile
	}
	var blob bytes.Buffer
	for _, e := range entries {
		blob.WriteString(e.Name())
		blob.WriteByte('\n')
	}
	b.SetMode(b.Mode() | linebuf.ModeDirectory)
	b.Load(blob.Bytes())
	// Directory buffers keep no undo, so the fresh records can be tagged
	// in place.
	for i, e := range entries {
		b.Line(i + 1).Suffix = typeSuffix(e)
	}
	b.Path = dir
	if !ed.silent {
		fmt.Fprintln(ed.stdout, len(entries))
	}
	return nil
}

func typeSuffix(e fs.DirEntry) byte {
	switch t := e.Type(); {
	case t.IsDir():
		return '/'
	case t&fs.ModeSymlink != 0:
		return '@'
	case t&fs.ModeNamedPipe != 0:
		return '|'
	case t&fs.ModeSocket != 0:
		return '='
	}
	if fi, err := e.Info(); err == nil && fi.Mode()&0o111 != 0 {
		return '*'
	}
	return 0
}

// read adds the content of a file, or the output of a shell command,
// after line after.
func (ed *Editor) read(path string, after int) error {
	b := ed.ws.Current()
	var blob []byte
	if cmd, ok := strings.CutPrefix(path, "!"); ok {
		out, err := ed.shell(cmd)
		if err != nil {
			return err
		}
		blob = out
	} else {
		var err error
		if blob, err = os.ReadFile(path); err != nil {
			return ErrCannotReadFile
		}
		if b.Path == "" {
			b.Path = path
		}
	}
	lines := linebuf.NewLines(blob)
	var size int
	for _, l := range lines {
		size += l.Len()
	}
	if len(lines) > 0 {
		if err := b.CanInsert(len(lines)); err != nil {
			return err
		}
		if err := b.InsertBlock(lines, after); err != nil {
			return err
		}
	}
	ed.printSize(size)
	return nil
}

// blob returns lines start through end as they are written out. A
// missing final newline is only kept in binary mode.
func (ed *Editor) blob(start, end int) []byte {
	b := ed.ws.Current()
	if start == 1 && end == b.LineCount() {
		out := b.Bytes()
		if b.Mode()&linebuf.ModeNoEOL != 0 && !ed.binary {
			out = append(out, '\n')
		}
		return out
	}
	var out []byte
	for i := start; i >= 1 && i <= end; i++ {
		out = append(out, b.Line(i).Text()...)
		out = append(out, '\n')
	}
	return out
}

func (ed *Editor) size(b *linebuf.Buffer, start, end int) int {
	var n int
	for i := start; i >= 1 && i <= end; i++ {
		n += b.Line(i).Len()
	}
	return n
}

func (ed *Editor) printSize(n int) {
	if !ed.silent {
		fmt.Fprintln(ed.stdout, n)
	}
}

// write writes lines start through end to path. W appends, and a path
// starting with ! sends the lines to a shell command. quit is the
// character following the command; q or Q ends the session.
func (ed *Editor) write(path string, r, quit rune, start, end int) error {
	b := ed.ws.Current()
	if b.Mode()&linebuf.ModeDirectory != 0 && path == b.Path {
		return linebuf.ErrReadOnly
	}
	blob := ed.blob(start, end)
	if cmd, ok := strings.CutPrefix(path, "!"); ok {
		if cmd == "" {
			return ErrNoCmd
		}
		sh := exec.Command(DefaultShell, "-c", cmd)
		sh.Stdin = bytes.NewReader(blob)
		sh.Stdout = ed.stdout
		if err := sh.Run(); err != nil {
			return err
		}
	} else {
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if r == 'W' {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return ErrCannotWriteFile
		}
		if _, err := f.Write(blob); err != nil {
			f.Close()
			return ErrCannotWriteFile
		}
		if err := f.Close(); err != nil {
			return ErrCannotWriteFile
		}
		if b.Path == "" {
			b.Path = path
		}
		if start <= 1 && end == b.LineCount() {
			b.SetDirty(false)
		}
	}
	ed.printSize(len(blob))
	if quit == 'q' || quit == 'Q' {
		ed.quit = true
	}
	return nil
}

// shell runs cmd with the shell and returns its output. An unescaped %
// stands for the current file name.
func (ed *Editor) shell(cmd string) ([]byte, error) {
	if cmd == "" {
		return nil, ErrNoCmd
	}
	var sb strings.Builder
	for i := 0; i < len(cmd); i++ {
		switch {
		case cmd[i] == '\\' && i+1 < len(cmd) && cmd[i+1] == '%':
			sb.WriteByte('%')
			i++
		case cmd[i] == '%':
			path, err := ed.validatePath("")
			if err != nil {
				return nil, err
			}
			sb.WriteString(path)
		default:
			sb.WriteByte(cmd[i])
		}
	}
	log.Printf("shell: %s", sb.String())
	return exec.Command(DefaultShell, "-c", sb.String()).Output()
}

// osDir renames and removes the entries of a directory listing.
type osDir struct{}

func (osDir) Rename(dir, oldName, newName string) error {
	dst := filepath.Join(dir, newName)
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", newName, fs.ErrExist)
	}
	return os.Rename(filepath.Join(dir, oldName), dst)
}

func (osDir) Remove(dir, name string) error {
	return os.Remove(filepath.Join(dir, name))
}
