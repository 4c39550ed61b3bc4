package linebuf

import (
	"errors"
	"sync/atomic"
)

// MaxSessions is the number of session slots of a workspace.
const MaxSessions = 100

// Dispatcher runs one editor command against the current buffer. The
// global command replays its sub-command through it.
type Dispatcher interface {
	Dispatch(cmd string) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(cmd string) error

func (f DispatchFunc) Dispatch(cmd string) error { return f(cmd) }

// DirHook applies directory buffer edits to the file system.
type DirHook interface {
	Rename(dir, oldName, newName string) error
	Remove(dir, name string) error
}

// FormHook writes an edited form field back to the page a browse
// buffer renders.
type FormHook interface {
	SetField(line int, old, new []byte) error
}

// Session is a numbered editing context. It owns the current buffer and
// the buffers it was reached from.
type Session struct {
	Number int
	buf    *Buffer
	stack  []*Buffer
}

// Buffer returns the current buffer of the session.
func (s *Session) Buffer() *Buffer { return s.buf }

// Depth returns how many buffers lie behind the current one.
func (s *Session) Depth() int { return len(s.stack) }

// Push makes nb current and keeps the old buffer for Back. The old
// buffer's undo state is dropped.
func (s *Session) Push(nb *Buffer) {
	s.buf.dropUndo()
	s.stack = append(s.stack, s.buf)
	s.buf = nb
}

// Back destroys the current buffer and returns to the previous one.
func (s *Session) Back() error {
	if len(s.stack) == 0 {
		return ErrNoPrevBuffer
	}
	s.buf.destroy()
	s.buf = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

// Replace destroys the current buffer and makes nb current.
func (s *Session) Replace(nb *Buffer) {
	s.buf.destroy()
	s.buf = nb
}

// Workspace holds every session and the one current buffer that the
// editing operations act on.
type Workspace struct {
	sessions [MaxSessions + 1]*Session
	cur      *Session

	Wrap     bool // searches wrap around the end of the buffer
	MaxLines int

	Dispatcher Dispatcher
	Dir        DirHook
	Form       FormHook

	lastSearch  Pattern
	lastReplace string
	haveReplace bool
	intr        atomic.Bool
}

// Option configures a Workspace.
type Option func(*Workspace)

func WithWrap(wrap bool) Option { return func(ws *Workspace) { ws.Wrap = wrap } }

func WithMaxLines(n int) Option { return func(ws *Workspace) { ws.MaxLines = n } }

func WithDispatcher(d Dispatcher) Option { return func(ws *Workspace) { ws.Dispatcher = d } }

func WithDirHook(h DirHook) Option { return func(ws *Workspace) { ws.Dir = h } }

func WithFormHook(h FormHook) Option { return func(ws *Workspace) { ws.Form = h } }

// NewWorkspace returns a workspace with session 1 current and empty.
func NewWorkspace(opts ...Option) *Workspace {
	ws := &Workspace{Wrap: true, MaxLines: DefaultMaxLines}
	for _, opt := range opts {
		opt(ws)
	}
	ws.cur = ws.session(1)
	return ws
}

func (ws *Workspace) session(n int) *Session {
	if ws.sessions[n] == nil {
		ws.sessions[n] = &Session{Number: n, buf: ws.NewBuffer()}
	}
	return ws.sessions[n]
}

// NewBuffer returns an empty buffer configured for this workspace.
func (ws *Workspace) NewBuffer() *Buffer {
	b := NewBuffer()
	b.maxLines = ws.MaxLines
	return b
}

// Current returns the current buffer.
func (ws *Workspace) Current() *Buffer { return ws.cur.buf }

// Session returns the current session.
func (ws *Workspace) Session() *Session { return ws.cur }

// Switch makes session n current, creating it when needed. It reports
// whether the session was new. Leaving a buffer drops its undo state.
func (ws *Workspace) Switch(n int) (bool, error) {
	if n < 1 || n > MaxSessions {
		return false, ErrNoSession
	}
	if ws.cur.buf.inGlobal {
		return false, ErrBufferSwitched
	}
	created := ws.sessions[n] == nil
	if ws.cur.Number != n {
		ws.cur.buf.dropUndo()
	}
	ws.cur = ws.session(n)
	return created, nil
}

// SessionBuffer returns the current buffer of session n.
func (ws *Workspace) SessionBuffer(n int) (*Buffer, error) {
	if n < 1 || n > MaxSessions || ws.sessions[n] == nil {
		return nil, ErrNoSession
	}
	return ws.sessions[n].buf, nil
}

// Interrupt asks the running operation to stop at the next line
// boundary. It is safe to call from a signal handler goroutine.
func (ws *Workspace) Interrupt() { ws.intr.Store(true) }

// ClearInterrupt forgets a pending interrupt.
func (ws *Workspace) ClearInterrupt() { ws.intr.Store(false) }

func (ws *Workspace) interrupted() bool { return ws.intr.Swap(false) }

// BeginCommand marks the start of an outer command on the current
// buffer.
func (ws *Workspace) BeginCommand() { ws.Current().BeginCommand() }

// Undo undoes the last command of the current buffer. In directory and
// browse buffers it reverts the last rename or field write.
func (ws *Workspace) Undo() error {
	b := ws.Current()
	if b.inGlobal {
		return ErrUndoInGlobal
	}
	if b.lineUndo == nil {
		return b.Undo()
	}
	u := b.lineUndo
	if err := ws.applyLine(b, u.n, u.new, u.old); err != nil {
		return err
	}
	b.undoLine()
	return nil
}

// applyLine pushes a one line change of a directory or browse buffer
// out to its collaborator.
func (ws *Workspace) applyLine(b *Buffer, n int, from, to *Line) error {
	switch {
	case b.mode&ModeDirectory != 0:
		if ws.Dir == nil {
			return ErrNoHook
		}
		return ws.Dir.Rename(b.Path, from.String(), to.String())
	case b.mode&ModeBrowse != 0:
		if ws.Form == nil {
			return ErrNoHook
		}
		return ws.Form.SetField(n, from.Text(), to.Text())
	}
	return ErrReadOnly
}

// Delete removes lines start through end. In a directory buffer the
// files are removed first; other read only modes refuse.
func (ws *Workspace) Delete(start, end int) error {
	b := ws.Current()
	switch {
	case b.mode&ModeDirectory != 0:
		if start < 1 || end < start || end > b.LineCount() {
			return ErrInvalidAddress
		}
		if ws.Dir == nil {
			return ErrNoHook
		}
		for i := start; i <= end; i++ {
			if err := ws.Dir.Remove(b.Path, b.recs[i].String()); err != nil {
				if i > start {
					if derr := b.DeleteRange(start, i-1); derr != nil {
						return errors.Join(err, derr)
					}
				}
				return err
			}
		}
	case !b.Editable():
		return ErrReadOnly
	}
	return b.DeleteRange(start, end)
}

// ReadSession inserts a copy of the current buffer of session n after
// line after and returns the number of bytes read.
func (ws *Workspace) ReadSession(n, after int) (int, error) {
	src, err := ws.SessionBuffer(n)
	if err != nil {
		return 0, err
	}
	lines := src.lines()
	if len(lines) == 0 {
		return 0, nil
	}
	b := ws.Current()
	if err := b.CanInsert(len(lines)); err != nil {
		return 0, err
	}
	var size int
	for i, l := range lines {
		lines[i] = l.clone()
		size += l.Len()
	}
	if err := b.InsertBlock(lines, after); err != nil {
		return 0, err
	}
	return size, nil
}
