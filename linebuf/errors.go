package linebuf

import "errors"

// Address errors.
var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidMark      = errors.New("invalid mark character")
	ErrMarkUnset        = errors.New("mark not set")
	ErrNoHistory        = errors.New("no previous position")
	ErrNotFound         = errors.New("not found")
	ErrNoPrevPattern    = errors.New("no previous pattern")
	ErrNoPrevReplace    = errors.New("no previous substitution")
	ErrInvalidDest      = errors.New("invalid destination")
	ErrNumberOutOfRange = errors.New("number out of range")
)

// Regular expression errors. Compile errors are returned as
// *syntax.Error by the regexp package.
var (
	ErrPatternDelim = errors.New("invalid pattern delimiter")
	ErrRegexLoop    = errors.New("regular expression matched the empty string repeatedly")
	ErrBackref      = errors.New("invalid back reference")
)

// Structural errors.
var (
	ErrTooManyLines = errors.New("line limit exceeded")
	ErrEmptyInsert  = errors.New("nothing to insert")
)

// State errors.
var (
	ErrNoMatch         = errors.New("no match")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrUndoUnavailable = errors.New("undo is not available in this mode")
	ErrUndoInGlobal    = errors.New("cannot undo within a global command")
	ErrInterrupt       = errors.New("interrupt")
	ErrNestedGlobal    = errors.New("cannot nest global commands")
	ErrGlobalRange     = errors.New("global command range out of bounds")
	ErrGlobalOverlap   = errors.New("global command ranges overlap")
	ErrBufferSwitched  = errors.New("buffer changed during global command")
	ErrNoDispatcher    = errors.New("no command dispatcher")
	ErrNoSession       = errors.New("no such session")
	ErrNoPrevBuffer    = errors.New("no previous buffer")
	ErrReadOnly        = errors.New("buffer is read only in this mode")
	ErrOneLine         = errors.New("only one line may be changed in this mode")
	ErrInvalidFileName = errors.New("invalid file name")
	ErrNoHook          = errors.New("no handler for this mode")
)
