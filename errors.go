package elixir

import (
	"errors"
	"fmt"
)

// Error kinds. Failures detected by this package match exactly one of them
// with errors.Is; errors from caller-supplied readers and writers are
// returned as they are.
var (
	ErrFormat   = errors.New("elixir: malformed archive")
	ErrConfig   = errors.New("elixir: invalid input")
	ErrResource = errors.New("elixir: resource limit")
	ErrIO       = errors.New("elixir: i/o failure")
)

var (
	ErrBadMagic              = fmt.Errorf("%w: bad magic", ErrFormat)
	ErrNameFieldTooLarge     = fmt.Errorf("%w: filename size too large", ErrFormat)
	ErrUnsupportedHeaderSize = fmt.Errorf("%w: unsupported header size", ErrFormat)
	ErrTableSizeMismatch     = fmt.Errorf("%w: table size mismatch", ErrFormat)
	ErrFileSizeMismatch      = fmt.Errorf("%w: file size mismatch", ErrFormat)
	ErrEntryOutOfBounds      = fmt.Errorf("%w: entry out of bounds", ErrFormat)
	ErrTruncated             = fmt.Errorf("%w: truncated", ErrFormat)
	ErrCorruptChunk          = fmt.Errorf("%w: corrupt chunk", ErrFormat)

	ErrEmptyManifest = fmt.Errorf("%w: manifest has no files", ErrConfig)
	ErrMissingField  = fmt.Errorf("%w: missing manifest field", ErrConfig)
	ErrInvalidName   = fmt.Errorf("%w: invalid entry name", ErrConfig)

	ErrBufferLimitExceeded = fmt.Errorf("%w: decode buffer limit exceeded", ErrResource)
	ErrLimitExceeded       = fmt.Errorf("%w: limit exceeded", ErrResource)
)

// ChunkError reports a chunk frame that could not be decoded. Offset is the
// position of the frame's length prefix in the framed stream.
type ChunkError struct {
	Offset int64
	Err    error
}

func (e *ChunkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v at position %08x", ErrCorruptChunk, e.Offset)
	}
	return fmt.Sprintf("%v at position %08x: %v", ErrCorruptChunk, e.Offset, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorruptChunk}
	}
	return []error{ErrCorruptChunk, e.Err}
}

// IOError records a file operation failure together with the offending path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "elixir: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// NewIOError wraps err as an IOError, or returns nil if err is nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
