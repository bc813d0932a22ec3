package elixir

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

type errWriter struct{}

func (errWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

type errAfterWriter struct {
	remaining int
}

func (w *errAfterWriter) Write(p []byte) (int, error) {
	if w.remaining <= 0 {
		return 0, io.ErrClosedPipe
	}
	if len(p) > w.remaining {
		return 0, io.ErrClosedPipe
	}
	w.remaining -= len(p)
	return len(p), nil
}

type errCloser struct{ io.Reader }

func (errCloser) Close() error { return io.ErrClosedPipe }

func TestEncodeChunked_WriteErrorPositions(t *testing.T) {
	payload := []byte("some payload")
	framed, err := CompressChunked(payload)
	if err != nil {
		t.Fatal(err)
	}
	// Fail on the length prefix, the chunk body, then the terminator.
	for _, remaining := range []int{0, 4, len(framed) - 4} {
		if err := EncodeChunked(&errAfterWriter{remaining: remaining}, payload); !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("remaining %d: expected ErrClosedPipe, got %v", remaining, err)
		}
	}
	if err := EncodeChunked(errWriter{}, nil); err == nil {
		t.Fatal("expected error writing the terminator")
	}
}

func TestChunked_InjectionErrorPaths(t *testing.T) {
	origW := newZlibWriter
	origR := newZlibReader
	origClose := zlibClose
	defer func() {
		newZlibWriter = origW
		newZlibReader = origR
		zlibClose = origClose
	}()

	newZlibWriter = func(io.Writer, int) (*zlib.Writer, error) { return nil, io.ErrClosedPipe }
	if _, err := CompressChunked([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected ErrClosedPipe, got %v", err)
	}
	newZlibWriter = origW

	zlibClose = func(*zlib.Writer) error { return io.ErrClosedPipe }
	if _, err := CompressChunked([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected ErrClosedPipe, got %v", err)
	}
	zlibClose = origClose

	framed, err := CompressChunked([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	newZlibReader = func(io.Reader) (io.ReadCloser, error) { return nil, io.ErrClosedPipe }
	_, err = DecodeChunked(framed)
	var ce *ChunkError
	if !errors.As(err, &ce) || !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected wrapped ErrClosedPipe, got %v", err)
	}
}

func TestCompressionLevelOutOfRange(t *testing.T) {
	if _, err := CompressChunked([]byte("x"), WithCompressionLevel(42)); err == nil {
		t.Fatal("expected error")
	}
}

func TestEncode_CopyInjectedError(t *testing.T) {
	orig := copyPayload
	defer func() { copyPayload = orig }()
	copyPayload = func(io.Writer, io.Reader) (int64, error) { return 0, io.ErrClosedPipe }
	if _, _, err := EncodeBytes(sampleInputs()); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected ErrClosedPipe, got %v", err)
	}
}

func TestEncode_CloseError(t *testing.T) {
	inputs := []Input{{Name: "a.bin", Open: func() (io.ReadCloser, error) {
		return errCloser{strings.NewReader("abc")}, nil
	}}}
	if _, _, err := EncodeBytes(inputs); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected ErrClosedPipe, got %v", err)
	}
}

func TestWriteSeekBuffer_BadSeek(t *testing.T) {
	var b writeSeekBuffer
	if _, err := b.Seek(-1, io.SeekStart); err == nil {
		t.Fatal("expected error")
	}
	if _, err := b.Seek(0, 42); err == nil {
		t.Fatal("expected error")
	}
	// Seeking past the end zero fills on the next write.
	if _, err := b.Seek(3, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	_, _ = b.Write([]byte{1})
	if !bytes.Equal(b.buf, []byte{0, 0, 0, 1}) {
		t.Fatalf("got %v", b.buf)
	}
}

func TestChunkError(t *testing.T) {
	e := &ChunkError{Offset: 0x1234, Err: io.ErrUnexpectedEOF}
	if got := e.Error(); !strings.Contains(got, "at position 00001234") || !strings.Contains(got, "unexpected EOF") {
		t.Fatalf("message %q", got)
	}
	if !errors.Is(e, ErrCorruptChunk) || !errors.Is(e, ErrFormat) || !errors.Is(e, io.ErrUnexpectedEOF) {
		t.Fatal("ChunkError does not unwrap")
	}
	bare := &ChunkError{Offset: 4}
	if strings.Contains(bare.Error(), "<nil>") || !errors.Is(bare, ErrCorruptChunk) {
		t.Fatalf("bare ChunkError %q", bare.Error())
	}
}

func TestIOError(t *testing.T) {
	if NewIOError("open", "x", nil) != nil {
		t.Fatal("expected nil for a nil error")
	}
	err := NewIOError("open", "a/b.bin", fs.ErrNotExist)
	if !errors.Is(err, ErrIO) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("IOError does not unwrap: %v", err)
	}
	if errors.Is(err, ErrFormat) {
		t.Fatal("IOError matches a second kind")
	}
	if got := err.Error(); got != "elixir: open a/b.bin: file does not exist" {
		t.Fatalf("message %q", got)
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{ErrFormat, ErrConfig, ErrResource, ErrIO}
	specific := []error{
		ErrBadMagic, ErrNameFieldTooLarge, ErrUnsupportedHeaderSize, ErrTableSizeMismatch,
		ErrFileSizeMismatch, ErrEntryOutOfBounds, ErrTruncated, ErrCorruptChunk,
		ErrEmptyManifest, ErrMissingField, ErrInvalidName,
		ErrBufferLimitExceeded, ErrLimitExceeded,
	}
	for _, s := range specific {
		n := 0
		for _, k := range kinds {
			if errors.Is(s, k) {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("%v matches %d kinds", s, n)
		}
	}
}
