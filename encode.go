package elixir

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Input is one entry to be packed. Open is called at most once, and never
// for an entry named [DummyName]. A nil Open packs an empty entry.
type Input struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Function variables for testing injection.
var (
	copyPayload = io.Copy
)

// Encode writes an archive built from inputs to w, starting at w's current
// position.
//
// The table is written twice: once zeroed as a placeholder, then again after
// all payloads have been laid out and their offsets are known. PayloadSize is
// patched in place at the same time, so w must support seeking back.
//
// By default the name field is the narrowest one that holds the longest
// name plus a terminator ([FilenameSizeFor]). Use WriteOption functions to
// customize this behavior:
//   - WithFilenameSize(n): force the name field extension factor
//   - WithFlags(f): set the opaque header flags
//   - WithWriteLimits(l): bound individual entry sizes
//
// Encode returns ErrEmptyManifest for an empty input list and ErrInvalidName
// for names that are empty, contain NUL or do not fit the name field.
func Encode(w io.WriteSeeker, inputs []Input, opts ...WriteOption) (*Archive, error) {
	cfg := writeConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()

	if len(inputs) == 0 {
		return nil, ErrEmptyManifest
	}
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	var filenameSize uint32
	if cfg.filenameSize != nil {
		filenameSize = *cfg.filenameSize
		if filenameSize > MaxFilenameSize {
			return nil, fmt.Errorf("%w: filename size 0x%X exceeds 0x%X", ErrConfig, filenameSize, MaxFilenameSize)
		}
	} else {
		var err error
		if filenameSize, err = FilenameSizeFor(names); err != nil {
			return nil, err
		}
	}
	if err := validateNames(names, nameFieldLen(filenameSize)); err != nil {
		return nil, err
	}

	stride := uint64(entrySize(filenameSize))
	tableSize := uint64(len(inputs)) * stride
	if uint64(HeaderSize)+tableSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: table of %d entries", ErrLimitExceeded, len(inputs))
	}
	h := Header{
		Magic:        Magic,
		FilenameSize: filenameSize,
		HeaderSize:   HeaderSize,
		TableSize:    uint32(tableSize),
		NbFiles:      uint32(len(inputs)),
		Flags:        cfg.flags,
	}

	base, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if err := writeHeader(w, h); err != nil {
		return nil, err
	}
	if _, err := w.Write(make([]byte, tableSize)); err != nil {
		return nil, err
	}

	entries := make([]Entry, len(inputs))
	cursor := uint64(HeaderSize) + tableSize
	for i, in := range inputs {
		e := Entry{Name: in.Name, Offset: uint32(cursor)}
		if in.Name != DummyName && in.Open != nil {
			n, err := writePayload(w, in, cfg.limits.MaxEntrySize)
			if err != nil {
				return nil, fmt.Errorf("entry %d %q: %w", i, in.Name, err)
			}
			if cursor+n > math.MaxUint32 {
				return nil, fmt.Errorf("%w: archive exceeds 4 GiB at entry %q", ErrLimitExceeded, in.Name)
			}
			e.Size = uint32(n)
			cursor += n
		}
		entries[i] = e
	}
	h.PayloadSize = uint32(cursor - uint64(HeaderSize) - tableSize)

	if _, err := w.Seek(base+offPayloadSize, io.SeekStart); err != nil {
		return nil, err
	}
	if err := putU32(w, h.PayloadSize); err != nil {
		return nil, err
	}
	if _, err := w.Seek(base+int64(h.HeaderSize), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := w.Write(encodeTable(entries, filenameSize)); err != nil {
		return nil, err
	}
	if _, err := w.Seek(base+int64(cursor), io.SeekStart); err != nil {
		return nil, err
	}
	return &Archive{Header: h, Entries: entries}, nil
}

func writePayload(w io.Writer, in Input, maxSize uint64) (uint64, error) {
	rc, err := in.Open()
	if err != nil {
		return 0, err
	}
	n, err := copyPayload(w, io.LimitReader(rc, int64(maxSize)+1))
	cerr := rc.Close()
	if err != nil {
		return 0, err
	}
	if cerr != nil {
		return 0, cerr
	}
	if uint64(n) > maxSize {
		return 0, fmt.Errorf("%w: entry larger than %d bytes", ErrLimitExceeded, maxSize)
	}
	return uint64(n), nil
}

// EncodeBytes is Encode into memory. The returned Archive serves Data views
// into the returned bytes.
func EncodeBytes(inputs []Input, opts ...WriteOption) ([]byte, *Archive, error) {
	var ws writeSeekBuffer
	a, err := Encode(&ws, inputs, opts...)
	if err != nil {
		return nil, nil, err
	}
	a.raw = ws.buf
	return ws.buf, a, nil
}

// FilenameSizeFor returns the smallest name field extension factor whose
// field holds every name plus a NUL terminator.
func FilenameSizeFor(names []string) (uint32, error) {
	longest := 0
	for _, n := range names {
		longest = max(longest, len(n))
	}
	need := longest + 1
	if need <= BaseNameSize {
		return 0, nil
	}
	factor := (need - BaseNameSize + NameSizeIncrement - 1) / NameSizeIncrement
	if factor > int(MaxFilenameSize) {
		return 0, fmt.Errorf("%w: name of %d bytes is too long", ErrInvalidName, longest)
	}
	return uint32(factor), nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("elixir: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("elixir: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
