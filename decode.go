package elixir

import (
	"encoding/binary"
	"fmt"
)

// Decode parses an uncompressed archive held entirely in raw.
//
// The checks run in a fixed order:
//  1. raw holds at least a full header
//  2. the magic matches [Magic]
//  3. FilenameSize does not exceed [MaxFilenameSize]
//  4. HeaderSize equals [HeaderSize]
//  5. TableSize equals NbFiles times the entry stride
//  6. header, table and payload add up to len(raw)
//  7. every entry lies within raw
//
// Each failure wraps [ErrFormat] through one of the specific sentinels.
// Entries are returned in table order and the returned Archive borrows raw;
// use [Archive.Data] to access payloads without copying.
func Decode(raw []byte, opts ...ReadOption) (*Archive, error) {
	cfg := newReadConfig(opts)

	if len(raw) < int(HeaderSize) {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrTruncated, len(raw))
	}
	h := parseHeader(raw)
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrBadMagic, h.Magic)
	}
	if h.FilenameSize > MaxFilenameSize {
		return nil, fmt.Errorf("%w: 0x%08X", ErrNameFieldTooLarge, h.FilenameSize)
	}
	if h.HeaderSize != HeaderSize {
		return nil, fmt.Errorf("%w: 0x%08X", ErrUnsupportedHeaderSize, h.HeaderSize)
	}
	if h.NbFiles > cfg.limits.MaxEntries {
		return nil, fmt.Errorf("%w: %d entries", ErrLimitExceeded, h.NbFiles)
	}
	stride := uint64(h.EntrySize())
	if uint64(h.NbFiles)*stride != uint64(h.TableSize) {
		return nil, fmt.Errorf("%w: %d entries of %d bytes in a %d byte table",
			ErrTableSizeMismatch, h.NbFiles, stride, h.TableSize)
	}
	total := uint64(h.HeaderSize) + uint64(h.TableSize) + uint64(h.PayloadSize)
	if total != uint64(len(raw)) {
		return nil, fmt.Errorf("%w: header describes %d bytes, have %d", ErrFileSizeMismatch, total, len(raw))
	}

	a := &Archive{
		Header:  h,
		Entries: make([]Entry, h.NbFiles),
		raw:     raw,
	}
	table := raw[h.HeaderSize : h.HeaderSize+h.TableSize]
	for i := range a.Entries {
		e := parseEntry(table[uint64(i)*stride : uint64(i+1)*stride])
		if uint64(e.Offset)+uint64(e.Size) > uint64(len(raw)) {
			return nil, fmt.Errorf("%w: entry %d %q spans %08x+%08x", ErrEntryOutOfBounds, i, e.Name, e.Offset, e.Size)
		}
		a.Entries[i] = e
	}
	return a, nil
}

// IsChunked reports whether raw looks like a chunked envelope rather than a
// bare archive. Data starting with the archive magic is never treated as
// chunked, whatever its file name says.
func IsChunked(raw []byte) bool {
	if len(raw) < 4 {
		return true
	}
	return binary.LittleEndian.Uint32(raw) != Magic
}
