package elixir

import "bytes"

// Magic is the archive signature ('EARC' read as a little-endian u32).
const Magic uint32 = 0x45415243

const (
	// HeaderSize is the only fixed header size this package understands.
	HeaderSize uint32 = 0x1C

	// BaseNameSize is the name field length when FilenameSize is 0.
	BaseNameSize = 0x20
	// NameSizeIncrement is the unit by which FilenameSize extends the name field.
	NameSizeIncrement = 0x10
	// MaxFilenameSize is the largest name field extension factor accepted on read.
	MaxFilenameSize uint32 = 0x100

	entryFixedSize = 8 // offset + size

	// DefaultChunkSize is the uncompressed size of one chunk frame.
	DefaultChunkSize = 0x4000

	// DummyName marks a table slot that carries no payload.
	DummyName = "dummy"
)

// Header is the fixed 0x1C byte archive header.
type Header struct {
	Magic        uint32
	FilenameSize uint32
	PayloadSize  uint32
	HeaderSize   uint32
	TableSize    uint32
	NbFiles      uint32
	// Flags is opaque and passed through unmodified.
	Flags uint32
}

// EntrySize returns the table stride for h.
func (h Header) EntrySize() uint32 {
	return entrySize(h.FilenameSize)
}

// NameFieldLen returns the length of the name field of one entry.
func (h Header) NameFieldLen() int {
	return nameFieldLen(h.FilenameSize)
}

func entrySize(filenameSize uint32) uint32 {
	return entryFixedSize + BaseNameSize + filenameSize*NameSizeIncrement
}

func nameFieldLen(filenameSize uint32) int {
	return BaseNameSize + int(filenameSize)*NameSizeIncrement
}

// Entry is one slot of the archive table. Offset is absolute from the start
// of the archive.
type Entry struct {
	Offset uint32
	Size   uint32
	Name   string
}

// IsDummy reports whether e is a placeholder slot without payload.
func (e Entry) IsDummy() bool {
	return e.Size == 0 && e.Name == DummyName
}

// Archive is a decoded (or freshly encoded) archive table.
//
// For archives returned by Decode, Data returns views into the decoded
// buffer; callers must not modify them.
type Archive struct {
	Header  Header
	Entries []Entry

	raw []byte
}

// Data returns the payload of entry i. It returns nil for archives that
// were not produced by Decode or EncodeBytes.
func (a *Archive) Data(i int) []byte {
	if a.raw == nil || i < 0 || i >= len(a.Entries) {
		return nil
	}
	e := a.Entries[i]
	return a.raw[e.Offset : e.Offset+e.Size]
}

// Names returns the entry names in table order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.Entries))
	for i, e := range a.Entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the total archive size described by the header.
func (a *Archive) Len() int64 {
	return int64(a.Header.HeaderSize) + int64(a.Header.TableSize) + int64(a.Header.PayloadSize)
}

func decodeName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
