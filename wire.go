package elixir

import (
	"encoding/binary"
	"io"
)

// Byte offsets of the header fields.
const (
	offMagic        = 0
	offFilenameSize = 4
	offPayloadSize  = 8
	offHeaderSize   = 12
	offTableSize    = 16
	offNbFiles      = 20
	offFlags        = 24
)

func parseHeader(buf []byte) Header {
	_ = buf[HeaderSize-1]
	return Header{
		Magic:        binary.LittleEndian.Uint32(buf[offMagic:]),
		FilenameSize: binary.LittleEndian.Uint32(buf[offFilenameSize:]),
		PayloadSize:  binary.LittleEndian.Uint32(buf[offPayloadSize:]),
		HeaderSize:   binary.LittleEndian.Uint32(buf[offHeaderSize:]),
		TableSize:    binary.LittleEndian.Uint32(buf[offTableSize:]),
		NbFiles:      binary.LittleEndian.Uint32(buf[offNbFiles:]),
		Flags:        binary.LittleEndian.Uint32(buf[offFlags:]),
	}
}

func writeHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[offMagic:], h.Magic)
	binary.LittleEndian.PutUint32(buf[offFilenameSize:], h.FilenameSize)
	binary.LittleEndian.PutUint32(buf[offPayloadSize:], h.PayloadSize)
	binary.LittleEndian.PutUint32(buf[offHeaderSize:], h.HeaderSize)
	binary.LittleEndian.PutUint32(buf[offTableSize:], h.TableSize)
	binary.LittleEndian.PutUint32(buf[offNbFiles:], h.NbFiles)
	binary.LittleEndian.PutUint32(buf[offFlags:], h.Flags)
	_, err := w.Write(buf[:])
	return err
}

// parseEntry decodes one table slot. len(buf) must equal the entry stride.
func parseEntry(buf []byte) Entry {
	return Entry{
		Offset: binary.LittleEndian.Uint32(buf[0:4]),
		Size:   binary.LittleEndian.Uint32(buf[4:8]),
		Name:   decodeName(buf[entryFixedSize:]),
	}
}

// putEntry encodes e into buf, zero padding the name field. The caller
// checks that the name fits.
func putEntry(buf []byte, e Entry) {
	binary.LittleEndian.PutUint32(buf[0:4], e.Offset)
	binary.LittleEndian.PutUint32(buf[4:8], e.Size)
	field := buf[entryFixedSize:]
	n := copy(field, e.Name)
	clear(field[n:])
}

func encodeTable(entries []Entry, filenameSize uint32) []byte {
	stride := int(entrySize(filenameSize))
	table := make([]byte, len(entries)*stride)
	for i, e := range entries {
		putEntry(table[i*stride:(i+1)*stride], e)
	}
	return table
}

func putU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
