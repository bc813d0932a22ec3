package elixir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func bytesInput(name string, data []byte) Input {
	return Input{Name: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}}
}

func sampleInputs() []Input {
	return []Input{
		bytesInput("system/title.g1t", []byte("title texture")),
		{Name: DummyName},
		bytesInput("empty.bin", nil),
		bytesInput("sound/bgm_001.ktsl2asbin", bytes.Repeat([]byte{0xAB, 0xCD}, 300)),
	}
}

type failingWriteSeeker struct {
	writeSeekBuffer
	n int
}

func (w *failingWriteSeeker) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, io.ErrClosedPipe
	}
	w.n--
	return w.writeSeekBuffer.Write(p)
}

func TestWireRoundtrip(t *testing.T) {
	in := Header{Magic: Magic, FilenameSize: 2, PayloadSize: 123, HeaderSize: HeaderSize, TableSize: 0x60, NbFiles: 2, Flags: 0xA}
	var buf bytes.Buffer
	if err := writeHeader(&buf, in); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != int(HeaderSize) {
		t.Fatalf("header is %d bytes", buf.Len())
	}
	out := parseHeader(buf.Bytes())
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("header mismatch: %#v vs %#v", in, out)
	}

	slot := make([]byte, entrySize(0))
	putEntry(slot, Entry{Offset: 0x10, Size: 0x20, Name: "a.bin"})
	if got := parseEntry(slot); got != (Entry{Offset: 0x10, Size: 0x20, Name: "a.bin"}) {
		t.Fatalf("entry mismatch: %#v", got)
	}
}

// Two entries, one of them a dummy, base width name field.
func TestEncodeDecode_DummyExample(t *testing.T) {
	inputs := []Input{
		bytesInput("a.bin", []byte("abcd")),
		{Name: DummyName, Open: func() (io.ReadCloser, error) {
			t.Fatal("dummy entry opened")
			return nil, nil
		}},
	}
	raw, enc, err := EncodeBytes(inputs)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Header.FilenameSize != 0 || enc.Header.TableSize != 0x50 {
		t.Fatalf("unexpected header %#v", enc.Header)
	}

	a, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if a.Header.NbFiles != 2 || a.Header.PayloadSize != 4 {
		t.Fatalf("unexpected header %#v", a.Header)
	}
	if got := a.Entries[0].Offset; got != HeaderSize+0x50 {
		t.Fatalf("entry 0 offset %#x", got)
	}
	if !a.Entries[1].IsDummy() {
		t.Fatalf("entry 1 should be dummy: %#v", a.Entries[1])
	}
	if got := string(a.Data(0)); got != "abcd" {
		t.Fatalf("entry 0 data %q", got)
	}
	if len(a.Data(1)) != 0 {
		t.Fatal("dummy has data")
	}
	if len(raw) != int(a.Len()) {
		t.Fatalf("len %d vs header %d", len(raw), a.Len())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	longName := "data/" + strings.Repeat("x", 60) + ".bin"
	inputs := append(sampleInputs(), bytesInput(longName, []byte("long")))
	raw, enc, err := EncodeBytes(inputs, WithFlags(0xA))
	if err != nil {
		t.Fatal(err)
	}
	// 69 bytes + NUL needs 0x20 + 3*0x10.
	if enc.Header.FilenameSize != 3 {
		t.Fatalf("filename size %d", enc.Header.FilenameSize)
	}

	a, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Header, enc.Header) {
		t.Fatalf("header mismatch\nwant: %#v\ngot:  %#v", enc.Header, a.Header)
	}
	if !reflect.DeepEqual(a.Entries, enc.Entries) {
		t.Fatalf("entries mismatch\nwant: %#v\ngot:  %#v", enc.Entries, a.Entries)
	}

	// Repacking the decoded archive reproduces it byte for byte.
	again := make([]Input, len(a.Entries))
	for i, e := range a.Entries {
		again[i] = bytesInput(e.Name, a.Data(i))
		if e.IsDummy() {
			again[i] = Input{Name: e.Name}
		}
	}
	raw2, _, err := EncodeBytes(again, WithFlags(a.Header.Flags), WithFilenameSize(a.Header.FilenameSize))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, raw2) {
		t.Fatal("repacked archive differs")
	}
}

func TestEncode_OffsetsAreContiguous(t *testing.T) {
	_, a, err := EncodeBytes(sampleInputs())
	if err != nil {
		t.Fatal(err)
	}
	next := a.Header.HeaderSize + a.Header.TableSize
	for _, e := range a.Entries {
		if e.Offset != next {
			t.Fatalf("entry %q at %#x, want %#x", e.Name, e.Offset, next)
		}
		next += e.Size
	}
	if next != uint32(a.Len()) {
		t.Fatalf("payload ends at %#x, archive is %#x", next, a.Len())
	}
}

func TestEncode_NameFillsField(t *testing.T) {
	name := strings.Repeat("n", BaseNameSize)
	raw, _, err := EncodeBytes([]Input{bytesInput(name, []byte("z"))}, WithFilenameSize(0))
	if err != nil {
		t.Fatal(err)
	}
	a, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if a.Entries[0].Name != name {
		t.Fatalf("name %q", a.Entries[0].Name)
	}
}

func TestEncode_AtWriterOffset(t *testing.T) {
	var ws writeSeekBuffer
	_, _ = ws.Write([]byte("prefix"))
	if _, err := Encode(&ws, sampleInputs()); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(ws.buf, []byte("prefix")) {
		t.Fatal("prefix overwritten")
	}
	a, err := Decode(ws.buf[6:])
	if err != nil {
		t.Fatal(err)
	}
	if got := string(a.Data(0)); got != "title texture" {
		t.Fatalf("entry 0 data %q", got)
	}
}

func TestEncode_PayloadSizePatched(t *testing.T) {
	raw, a, err := EncodeBytes(sampleInputs())
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(raw[offPayloadSize:]); got != a.Header.PayloadSize || got != 13+600 {
		t.Fatalf("payload size %d", got)
	}
}

func TestEncodeEmptyInputs(t *testing.T) {
	_, _, err := EncodeBytes(nil)
	if !errors.Is(err, ErrEmptyManifest) || !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrEmptyManifest, got %v", err)
	}
}

func TestEncodeInvalidNames(t *testing.T) {
	cases := map[string][]Input{
		"empty":    {bytesInput("", nil)},
		"nul":      {bytesInput("a\x00b", nil)},
		"too long": {bytesInput(strings.Repeat("y", BaseNameSize+1), nil)},
	}
	for name, inputs := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := EncodeBytes(inputs, WithFilenameSize(0))
			if !errors.Is(err, ErrInvalidName) {
				t.Fatalf("expected ErrInvalidName, got %v", err)
			}
		})
	}
	_, _, err := EncodeBytes([]Input{{Name: "a"}}, WithFilenameSize(MaxFilenameSize+1))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestEncodeWriterError(t *testing.T) {
	for n := 0; n < 6; n++ {
		w := &failingWriteSeeker{n: n}
		if _, err := Encode(w, sampleInputs()); err == nil {
			t.Fatalf("expected error after %d writes", n)
		}
	}
}

func TestEncodeOpenError(t *testing.T) {
	boom := errors.New("boom")
	inputs := []Input{{Name: "a.bin", Open: func() (io.ReadCloser, error) { return nil, boom }}}
	_, _, err := EncodeBytes(inputs)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestEncodeEntryLimit(t *testing.T) {
	inputs := []Input{bytesInput("big.bin", make([]byte, 100))}
	_, _, err := EncodeBytes(inputs, WithWriteLimits(Limits{MaxEntrySize: 99}))
	if !errors.Is(err, ErrLimitExceeded) || !errors.Is(err, ErrResource) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestFilenameSizeFor(t *testing.T) {
	cases := []struct {
		longest int
		want    uint32
	}{
		{0, 0},
		{BaseNameSize - 1, 0},
		{BaseNameSize, 1},
		{BaseNameSize + NameSizeIncrement - 1, 1},
		{BaseNameSize + NameSizeIncrement, 2},
	}
	for _, c := range cases {
		got, err := FilenameSizeFor([]string{"a", strings.Repeat("b", c.longest)})
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Fatalf("longest %d: got %d want %d", c.longest, got, c.want)
		}
	}
	_, err := FilenameSizeFor([]string{strings.Repeat("c", nameFieldLen(MaxFilenameSize))})
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}
