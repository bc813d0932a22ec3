// Package elixir reads and writes Gust ".elixir" archives and their chunked
// ".elixir.gz" envelope.
//
// # File Format Overview
//
// An archive consists of:
//   - A 0x1C-byte header: magic 'EARC', name field extension, payload size,
//     header size, table size, entry count and an opaque flags word
//   - A table of fixed-stride entries (u32 offset, u32 size, padded name)
//   - The entry payloads, concatenated in table order
//
// All integers are little-endian. The name field is 0x20 bytes, extended by
// 0x10 bytes per unit of the header's FilenameSize.
//
// The envelope splits a whole archive into 0x4000-byte chunks, compresses
// each one independently with zlib and frames it with a u32 length. A zero
// length ends the stream.
//
// # Basic Usage
//
// To read an archive that may be wrapped in the envelope:
//
//	raw, err := os.ReadFile("system.elixir.gz")
//	if elixir.IsChunked(raw) {
//		raw, err = elixir.DecodeChunked(raw)
//	}
//	a, err := elixir.Decode(raw)
//	for i, e := range a.Entries {
//		fmt.Println(e.Name, len(a.Data(i)))
//	}
//
// To build one:
//
//	f, _ := os.Create("system.elixir")
//	defer f.Close()
//	_, err := elixir.Encode(f, []elixir.Input{
//		{Name: "a.bin", Open: func() (io.ReadCloser, error) { return os.Open("a.bin") }},
//		{Name: elixir.DummyName},
//	})
//
// # Security Considerations
//
// Decode validates every header field and entry bound before slicing, and
// DecodeChunked bounds its output buffer via [Limits], so corrupt or hostile
// files fail with an error instead of exhausting memory.
package elixir
