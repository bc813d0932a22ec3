package elixir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// ManifestName is the manifest file written next to extracted entries.
	ManifestName = "elixir.json"
	// ManifestVersion is the json_version written by this package.
	ManifestVersion = 1
)

// Manifest describes an unpacked archive: what to rebuild, and in which
// order. It is the editable side-channel between Unpack and Pack.
type Manifest struct {
	Version    int    `json:"json_version"`
	Name       string `json:"name"`
	Compressed bool   `json:"compressed,omitempty"`
	Flags      uint32 `json:"flags"`
	// FilenameSize is the name field extension of the source archive. When
	// absent the narrowest field that fits every name is used.
	FilenameSize *uint32  `json:"filename_size,omitempty"`
	Files        []string `json:"files"`
}

// NewManifest describes a decoded archive that was read from a file called
// name.
func NewManifest(name string, a *Archive, compressed bool) *Manifest {
	fs := a.Header.FilenameSize
	return &Manifest{
		Version:      ManifestVersion,
		Name:         name,
		Compressed:   compressed,
		Flags:        a.Header.Flags,
		FilenameSize: &fs,
		Files:        a.Names(),
	}
}

// WriteOptions returns the Encode options that reproduce the manifest's
// header fields.
func (m *Manifest) WriteOptions() []WriteOption {
	opts := []WriteOption{WithFlags(m.Flags)}
	if m.FilenameSize != nil {
		opts = append(opts, WithFilenameSize(*m.FilenameSize))
	}
	return opts
}

// ReadManifest parses a manifest. Line and block comments are accepted.
// The result is validated.
func ReadManifest(r io.Reader) (*Manifest, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(stripComments(b), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteManifest writes m as indented JSON.
func WriteManifest(w io.Writer, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// stripComments blanks out // and /* */ comments that are not inside JSON
// strings. Newlines are kept so decoder offsets still map to lines.
func stripComments(in []byte) []byte {
	out := bytes.Clone(in)
	inString, escaped := false, false
	for i := 0; i < len(out); i++ {
		c := out[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			for i += 2; i < len(out); i++ {
				if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i++
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
			}
		}
	}
	return out
}
