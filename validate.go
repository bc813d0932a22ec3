package elixir

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// validateNames checks names against a field of fieldLen bytes. A name may
// fill the field exactly; it is then stored without a terminator.
func validateNames(names []string, fieldLen int) error {
	for i, n := range names {
		if n == "" {
			return fmt.Errorf("%w: entry %d has an empty name", ErrInvalidName, i)
		}
		if strings.IndexByte(n, 0) >= 0 {
			return fmt.Errorf("%w: entry %d name contains NUL", ErrInvalidName, i)
		}
		if len(n) > fieldLen {
			return fmt.Errorf("%w: %q does not fit a %d byte name field", ErrInvalidName, n, fieldLen)
		}
	}
	return nil
}

// ValidateEntryPath reports whether an entry name can be used as a path
// below an extraction directory.
func ValidateEntryPath(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return fmt.Errorf("%w: %q must not be absolute", ErrInvalidName, name)
	}
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return fmt.Errorf("%w: %q escapes the archive directory", ErrInvalidName, name)
	}
	if strings.HasSuffix(name, "/") || path.Clean(name) == "." {
		return fmt.Errorf("%w: %q does not name a file", ErrInvalidName, name)
	}
	if strings.EqualFold(path.Clean(name), ManifestName) {
		return fmt.Errorf("%w: %q collides with the manifest", ErrInvalidName, name)
	}
	return nil
}

// Validate checks the fields Pack needs before anything is written.
func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: manifest is nil", ErrConfig)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if !filepath.IsAbs(m.Name) && !filepath.IsLocal(m.Name) {
		return fmt.Errorf("%w: archive name %q escapes the parent directory", ErrInvalidName, m.Name)
	}
	if len(m.Files) == 0 {
		return ErrEmptyManifest
	}
	if m.FilenameSize != nil && *m.FilenameSize > MaxFilenameSize {
		return fmt.Errorf("%w: filename_size 0x%X exceeds 0x%X", ErrConfig, *m.FilenameSize, MaxFilenameSize)
	}
	for i, f := range m.Files {
		if f == DummyName {
			continue
		}
		if err := ValidateEntryPath(f); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
	}
	return nil
}
