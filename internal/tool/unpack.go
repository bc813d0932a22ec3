package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gusttools/go-elixir"
	"github.com/gusttools/go-elixir/internal/fsutil"
)

// Unpack extracts every entry of the archive at path into the directory
// named after it, and writes the manifest Pack needs to rebuild it.
// Dummy entries are listed in the manifest but never written.
func Unpack(ctx context.Context, path string, opts Options) error {
	opts = opts.withDefaults()
	log := opts.Logger.WithField("archive", path)

	outDir, err := splitArchivePath(path)
	if err != nil {
		return err
	}
	raw, compressed, err := load(path, opts)
	if err != nil {
		return err
	}
	a, err := elixir.Decode(raw, opts.readOptions()...)
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	for i, e := range a.Entries {
		if e.IsDummy() {
			continue
		}
		if err := elixir.ValidateEntryPath(e.Name); err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
	}
	log.Infof("extracting %d entries (%s) to %s", len(a.Entries), humanize.Bytes(uint64(len(raw))), outDir)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return elixir.NewIOError("mkdir", outDir, err)
	}
	printHeader(opts.Out)
	for i, e := range a.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := entryPath(outDir, e.Name)
		printEntry(opts.Out, e, p)
		if e.IsDummy() {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return elixir.NewIOError("mkdir", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, a.Data(i), 0o644); err != nil {
			return elixir.NewIOError("write", p, err)
		}
		log.WithFields(logrus.Fields{"entry": e.Name, "size": e.Size}).Debug("extracted")
	}

	m := elixir.NewManifest(filepath.Base(path), a, compressed)
	return writeManifest(filepath.Join(outDir, elixir.ManifestName), m)
}

func writeManifest(path string, m *elixir.Manifest) error {
	f, err := fsutil.Create(path, 0o644)
	if err != nil {
		return err
	}
	defer f.Abort()
	if err := elixir.WriteManifest(f, m); err != nil {
		return elixir.NewIOError("write", path, err)
	}
	return f.Commit()
}

// List decodes the archive at path and prints its table without writing
// anything.
func List(ctx context.Context, path string, opts Options) (*elixir.Archive, error) {
	opts = opts.withDefaults()
	outDir, err := splitArchivePath(path)
	if err != nil {
		return nil, err
	}
	raw, _, err := load(path, opts)
	if err != nil {
		return nil, err
	}
	a, err := elixir.Decode(raw, opts.readOptions()...)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	printHeader(opts.Out)
	for _, e := range a.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		printEntry(opts.Out, e, entryPath(outDir, e.Name))
	}
	return a, nil
}

// Decompress removes the chunked envelope of path and writes the bare
// archive next to it, under the name without ".gz".
func Decompress(ctx context.Context, path string, opts Options) error {
	opts = opts.withDefaults()
	if _, err := splitArchivePath(path); err != nil {
		return err
	}
	base := filepath.Base(path)
	i := strings.Index(base, compressedExt)
	if i < 0 {
		return fmt.Errorf("%w: %q has no '.gz' extension", elixir.ErrConfig, path)
	}
	raw, compressed, err := load(path, opts)
	if err != nil {
		return err
	}
	if !compressed {
		return fmt.Errorf("%w: %q is not compressed", elixir.ErrConfig, path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := filepath.Join(filepath.Dir(path), base[:i])
	if err := writeFile(dst, raw); err != nil {
		return err
	}
	fmt.Fprintf(opts.Out, "%08x %s\n", len(raw), filepath.Base(dst))
	opts.Logger.WithField("archive", path).Infof("decompressed to %s (%s)", dst, humanize.Bytes(uint64(len(raw))))
	return nil
}

func writeFile(path string, data []byte) error {
	f, err := fsutil.Create(path, 0o644)
	if err != nil {
		return err
	}
	defer f.Abort()
	if _, err := f.Write(data); err != nil {
		return elixir.NewIOError("write", path, err)
	}
	return f.Commit()
}
