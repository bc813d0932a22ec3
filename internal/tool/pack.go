package tool

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/gusttools/go-elixir"
	"github.com/gusttools/go-elixir/internal/backup"
	"github.com/gusttools/go-elixir/internal/fsutil"
)

// Pack rebuilds an archive from a directory produced by Unpack. The
// manifest in dir decides the entry order, flags, name field width and
// whether the result is wrapped in the chunked envelope. The archive is
// written next to dir under the manifest's name.
//
// Nothing is written to the target unless the whole archive was built; an
// existing target is backed up first when opts.Backup is set.
func Pack(ctx context.Context, dir string, opts Options) error {
	opts = opts.withDefaults()

	m, err := readManifest(filepath.Join(dir, elixir.ManifestName))
	if err != nil {
		return err
	}
	target := m.Name
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(filepath.Clean(dir)), target)
	}
	log := opts.Logger.WithField("archive", target)
	log.Infof("creating %s from %d entries", target, len(m.Files))

	inputs := make([]elixir.Input, len(m.Files))
	for i, name := range m.Files {
		inputs[i] = elixir.Input{Name: name}
		if name == elixir.DummyName {
			continue
		}
		p := entryPath(dir, name)
		inputs[i].Open = func() (io.ReadCloser, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f, err := os.Open(p)
			if err != nil {
				return nil, elixir.NewIOError("open", p, err)
			}
			return f, nil
		}
	}

	out, err := fsutil.Create(target, 0o644)
	if err != nil {
		return err
	}
	defer out.Abort()

	var a *elixir.Archive
	if m.Compressed {
		var raw []byte
		raw, a, err = elixir.EncodeBytes(inputs, m.WriteOptions()...)
		if err != nil {
			return errors.Wrapf(err, "build %s", target)
		}
		log.Infof("compressing %s", humanize.Bytes(uint64(len(raw))))
		if err := elixir.EncodeChunked(out, raw, opts.chunkOptions()...); err != nil {
			return errors.Wrapf(err, "compress %s", target)
		}
	} else {
		a, err = elixir.Encode(out, inputs, m.WriteOptions()...)
		if err != nil {
			return errors.Wrapf(err, "build %s", target)
		}
	}

	printHeader(opts.Out)
	for _, e := range a.Entries {
		printEntry(opts.Out, e, entryPath(dir, e.Name))
	}

	if opts.Backup {
		bak, err := backup.Create(target, opts.BackupCompression)
		if err != nil {
			return errors.Wrap(err, "backup")
		}
		if bak != "" {
			log.Infof("backed up original to %s", bak)
		}
	}
	if err := out.Commit(); err != nil {
		return err
	}
	log.Infof("wrote %s (%s payload)", target, humanize.Bytes(uint64(a.Header.PayloadSize)))
	return nil
}

func readManifest(path string) (*elixir.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, elixir.NewIOError("open", path, err)
	}
	defer f.Close()
	m, err := elixir.ReadManifest(f)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	return m, nil
}

// Restore puts back the backup Pack made of the archive at path.
func Restore(ctx context.Context, path string, opts Options) error {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return err
	}
	bak, err := backup.Restore(path)
	if err != nil {
		return err
	}
	opts.Logger.WithField("archive", path).Infof("restored from %s", bak)
	return nil
}
