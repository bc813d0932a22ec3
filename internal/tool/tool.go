// Package tool implements the unpack, pack, list and decompress-only
// operations on archive files and extraction directories.
package tool

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gusttools/go-elixir"
	"github.com/gusttools/go-elixir/internal/backup"
)

const (
	archiveExt    = ".elixir"
	compressedExt = ".gz"
)

type Options struct {
	// Out receives the entry listing. Defaults to os.Stdout.
	Out    io.Writer
	Logger *logrus.Entry

	Limits    elixir.Limits
	ChunkSize int
	// CompressionLevel is the zlib level (1-9) of repacked envelopes; 0
	// selects the library default.
	CompressionLevel int

	// Backup keeps a copy of an archive before Pack first replaces it.
	Backup            bool
	BackupCompression backup.Compression
}

// DefaultOptions returns the options the command line starts from.
func DefaultOptions() Options {
	return Options{
		Out:               os.Stdout,
		Logger:            logrus.NewEntry(logrus.StandardLogger()),
		ChunkSize:         elixir.DefaultChunkSize,
		Backup:            true,
		BackupCompression: backup.CompNone,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Out == nil {
		o.Out = d.Out
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.BackupCompression == "" {
		o.BackupCompression = d.BackupCompression
	}
	return o
}

func (o Options) readOptions() []elixir.ReadOption {
	return []elixir.ReadOption{elixir.WithReadLimits(o.Limits)}
}

func (o Options) chunkOptions() []elixir.ChunkOption {
	opts := []elixir.ChunkOption{elixir.WithChunkSize(o.ChunkSize)}
	if o.CompressionLevel != 0 {
		opts = append(opts, elixir.WithCompressionLevel(o.CompressionLevel))
	}
	return opts
}

// splitArchivePath returns the directory an archive unpacks to: its path cut
// before the ".elixir" extension.
func splitArchivePath(path string) (string, error) {
	base := filepath.Base(path)
	i := strings.Index(base, archiveExt)
	if i <= 0 {
		return "", fmt.Errorf("%w: %q should have a '.elixir[.gz]' extension", elixir.ErrConfig, path)
	}
	return filepath.Join(filepath.Dir(path), base[:i]), nil
}

// load reads an archive file and removes the chunked envelope when the name
// says ".gz" and the content does not start with the archive magic.
func load(path string, opts Options) ([]byte, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, elixir.NewIOError("read", path, err)
	}
	if !strings.Contains(filepath.Base(path), compressedExt) {
		return raw, false, nil
	}
	if !elixir.IsChunked(raw) {
		opts.Logger.WithField("archive", path).Debug("compressed name but uncompressed content")
		return raw, false, nil
	}
	out, err := elixir.DecodeChunked(raw, opts.readOptions()...)
	if err != nil {
		return nil, true, errors.Wrapf(err, "decompress %s", path)
	}
	return out, true, nil
}

func printHeader(w io.Writer) {
	fmt.Fprintln(w, "OFFSET   SIZE     NAME")
}

func printEntry(w io.Writer, e elixir.Entry, path string) {
	fmt.Fprintf(w, "%08x %08x %s\n", e.Offset, e.Size, path)
}

func entryPath(dir, name string) string {
	return filepath.Join(dir, filepath.FromSlash(name))
}
