// Package backup keeps a copy of an archive the first time it is
// overwritten, optionally compressed.
package backup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/gusttools/go-elixir"
	"github.com/gusttools/go-elixir/internal/fsutil"
)

type Compression string

const (
	CompNone Compression = "none"
	CompZSTD Compression = "zstd"
	CompLZ4  Compression = "lz4"
	CompBR   Compression = "br"
)

// Compressions lists the accepted values in flag order.
var Compressions = []Compression{CompNone, CompZSTD, CompLZ4, CompBR}

// Suffix is appended to the original path; compressed backups add the
// codec's extension after it.
const Suffix = ".bak"

// Function variables for testing injection.
var (
	newZstdWriter = func(w io.Writer) (*zstd.Encoder, error) { return zstd.NewWriter(w) }
	newZstdReader = func(r io.Reader) (*zstd.Decoder, error) { return zstd.NewReader(r) }
	lz4Close      = func(w *lz4.Writer) error { return w.Close() }
	brotliClose   = func(w *brotli.Writer) error { return w.Close() }
)

// ParseCompression validates a flag value. The empty string means CompNone.
func ParseCompression(s string) (Compression, error) {
	if s == "" {
		return CompNone, nil
	}
	for _, c := range Compressions {
		if string(c) == strings.ToLower(s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown backup compression %q", elixir.ErrConfig, s)
}

func (c Compression) extension() string {
	switch c {
	case CompZSTD:
		return ".zst"
	case CompLZ4:
		return ".lz4"
	case CompBR:
		return ".br"
	default:
		return ""
	}
}

// PathFor returns the backup path of path for compression c.
func PathFor(path string, c Compression) string {
	return path + Suffix + c.extension()
}

// Find returns an existing backup of path, whatever its compression.
func Find(path string) (string, Compression, bool) {
	for _, c := range Compressions {
		p := PathFor(path, c)
		if _, err := os.Stat(p); err == nil {
			return p, c, true
		}
	}
	return "", "", false
}

// Create backs up path unless it does not exist or a backup already does.
// It returns the backup path, or "" when nothing was written.
func Create(path string, c Compression) (string, error) {
	if _, _, ok := Find(path); ok {
		return "", nil
	}
	src, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", elixir.NewIOError("open", path, err)
	}
	defer src.Close()

	dst := PathFor(path, c)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", elixir.NewIOError("create", dst, err)
	}
	if err := compressTo(out, src, c); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", elixir.NewIOError("write", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", elixir.NewIOError("close", dst, err)
	}
	return dst, nil
}

// Restore replaces path with the content of its backup. The backup is kept.
func Restore(path string) (string, error) {
	bak, c, ok := Find(path)
	if !ok {
		return "", elixir.NewIOError("restore", path, os.ErrNotExist)
	}
	src, err := os.Open(bak)
	if err != nil {
		return "", elixir.NewIOError("open", bak, err)
	}
	defer src.Close()
	out, err := fsutil.Create(path, 0o644)
	if err != nil {
		return "", err
	}
	defer out.Abort()
	if err := decompressTo(out, src, c); err != nil {
		return "", elixir.NewIOError("restore", path, err)
	}
	if err := out.Commit(); err != nil {
		return "", err
	}
	return bak, nil
}

// compressTo copies r to w through compression c.
func compressTo(w io.Writer, r io.Reader, c Compression) error {
	switch c {
	case CompNone:
		_, err := io.Copy(w, r)
		return err
	case CompZSTD:
		enc, err := newZstdWriter(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, r); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	case CompLZ4:
		zw := lz4.NewWriter(w)
		if _, err := io.Copy(zw, r); err != nil {
			_ = lz4Close(zw)
			return err
		}
		return lz4Close(zw)
	case CompBR:
		bw := brotli.NewWriter(w)
		if _, err := io.Copy(bw, r); err != nil {
			_ = brotliClose(bw)
			return err
		}
		return brotliClose(bw)
	default:
		return fmt.Errorf("%w: unknown backup compression %q", elixir.ErrConfig, c)
	}
}

// decompressTo copies the decompressed content of r to w.
func decompressTo(w io.Writer, r io.Reader, c Compression) error {
	switch c {
	case CompNone:
		_, err := io.Copy(w, r)
		return err
	case CompZSTD:
		dec, err := newZstdReader(r)
		if err != nil {
			return err
		}
		defer dec.Close()
		_, err = io.Copy(w, dec)
		return err
	case CompLZ4:
		_, err := io.Copy(w, lz4.NewReader(r))
		return err
	case CompBR:
		_, err := io.Copy(w, brotli.NewReader(r))
		return err
	default:
		return fmt.Errorf("%w: unknown backup compression %q", elixir.ErrConfig, c)
	}
}
