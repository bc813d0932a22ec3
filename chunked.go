package elixir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Function variables for testing injection.
var (
	newZlibWriter = func(w io.Writer, level int) (*zlib.Writer, error) { return zlib.NewWriterLevel(w, level) }
	newZlibReader = func(r io.Reader) (io.ReadCloser, error) { return zlib.NewReader(r) }
	zlibClose     = func(zw *zlib.Writer) error { return zw.Close() }
)

var (
	errOutputTooSmall = errors.New("output buffer too small")
	errEmptyChunk     = errors.New("chunk inflates to nothing")
)

// CompressChunked returns payload wrapped in the chunked envelope.
func CompressChunked(payload []byte, opts ...ChunkOption) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(payload)/2 + 4)
	if err := EncodeChunked(&buf, payload, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeChunked writes payload to w as a sequence of frames, each a u32
// length followed by that many bytes of one independently zlib-compressed
// chunk, and terminates the stream with a zero length. An empty payload
// yields only the terminator.
func EncodeChunked(w io.Writer, payload []byte, opts ...ChunkOption) error {
	cfg := newChunkConfig(opts)
	d, err := newDeflater(cfg.level)
	if err != nil {
		return err
	}
	for off := 0; off < len(payload); off += cfg.chunkSize {
		z, err := d.compress(payload[off:min(off+cfg.chunkSize, len(payload))])
		if err != nil {
			return err
		}
		if uint64(len(z)) > math.MaxUint32 {
			return fmt.Errorf("%w: compressed chunk of %d bytes", ErrLimitExceeded, len(z))
		}
		if err := putU32(w, uint32(len(z))); err != nil {
			return err
		}
		if _, err := w.Write(z); err != nil {
			return err
		}
	}
	return putU32(w, 0)
}

// deflater is the compressor context of one EncodeChunked call. Its writer
// is reset for every chunk so no history crosses a chunk boundary.
type deflater struct {
	zw  *zlib.Writer
	buf bytes.Buffer
}

func newDeflater(level int) (*deflater, error) {
	d := &deflater{}
	zw, err := newZlibWriter(&d.buf, level)
	if err != nil {
		return nil, err
	}
	d.zw = zw
	return d, nil
}

func (d *deflater) compress(chunk []byte) ([]byte, error) {
	d.buf.Reset()
	d.zw.Reset(&d.buf)
	if _, err := d.zw.Write(chunk); err != nil {
		_ = zlibClose(d.zw)
		return nil, err
	}
	if err := zlibClose(d.zw); err != nil {
		return nil, err
	}
	return d.buf.Bytes(), nil
}

// DecodeChunked inflates a chunked envelope.
//
// Decompressed chunk sizes are not stored, so the output buffer starts at
// twice the framed length and doubles whenever a chunk does not fit, the
// chunk being inflated again after each growth. Growth stops at the limit
// derived from [Limits] (MaxInflateRatio times the input, capped by
// MaxDecodedSize) with ErrBufferLimitExceeded.
//
// A chunk that fails to inflate, fails its Adler-32 check, inflates to
// nothing, or is cut short returns a *ChunkError carrying the position of its
// length prefix.
func DecodeChunked(framed []byte, opts ...ReadOption) ([]byte, error) {
	cfg := newReadConfig(opts)
	limit := cfg.limits.decodeBufferLimit(len(framed))
	out := newGrowBuffer(max(2*len(framed), DefaultChunkSize), limit)

	var inf inflater
	defer inf.close()

	pos := 0
	for {
		if len(framed)-pos < 4 {
			return nil, &ChunkError{Offset: int64(pos), Err: io.ErrUnexpectedEOF}
		}
		size := binary.LittleEndian.Uint32(framed[pos:])
		if size == 0 {
			break
		}
		if uint64(len(framed)-pos-4) < uint64(size) {
			return nil, &ChunkError{Offset: int64(pos), Err: io.ErrUnexpectedEOF}
		}
		chunk := framed[pos+4 : pos+4+int(size)]
		for {
			n, err := inf.inflate(chunk, out.free())
			if errors.Is(err, errOutputTooSmall) {
				if err := out.grow(); err != nil {
					return nil, err
				}
				continue
			}
			if err != nil {
				return nil, &ChunkError{Offset: int64(pos), Err: err}
			}
			if n == 0 {
				return nil, &ChunkError{Offset: int64(pos), Err: errEmptyChunk}
			}
			out.commit(n)
			break
		}
		pos += 4 + int(size)
	}
	return out.bytes(), nil
}

// inflater reuses one zlib reader across the chunks of a stream.
type inflater struct {
	src bytes.Reader
	zr  io.ReadCloser
}

func (f *inflater) reset(chunk []byte) error {
	f.src.Reset(chunk)
	if f.zr == nil {
		zr, err := newZlibReader(&f.src)
		if err != nil {
			return err
		}
		f.zr = zr
		return nil
	}
	if rs, ok := f.zr.(zlib.Resetter); ok {
		return rs.Reset(&f.src, nil)
	}
	_ = f.zr.Close()
	zr, err := newZlibReader(&f.src)
	if err != nil {
		f.zr = nil
		return err
	}
	f.zr = zr
	return nil
}

// inflate decompresses chunk into dst. It returns errOutputTooSmall when the
// chunk holds more than len(dst) bytes. Success requires the stream to reach
// its end, which is where the Adler-32 trailer is verified.
func (f *inflater) inflate(chunk, dst []byte) (int, error) {
	if err := f.reset(chunk); err != nil {
		return 0, err
	}
	n := 0
	for n < len(dst) {
		m, err := f.zr.Read(dst[n:])
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	var probe [1]byte
	for {
		m, err := f.zr.Read(probe[:])
		if m > 0 {
			return n, errOutputTooSmall
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

func (f *inflater) close() {
	if f.zr != nil {
		_ = f.zr.Close()
	}
}
