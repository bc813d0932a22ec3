package elixir

import "fmt"

// growBuffer is the output buffer of DecodeChunked. Chunks are inflated into
// the free tail; when a chunk does not fit, the buffer doubles (up to limit)
// and the chunk is inflated again from the start.
type growBuffer struct {
	buf   []byte
	n     int
	limit uint64
}

func newGrowBuffer(initial int, limit uint64) *growBuffer {
	if uint64(initial) > limit {
		initial = int(limit)
	}
	return &growBuffer{buf: make([]byte, initial), limit: limit}
}

func (b *growBuffer) free() []byte { return b.buf[b.n:] }

func (b *growBuffer) commit(n int) { b.n += n }

func (b *growBuffer) grow() error {
	size := uint64(len(b.buf))
	if size >= b.limit {
		return fmt.Errorf("%w: %d bytes", ErrBufferLimitExceeded, b.limit)
	}
	next := size * 2
	if next == 0 {
		next = DefaultChunkSize
	}
	next = min(next, b.limit)
	nb := make([]byte, next)
	copy(nb, b.buf[:b.n])
	b.buf = nb
	return nil
}

func (b *growBuffer) bytes() []byte { return b.buf[:b.n] }
