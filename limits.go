package elixir

// Limits bounds the work a single decode may do. Zero fields take the
// defaults.
type Limits struct {
	MaxEntries      uint32
	MaxDecodedSize  uint64 // absolute cap on the inflated envelope
	MaxInflateRatio uint64 // cap relative to the framed input length
	MaxEntrySize    uint64 // single payload accepted by Encode
}

func defaultLimits() Limits {
	return Limits{
		MaxEntries:      1 << 20,
		MaxDecodedSize:  1 << 32, // offsets are u32
		MaxInflateRatio: 1032,    // deflate's maximum expansion
		MaxEntrySize:    1<<32 - 1,
	}
}

// DefaultLimits returns the limits applied when none are configured.
func DefaultLimits() Limits { return defaultLimits() }

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxEntries == 0 {
		l.MaxEntries = d.MaxEntries
	}
	if l.MaxDecodedSize == 0 {
		l.MaxDecodedSize = d.MaxDecodedSize
	}
	if l.MaxInflateRatio == 0 {
		l.MaxInflateRatio = d.MaxInflateRatio
	}
	if l.MaxEntrySize == 0 || l.MaxEntrySize > d.MaxEntrySize {
		l.MaxEntrySize = d.MaxEntrySize
	}
	return l
}

// decodeBufferLimit is the largest buffer DecodeChunked may grow to for an
// input of framedLen bytes.
func (l Limits) decodeBufferLimit(framedLen int) uint64 {
	limit := l.MaxInflateRatio * uint64(framedLen)
	if limit < DefaultChunkSize {
		limit = DefaultChunkSize
	}
	if limit > l.MaxDecodedSize {
		limit = l.MaxDecodedSize
	}
	return limit
}
