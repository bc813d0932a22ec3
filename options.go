package elixir

import "github.com/klauspost/compress/zlib"

type readConfig struct {
	limits Limits
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	return cfg
}

type writeConfig struct {
	limits       Limits
	flags        uint32
	filenameSize *uint32
}

type WriteOption func(*writeConfig)

func WithWriteLimits(l Limits) WriteOption {
	return func(c *writeConfig) { c.limits = l }
}

// WithFlags sets the opaque header flags word.
func WithFlags(flags uint32) WriteOption {
	return func(c *writeConfig) { c.flags = flags }
}

// WithFilenameSize fixes the name field extension factor instead of deriving
// it from the longest name. Repacking with the factor of the decoded archive
// reproduces its table byte for byte.
func WithFilenameSize(n uint32) WriteOption {
	return func(c *writeConfig) { c.filenameSize = &n }
}

type chunkConfig struct {
	chunkSize int
	level     int
}

type ChunkOption func(*chunkConfig)

// WithChunkSize sets the uncompressed size of each frame. Values <= 0 select
// DefaultChunkSize.
func WithChunkSize(n int) ChunkOption {
	return func(c *chunkConfig) { c.chunkSize = n }
}

// WithCompressionLevel sets the zlib level used for every chunk.
func WithCompressionLevel(level int) ChunkOption {
	return func(c *chunkConfig) { c.level = level }
}

func newChunkConfig(opts []ChunkOption) chunkConfig {
	cfg := chunkConfig{chunkSize: DefaultChunkSize, level: zlib.DefaultCompression}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.chunkSize <= 0 {
		cfg.chunkSize = DefaultChunkSize
	}
	return cfg
}
