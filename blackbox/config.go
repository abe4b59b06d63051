package blackbox

import (
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/internal/options"
)

// config holds the facade's tunables, populated by Option values before a
// Log is constructed.
type config struct {
	chunkCacheHotSize int
	chunkCacheCodec   format.CompressionType
}

func defaultConfig() *config {
	return &config{
		chunkCacheHotSize: 8,
		chunkCacheCodec:   format.CompressionZstd,
	}
}

// Option configures a Log at Open time.
type Option = options.Option[*config]

// WithChunkCacheHotSize sets how many decoded chunks the facade keeps
// uncompressed at once. Chunks evicted from this window are kept
// compressed rather than discarded; see the cache package.
func WithChunkCacheHotSize(n int) Option {
	return options.NoError[*config](func(c *config) {
		if n > 0 {
			c.chunkCacheHotSize = n
		}
	})
}

// WithChunkCacheCodec selects the compression algorithm used for chunks
// outside the hot window.
func WithChunkCacheCodec(t format.CompressionType) Option {
	return options.NoError[*config](func(c *config) {
		c.chunkCacheCodec = t
	})
}
