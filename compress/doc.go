// Package compress provides compression codecs for cold entries in the blackbox
// decoder's chunk cache.
//
// Decoded chunks (see the blackbox package) are cheap to decode but not free, and
// a long recording session can produce thousands of them per sub-log. The facade
// keeps a small hot window of recently-accessed chunks decoded as-is and, once a
// chunk falls out of that window, compresses its frame data instead of discarding
// it outright — a cache hit after eviction costs a decompression, not a full
// re-parse of the frame stream.
//
// # Supported algorithms
//
//   - None: no compression; cold entries are stored as-is (hot entries never go
//     through a codec)
//   - Zstd: best ratio, used for long-lived cold entries (github.com/klauspost/compress/zstd)
//   - S2: balanced ratio/speed (github.com/klauspost/compress/s2)
//   - LZ4: fastest decompression, used when cache churn is high (github.com/pierrec/lz4/v4)
//
// All codecs are safe for concurrent use.
package compress
