// Package compressors compresses rendered report artifacts before they are
// written to disk or published to object storage.
package compressors

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCompression is returned when an unsupported compression type is requested
var ErrUnsupportedCompression = errors.New("unsupported compression type")

// Compressor compresses one report artifact.
type Compressor interface {
	// Compress compresses the rendered artifact bytes.
	Compress(data []byte) ([]byte, error)

	// Extension returns the suffix appended to the artifact name
	// (e.g., ".zst", ".gz"), empty for no compression.
	Extension() string
}

// GetCompressor returns the compressor for a compression type. Level 0
// selects each codec's default.
func GetCompressor(compression string, level int) (Compressor, error) {
	switch compression {
	case "zstd":
		return NewZstdCompressor(level), nil
	case "lz4":
		return NewLZ4Compressor(level), nil
	case "gzip":
		return NewGzipCompressor(level), nil
	case "none":
		return NewNoneCompressor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, compression)
	}
}
