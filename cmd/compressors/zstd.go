package compressors

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor handles Zstandard compression.
type ZstdCompressor struct {
	level int
}

// NewZstdCompressor creates a Zstandard compressor. Level 0 means default.
func NewZstdCompressor(level int) *ZstdCompressor {
	return &ZstdCompressor{level: level}
}

// Compress compresses data using Zstandard.
func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer

	encoderLevel := zstd.SpeedDefault
	switch {
	case c.level >= 8:
		encoderLevel = zstd.SpeedBestCompression
	case c.level >= 4:
		encoderLevel = zstd.SpeedBetterCompression
	case c.level == 1:
		encoderLevel = zstd.SpeedFastest
	}

	encoder, err := zstd.NewWriter(&buffer, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd encoder: %w", err)
	}

	return buffer.Bytes(), nil
}

// Extension returns the file extension for Zstandard compression.
func (c *ZstdCompressor) Extension() string {
	return ".zst"
}
