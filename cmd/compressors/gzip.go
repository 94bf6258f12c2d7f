package compressors

import (
	"bytes"
	"compress/gzip"
	"fmt"
)

// GzipCompressor handles Gzip compression.
type GzipCompressor struct {
	level int
}

// NewGzipCompressor creates a Gzip compressor. Levels outside 1-9 fall back
// to the codec default.
func NewGzipCompressor(level int) *GzipCompressor {
	if level < 1 || level > 9 {
		level = gzip.DefaultCompression
	}
	return &GzipCompressor{level: level}
}

// Compress compresses data using Gzip.
func (c *GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buffer, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buffer.Bytes(), nil
}

// Extension returns the file extension for Gzip compression.
func (c *GzipCompressor) Extension() string {
	return ".gz"
}
