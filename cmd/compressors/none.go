package compressors

// NoneCompressor is a no-op compressor that returns data unchanged.
type NoneCompressor struct{}

// NewNoneCompressor creates a new no-op compressor.
func NewNoneCompressor() *NoneCompressor {
	return &NoneCompressor{}
}

// Compress returns the data unchanged.
func (c *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Extension returns an empty string (no compression extension).
func (c *NoneCompressor) Extension() string {
	return ""
}
