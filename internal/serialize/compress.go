package serialize

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the frame header every ZStandard stream starts with.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// MagicLen is the number of leading bytes IsCompressed inspects.
const MagicLen = 4

// IsCompressed reports whether prefix starts a ZStandard frame.
func IsCompressed(prefix []byte) bool {
	return len(prefix) >= MagicLen && bytes.Equal(prefix[:MagicLen], zstdMagic)
}

// Compressor handles ZStandard compression of whole buffers.
// Create once and reuse.
type Compressor struct {
	encoder *zstd.Encoder
}

// NewCompressor creates a reusable ZStandard compressor at SpeedDefault.
// Caller must call Close() when done.
func NewCompressor() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Compressor{encoder: encoder}, nil
}

// Compress compresses data. Safe for concurrent use.
func (c *Compressor) Compress(data []byte) []byte {
	if len(data) == 0 {
		return []byte{}
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// Close releases compressor resources.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}

// Decompressor handles ZStandard decompression of whole buffers.
type Decompressor struct {
	decoder *zstd.Decoder
}

// NewDecompressor creates a reusable ZStandard decompressor.
// Caller must call Close() when done.
func NewDecompressor() (*Decompressor, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Decompressor{decoder: decoder}, nil
}

// Decompress decompresses data. Safe for concurrent use.
func (d *Decompressor) Decompress(compressed []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}
	out, err := d.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

// Close releases decompressor resources.
func (d *Decompressor) Close() {
	if d.decoder != nil {
		d.decoder.Close()
	}
}

// NewWriter wraps w in a streaming ZStandard encoder.
// Closing the returned writer flushes the frame but does not close w.
func NewWriter(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return enc, nil
}

// NewReader wraps r in a streaming ZStandard decoder.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return dec.IOReadCloser(), nil
}

// MaybeDecompress returns a reader over the plain bytes of r, decoding
// ZStandard transparently when the stream starts with its magic number.
func MaybeDecompress(r io.Reader) (io.ReadCloser, error) {
	prefix := make([]byte, MagicLen)
	n, err := io.ReadFull(r, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read stream header: %w", err)
	}
	prefix = prefix[:n]
	full := io.MultiReader(bytes.NewReader(prefix), r)
	if !IsCompressed(prefix) {
		return io.NopCloser(full), nil
	}
	return NewReader(full)
}
