package store

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
)

// Compression names a chunk compression algorithm.
type Compression string

// Supported chunk compression algorithms. Fast is a low-ratio,
// high-throughput codec; Deflate trades speed for ratio and accepts an
// aggression level between 0 and 9.
const (
	CompressionNone    Compression = "none"
	CompressionFast    Compression = "fast"
	CompressionDeflate Compression = "deflate"
)

// DefaultDeflateLevel is the deflate aggression used when none is configured.
const DefaultDeflateLevel = 4

// KnownCompressions lists the valid compression algorithm names.
var KnownCompressions = []string{
	string(CompressionNone),
	string(CompressionFast),
	string(CompressionDeflate),
}

// UnknownCompressionError reports a compression name outside the known set.
type UnknownCompressionError struct {
	Name  string
	Known []string
}

func (e *UnknownCompressionError) Error() string {
	return fmt.Sprintf(
		"unknown compression: '%s'. Valid compression algorithms are: %s",
		e.Name, strings.Join(e.Known, ", "),
	)
}

// ParseCompression parses a compression name case-insensitively.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case string(CompressionNone):
		return CompressionNone, nil
	case string(CompressionFast):
		return CompressionFast, nil
	case string(CompressionDeflate):
		return CompressionDeflate, nil
	}
	return "", &UnknownCompressionError{Name: name, Known: KnownCompressions}
}

func validateLevel(compression Compression, level int) error {
	if compression == CompressionDeflate && (level < 0 || level > 9) {
		return fmt.Errorf("deflate aggression level must be between 0 and 9, got %d", level)
	}
	return nil
}

// encodeChunk prepares one chunk for storage. The byte-shuffle pre-filter
// groups the i-th byte of every sample together, which compresses far better
// for imaging data; it is applied exactly when compression is on.
func encodeChunk(data []byte, itemSize int, compression Compression, level int) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionFast:
		shuffled, err := shuffleBytes(data, itemSize)
		if err != nil {
			return nil, err
		}
		return s2.Encode(nil, shuffled), nil
	case CompressionDeflate:
		shuffled, err := shuffleBytes(data, itemSize)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create deflate writer: %w", err)
		}
		if _, err := w.Write(shuffled); err != nil {
			return nil, fmt.Errorf("failed to deflate chunk: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish deflate chunk: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, &UnknownCompressionError{Name: string(compression), Known: KnownCompressions}
}

// decodeChunk reverses encodeChunk.
func decodeChunk(data []byte, itemSize int, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionFast:
		shuffled, err := s2.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode fast-compressed chunk: %w", err)
		}
		return unshuffleBytes(shuffled, itemSize)
	case CompressionDeflate:
		r := flate.NewReader(bytes.NewReader(data))
		shuffled, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to inflate chunk: %w", err)
		}
		if err := r.Close(); err != nil {
			return nil, fmt.Errorf("failed to close inflate reader: %w", err)
		}
		return unshuffleBytes(shuffled, itemSize)
	}
	return nil, &UnknownCompressionError{Name: string(compression), Known: KnownCompressions}
}

// shuffleBytes reorders sample bytes so all first bytes come before all
// second bytes and so on.
func shuffleBytes(data []byte, itemSize int) ([]byte, error) {
	if itemSize <= 0 || len(data)%itemSize != 0 {
		return nil, fmt.Errorf("cannot shuffle %d bytes with item size %d", len(data), itemSize)
	}
	if itemSize == 1 {
		return data, nil
	}

	samples := len(data) / itemSize
	out := make([]byte, len(data))
	for i := 0; i < samples; i++ {
		for k := 0; k < itemSize; k++ {
			out[k*samples+i] = data[i*itemSize+k]
		}
	}
	return out, nil
}

func unshuffleBytes(data []byte, itemSize int) ([]byte, error) {
	if itemSize <= 0 || len(data)%itemSize != 0 {
		return nil, fmt.Errorf("cannot unshuffle %d bytes with item size %d", len(data), itemSize)
	}
	if itemSize == 1 {
		return data, nil
	}

	samples := len(data) / itemSize
	out := make([]byte, len(data))
	for i := 0; i < samples; i++ {
		for k := 0; k < itemSize; k++ {
			out[i*itemSize+k] = data[k*samples+i]
		}
	}
	return out, nil
}
