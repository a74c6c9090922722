package rawio

import (
	"fmt"
	"os"
)

// DecodeStack reads the RAW file at path as a dense stack of the declared
// shape and sample type. The file must contain exactly
// product(shape) * sizeof(dtype) bytes; a short or oversized file is a decode
// failure.
func DecodeStack(path string, shape []int, dtype DType) (*Stack, error) {
	size, err := dtype.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}

	expected := size
	for _, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("failed to decode %q: invalid dimension %d in shape %v", path, dim, shape)
		}
		expected *= dim
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	if len(data) != expected {
		return nil, fmt.Errorf(
			"failed to decode %q: file holds %d bytes but shape %v with type %s requires %d",
			path, len(data), shape, dtype, expected,
		)
	}

	return &Stack{Shape: append([]int(nil), shape...), DType: dtype, Data: data}, nil
}
