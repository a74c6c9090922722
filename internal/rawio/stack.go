// Package rawio decodes vendor RAW acquisition files into dense frame stacks.
//
// A RAW file is a headerless, frame-major, little-endian byte stream. Its
// shape (T, Y, X and optionally C) and sample type come from sidecar metadata;
// the decoder itself performs no interpretation beyond a byte-count check.
package rawio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DType identifies a fixed-width sample type.
type DType string

// Supported sample types. The names follow the descriptor vocabulary of the
// acquisition software.
const (
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// Size returns the width of one sample in bytes, or an error for an
// unrecognised type.
func (d DType) Size() (int, error) {
	switch d {
	case Uint8, Int8:
		return 1, nil
	case Uint16, Int16:
		return 2, nil
	case Uint32, Int32, Float32:
		return 4, nil
	case Float64:
		return 8, nil
	}
	return 0, fmt.Errorf("unsupported sample type %q", string(d))
}

// Stack is a dense, frame-major sample array. Shape is (T, Y, X) or
// (T, Y, X, C); Data holds the little-endian samples exactly as stored on
// disk and in the canonical container.
type Stack struct {
	Shape []int
	DType DType
	Data  []byte
}

// FrameCount returns the length of the time axis.
func (s *Stack) FrameCount() int {
	if len(s.Shape) == 0 {
		return 0
	}
	return s.Shape[0]
}

// SamplesPerFrame returns the number of samples in one frame.
func (s *Stack) SamplesPerFrame() int {
	n := 1
	for _, dim := range s.Shape[1:] {
		n *= dim
	}
	return n
}

// FrameBytes returns the byte length of one frame.
func (s *Stack) FrameBytes() (int, error) {
	size, err := s.DType.Size()
	if err != nil {
		return 0, err
	}
	return s.SamplesPerFrame() * size, nil
}

// Frame returns the raw bytes of frame i without copying.
func (s *Stack) Frame(i int) ([]byte, error) {
	if i < 0 || i >= s.FrameCount() {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", i, s.FrameCount())
	}
	n, err := s.FrameBytes()
	if err != nil {
		return nil, err
	}
	return s.Data[i*n : (i+1)*n], nil
}

// FrameFloat64 decodes frame i into float64 samples.
func (s *Stack) FrameFloat64(i int) ([]float64, error) {
	raw, err := s.Frame(i)
	if err != nil {
		return nil, err
	}
	return decodeSamples(raw, s.DType)
}

// Float64s decodes the whole stack into float64 samples in frame-major order.
func (s *Stack) Float64s() ([]float64, error) {
	return decodeSamples(s.Data, s.DType)
}

func decodeSamples(raw []byte, dtype DType) ([]float64, error) {
	size, err := dtype.Size()
	if err != nil {
		return nil, err
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("byte length %d is not a multiple of sample width %d", len(raw), size)
	}

	out := make([]float64, len(raw)/size)
	for i := range out {
		chunk := raw[i*size:]
		switch dtype {
		case Uint8:
			out[i] = float64(chunk[0])
		case Int8:
			out[i] = float64(int8(chunk[0]))
		case Uint16:
			out[i] = float64(binary.LittleEndian.Uint16(chunk))
		case Int16:
			out[i] = float64(int16(binary.LittleEndian.Uint16(chunk)))
		case Uint32:
			out[i] = float64(binary.LittleEndian.Uint32(chunk))
		case Int32:
			out[i] = float64(int32(binary.LittleEndian.Uint32(chunk)))
		case Float32:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		case Float64:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk))
		}
	}
	return out, nil
}

// QuantizeUint16 re-encodes float64 frames as a uint16 stack of the given
// shape, clamping to the uint16 range and truncating any fractional part.
func QuantizeUint16(frames [][]float64, shape []int) (*Stack, error) {
	if len(shape) == 0 || shape[0] != len(frames) {
		return nil, fmt.Errorf("shape %v does not match %d frames", shape, len(frames))
	}
	perFrame := 1
	for _, dim := range shape[1:] {
		perFrame *= dim
	}

	data := make([]byte, len(frames)*perFrame*2)
	for i, frame := range frames {
		if len(frame) != perFrame {
			return nil, fmt.Errorf("frame %d has %d samples, expected %d", i, len(frame), perFrame)
		}
		base := i * perFrame * 2
		for j, v := range frame {
			if v < 0 {
				v = 0
			} else if v > math.MaxUint16 {
				v = math.MaxUint16
			}
			binary.LittleEndian.PutUint16(data[base+j*2:], uint16(v))
		}
	}

	return &Stack{Shape: append([]int(nil), shape...), DType: Uint16, Data: data}, nil
}

// Float64Stack builds a one-dimensional float64 stack, used for timestamp
// series.
func Float64Stack(values []float64) *Stack {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return &Stack{Shape: []int{len(values)}, DType: Float64, Data: data}
}

// Float32Stack builds a float32 stack of the given shape, used for ΔF/F
// traces where float64 precision is not worth the container space.
func Float32Stack(values []float64, shape []int) (*Stack, error) {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	if n != len(values) {
		return nil, fmt.Errorf("shape %v does not match %d samples", shape, len(values))
	}
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	}
	return &Stack{Shape: append([]int(nil), shape...), DType: Float32, Data: data}, nil
}

// Int32Pairs builds a T-by-2 int32 stack, used for displacement series.
func Int32Pairs(pairs [][2]int) *Stack {
	data := make([]byte, len(pairs)*2*4)
	for i, pair := range pairs {
		binary.LittleEndian.PutUint32(data[i*8:], uint32(int32(pair[0])))
		binary.LittleEndian.PutUint32(data[i*8+4:], uint32(int32(pair[1])))
	}
	return &Stack{Shape: []int{len(pairs), 2}, DType: Int32, Data: data}
}
