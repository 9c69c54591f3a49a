// Package buffer defines the sample buffer views passed between the DMA
// exchange, the DSP stages and the processing strategies.
package buffer

import "golang.org/x/exp/constraints"

// ComplexInt8 is one interleaved 8-bit IQ sample as moved by the front-end DMA.
type ComplexInt8 struct {
	I int8
	Q int8
}

// ComplexInt16 is one IQ sample after the first decimation stage.
type ComplexInt16 struct {
	I int16
	Q int16
}

// Buffer is a non-owning view over samples in a larger region. SamplingRate is
// metadata only.
type Buffer[T any] struct {
	Samples      []T
	SamplingRate uint32
}

// New wraps samples in a Buffer.
func New[T any](samples []T, samplingRate uint32) Buffer[T] {
	return Buffer[T]{Samples: samples, SamplingRate: samplingRate}
}

// Count returns the number of samples in the view.
func (b Buffer[T]) Count() int { return len(b.Samples) }

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SaturateInt16 narrows an accumulator to int16 with saturation.
func SaturateInt16[T constraints.Signed | constraints.Float](v T) int16 {
	return int16(Clamp(float64(v), -32768, 32767))
}

// SaturateInt8 narrows an accumulator to int8 with saturation.
func SaturateInt8[T constraints.Signed | constraints.Float](v T) int8 {
	return int8(Clamp(float64(v), -128, 127))
}
