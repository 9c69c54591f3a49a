// Package encode synthesizes transmit baseband. Every encoder walks the output
// buffer one sample at a time, advancing a sub-sample counter and a bit
// pointer, and feeds a frequency word into a shared sine-table oscillator.
package encode

import (
	"math"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// TransmitRate is the front-end rate the encoder constants are scaled for.
const TransmitRate = 2_280_000

// phaseBits is the number of significant phase bits: the table index is taken
// from bits 16..25 of the accumulator.
const phaseBits = 26

// quadrature advances the table index by a quarter turn.
const quadrature = 256 << 16

var sineTable = func() [1024]int8 {
	var t [1024]int8
	for i := range t {
		t[i] = int8(math.Round(127 * math.Sin(2*math.Pi*float64(i)/1024)))
	}
	return t
}()

// Sin looks up the table entry for a phase accumulator value.
func Sin(phase uint32) int8 { return sineTable[(phase>>16)&0x3FF] }

// PhaseIncrement returns the accumulator step for freq Hz at rate.
func PhaseIncrement(freq, rate float64) uint32 {
	return uint32(math.Round(freq * float64(uint64(1)<<phaseBits) / rate))
}

// Oscillator is the quadrature output stage shared by all encoders.
type Oscillator struct {
	phase uint32
}

// FM advances the carrier phase by frq and returns one IQ sample.
func (o *Oscillator) FM(frq int32) buffer.ComplexInt8 {
	o.phase += uint32(frq)
	return buffer.ComplexInt8{I: Sin(o.phase + quadrature), Q: Sin(o.phase)}
}

// Phase returns the accumulator.
func (o *Oscillator) Phase() uint32 { return o.phase }

// BitSource reads bits most significant first from a byte array, one per call.
type BitSource struct {
	data []byte
	bits int
	pos  int
}

// NewBitSource exposes the first n bits of data; n <= 0 means all of them.
func NewBitSource(data []byte, n int) *BitSource {
	if n <= 0 || n > len(data)*8 {
		n = len(data) * 8
	}
	return &BitSource{data: data, bits: n}
}

// Next returns the next bit, or false when exhausted.
func (s *BitSource) Next() (uint8, bool) {
	if s.pos >= s.bits {
		return 0, false
	}
	b := s.data[s.pos/8] >> (7 - uint(s.pos%8)) & 1
	s.pos++
	return b, true
}

// Rewind restarts from the first bit.
func (s *BitSource) Rewind() { s.pos = 0 }

// Len returns the number of bits.
func (s *BitSource) Len() int { return s.bits }

// Pos returns the index of the next bit.
func (s *BitSource) Pos() int { return s.pos }

// Encoder fills a transmit buffer.
type Encoder interface {
	Execute(dst []buffer.ComplexInt8)
}

// DoneFunc receives TX progress. Encoders call it from Execute.
type DoneFunc func(progress uint32)
