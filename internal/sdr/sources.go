package sdr

import (
	"math"
	"math/rand"
	"sync"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// ToneSource emits a single complex tone at Offset Hz from the tuned frequency.
type ToneSource struct {
	SampleRate float64
	Offset     float64
	Amplitude  float64
}

func (s ToneSource) Fill(dst []buffer.ComplexInt8, n int64) {
	step := 2 * math.Pi * s.Offset / s.SampleRate
	for i := range dst {
		phase := step * float64(n+int64(i))
		dst[i] = buffer.ComplexInt8{
			I: buffer.SaturateInt8(s.Amplitude * math.Cos(phase)),
			Q: buffer.SaturateInt8(s.Amplitude * math.Sin(phase)),
		}
	}
}

// NoiseSource emits gaussian noise with the given standard deviation.
type NoiseSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	StdDev float64
}

func NewNoiseSource(seed int64, stddev float64) *NoiseSource {
	return &NoiseSource{rng: rand.New(rand.NewSource(seed)), StdDev: stddev}
}

func (s *NoiseSource) Fill(dst []buffer.ComplexInt8, _ int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range dst {
		dst[i] = buffer.ComplexInt8{
			I: buffer.SaturateInt8(s.rng.NormFloat64() * s.StdDev),
			Q: buffer.SaturateInt8(s.rng.NormFloat64() * s.StdDev),
		}
	}
}

// FSKSource frequency-modulates a bit sequence around Carrier Hz. Once the
// bits are exhausted it keeps sending alternating idle bits.
type FSKSource struct {
	SampleRate float64
	Carrier    float64
	Deviation  float64
	BitRate    float64
	Amplitude  float64

	mu    sync.Mutex
	bits  []uint8
	phase float64
	at    int64
}

func NewFSKSource(sampleRate, carrier, deviation, bitRate, amplitude float64, bits []uint8) *FSKSource {
	return &FSKSource{
		SampleRate: sampleRate,
		Carrier:    carrier,
		Deviation:  deviation,
		BitRate:    bitRate,
		Amplitude:  amplitude,
		bits:       bits,
		at:         -1,
	}
}

func (s *FSKSource) bitAt(i int64) uint8 {
	if i < int64(len(s.bits)) {
		return s.bits[i] & 1
	}
	return uint8(i & 1)
}

func (s *FSKSource) Fill(dst []buffer.ComplexInt8, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n != s.at+1 {
		s.phase = 0
	}
	samplesPerBit := s.SampleRate / s.BitRate
	for i := range dst {
		idx := n + int64(i)
		freq := s.Carrier - s.Deviation
		if s.bitAt(int64(float64(idx)/samplesPerBit)) == 1 {
			freq = s.Carrier + s.Deviation
		}
		s.phase += 2 * math.Pi * freq / s.SampleRate
		if s.phase > math.Pi {
			s.phase -= 2 * math.Pi
		}
		dst[i] = buffer.ComplexInt8{
			I: buffer.SaturateInt8(s.Amplitude * math.Cos(s.phase)),
			Q: buffer.SaturateInt8(s.Amplitude * math.Sin(s.phase)),
		}
	}
	s.at = n + int64(len(dst)) - 1
}

// BitsFromUint expands the low width bits of v, most significant first.
func BitsFromUint(v uint64, width int) []uint8 {
	out := make([]uint8, width)
	for i := 0; i < width; i++ {
		out[i] = uint8(v>>(width-1-i)) & 1
	}
	return out
}

// CaptureSink records transmitted samples, keeping at most Limit of them.
type CaptureSink struct {
	mu      sync.Mutex
	Limit   int
	samples []buffer.ComplexInt8
	total   int64
}

func (s *CaptureSink) Consume(src []buffer.ComplexInt8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total += int64(len(src))
	room := len(src)
	if s.Limit > 0 {
		room = min(room, s.Limit-len(s.samples))
	}
	if room > 0 {
		s.samples = append(s.samples, src[:room]...)
	}
}

// Samples returns a copy of the recorded samples.
func (s *CaptureSink) Samples() []buffer.ComplexInt8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]buffer.ComplexInt8, len(s.samples))
	copy(out, s.samples)
	return out
}

// Total returns the number of samples consumed, recorded or not.
func (s *CaptureSink) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
