package dsp

import (
	"math"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// fullScale16 maps 16-bit channel samples onto [-1, 1).
const fullScale16 = 32768.0

// AM is an envelope detector.
type AM struct{}

// Execute writes |iq| for every channel sample, normalized to full scale.
func (AM) Execute(channel buffer.Buffer[buffer.ComplexInt16], dst []float32) buffer.Buffer[float32] {
	out := dst[:len(channel.Samples)]
	for i, s := range channel.Samples {
		out[i] = float32(math.Hypot(float64(s.I), float64(s.Q)) / fullScale16)
	}
	return buffer.New(out, channel.SamplingRate)
}

// FM is a phase-difference discriminator. Output 1.0 corresponds to a
// frequency offset of Deviation Hz.
type FM struct {
	k    float64
	prev complex128
}

func NewFM(sampleRate, deviation float64) *FM {
	f := &FM{}
	f.Configure(sampleRate, deviation)
	return f
}

func (f *FM) Configure(sampleRate, deviation float64) {
	f.k = sampleRate / (2 * math.Pi * deviation)
}

func (f *FM) Execute(channel buffer.Buffer[buffer.ComplexInt16], dst []float32) buffer.Buffer[float32] {
	out := dst[:len(channel.Samples)]
	prev := f.prev
	for i, s := range channel.Samples {
		cur := complex(float64(s.I), float64(s.Q))
		p := cur * complex(real(prev), -imag(prev))
		if p == 0 {
			out[i] = 0
		} else {
			out[i] = float32(math.Atan2(imag(p), real(p)) * f.k)
		}
		prev = cur
	}
	f.prev = prev
	return buffer.New(out, channel.SamplingRate)
}
