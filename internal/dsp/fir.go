package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// DesignLowPass returns a Hamming-windowed sinc low-pass with unity DC gain.
// cutoff is in Hz at sampleRate.
func DesignLowPass(numTaps int, cutoff, sampleRate float64) []float64 {
	if numTaps <= 0 {
		return []float64{}
	}
	win := Hamming(numTaps)
	fc := cutoff / sampleRate
	mid := float64(numTaps-1) / 2
	taps := make([]float64, numTaps)
	for i := range taps {
		x := float64(i) - mid
		if x == 0 {
			taps[i] = 2 * fc
		} else {
			taps[i] = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
		taps[i] *= win[i]
	}
	if sum := floats.Sum(taps); sum != 0 {
		floats.Scale(1/sum, taps)
	}
	return taps
}

// FIRDecimateComplex filters 16-bit complex samples with real taps and keeps
// every Decimation-th output. Delay line state carries across calls.
type FIRDecimateComplex struct {
	taps       []float64
	decimation int
	delayI     []float64
	delayQ     []float64
	pos        int
	phase      int
}

func NewFIRDecimateComplex(taps []float64, decimation int) *FIRDecimateComplex {
	if decimation < 1 {
		decimation = 1
	}
	if len(taps) == 0 {
		taps = []float64{1}
	}
	return &FIRDecimateComplex{
		taps:       taps,
		decimation: decimation,
		delayI:     make([]float64, len(taps)),
		delayQ:     make([]float64, len(taps)),
	}
}

func (f *FIRDecimateComplex) Execute(src buffer.Buffer[buffer.ComplexInt16], dst []buffer.ComplexInt16) buffer.Buffer[buffer.ComplexInt16] {
	n := 0
	ntaps := len(f.taps)
	for _, s := range src.Samples {
		f.delayI[f.pos] = float64(s.I)
		f.delayQ[f.pos] = float64(s.Q)
		f.pos = (f.pos + 1) % ntaps
		f.phase++
		if f.phase < f.decimation {
			continue
		}
		f.phase = 0
		var accI, accQ float64
		idx := f.pos
		for _, t := range f.taps {
			accI += t * f.delayI[idx]
			accQ += t * f.delayQ[idx]
			idx++
			if idx == ntaps {
				idx = 0
			}
		}
		dst[n] = buffer.ComplexInt16{I: buffer.SaturateInt16(accI), Q: buffer.SaturateInt16(accQ)}
		n++
	}
	return buffer.New(dst[:n], src.SamplingRate/uint32(f.decimation))
}

// FIRDecimateReal is the real-valued counterpart used on demodulated audio.
type FIRDecimateReal struct {
	taps       []float64
	decimation int
	delay      []float64
	pos        int
	phase      int
}

func NewFIRDecimateReal(taps []float64, decimation int) *FIRDecimateReal {
	if decimation < 1 {
		decimation = 1
	}
	if len(taps) == 0 {
		taps = []float64{1}
	}
	return &FIRDecimateReal{taps: taps, decimation: decimation, delay: make([]float64, len(taps))}
}

func (f *FIRDecimateReal) Execute(src buffer.Buffer[float32], dst []float32) buffer.Buffer[float32] {
	n := 0
	ntaps := len(f.taps)
	for _, s := range src.Samples {
		f.delay[f.pos] = float64(s)
		f.pos = (f.pos + 1) % ntaps
		f.phase++
		if f.phase < f.decimation {
			continue
		}
		f.phase = 0
		var acc float64
		idx := f.pos
		for _, t := range f.taps {
			acc += t * f.delay[idx]
			idx++
			if idx == ntaps {
				idx = 0
			}
		}
		dst[n] = float32(acc)
		n++
	}
	return buffer.New(dst[:n], src.SamplingRate/uint32(f.decimation))
}

// ExecuteInPlace filters audio without decimating.
func (f *FIRDecimateReal) ExecuteInPlace(audio buffer.Buffer[float32]) {
	saved := f.decimation
	f.decimation = 1
	f.Execute(audio, audio.Samples)
	f.decimation = saved
}
