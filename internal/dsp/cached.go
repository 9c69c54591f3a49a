package dsp

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// Spectrum caches the window and FFT plan used for channel spectrum requests.
type Spectrum struct {
	mu        sync.Mutex
	window    []float64
	windowSum float64
	size      int
	fft       *fourier.CmplxFFT
}

func NewSpectrum(size int) *Spectrum {
	s := &Spectrum{}
	s.resize(size)
	return s
}

func (s *Spectrum) resize(size int) {
	s.size = size
	s.window = Hamming(size)
	s.windowSum = floats.Sum(s.window)
	s.fft = nil
	if size > 0 {
		s.fft = fourier.NewCmplxFFT(size)
	}
}

// Compute returns the dBFS spectrum of the first Size samples of channel.
// Shorter inputs fall back to an uncached transform of their own length.
func (s *Spectrum) Compute(channel []buffer.ComplexInt16) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(channel) < s.size || s.size == 0 {
		return SpectrumDB(channel)
	}
	coeffs := s.fft.Coefficients(nil, ApplyWindow(channel[:s.size], s.window))
	return toDB(coeffs, s.windowSum)
}

// UpdateSize recreates cached resources for a new FFT size.
func (s *Spectrum) UpdateSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resize(size)
}

// Size returns the current FFT size.
func (s *Spectrum) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}
