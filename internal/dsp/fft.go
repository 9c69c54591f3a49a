package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// floorDB is reported for empty bins instead of -Inf.
const floorDB = -150.0

// FFTShift returns the FFT output shifted so that DC is centered.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	shifted := make([]complex128, 0, n)
	shifted = append(shifted, data[half:]...)
	return append(shifted, data[:half]...)
}

// SpectrumDB windows the channel samples, transforms them and returns the
// DC-centered power spectrum in dBFS.
func SpectrumDB(samples []buffer.ComplexInt16) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}
	win := Hamming(len(samples))
	coeffs := fourier.NewCmplxFFT(len(samples)).Coefficients(nil, ApplyWindow(samples, win))
	return toDB(coeffs, floats.Sum(win))
}

func toDB(coeffs []complex128, windowSum float64) []float64 {
	shifted := FFTShift(coeffs)
	db := make([]float64, len(shifted))
	for i, v := range shifted {
		mag := cmplx.Abs(v) / windowSum
		if mag == 0 {
			db[i] = floorDB
			continue
		}
		db[i] = math.Max(20*math.Log10(mag), floorDB)
	}
	return db
}

// PeakBin returns the index and level of the strongest bin.
func PeakBin(db []float64) (int, float64) {
	if len(db) == 0 {
		return -1, floorDB
	}
	idx := floats.MaxIdx(db)
	return idx, db[idx]
}
