package dsp

import (
	"math"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// DCBlock removes the carrier offset from detected AM audio.
type DCBlock struct {
	x1, y1 float32
	R      float32
}

func (d *DCBlock) ExecuteInPlace(audio buffer.Buffer[float32]) {
	r := d.R
	if r == 0 {
		r = 0.995
	}
	for i, x := range audio.Samples {
		y := x - d.x1 + r*d.y1
		d.x1, d.y1 = x, y
		audio.Samples[i] = y
	}
}

// Deemphasis is a single-pole low-pass with time constant Tau seconds.
type Deemphasis struct {
	alpha float32
	y     float32
}

func NewDeemphasis(sampleRate, tau float64) *Deemphasis {
	return &Deemphasis{alpha: float32(1 - math.Exp(-1/(sampleRate*tau)))}
}

func (d *Deemphasis) ExecuteInPlace(audio buffer.Buffer[float32]) {
	for i, x := range audio.Samples {
		d.y += d.alpha * (x - d.y)
		audio.Samples[i] = d.y
	}
}

// Squelch opens when the high-passed noise energy of a buffer stays below
// Threshold. History keeps the last 64 buffer decisions; audio is muted only
// when none of them saw a signal.
type Squelch struct {
	Threshold float32
	history   uint64
	prev      float32
}

// Execute reports whether audio carries a signal and updates the history.
func (s *Squelch) Execute(audio buffer.Buffer[float32]) bool {
	if len(audio.Samples) == 0 {
		return s.history != 0
	}
	var noise float64
	prev := s.prev
	for _, x := range audio.Samples {
		d := float64(x - prev)
		noise += d * d
		prev = x
	}
	s.prev = prev
	noise /= float64(len(audio.Samples))
	open := s.Threshold <= 0 || noise < float64(s.Threshold)
	s.history <<= 1
	if open {
		s.history |= 1
	}
	return open
}

// Open reports whether any of the last 64 decisions saw a signal.
func (s *Squelch) Open() bool { return s.history != 0 }

// Normalizer slices audio to -1, 0, +1 around a decaying min/max center with a
// 10% dead zone.
type Normalizer struct {
	DecayInterval int
	counter       int
	min, max      float32
	lo, hi        float32
}

func (n *Normalizer) thresholds() {
	center := (n.max + n.min) / 2
	band := (n.max - n.min) / 2 * 0.1
	n.hi = center + band
	n.lo = center - band
}

func (n *Normalizer) ExecuteInPlace(audio buffer.Buffer[float32]) {
	interval := n.DecayInterval
	if interval <= 0 {
		interval = int(audio.SamplingRate)
	}
	if n.counter >= interval {
		n.max *= 0.9
		n.min *= 0.9
		n.counter = 0
		n.thresholds()
	}
	n.counter += len(audio.Samples)
	for i, v := range audio.Samples {
		if v > n.max {
			n.max = v
			n.thresholds()
		}
		if v < n.min {
			n.min = v
			n.thresholds()
		}
		switch {
		case v >= n.hi:
			audio.Samples[i] = 1
		case v <= n.lo:
			audio.Samples[i] = -1
		default:
			audio.Samples[i] = 0
		}
	}
}
