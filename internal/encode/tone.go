package encode

import (
	"math/rand"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

const (
	toneSubsample = 10
	// toneStep advances the audio phase once per ten output samples (about 1.2 kHz).
	toneStep = 353205
	// toneDeviation converts the audio sample to a frequency word.
	toneDeviation = 500
)

// Tone frequency-modulates the carrier with a fixed audio tone.
type Tone struct {
	osc    Oscillator
	sub    int
	aphase uint32
	sample int32
}

func (t *Tone) Execute(dst []buffer.ComplexInt8) {
	for i := range dst {
		if t.sub >= toneSubsample-1 {
			t.sub = 0
			t.aphase += toneStep
			t.sample = int32(Sin(t.aphase))
		} else {
			t.sub++
		}
		dst[i] = t.osc.FM(t.sample * toneDeviation)
	}
}

// JammerType selects the jamming waveform of a range.
type JammerType int

const (
	JammerNoise JammerType = iota
	JammerTone
)

// JammerRange is one hop target. Width is the occupied bandwidth in Hz.
type JammerRange struct {
	Width float64
	Type  JammerType
}

// Jammer hops between ranges every HopSamples output samples, reporting the
// hop count through done.
type Jammer struct {
	ranges     []JammerRange
	hopSamples int
	left       int
	current    int
	hops       uint32
	tone       Tone
	noise      *rand.Rand
	osc        Oscillator
	done       DoneFunc
}

func NewJammer(ranges []JammerRange, hopSamples int, seed int64, done DoneFunc) *Jammer {
	if hopSamples <= 0 {
		hopSamples = TransmitRate / 10
	}
	return &Jammer{
		ranges:     ranges,
		hopSamples: hopSamples,
		left:       hopSamples,
		noise:      rand.New(rand.NewSource(seed)),
		done:       done,
	}
}

// Current returns the index of the active range.
func (j *Jammer) Current() int { return j.current }

func (j *Jammer) Execute(dst []buffer.ComplexInt8) {
	if len(j.ranges) == 0 {
		clear(dst)
		return
	}
	for i := range dst {
		if j.left == 0 {
			j.current = (j.current + 1) % len(j.ranges)
			j.left = j.hopSamples
			j.hops++
			if j.done != nil {
				j.done(j.hops)
			}
		}
		j.left--

		r := j.ranges[j.current]
		if r.Type == JammerTone {
			j.tone.Execute(dst[i : i+1])
			continue
		}
		span := int32(PhaseIncrement(r.Width/2, TransmitRate))
		var frq int32
		if span > 0 {
			frq = j.noise.Int31n(2*span) - span
		}
		dst[i] = j.osc.FM(frq)
	}
}
