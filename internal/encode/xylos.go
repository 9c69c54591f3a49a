package encode

import (
	"fmt"
	"strings"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// ccir1 maps sequence symbols to CCIR-1 tone frequencies. E is the repeat tone.
var ccir1 = map[byte]float64{
	'0': 1981, '1': 1124, '2': 1197, '3': 1275, '4': 1358,
	'5': 1446, '6': 1540, '7': 1640, '8': 1747, '9': 1860,
	'A': 2400, 'B': 930, 'C': 2247, 'D': 991, 'E': 2110,
}

// CCIRTones converts a digit sequence to tone frequencies, replacing a digit
// equal to its predecessor with the repeat tone.
func CCIRTones(seq string) ([]float64, error) {
	seq = strings.ToUpper(seq)
	out := make([]float64, 0, len(seq))
	for i := 0; i < len(seq); i++ {
		c := seq[i]
		if i > 0 && c == seq[i-1] && c != 'E' {
			c = 'E'
		}
		f, ok := ccir1[c]
		if !ok {
			return nil, fmt.Errorf("encode: %q is not a CCIR-1 symbol", seq[i])
		}
		out = append(out, f)
	}
	return out, nil
}

// Xylos sends a CCIR-1 tone sequence, each tone lasting ToneSamples output
// samples, then reports completion and falls silent.
type Xylos struct {
	tones       []float64
	toneSamples int
	index       int
	left        int
	step        uint32
	aphase      uint32
	deviation   int32
	osc         Oscillator
	finished    bool
	done        DoneFunc
}

func NewXylos(tones []float64, toneSamples int, deviation float64, done DoneFunc) *Xylos {
	if toneSamples <= 0 {
		toneSamples = TransmitRate / 10
	}
	if deviation == 0 {
		deviation = 3000
	}
	return &Xylos{
		tones:       tones,
		toneSamples: toneSamples,
		deviation:   int32(PhaseIncrement(deviation, TransmitRate) / 127),
		finished:    len(tones) == 0,
		done:        done,
	}
}

// Finished reports whether the whole sequence was sent.
func (x *Xylos) Finished() bool { return x.finished }

func (x *Xylos) Execute(dst []buffer.ComplexInt8) {
	for i := range dst {
		if x.finished {
			dst[i] = x.osc.FM(0)
			continue
		}
		if x.left == 0 {
			if x.index >= len(x.tones) {
				x.finished = true
				if x.done != nil {
					x.done(uint32(x.index))
				}
				dst[i] = x.osc.FM(0)
				continue
			}
			x.step = PhaseIncrement(x.tones[x.index], TransmitRate)
			x.index++
			x.left = x.toneSamples
		}
		x.left--
		x.aphase += x.step
		dst[i] = x.osc.FM(int32(Sin(x.aphase)) * x.deviation)
	}
}
