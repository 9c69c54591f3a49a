package encode

import "github.com/rjboer/GoBaseband/internal/buffer"

// AFSKConfig describes an audio FSK transmission such as an LCR frame.
type AFSKConfig struct {
	BaudRate  float64
	Mark      float64
	Space     float64
	Deviation float64
	Repeats   int
	Data      []byte
	Bits      int
}

// AFSK keys an audio tone between mark and space and FM modulates the
// carrier with it. After every pass over the data done receives the number
// of passes sent; the final pass is followed by an unmodulated carrier.
type AFSK struct {
	cfg           AFSKConfig
	bits          *BitSource
	osc           Oscillator
	samplesPerBit int
	left          int
	markStep      uint32
	spaceStep     uint32
	step          uint32
	aphase        uint32
	deviation     int32
	passes        int
	finished      bool
	done          DoneFunc
}

func NewAFSK(cfg AFSKConfig, done DoneFunc) *AFSK {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 1200
	}
	if cfg.Mark == 0 {
		cfg.Mark = 1200
	}
	if cfg.Space == 0 {
		cfg.Space = 2200
	}
	if cfg.Deviation == 0 {
		cfg.Deviation = 5000
	}
	if cfg.Repeats <= 0 {
		cfg.Repeats = 1
	}
	a := &AFSK{
		cfg:           cfg,
		bits:          NewBitSource(cfg.Data, cfg.Bits),
		samplesPerBit: max(1, int(TransmitRate/cfg.BaudRate)),
		markStep:      PhaseIncrement(cfg.Mark, TransmitRate),
		spaceStep:     PhaseIncrement(cfg.Space, TransmitRate),
		deviation:     int32(PhaseIncrement(cfg.Deviation, TransmitRate) / 127),
		done:          done,
	}
	a.finished = a.bits.Len() == 0
	return a
}

// Finished reports whether all repeats were sent.
func (a *AFSK) Finished() bool { return a.finished }

func (a *AFSK) Execute(dst []buffer.ComplexInt8) {
	for i := range dst {
		if a.finished {
			dst[i] = a.osc.FM(0)
			continue
		}
		if a.left == 0 {
			bit, ok := a.bits.Next()
			if !ok {
				a.passes++
				if a.done != nil {
					a.done(uint32(a.passes))
				}
				if a.passes >= a.cfg.Repeats {
					a.finished = true
					dst[i] = a.osc.FM(0)
					continue
				}
				a.bits.Rewind()
				bit, _ = a.bits.Next()
			}
			a.step = a.spaceStep
			if bit == 1 {
				a.step = a.markStep
			}
			a.left = a.samplesPerBit
		}
		a.left--
		a.aphase += a.step
		dst[i] = a.osc.FM(int32(Sin(a.aphase)) * a.deviation)
	}
}
