package encode

import "github.com/rjboer/GoBaseband/internal/buffer"

// BeaconConfig describes a 2-FSK burst.
type BeaconConfig struct {
	BitRate    float64
	Deviation  float64
	Manchester bool
	Data       []byte
	Bits       int
}

// Radiosonde and TPMS defaults.
var (
	SondeBeacon = BeaconConfig{BitRate: 4800, Deviation: 2400}
	TPMSBeacon  = BeaconConfig{BitRate: 9600, Deviation: 38000, Manchester: true}
)

// Beacon shifts the carrier by plus or minus Deviation per bit. With
// Manchester set, each bit is sent as two half-bit chips: 1 as high then low,
// 0 as low then high. One burst is sent, then done receives the bit count.
type Beacon struct {
	bits        *BitSource
	osc         Oscillator
	chipSamples int
	manchester  bool
	left        int
	half        int
	bit         uint8
	frq         int32
	finished    bool
	done        DoneFunc
}

func NewBeacon(cfg BeaconConfig, done DoneFunc) *Beacon {
	if cfg.BitRate <= 0 {
		cfg.BitRate = SondeBeacon.BitRate
	}
	if cfg.Deviation == 0 {
		cfg.Deviation = SondeBeacon.Deviation
	}
	chipRate := cfg.BitRate
	if cfg.Manchester {
		chipRate *= 2
	}
	b := &Beacon{
		bits:        NewBitSource(cfg.Data, cfg.Bits),
		chipSamples: max(1, int(TransmitRate/chipRate)),
		manchester:  cfg.Manchester,
		frq:         int32(PhaseIncrement(cfg.Deviation, TransmitRate)),
		done:        done,
	}
	b.finished = b.bits.Len() == 0
	return b
}

// Finished reports whether the burst was sent.
func (b *Beacon) Finished() bool { return b.finished }

func (b *Beacon) chip() uint8 {
	if !b.manchester {
		return b.bit
	}
	if b.half == 0 {
		return b.bit
	}
	return b.bit ^ 1
}

func (b *Beacon) Execute(dst []buffer.ComplexInt8) {
	for i := range dst {
		if b.finished {
			dst[i] = b.osc.FM(0)
			continue
		}
		if b.left == 0 {
			if b.manchester && b.half == 0 && b.bits.Pos() > 0 {
				b.half = 1
			} else {
				bit, ok := b.bits.Next()
				if !ok {
					b.finished = true
					if b.done != nil {
						b.done(uint32(b.bits.Len()))
					}
					dst[i] = b.osc.FM(0)
					continue
				}
				b.bit = bit
				b.half = 0
			}
			b.left = b.chipSamples
		}
		b.left--
		if b.chip() == 1 {
			dst[i] = b.osc.FM(b.frq)
		} else {
			dst[i] = b.osc.FM(-b.frq)
		}
	}
}
