package decode

import "fmt"

// ClockRecovery turns a continuous demodulated stream into hard decisions at
// the symbol rate. The fractional symbol phase is pulled toward each zero
// crossing; a decision is taken in the middle of every symbol.
type ClockRecovery struct {
	step float64
	gain float64
	mu   float64
	prev float32
}

// NewClockRecovery returns a recovery loop for symbolRate at sampleRate. With
// rates that Configure rejects the loop stays idle.
func NewClockRecovery(sampleRate, symbolRate float64) *ClockRecovery {
	c := &ClockRecovery{gain: 0.5}
	_ = c.Configure(sampleRate, symbolRate)
	return c
}

// ValidSymbolRate reports whether symbolRate can be recovered at sampleRate:
// at least two samples per symbol.
func ValidSymbolRate(sampleRate, symbolRate float64) bool {
	return sampleRate > 0 && symbolRate > 0 && symbolRate <= sampleRate/2
}

// Configure sets the rates and restarts the loop. Rates outside
// ValidSymbolRate leave the running loop untouched.
func (c *ClockRecovery) Configure(sampleRate, symbolRate float64) error {
	if !ValidSymbolRate(sampleRate, symbolRate) {
		return fmt.Errorf("%w: symbol rate %g at %g Hz", ErrInvalidConfig, symbolRate, sampleRate)
	}
	*c = ClockRecovery{gain: 0.5, step: symbolRate / sampleRate}
	return nil
}

// SamplesPerSymbol returns the nominal symbol length.
func (c *ClockRecovery) SamplesPerSymbol() float64 {
	if c.step == 0 {
		return 0
	}
	return 1 / c.step
}

func (c *ClockRecovery) Execute(samples []float32, emit func(bit uint8)) {
	if c.step == 0 {
		return
	}
	for _, x := range samples {
		if (x >= 0) != (c.prev >= 0) {
			// the crossing lies between prev and x; fraction of a sample back from x
			frac := 0.0
			if d := float64(c.prev - x); d != 0 {
				frac = float64(x) / d * -1
				if frac < 0 {
					frac = -frac
				}
			}
			phase := c.mu - frac*c.step
			if phase >= 0.5 {
				phase--
			}
			c.mu -= c.gain * phase
			if c.mu < 0 {
				c.mu++
			}
			if c.mu >= 1 {
				c.mu--
			}
		}
		before := c.mu
		c.mu += c.step
		if before < 0.5 && c.mu >= 0.5 {
			emit(Slice(x))
		}
		if c.mu >= 1 {
			c.mu--
		}
		c.prev = x
	}
}

// Slice is the hard decision: positive frequency deviation is a one.
func Slice(x float32) uint8 {
	if x > 0 {
		return 1
	}
	return 0
}
