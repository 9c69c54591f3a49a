package dsp

import (
	"errors"
	"fmt"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// ErrInvalidDecimation indicates a decimation factor the chain cannot build.
var ErrInvalidDecimation = errors.New("dsp: decimation factor must be 4, 8, 16 or 32")

// cic3Scale normalizes the 8-bit translate stage to roughly full int16 range.
const cic3Scale = 32

// TranslateFs4DecimateBy2CIC3 shifts the spectrum by -fs/4 and decimates by
// two with a non-recursive third-order CIC (taps 1,3,3,1). Input counts are
// expected to be multiples of four so the rotation stays phase-continuous.
type TranslateFs4DecimateBy2CIC3 struct {
	// last two rotated samples of the previous call
	x0, x1 [2]int32
}

// rotate multiplies sample k of a block by e^{-j*pi*k/2}.
func rotate(s buffer.ComplexInt8, k int) [2]int32 {
	i, q := int32(s.I), int32(s.Q)
	switch k & 3 {
	case 0:
		return [2]int32{i, q}
	case 1:
		return [2]int32{q, -i}
	case 2:
		return [2]int32{-i, -q}
	default:
		return [2]int32{-q, i}
	}
}

// Execute writes len(src)/2 samples into dst and returns the filled view.
func (d *TranslateFs4DecimateBy2CIC3) Execute(src buffer.Buffer[buffer.ComplexInt8], dst []buffer.ComplexInt16) buffer.Buffer[buffer.ComplexInt16] {
	n := len(src.Samples) / 2
	out := dst[:n]
	x0, x1 := d.x0, d.x1
	for k := 0; k+1 < len(src.Samples); k += 2 {
		x2 := rotate(src.Samples[k], k)
		x3 := rotate(src.Samples[k+1], k+1)
		out[k/2] = buffer.ComplexInt16{
			I: buffer.SaturateInt16(cic3Scale * (x0[0] + 3*x1[0] + 3*x2[0] + x3[0])),
			Q: buffer.SaturateInt16(cic3Scale * (x0[1] + 3*x1[1] + 3*x2[1] + x3[1])),
		}
		x0, x1 = x2, x3
	}
	d.x0, d.x1 = x0, x1
	return buffer.New(out, src.SamplingRate/2)
}

// Reset clears the filter history.
func (d *TranslateFs4DecimateBy2CIC3) Reset() { *d = TranslateFs4DecimateBy2CIC3{} }

// DecimateBy2CIC3 decimates 16-bit complex samples by two with taps 1,3,3,1
// and divides by the filter gain of 8.
type DecimateBy2CIC3 struct {
	iq0, iq1 buffer.ComplexInt16
}

func (d *DecimateBy2CIC3) Execute(src buffer.Buffer[buffer.ComplexInt16], dst []buffer.ComplexInt16) buffer.Buffer[buffer.ComplexInt16] {
	n := len(src.Samples) / 2
	out := dst[:n]
	t0, t1 := d.iq0, d.iq1
	for k := 0; k < n; k++ {
		t2 := src.Samples[2*k]
		t3 := src.Samples[2*k+1]
		i := int32(t0.I) + 3*int32(t1.I) + 3*int32(t2.I) + int32(t3.I)
		q := int32(t0.Q) + 3*int32(t1.Q) + 3*int32(t2.Q) + int32(t3.Q)
		out[k] = buffer.ComplexInt16{I: int16(i / 8), Q: int16(q / 8)}
		t0, t1 = t2, t3
	}
	d.iq0, d.iq1 = t0, t1
	return buffer.New(out, src.SamplingRate/2)
}

func (d *DecimateBy2CIC3) Reset() { *d = DecimateBy2CIC3{} }

// DecimationChain reduces the front-end rate by Factor. The first two halvings
// always run; each further doubling of Factor adds one CIC stage.
type DecimationChain struct {
	factor    int
	translate TranslateFs4DecimateBy2CIC3
	stages    []DecimateBy2CIC3
	scratch   [2][]buffer.ComplexInt16
}

// NewDecimationChain builds a chain for factor, with scratch sized for input
// buffers of up to capacity samples.
func NewDecimationChain(factor, capacity int) (*DecimationChain, error) {
	extra := 0
	switch factor {
	case 4:
	case 8:
		extra = 1
	case 16:
		extra = 2
	case 32:
		extra = 3
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDecimation, factor)
	}
	c := &DecimationChain{
		factor: factor,
		stages: make([]DecimateBy2CIC3, 1+extra),
	}
	c.scratch[0] = make([]buffer.ComplexInt16, capacity/2)
	c.scratch[1] = make([]buffer.ComplexInt16, capacity/4)
	return c, nil
}

// Factor returns the total decimation.
func (c *DecimationChain) Factor() int { return c.factor }

// Execute returns len(src)/Factor samples. The result aliases the chain's
// scratch and is valid until the next call.
func (c *DecimationChain) Execute(src buffer.Buffer[buffer.ComplexInt8]) buffer.Buffer[buffer.ComplexInt16] {
	if need := len(src.Samples) / 2; need > len(c.scratch[0]) {
		c.scratch[0] = make([]buffer.ComplexInt16, need)
		c.scratch[1] = make([]buffer.ComplexInt16, need/2)
	}
	out := c.translate.Execute(src, c.scratch[0])
	for i := range c.stages {
		// stages ping-pong between the two scratch buffers
		out = c.stages[i].Execute(out, c.scratch[(i+1)&1])
	}
	return out
}

// Reset clears every stage's history.
func (c *DecimationChain) Reset() {
	c.translate.Reset()
	for i := range c.stages {
		c.stages[i].Reset()
	}
}
