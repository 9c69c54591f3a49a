package dsp

import (
	"errors"
	"testing"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// quarterRateTone returns n samples of a tone at +fs/4, which the first stage
// moves to DC.
func quarterRateTone(n int, amp int8) []buffer.ComplexInt8 {
	seq := []buffer.ComplexInt8{{I: amp}, {Q: amp}, {I: -amp}, {Q: -amp}}
	out := make([]buffer.ComplexInt8, n)
	for i := range out {
		out[i] = seq[i&3]
	}
	return out
}

func TestDecimationChainRatio(t *testing.T) {
	const fs = 3_072_000
	for _, factor := range []int{4, 8, 16, 32} {
		chain, err := NewDecimationChain(factor, 2048)
		if err != nil {
			t.Fatalf("factor %d: %v", factor, err)
		}
		out := chain.Execute(buffer.New(quarterRateTone(2048, 100), fs))
		if out.Count() != 2048/factor {
			t.Fatalf("factor %d: expected %d samples got %d", factor, 2048/factor, out.Count())
		}
		if out.SamplingRate != uint32(fs/factor) {
			t.Fatalf("factor %d: expected rate %d got %d", factor, fs/factor, out.SamplingRate)
		}
	}
}

func TestDecimationChainRejectsFactor(t *testing.T) {
	for _, factor := range []int{0, 2, 6, 64} {
		if _, err := NewDecimationChain(factor, 2048); !errors.Is(err, ErrInvalidDecimation) {
			t.Fatalf("factor %d: expected ErrInvalidDecimation got %v", factor, err)
		}
	}
}

func TestTranslateMovesQuarterRateToDC(t *testing.T) {
	var stage TranslateFs4DecimateBy2CIC3
	dst := make([]buffer.ComplexInt16, 32)
	out := stage.Execute(buffer.New(quarterRateTone(64, 100), 3_072_000), dst)
	// gain: 8 from the taps times the scale of 32
	for i, s := range out.Samples[1:] {
		if s.I != 25600 || s.Q != 0 {
			t.Fatalf("sample %d: expected (25600,0) got %+v", i+1, s)
		}
	}
	if out.Samples[0].I != 12800 {
		t.Fatalf("first sample should only see half the taps, got %d", out.Samples[0].I)
	}

	// history makes the next call continuous
	out = stage.Execute(buffer.New(quarterRateTone(64, 100), 3_072_000), dst)
	if out.Samples[0].I != 25600 {
		t.Fatalf("expected continuous output across calls, got %d", out.Samples[0].I)
	}
}

func TestDecimateBy2CIC3UnityGain(t *testing.T) {
	var stage DecimateBy2CIC3
	src := make([]buffer.ComplexInt16, 16)
	for i := range src {
		src[i] = buffer.ComplexInt16{I: 800, Q: -400}
	}
	dst := make([]buffer.ComplexInt16, 8)
	out := stage.Execute(buffer.New(src, 96_000), dst)
	if out.SamplingRate != 48_000 {
		t.Fatalf("unexpected rate %d", out.SamplingRate)
	}
	last := out.Samples[len(out.Samples)-1]
	if last.I != 800 || last.Q != -400 {
		t.Fatalf("expected unity gain, got %+v", last)
	}
}

func TestDecimationChainSteadyState(t *testing.T) {
	chain, err := NewDecimationChain(32, 2048)
	if err != nil {
		t.Fatal(err)
	}
	var out buffer.Buffer[buffer.ComplexInt16]
	for i := 0; i < 3; i++ {
		out = chain.Execute(buffer.New(quarterRateTone(2048, 100), 3_072_000))
	}
	last := out.Samples[len(out.Samples)-1]
	if last.I != 25600 || last.Q != 0 {
		t.Fatalf("expected steady DC of 25600, got %+v", last)
	}
}
