package encode

import (
	"sync"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// FIFO is a bounded ring of 8-bit audio samples filled by the application
// side and drained by the PlayAudio encoder.
type FIFO struct {
	mu   sync.Mutex
	buf  []int8
	head int
	size int
}

func NewFIFO(capacity int) *FIFO {
	return &FIFO{buf: make([]int8, capacity)}
}

// Write appends as many samples as fit and returns how many were taken.
func (f *FIFO) Write(samples []int8) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(len(samples), len(f.buf)-f.size)
	for i := 0; i < n; i++ {
		f.buf[(f.head+f.size)%len(f.buf)] = samples[i]
		f.size++
	}
	return n
}

// Read pops one sample.
func (f *FIFO) Read() (int8, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.size == 0 {
		return 0, false
	}
	v := f.buf[f.head]
	f.head = (f.head + 1) % len(f.buf)
	f.size--
	return v, true
}

func (f *FIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *FIFO) Cap() int { return len(f.buf) }

// PlayAudio frequency-modulates the carrier with audio read from a FIFO at
// AudioRate. When the FIFO drops to half full it calls refill once, and again
// only after the FIFO was topped up above half.
type PlayAudio struct {
	fifo      *FIFO
	osc       Oscillator
	interval  int
	sub       int
	sample    int32
	deviation int32
	requested bool
	underruns uint32
	refill    func()
}

func NewPlayAudio(fifo *FIFO, audioRate, deviation float64, refill func()) *PlayAudio {
	if audioRate <= 0 {
		audioRate = 38_000
	}
	if deviation == 0 {
		deviation = 5000
	}
	interval := int(TransmitRate / audioRate)
	if interval < 1 {
		interval = 1
	}
	return &PlayAudio{
		fifo:      fifo,
		interval:  interval,
		deviation: int32(PhaseIncrement(deviation, TransmitRate) / 127),
		refill:    refill,
	}
}

// Underruns counts audio samples that were due while the FIFO was empty.
func (p *PlayAudio) Underruns() uint32 { return p.underruns }

func (p *PlayAudio) Execute(dst []buffer.ComplexInt8) {
	for i := range dst {
		if p.sub == 0 {
			v, ok := p.fifo.Read()
			if !ok {
				p.underruns++
			}
			p.sample = int32(v)
		}
		p.sub++
		if p.sub >= p.interval {
			p.sub = 0
		}
		dst[i] = p.osc.FM(p.sample * p.deviation)
	}
	half := p.fifo.Cap() / 2
	switch n := p.fifo.Len(); {
	case n <= half && !p.requested:
		p.requested = true
		if p.refill != nil {
			p.refill()
		}
	case n > half:
		p.requested = false
	}
}
