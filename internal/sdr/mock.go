package sdr

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/dma"
)

// MockFrontEnd synthesizes receive samples into the DMA region and records
// transmitted samples, walking the descriptor chain like the SGPIO engine.
type MockFrontEnd struct {
	mu         sync.RWMutex
	cfg        Config
	source     Source
	sink       Sink
	inFlight   int
	generation uint64
	produced   int64

	rssi      []uint8
	rssiFresh bool
}

func NewMock(source Source, sink Sink) *MockFrontEnd {
	return &MockFrontEnd{source: source, sink: sink}
}

func (m *MockFrontEnd) Init(_ context.Context, cfg Config) error {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 3_072_000
	}
	if cfg.RSSIDecimation == 0 {
		cfg.RSSIDecimation = 32
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

func (m *MockFrontEnd) Close() error { return nil }

// SetSource swaps the receive source.
func (m *MockFrontEnd) SetSource(src Source) {
	m.mu.Lock()
	m.source = src
	m.produced = 0
	m.mu.Unlock()
}

// InFlight returns the descriptor index the simulated hardware targets.
func (m *MockFrontEnd) InFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inFlight
}

// Step performs one transfer and raises the completion interrupt. It reports
// false when the engine is disabled.
func (m *MockFrontEnd) Step(ex *dma.Exchange) bool {
	if !ex.Enabled() {
		return false
	}
	descriptors := ex.Descriptors()
	if len(descriptors) == 0 {
		return false
	}

	m.mu.Lock()
	if gen := ex.Generation(); gen != m.generation {
		m.generation = gen
		m.inFlight = 0
	}
	d := descriptors[m.inFlight]
	slice := ex.Region().Slice(d.Index)
	if d.Dst.Peripheral {
		if m.sink != nil {
			m.sink.Consume(slice)
		}
	} else {
		if m.source != nil {
			m.source.Fill(slice, m.produced)
		}
		m.produced += int64(len(slice))
		m.captureRSSI(slice)
	}
	m.inFlight = d.Next
	next := m.inFlight
	m.mu.Unlock()

	ex.TransferComplete(next)
	return true
}

// Fault raises the transfer error interrupt.
func (m *MockFrontEnd) Fault(ex *dma.Exchange) {
	ex.TransferError()
}

// Run steps the chain until ctx is canceled, idling while the engine is disabled.
func (m *MockFrontEnd) Run(ctx context.Context, ex *dma.Exchange) error {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	period := time.Duration(0)
	if cfg.TransferPacing > 0 {
		seconds := float64(ex.Region().TransferSize()) / cfg.SampleRate * cfg.TransferPacing
		period = time.Duration(seconds * float64(time.Second))
	}
	var ticker *time.Ticker
	if period > 0 {
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	for {
		if err := ex.WaitEnabled(ctx); err != nil {
			return err
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		m.Step(ex)
	}
}

// ReadRSSI implements RSSISource with the envelope of the last receive transfer.
func (m *MockFrontEnd) ReadRSSI() (buffer.Buffer[uint8], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rssiFresh {
		return buffer.Buffer[uint8]{}, false
	}
	m.rssiFresh = false
	out := make([]uint8, len(m.rssi))
	copy(out, m.rssi)
	rate := uint32(m.cfg.SampleRate) / uint32(m.cfg.RSSIDecimation)
	return buffer.New(out, rate), true
}

func (m *MockFrontEnd) captureRSSI(slice []buffer.ComplexInt8) {
	n := m.cfg.RSSIDecimation
	if n <= 0 {
		return
	}
	m.rssi = m.rssi[:0]
	for start := 0; start+n <= len(slice); start += n {
		var acc float64
		for _, s := range slice[start : start+n] {
			acc += math.Hypot(float64(s.I), float64(s.Q))
		}
		m.rssi = append(m.rssi, uint8(buffer.Clamp(acc/float64(n)*2, 0, 255)))
	}
	m.rssiFresh = true
}
